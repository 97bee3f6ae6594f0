package llm

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

const (
	ProviderAnthropic       = "anthropic"
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
)

// AnthropicClient implementa Provider contra la Messages API de Anthropic.
type AnthropicClient struct {
	baseClient
}

func NewAnthropicClient(cfg ClientConfig, logger *zap.Logger) *AnthropicClient {
	return &AnthropicClient{baseClient: newBaseClient(cfg, defaultAnthropicBaseURL, logger)}
}

func (c *AnthropicClient) Name() string {
	return ProviderAnthropic
}

func (c *AnthropicClient) Generate(ctx context.Context, prompt, model string) (string, error) {
	model, err := c.prepare(prompt, model)
	if err != nil {
		return "", err
	}

	reqBody := anthropicRequest{
		Model:       model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}

	resp, err := c.postJSON(ctx, c.baseURL+"/messages", reqBody, headers)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := c.readBody(ProviderAnthropic, resp, anthropicErrorMessage)
	if err != nil {
		c.logger.Debug("anthropic request failed", zap.Int("status", resp.StatusCode), zap.String("model", model))
		return "", err
	}

	var ar anthropicResponse
	if err := json.Unmarshal(respBody, &ar); err != nil {
		return "", malformed(ProviderAnthropic, "invalid json: "+err.Error())
	}

	var sb strings.Builder
	for _, block := range ar.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", malformed(ProviderAnthropic, "no text content blocks")
	}
	return sb.String(), nil
}

func anthropicErrorMessage(body []byte) string {
	var env anthropicResponse
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return ""
	}
	return env.Error.Message
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

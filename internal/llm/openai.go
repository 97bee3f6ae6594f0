package llm

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

const (
	ProviderOpenAI       = "openai"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// OpenAIClient implementa Provider contra la API de chat completions de OpenAI.
type OpenAIClient struct {
	baseClient
}

// NewOpenAIClient construye un cliente apuntando a la API de chat completions.
func NewOpenAIClient(cfg ClientConfig, logger *zap.Logger) *OpenAIClient {
	return &OpenAIClient{baseClient: newBaseClient(cfg, defaultOpenAIBaseURL, logger)}
}

func (c *OpenAIClient) Name() string {
	return ProviderOpenAI
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt, model string) (string, error) {
	model, err := c.prepare(prompt, model)
	if err != nil {
		return "", err
	}

	resp, err := c.postJSON(ctx, c.baseURL+"/chat/completions", c.buildRequest(prompt, model, false), c.headers())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := c.readBody(ProviderOpenAI, resp, openAIErrorMessage)
	if err != nil {
		c.logger.Debug("openai request failed", zap.Int("status", resp.StatusCode), zap.String("model", model))
		return "", err
	}

	var cr openAIChatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", malformed(ProviderOpenAI, "invalid json: "+err.Error())
	}
	if cr.Error != nil {
		return "", &UpstreamError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Message: cr.Error.Message}
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return "", malformed(ProviderOpenAI, "no choices in response")
	}

	return cr.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

func (c *OpenAIClient) buildRequest(prompt, model string, stream bool) openAIChatRequest {
	return openAIChatRequest{
		Model: model,
		Messages: []openAIChatMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stream:      stream,
	}
}

func openAIErrorMessage(body []byte) string {
	var env openAIChatResponse
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return ""
	}
	return env.Error.Message
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature float64             `json:"temperature"`
	Stream      bool                `json:"stream,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type openAIStreamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

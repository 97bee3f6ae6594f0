package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const (
	ProviderGemini       = "gemini"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// GeminiClient implementa Provider contra generateContent de Google Gemini.
type GeminiClient struct {
	baseClient
}

func NewGeminiClient(cfg ClientConfig, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{baseClient: newBaseClient(cfg, defaultGeminiBaseURL, logger)}
}

func (c *GeminiClient) Name() string {
	return ProviderGemini
}

func (c *GeminiClient) Generate(ctx context.Context, prompt, model string) (string, error) {
	model, err := c.prepare(prompt, model)
	if err != nil {
		return "", err
	}
	model = strings.TrimPrefix(model, "models/")

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(model), url.QueryEscape(c.apiKey))
	resp, err := c.postJSON(ctx, endpoint, c.buildRequest(prompt), nil)
	if err != nil {
		// El error de transporte incluye la URL con la key.
		return "", scrubKey(err, c.apiKey)
	}
	defer resp.Body.Close()

	respBody, err := c.readBody(ProviderGemini, resp, geminiErrorMessage)
	if err != nil {
		c.logger.Debug("gemini request failed", zap.Int("status", resp.StatusCode), zap.String("model", model))
		return "", err
	}

	var gr geminiResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return "", malformed(ProviderGemini, "invalid json: "+err.Error())
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", malformed(ProviderGemini, "no candidates in response")
	}

	var sb strings.Builder
	for _, part := range gr.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", malformed(ProviderGemini, "empty candidate text")
	}
	return sb.String(), nil
}

func (c *GeminiClient) buildRequest(prompt string) geminiRequest {
	maxTokens := c.maxTokens
	temperature := c.temperature
	return geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: &maxTokens,
			Temperature:     &temperature,
		},
	}
}

func geminiErrorMessage(body []byte) string {
	var env geminiErrorResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Error.Message
}

// scrubKey quita la API key de mensajes de error que incluyen la URL.
func scrubKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

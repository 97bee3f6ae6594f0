package llm

import (
	"go.uber.org/zap"

	"ai-chat/internal/config"
)

// NewProvidersFromConfig arma los adaptadores configurados en el orden de
// LLM_PROVIDER_ORDER. Los que no tienen API key se incluyen igual: quedan
// visibles como no disponibles.
func NewProvidersFromConfig(cfg *config.Config, logger *zap.Logger) []Provider {
	base := ClientConfig{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.LLMTimeout,
	}

	openai := base
	openai.APIKey, openai.BaseURL, openai.Model = cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel
	gemini := base
	gemini.APIKey, gemini.BaseURL, gemini.Model = cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel
	anthropic := base
	anthropic.APIKey, anthropic.BaseURL, anthropic.Model = cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, cfg.AnthropicModel

	providers := []Provider{
		NewOpenAIClient(openai, logger),
		NewGeminiClient(gemini, logger),
		NewAnthropicClient(anthropic, logger),
	}
	return OrderProviders(providers, cfg.ProviderOrder)
}

package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio. Se construye una sola vez en
// main y se inyecta; ningun componente lee el entorno despues del arranque.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	BoltPath    string `env:"BOLT_PATH" envDefault:"data/chat.bolt"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`

	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-pro"`

	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com/v1"`
	AnthropicModel   string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-haiku-20240307"`

	ProviderOrder []string      `env:"LLM_PROVIDER_ORDER" envSeparator:"," envDefault:"openai,gemini,anthropic"`
	MaxTokens     int           `env:"LLM_MAX_TOKENS" envDefault:"1000"`
	Temperature   float64       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	LLMTimeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	FallbackText  string        `env:"LLM_FALLBACK_TEXT" envDefault:"I'm having trouble reaching the AI service right now. Please try again in a moment."`

	JWTSecret           string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`

	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	SendRateLimit  int           `env:"SEND_RATE_LIMIT" envDefault:"30"`
	SendRateWindow time.Duration `env:"SEND_RATE_WINDOW" envDefault:"1m"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Provider es la capacidad uniforme que expone cada proveedor de IA.
type Provider interface {
	Name() string
	DefaultModel() string
	// IsAvailable se evalua en cada llamada: solo indica si hay credencial.
	IsAvailable() bool
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// StreamingProvider agrega generacion incremental a un Provider.
type StreamingProvider interface {
	Provider
	Stream(ctx context.Context, prompt, model string) (<-chan StreamChunk, error)
}

// StreamChunk transporta un fragmento de texto o el error que corto el stream.
type StreamChunk struct {
	Text string
	Err  error
}

// ClientConfig agrupa lo necesario para construir un adaptador HTTP.
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

const defaultTimeout = 60 * time.Second

// baseClient concentra los campos comunes de los adaptadores.
type baseClient struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
	logger      *zap.Logger
}

func newBaseClient(cfg ClientConfig, defaultBaseURL string, logger *zap.Logger) baseClient {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return baseClient{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       strings.TrimSpace(cfg.Model),
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		client:      httpClient,
		logger:      logger,
	}
}

func (c *baseClient) DefaultModel() string {
	return c.model
}

func (c *baseClient) IsAvailable() bool {
	return c.apiKey != ""
}

// prepare valida el prompt y la credencial y resuelve el modelo efectivo.
func (c *baseClient) prepare(prompt, model string) (string, error) {
	if c.apiKey == "" {
		return "", ErrCredentialMissing
	}
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = c.model
	}
	return model, nil
}

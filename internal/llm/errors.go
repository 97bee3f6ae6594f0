package llm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCredentialMissing   = errors.New("llm credential missing")
	ErrEmptyPrompt         = errors.New("llm empty prompt")
	ErrMalformedResponse   = errors.New("llm malformed response")
	ErrNoProviderAvailable = errors.New("no llm provider available")
)

// UpstreamError representa una respuesta no 2xx del proveedor.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s http error: status=%d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s http error: status=%d: %s", e.Provider, e.StatusCode, e.Message)
}

// Attempt registra el resultado fallido de un candidato durante el ruteo.
type Attempt struct {
	Provider string
	Model    string
	Err      error
}

// ExhaustedError se devuelve cuando ningun proveedor pudo responder.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrNoProviderAvailable.Error()
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return fmt.Sprintf("%s (%s)", ErrNoProviderAvailable.Error(), strings.Join(parts, "; "))
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrNoProviderAvailable
}

func malformed(provider, detail string) error {
	return fmt.Errorf("%s: %w: %s", provider, ErrMalformedResponse, detail)
}

// truncate recorta cuerpos de error para no inundar los logs.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

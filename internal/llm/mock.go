package llm

import (
	"context"
	"sync"
)

// MockProvider permite tests sin llamar a un proveedor real.
type MockProvider struct {
	ProviderName string
	Model        string
	Available    bool
	Response     string
	Err          error
	// Chunks, StreamErr y CutErr solo se usan via MockStreamingProvider.
	// CutErr llega como ultimo chunk, despues de Chunks.
	Chunks    []string
	StreamErr error
	CutErr    error

	mu         sync.Mutex
	calls      int
	lastPrompt string
	lastModel  string
}

func (m *MockProvider) Name() string         { return m.ProviderName }
func (m *MockProvider) DefaultModel() string { return m.Model }
func (m *MockProvider) IsAvailable() bool    { return m.Available }

func (m *MockProvider) Generate(_ context.Context, prompt, model string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastPrompt = prompt
	m.lastModel = model
	if !m.Available {
		return "", ErrCredentialMissing
	}
	return m.Response, m.Err
}

// Calls devuelve cuantas veces se invoco Generate o Stream.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastModel devuelve el modelo recibido en la ultima invocacion.
func (m *MockProvider) LastModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastModel
}

// MockStreamingProvider agrega Stream a MockProvider.
type MockStreamingProvider struct {
	*MockProvider
}

func (m MockStreamingProvider) Stream(_ context.Context, prompt, model string) (<-chan StreamChunk, error) {
	m.mu.Lock()
	m.calls++
	m.lastPrompt = prompt
	m.lastModel = model
	chunks := append([]string(nil), m.Chunks...)
	err, cutErr := m.StreamErr, m.CutErr
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	out := make(chan StreamChunk, len(chunks)+1)
	for _, c := range chunks {
		out <- StreamChunk{Text: c}
	}
	if cutErr != nil {
		out <- StreamChunk{Err: cutErr}
	}
	close(out)
	return out, nil
}

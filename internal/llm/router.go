package llm

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"ai-chat/internal/domain"
)

// Router elige un proveedor disponible y devuelve el primer resultado exitoso.
//
// Orden de candidatos: el proveedor preferido (si esta configurado y tiene
// credencial) va primero con el modelo pedido; despues el resto en el orden
// de declaracion con su modelo por defecto. Ningun proveedor se intenta dos
// veces en la misma llamada. No guarda estado entre llamadas.
type Router struct {
	providers []Provider
	logger    *zap.Logger
}

func NewRouter(logger *zap.Logger, providers ...Provider) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	filtered := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			filtered = append(filtered, p)
		}
	}
	return &Router{providers: filtered, logger: logger}
}

// OrderProviders reordena providers segun names; los nombres desconocidos se
// ignoran y los proveedores no nombrados quedan fuera.
func OrderProviders(providers []Provider, names []string) []Provider {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	out := make([]Provider, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		p, ok := byName[n]
		if !ok || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, p)
	}
	return out
}

type candidate struct {
	provider Provider
	model    string
}

// StreamResult es un stream abierto junto con los proveedores que se
// probaron para abrirlo, incluido el que respondio.
type StreamResult struct {
	Chunks   <-chan StreamChunk
	Provider string
	Model    string
	Tried    []string
}

func (r *Router) candidates(preferred, model string, exclude []string) []candidate {
	preferred = strings.ToLower(strings.TrimSpace(preferred))
	model = strings.TrimSpace(model)
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}

	out := make([]candidate, 0, len(r.providers))
	if preferred != "" && !skip[preferred] {
		for _, p := range r.providers {
			if p.Name() == preferred && p.IsAvailable() {
				m := model
				if m == "" {
					m = p.DefaultModel()
				}
				out = append(out, candidate{provider: p, model: m})
				break
			}
		}
	}
	for _, p := range r.providers {
		if p.Name() == preferred || skip[p.Name()] || !p.IsAvailable() {
			continue
		}
		out = append(out, candidate{provider: p, model: p.DefaultModel()})
	}
	return out
}

// Route ejecuta prompt contra los candidatos en orden. Los fallos individuales
// se registran y se absorben; solo el agotamiento llega al caller como
// *ExhaustedError (errors.Is(err, ErrNoProviderAvailable)).
func (r *Router) Route(ctx context.Context, prompt, preferred, model string) (domain.RouteResult, error) {
	return r.RouteExcluding(ctx, prompt, preferred, model, nil)
}

// RouteExcluding es Route sin los proveedores de exclude, que ya se
// intentaron en la misma llamada.
func (r *Router) RouteExcluding(ctx context.Context, prompt, preferred, model string, exclude []string) (domain.RouteResult, error) {
	var attempts []Attempt
	for _, c := range r.candidates(preferred, model, exclude) {
		if err := ctx.Err(); err != nil {
			return domain.RouteResult{}, err
		}
		text, err := c.provider.Generate(ctx, prompt, c.model)
		if err == nil {
			return domain.RouteResult{Text: text, Provider: c.provider.Name(), Model: c.model}, nil
		}
		if errors.Is(err, ErrEmptyPrompt) {
			return domain.RouteResult{}, err
		}
		attempts = append(attempts, Attempt{Provider: c.provider.Name(), Model: c.model, Err: err})
		r.logger.Warn("llm provider failed, trying next",
			zap.String("provider", c.provider.Name()),
			zap.String("model", c.model),
			zap.Error(err),
		)
	}
	return domain.RouteResult{}, &ExhaustedError{Attempts: attempts}
}

// Stream aplica el mismo orden que Route pero solo sobre proveedores con
// streaming. Un proveedor cuyo stream no abre se salta. Tried se completa
// tambien cuando ninguno abre.
func (r *Router) Stream(ctx context.Context, prompt, preferred, model string) (StreamResult, error) {
	var (
		attempts []Attempt
		tried    []string
	)
	for _, c := range r.candidates(preferred, model, nil) {
		sp, ok := c.provider.(StreamingProvider)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return StreamResult{Tried: tried}, err
		}
		tried = append(tried, c.provider.Name())
		ch, err := sp.Stream(ctx, prompt, c.model)
		if err == nil {
			return StreamResult{Chunks: ch, Provider: c.provider.Name(), Model: c.model, Tried: tried}, nil
		}
		if errors.Is(err, ErrEmptyPrompt) {
			return StreamResult{Tried: tried}, err
		}
		attempts = append(attempts, Attempt{Provider: c.provider.Name(), Model: c.model, Err: err})
		r.logger.Warn("llm stream failed to open, trying next",
			zap.String("provider", c.provider.Name()),
			zap.String("model", c.model),
			zap.Error(err),
		)
	}
	return StreamResult{Tried: tried}, &ExhaustedError{Attempts: attempts}
}

// Providers describe los proveedores configurados en orden de declaracion.
func (r *Router) Providers() []domain.ProviderStatus {
	out := make([]domain.ProviderStatus, 0, len(r.providers))
	for _, p := range r.providers {
		_, streaming := p.(StreamingProvider)
		out = append(out, domain.ProviderStatus{
			Name:         p.Name(),
			DefaultModel: p.DefaultModel(),
			Available:    p.IsAvailable(),
			Streaming:    streaming,
		})
	}
	return out
}

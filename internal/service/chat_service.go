package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ai-chat/internal/domain"
	"ai-chat/internal/llm"
)

const (
	FallbackProvider = "fallback"
	FallbackModel    = "none"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRateLimited     = errors.New("rate limited")
)

// ChatRouter es la parte del llm.Router que usa ChatService.
type ChatRouter interface {
	RouteExcluding(ctx context.Context, prompt, preferred, model string, exclude []string) (domain.RouteResult, error)
	Stream(ctx context.Context, prompt, preferred, model string) (llm.StreamResult, error)
}

// MessageSaver persiste un mensaje del historial.
type MessageSaver interface {
	Save(ctx context.Context, msg domain.Message) error
}

// SendInput es el pedido de la UI para enviar un mensaje.
type SendInput struct {
	Message        string
	ConversationID string
	Provider       string
	Model          string
}

// ChatService orquesta el ruteo entre proveedores y la persistencia de ambos turnos.
// Si ningun proveedor responde devuelve un texto fijo; la persistencia es
// best-effort y nunca condiciona la respuesta.
type ChatService struct {
	router       ChatRouter
	history      MessageSaver
	limiter      SendRateLimiter
	fallbackText string
	logger       *zap.Logger
	now          func() time.Time
}

const defaultFallbackText = "I'm having trouble reaching the AI service right now. Please try again in a moment."

func NewChatService(router ChatRouter, history MessageSaver, limiter SendRateLimiter, fallbackText string, logger *zap.Logger) *ChatService {
	if strings.TrimSpace(fallbackText) == "" {
		fallbackText = defaultFallbackText
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		router:       router,
		history:      history,
		limiter:      limiter,
		fallbackText: fallbackText,
		logger:       logger,
		now: func() time.Time {
			// Postgres guarda microsegundos; truncar evita diferencias al releer.
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// SendMessage envia el mensaje del usuario al primer proveedor que responda y
// persiste los dos turnos. Solo falla por sesion ausente, input invalido o
// rate limit.
func (s *ChatService) SendMessage(ctx context.Context, userID string, in SendInput) (domain.ChatResponse, error) {
	userID, in, err := s.prepare(userID, in)
	if err != nil {
		return domain.ChatResponse{}, err
	}
	sentAt := s.now()

	result := s.route(ctx, userID, in, nil)
	return s.finish(ctx, userID, in, sentAt, result), nil
}

// StreamMessage es la variante incremental de SendMessage: emit recibe cada
// fragmento a medida que llega. Si ningun proveedor con streaming abre, usa
// el camino sin streaming y emite el texto completo en un solo fragmento.
// El texto acumulado se persiste al terminar.
func (s *ChatService) StreamMessage(ctx context.Context, userID string, in SendInput, emit func(chunk string) error) (domain.ChatResponse, error) {
	userID, in, err := s.prepare(userID, in)
	if err != nil {
		return domain.ChatResponse{}, err
	}
	sentAt := s.now()

	stream, err := s.router.Stream(ctx, in.Message, in.Provider, in.Model)
	if err != nil {
		s.logger.Info("stream unavailable, using non-streaming path",
			zap.String("user_id", userID),
			zap.Strings("tried", stream.Tried),
			zap.Error(err),
		)
		result := s.route(ctx, userID, in, stream.Tried)
		emitErr := emit(result.Text)
		return s.finish(ctx, userID, in, sentAt, result), emitErr
	}

	var (
		sb      strings.Builder
		emitErr error
	)
	for chunk := range stream.Chunks {
		if chunk.Err != nil {
			// Lo recibido hasta el corte se conserva como respuesta.
			s.logger.Warn("stream interrupted",
				zap.String("provider", stream.Provider),
				zap.String("model", stream.Model),
				zap.Int("received_bytes", sb.Len()),
				zap.Error(chunk.Err),
			)
			continue
		}
		if emitErr != nil {
			continue
		}
		sb.WriteString(chunk.Text)
		if err := emit(chunk.Text); err != nil {
			emitErr = err
		}
	}

	route := domain.RouteResult{Text: sb.String(), Provider: stream.Provider, Model: stream.Model}
	if strings.TrimSpace(route.Text) == "" && emitErr == nil {
		// Nada llego del stream: se prueba el camino normal con los proveedores restantes.
		route = s.route(ctx, userID, in, stream.Tried)
		emitErr = emit(route.Text)
	}
	return s.finish(ctx, userID, in, sentAt, route), emitErr
}

func (s *ChatService) prepare(userID string, in SendInput) (string, SendInput, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", in, ErrUnauthenticated
	}
	in.Message = strings.TrimSpace(in.Message)
	if in.Message == "" {
		return "", in, ErrMessageInvalidInput
	}
	if s.limiter != nil && !s.limiter.Allow(userID) {
		s.logger.Warn("send rate limited", zap.String("user_id", userID))
		return "", in, ErrRateLimited
	}
	in.ConversationID = strings.TrimSpace(in.ConversationID)
	if in.ConversationID == "" {
		in.ConversationID = uuid.NewString()
	}
	in.Provider = strings.TrimSpace(in.Provider)
	in.Model = strings.TrimSpace(in.Model)
	return userID, in, nil
}

// route llama al router sin los proveedores ya intentados y sustituye el
// agotamiento por la respuesta fija.
func (s *ChatService) route(ctx context.Context, userID string, in SendInput, tried []string) domain.RouteResult {
	result, err := s.router.RouteExcluding(ctx, in.Message, in.Provider, in.Model, tried)
	if err == nil {
		return result
	}

	fields := []zap.Field{
		zap.String("user_id", userID),
		zap.String("conversation_id", in.ConversationID),
		zap.String("preferred_provider", in.Provider),
		zap.Error(err),
	}
	var exhausted *llm.ExhaustedError
	if errors.As(err, &exhausted) {
		fields = append(fields, zap.Int("attempts", len(exhausted.Attempts)))
	}
	s.logger.Warn("no provider answered, using fallback response", fields...)

	return domain.RouteResult{Text: s.fallbackText, Provider: FallbackProvider, Model: FallbackModel}
}

// finish persiste ambos turnos (best-effort) y arma la respuesta.
func (s *ChatService) finish(ctx context.Context, userID string, in SendInput, sentAt time.Time, result domain.RouteResult) domain.ChatResponse {
	repliedAt := s.now()
	if !repliedAt.After(sentAt) {
		repliedAt = sentAt.Add(time.Microsecond)
	}

	s.persist(ctx, domain.Message{
		ID:             uuid.NewString(),
		UserID:         userID,
		ConversationID: in.ConversationID,
		Role:           domain.RoleUser,
		Content:        in.Message,
		Provider:       in.Provider,
		Model:          in.Model,
		CreatedAt:      sentAt,
	})
	s.persist(ctx, domain.Message{
		ID:             uuid.NewString(),
		UserID:         userID,
		ConversationID: in.ConversationID,
		Role:           domain.RoleAssistant,
		Content:        result.Text,
		Provider:       result.Provider,
		Model:          result.Model,
		CreatedAt:      repliedAt,
	})

	return domain.ChatResponse{
		Text:           result.Text,
		ConversationID: in.ConversationID,
		Provider:       result.Provider,
		Model:          result.Model,
		Timestamp:      repliedAt,
	}
}

func (s *ChatService) persist(ctx context.Context, msg domain.Message) {
	if s.history == nil {
		return
	}
	// La escritura no debe cancelarse si el cliente ya se fue.
	ctx = context.WithoutCancel(ctx)
	if err := s.history.Save(ctx, msg); err != nil {
		s.logger.Warn("persist message failed",
			zap.Error(err),
			zap.String("user_id", msg.UserID),
			zap.String("conversation_id", msg.ConversationID),
			zap.String("role", string(msg.Role)),
		)
	}
}

package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ai-chat/internal/domain"
	"ai-chat/internal/repository"
)

// HistoryService encapsula el acceso al historial de conversaciones de un usuario.
// Las lecturas degradan a listas vacias y los borrados a false: los errores
// de almacenamiento se registran pero no se propagan.
type HistoryService struct {
	repo   repository.MessageRepository
	logger *zap.Logger
}

var (
	ErrMessageServiceNotConfigured = errors.New("message service not configured")
	ErrMessageInvalidInput         = errors.New("message invalid input")
)

func NewHistoryService(repo repository.MessageRepository, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{repo: repo, logger: logger}
}

// Save valida y persiste un mensaje, completando id y created_at si faltan.
func (s *HistoryService) Save(ctx context.Context, msg domain.Message) error {
	if s == nil || s.repo == nil {
		return ErrMessageServiceNotConfigured
	}

	msg.UserID = strings.TrimSpace(msg.UserID)
	msg.ConversationID = strings.TrimSpace(msg.ConversationID)
	role, ok := domain.ParseRole(string(msg.Role))

	// El contenido se guarda tal cual; solo se rechaza si esta en blanco.
	if msg.UserID == "" || msg.ConversationID == "" || strings.TrimSpace(msg.Content) == "" || !ok {
		return ErrMessageInvalidInput
	}
	msg.Role = role
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	return s.repo.Create(ctx, msg)
}

// GetHistory devuelve los mensajes del usuario en orden cronologico,
// opcionalmente filtrados por conversacion. Nunca devuelve nil.
func (s *HistoryService) GetHistory(ctx context.Context, userID, conversationID string) []domain.Message {
	if s == nil || s.repo == nil {
		return []domain.Message{}
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return []domain.Message{}
	}

	messages, err := s.repo.ListByUser(ctx, userID, strings.TrimSpace(conversationID))
	if err != nil {
		s.logger.Warn("history read failed",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("conversation_id", conversationID),
		)
		return []domain.Message{}
	}
	if messages == nil {
		return []domain.Message{}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages
}

// GetConversationList agrupa en memoria todos los mensajes del usuario por
// conversacion. El costo es lineal en la cantidad total de mensajes.
func (s *HistoryService) GetConversationList(ctx context.Context, userID string) []domain.ConversationInfo {
	return GroupConversations(s.GetHistory(ctx, userID, ""))
}

// DeleteConversation borra todos los mensajes de la conversacion del usuario.
func (s *HistoryService) DeleteConversation(ctx context.Context, userID, conversationID string) bool {
	if s == nil || s.repo == nil {
		return false
	}
	userID = strings.TrimSpace(userID)
	conversationID = strings.TrimSpace(conversationID)
	if userID == "" || conversationID == "" {
		return false
	}

	n, err := s.repo.DeleteConversation(ctx, userID, conversationID)
	if err != nil {
		s.logger.Warn("delete conversation failed",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("conversation_id", conversationID),
		)
		return false
	}
	s.logger.Info("conversation deleted",
		zap.String("user_id", userID),
		zap.String("conversation_id", conversationID),
		zap.Int64("messages", n),
	)
	return true
}

// GroupConversations resume mensajes por conversation_id. El ultimo mensaje
// es el de created_at mas reciente; el resultado va de la conversacion mas
// activa a la menos activa.
func GroupConversations(messages []domain.Message) []domain.ConversationInfo {
	index := make(map[string]int)
	out := make([]domain.ConversationInfo, 0)
	for _, m := range messages {
		i, ok := index[m.ConversationID]
		if !ok {
			index[m.ConversationID] = len(out)
			out = append(out, domain.ConversationInfo{
				ConversationID: m.ConversationID,
				MessageCount:   1,
				LastMessage:    m.Content,
				LastMessageAt:  m.CreatedAt,
			})
			continue
		}
		info := &out[i]
		info.MessageCount++
		if !m.CreatedAt.Before(info.LastMessageAt) {
			info.LastMessage = m.Content
			info.LastMessageAt = m.CreatedAt
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out
}

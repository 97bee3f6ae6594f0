package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"ai-chat/internal/domain"
)

// MessageRepository define el contrato de persistencia del historial de chat.
// Los mensajes solo se agregan o se borran por conversacion; nunca se editan.
type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	// ListByUser devuelve los mensajes del usuario ordenados por created_at
	// ascendente. conversationID vacio significa todas las conversaciones.
	ListByUser(ctx context.Context, userID, conversationID string) ([]domain.Message, error)
	DeleteConversation(ctx context.Context, userID, conversationID string) (int64, error)
}

// PgMessageRepository implementa MessageRepository sobre ai_conversation_history.
type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) error {
	const query = `
		INSERT INTO ai_conversation_history (id, user_id, conversation_id, message, role, provider, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.UserID,
		message.ConversationID,
		message.Content,
		string(message.Role),
		nullable(message.Provider),
		nullable(message.Model),
		message.CreatedAt,
	)
	return err
}

func (r *PgMessageRepository) ListByUser(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	query, args := listByUserQuery(userID, conversationID)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var role string
		var provider, model *string

		err = rows.Scan(
			&msg.ID,
			&msg.UserID,
			&msg.ConversationID,
			&msg.Content,
			&role,
			&provider,
			&model,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		msg.Role = domain.Role(role)
		msg.Provider = derefString(provider)
		msg.Model = derefString(model)
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *PgMessageRepository) DeleteConversation(ctx context.Context, userID, conversationID string) (int64, error) {
	const query = `
		DELETE FROM ai_conversation_history
		WHERE user_id = $1 AND conversation_id = $2
	`
	tag, err := r.pool.Exec(ctx, query, userID, conversationID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// listByUserQuery arma el SELECT con el filtro opcional por conversacion.
func listByUserQuery(userID, conversationID string) (string, []any) {
	const base = `
		SELECT id, user_id, conversation_id, message, role, provider, model, created_at
		FROM ai_conversation_history
		WHERE user_id = $1
	`
	if conversationID == "" {
		return base + ` ORDER BY created_at ASC`, []any{userID}
	}
	return base + ` AND conversation_id = $2 ORDER BY created_at ASC`, []any{userID, conversationID}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

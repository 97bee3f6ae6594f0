package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS ai_conversation_history (
	id              UUID PRIMARY KEY,
	user_id         TEXT        NOT NULL,
	conversation_id TEXT        NOT NULL,
	message         TEXT        NOT NULL,
	role            TEXT        NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
	provider        TEXT,
	model           TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ai_conversation_history_user_conv
	ON ai_conversation_history (user_id, conversation_id, created_at);
`

// EnsureSchema crea la tabla de historial si todavia no existe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Package app arma las piezas compartidas por los binarios de cmd/.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ai-chat/internal/config"
	"ai-chat/internal/db"
	"ai-chat/internal/repository"
)

// OpenMessageStore elige el backend del historial: Postgres si hay
// DATABASE_URL, bbolt local en BOLT_PATH si no. El closer libera el backend.
func OpenMessageStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.MessageRepository, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		if err := db.Ping(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("message store", zap.String("backend", "postgres"))
		return repository.NewPgMessageRepository(pool), pool.Close, nil
	}

	boltDB, err := db.OpenBolt(cfg.BoltPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open bolt: %w", err)
	}
	repo, err := repository.NewBoltMessageRepository(boltDB)
	if err != nil {
		_ = boltDB.Close()
		return nil, nil, fmt.Errorf("bolt repository: %w", err)
	}
	logger.Info("message store", zap.String("backend", "bolt"), zap.String("path", cfg.BoltPath))
	return repo, func() { _ = boltDB.Close() }, nil
}

package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ai-chat/internal/config"
	"ai-chat/internal/service"
)

// NewSendRateLimiter usa Redis cuando REDIS_ADDR responde y cae al limitador
// en memoria si no. SEND_RATE_LIMIT <= 0 desactiva el limite. El closer
// libera el cliente de Redis y nunca es nil.
func NewSendRateLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.SendRateLimiter, func()) {
	noop := func() {}
	if cfg.SendRateLimit <= 0 {
		return nil, noop
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
			_ = client.Close()
		} else {
			closeFn := func() {
				if err := client.Close(); err != nil {
					logger.Warn("redis close failed", zap.Error(err))
				}
			}
			return service.NewRedisSendRateLimiter(client, cfg.SendRateWindow, cfg.SendRateLimit), closeFn
		}
	}

	return service.NewMemorySendRateLimiter(cfg.SendRateWindow, cfg.SendRateLimit), noop
}

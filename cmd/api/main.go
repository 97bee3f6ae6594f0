package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-chat/internal/app"
	"ai-chat/internal/config"
	apihttp "ai-chat/internal/http"
	"ai-chat/internal/llm"
	"ai-chat/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	messageRepo, closeStore, err := app.OpenMessageStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("message store", zap.Error(err))
	}
	defer closeStore()

	providers := llm.NewProvidersFromConfig(cfg, logger)
	for _, p := range providers {
		if !p.IsAvailable() {
			logger.Warn("provider without credentials", zap.String("provider", p.Name()))
		}
	}
	router := llm.NewRouter(logger, providers...)

	limiter, closeLimiter := app.NewSendRateLimiter(ctx, cfg, logger)
	defer closeLimiter()
	historySvc := service.NewHistoryService(messageRepo, logger)
	chatSvc := service.NewChatService(router, historySvc, limiter, cfg.FallbackText, logger)

	jwtSvc := service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	chatHandler := apihttp.NewChatHandler(logger, chatSvc, historySvc, router)
	engine := apihttp.NewRouter(logger, jwtSvc, chatHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}
}

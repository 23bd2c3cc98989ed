package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/faq-assistant/backend/internal/api"
	"github.com/faq-assistant/backend/internal/api/handlers"
	"github.com/faq-assistant/backend/internal/cache/redis"
	"github.com/faq-assistant/backend/internal/metrics"
	"github.com/faq-assistant/backend/internal/middleware/ratelimit"
	"github.com/faq-assistant/backend/internal/session"
	"github.com/faq-assistant/backend/pkg/config"
	"github.com/faq-assistant/backend/pkg/logger"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			return serve(cmd, cfg)
		},
	}
}

func serve(cmd *cobra.Command, cfg *config.Config) error {
	logger.Info("Starting FAQ assistant API server")
	metrics.Init()

	a, err := newAssistant(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	deps := map[string]handlers.Pinger{"sqlite": a.store}

	var sessions session.Store = session.NewMemoryStore()
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.SessionTTLSec)*time.Second,
		)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		sessions = redisClient
		deps["redis"] = redisClient
	} else {
		logger.Info("Redis disabled; sessions kept in memory")
	}

	var limiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(ratelimit.Config{
			MaxRequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Logger:               logger.GetLogger(),
		})
		defer limiter.Stop()
	}

	app := api.NewApp(api.Options{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		RateLimiter:  limiter,
		AccessLog:    cfg.Logging.Level == "debug",
	}, api.Handlers{
		Conversations: handlers.NewConversationHandler(a.service, a.store),
		Sessions:      handlers.NewSessionHandler(session.NewManager(sessions, a.service)),
		Health:        handlers.NewHealthHandler(a.corpusSize, deps),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-cmd.Context().Done():
	}

	logger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
	return nil
}

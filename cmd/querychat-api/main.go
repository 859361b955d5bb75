package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duckmesh/querychat/internal/api"
	"github.com/duckmesh/querychat/internal/auth"
	"github.com/duckmesh/querychat/internal/chat"
	"github.com/duckmesh/querychat/internal/config"
	"github.com/duckmesh/querychat/internal/nl2sql"
	"github.com/duckmesh/querychat/internal/observability"
	"github.com/duckmesh/querychat/internal/source"
)

func main() {
	cfg, err := config.LoadFromEnv("querychat-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	src, err := source.Open(context.Background(), cfg, nil)
	if err != nil {
		logger.Error("failed to open source", slog.String("driver", string(cfg.Source.Driver)), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = src.Close() }()

	translator, err := nl2sql.NewRuleTranslator(src)
	if err != nil {
		logger.Error("failed to initialize query translator", slog.Any("error", err))
		os.Exit(1)
	}
	questions, err := chat.NewService(translator, src, logger)
	if err != nil {
		logger.Error("failed to initialize question service", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger:    logger,
		Questions: questions,
		Schema:    src,
		Readiness: api.CombineReadinessChecks(
			api.CheckSource(src.HealthCheck),
			api.CheckSchemaReadable(src),
		),
		DependencyTimout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("driver", string(cfg.Source.Driver)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/adebanjo23/DREW-AI-BACKEND/internal/app"
	"github.com/adebanjo23/DREW-AI-BACKEND/internal/config"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return err
	}

	log := logger.New("crm-service", cfg.LogLevel)
	log.Info("starting crm service",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.Int("workflow_workers", cfg.WorkflowWorkers),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		return err
	}

	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		return err
	}

	log.Info("crm service stopped")
	return nil
}

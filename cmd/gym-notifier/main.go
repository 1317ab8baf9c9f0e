package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gymnotifier/internal/app"
	"gymnotifier/internal/config"
	"gymnotifier/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "critical: config load failed: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger.Level, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "critical: logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("application starting",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.Env),
	)

	if err := app.Run(ctx, cfg, log); err != nil {
		log.Error("application crashed", zap.Error(err))
		os.Exit(1)
	}

	log.Info("shutdown complete")
}

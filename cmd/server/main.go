package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/simaogato/cryptodash-backend/internal/app"
	"github.com/simaogato/cryptodash-backend/internal/config"
	"github.com/simaogato/cryptodash-backend/internal/logger"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// 1. Configuration and logging
	cfg, err := config.Load(*configFile)
	if err != nil {
		log := logger.New(logger.Config{})
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	log.Info().Str("store", cfg.StoreDriver).Msg("Starting cryptodash")

	// 2. Graceful shutdown on SIGINT / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Build and run
	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise application")
	}

	if err := application.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

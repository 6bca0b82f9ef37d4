package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/maternity-risk-server/internal/api"
	"github.com/maternity-risk-server/internal/app"
	"github.com/maternity-risk-server/internal/config"
	"github.com/maternity-risk-server/internal/logging"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stack, err := app.Build(ctx, configManager, logger, app.Options{Migrate: true})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize risk engine")
	}
	defer stack.Close()

	server := api.NewServer(configManager, stack.Engine, api.Options{
		History: stack.History,
		Checks:  stack.HealthChecks(),
	}, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		stack.Close()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

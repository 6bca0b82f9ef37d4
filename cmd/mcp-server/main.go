// Package main provides the MCP entry point backed by PostgreSQL and,
// optionally, Redis.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/maternity-risk-server/internal/app"
	"github.com/maternity-risk-server/internal/config"
	"github.com/maternity-risk-server/internal/logging"
	"github.com/maternity-risk-server/internal/mcp"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	// stdout carries the protocol, so logs never go there.
	output := cfg.Logging.Output
	if output == "stdout" {
		output = "stderr"
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, output)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stack, err := app.Build(ctx, configManager, logger, app.Options{Migrate: true})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize risk engine")
	}
	defer stack.Close()

	var opts []mcp.ServerOption
	if stack.History != nil {
		opts = append(opts, mcp.WithAssessmentLog(stack.History, ""))
	}
	server := mcp.NewServer(stack.Engine, logger, opts...)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("MCP server failed")
		stack.Close()
		os.Exit(1)
	}

	logger.Info("MCP server stopped")
}

package mcp

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maternity-risk-server/internal/app"
	"github.com/maternity-risk-server/internal/assessment"
	litecfg "github.com/maternity-risk-server/internal/config"
)

// LiteServer is a standalone MCP server that requires no external
// database: reference data and the assessment log live in SQLite files.
type LiteServer struct {
	*Server

	config  *litecfg.LiteConfig
	stack   *app.LiteStack
	history assessment.Store
	logger  *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithAssessmentStore sets a custom assessment store.
func WithAssessmentStore(store assessment.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.history = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new standalone MCP server instance.
func NewLiteServer(ctx context.Context, cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		config: cfg,
		logger: logrus.New(),
	}

	if cfg.LogFormat == "text" {
		server.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		server.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		server.logger.SetLevel(level)
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	stack, err := app.BuildLite(ctx, cfg, server.history, server.logger)
	if err != nil {
		return nil, err
	}
	server.stack = stack
	server.history = stack.History

	serverOpts := []ServerOption{
		WithServerInfo(ServerInfo{Name: "maternity-risk-server-lite", Version: DefaultServerInfo.Version}),
	}
	if stack.History != nil {
		serverOpts = append(serverOpts, WithAssessmentLog(stack.History, cfg.ExportDir()))
	}

	server.Server = NewServer(stack.Engine, server.logger, serverOpts...)

	server.logger.WithField("data_dir", cfg.DataDir).Info("Lite server initialized successfully")
	return server, nil
}

// Close releases the SQLite handles.
func (s *LiteServer) Close() error {
	return s.stack.Close()
}

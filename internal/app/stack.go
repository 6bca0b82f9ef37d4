// Package app assembles the PostgreSQL-backed risk engine shared by the
// HTTP server, the MCP server and riskctl.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maternity-risk-server/internal/assessment"
	"github.com/maternity-risk-server/internal/cache"
	"github.com/maternity-risk-server/internal/database"
	"github.com/maternity-risk-server/internal/domain"
	"github.com/maternity-risk-server/internal/repository"
	"github.com/maternity-risk-server/internal/service"
)

// Options controls optional start-up steps.
type Options struct {
	// Migrate applies pending schema migrations before wiring the engine.
	Migrate bool
}

// Stack holds the engine and the resources it owns.
type Stack struct {
	DB         *database.DB
	Cache      *cache.CacheClient
	History    assessment.Store
	Categories *repository.CategoryRepository
	Engine     *service.RiskService

	log *logrus.Logger
}

// Build connects to PostgreSQL and, when configured, Redis, and wires the
// risk engine on top of them. Redis being unreachable at start-up only
// disables the shared cache tier.
func Build(ctx context.Context, configManager domain.ConfigManager, logger *logrus.Logger, opts Options) (*Stack, error) {
	cfg := configManager.GetConfig()

	if opts.Migrate {
		if err := Migrate(ctx, configManager, logger, true); err != nil {
			return nil, err
		}
	}

	db, err := database.NewConnection(ctx, database.ConfigFrom(cfg.Database), logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	stack := &Stack{DB: db, log: logger}

	var shared service.SharedCache
	if cfg.Cache.RedisURL != "" {
		client, err := cache.NewCacheClient(cfg.Cache, logger)
		if err != nil {
			logger.WithError(err).Warn("Shared category cache disabled")
		} else {
			stack.Cache = client
			shared = client
		}
	}

	var recorder service.Recorder
	if cfg.Risk.RecordAssessments {
		history, err := assessment.NewPostgresStoreFromURL(configManager.GetDatabaseURL())
		if err != nil {
			stack.Close()
			return nil, fmt.Errorf("opening assessment log: %w", err)
		}
		stack.History = history
		recorder = history
	}

	stack.Categories = repository.NewCategoryRepository(db.Pool, logger)
	conditions := repository.NewConditionRepository(db.Pool, logger)

	directory := service.NewCategoryDirectory(stack.Categories, shared, service.DirectoryConfig{
		CacheKey: cfg.Risk.CategoryCacheKey,
		TTL:      cfg.Risk.CategoryCacheTTL,
	}, logger)

	stack.Engine = service.NewRiskService(
		service.NewNormalizer(conditions, nil, logger),
		service.NewEvaluator(directory, logger),
		directory,
		stack.Categories,
		recorder,
		logger,
	)

	return stack, nil
}

// HealthChecks returns the probes for every backing service.
func (s *Stack) HealthChecks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{
		"database": s.DB.Health,
	}
	if s.Cache != nil {
		// The shared tier is optional, so an open breaker is reported but not fatal.
		checks["cache"] = func(ctx context.Context) error {
			if err := s.Cache.Ping(ctx); err != nil {
				s.log.WithError(err).Debug("Shared category cache unreachable")
			}
			return nil
		}
	}
	if s.History != nil {
		checks["assessment_log"] = func(ctx context.Context) error {
			_, err := s.History.Count(ctx)
			return err
		}
	}
	return checks
}

// Close releases every resource the stack opened.
func (s *Stack) Close() error {
	var errs []error
	if s.History != nil {
		errs = append(errs, s.History.Close())
	}
	if s.Cache != nil {
		errs = append(errs, s.Cache.Close())
	}
	if s.DB != nil {
		s.DB.Close()
	}
	return errors.Join(errs...)
}

// Migrate applies (up) or reverts (down) the schema migrations.
func Migrate(ctx context.Context, configManager domain.ConfigManager, logger *logrus.Logger, up bool) error {
	runner, err := database.NewMigrationRunner(
		configManager.GetDatabaseURL(),
		configManager.GetDatabaseConfig().MigrationsPath,
		logger,
	)
	if err != nil {
		return err
	}
	defer runner.Close()

	if up {
		return runner.Up(ctx)
	}
	return runner.Down(ctx)
}

// MigrationStatus reports the current schema version.
func MigrationStatus(configManager domain.ConfigManager, logger *logrus.Logger) (database.MigrationStatus, error) {
	runner, err := database.NewMigrationRunner(
		configManager.GetDatabaseURL(),
		configManager.GetDatabaseConfig().MigrationsPath,
		logger,
	)
	if err != nil {
		return database.MigrationStatus{}, err
	}
	defer runner.Close()

	return runner.Status()
}

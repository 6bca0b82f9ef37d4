package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maternity-risk-server/internal/assessment"
	"github.com/maternity-risk-server/internal/config"
	"github.com/maternity-risk-server/internal/repository"
	"github.com/maternity-risk-server/internal/service"
)

// LiteStack is the engine wired over SQLite files in the data directory.
type LiteStack struct {
	Reference *repository.SQLReferenceStore
	History   assessment.Store
	Engine    *service.RiskService
}

// BuildLite opens (and seeds) the reference database and, when recording
// is enabled, the assessment log. A non-nil history replaces the SQLite log.
func BuildLite(ctx context.Context, cfg *config.LiteConfig, history assessment.Store, logger *logrus.Logger) (*LiteStack, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	reference, err := repository.OpenSQLiteReferenceStore(ctx, cfg.ReferenceDBPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference store: %w", err)
	}

	if history == nil && cfg.RecordAssessments {
		store, err := assessment.NewSQLiteStore(cfg.AssessmentDBPath())
		if err != nil {
			reference.Close()
			return nil, fmt.Errorf("failed to create assessment store: %w", err)
		}
		history = store
	}

	var recorder service.Recorder
	if history != nil {
		recorder = history
	}

	directory := service.NewCategoryDirectory(reference, nil, service.DirectoryConfig{
		CacheKey: cfg.CategoryCacheKey,
		TTL:      cfg.CategoryCacheTTL,
	}, logger)

	engine := service.NewRiskService(
		service.NewNormalizer(reference, nil, logger),
		service.NewEvaluator(directory, logger),
		directory,
		reference,
		recorder,
		logger,
	)

	return &LiteStack{Reference: reference, History: history, Engine: engine}, nil
}

// Close releases the SQLite handles.
func (s *LiteStack) Close() error {
	var errs []error
	if s.History != nil {
		errs = append(errs, s.History.Close())
	}
	if s.Reference != nil {
		errs = append(errs, s.Reference.Close())
	}
	return errors.Join(errs...)
}

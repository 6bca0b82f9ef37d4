// Package service implements the clinical risk stratification engine: the
// category directory, the clinical input normalizer, the rule evaluator and
// the RiskService that ties them to the assessment log.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maternity-risk-server/internal/assessment"
	"github.com/maternity-risk-server/internal/domain"
)

// ClassifyRequest is one admission or clinical-update event.
type ClassifyRequest struct {
	PatientRef        string                `json:"patient_ref,omitempty"`
	Bundle            domain.ClinicalBundle `json:"bundle"`
	CurrentCategoryID *int64                `json:"current_category_id,omitempty"`
}

// Recorder persists completed evaluations.
type Recorder interface {
	Save(ctx context.Context, record *assessment.Record) error
}

// RiskService runs normalize, evaluate and record for each request.
type RiskService struct {
	normalizer *Normalizer
	evaluator  *Evaluator
	directory  *CategoryDirectory
	categories domain.CategoryStore
	recorder   Recorder
	log        *logrus.Logger
}

// NewRiskService wires the engine. recorder may be nil to disable the log.
func NewRiskService(
	normalizer *Normalizer,
	evaluator *Evaluator,
	directory *CategoryDirectory,
	categories domain.CategoryStore,
	recorder Recorder,
	logger *logrus.Logger,
) *RiskService {
	return &RiskService{
		normalizer: normalizer,
		evaluator:  evaluator,
		directory:  directory,
		categories: categories,
		recorder:   recorder,
		log:        logger,
	}
}

// Classify assigns a risk category to the request's clinical bundle.
// Validation errors come back as *domain.ValidationError; reference data
// failures wrap domain.ErrReferenceDataStore. A failure to record the
// result is logged and does not change it.
func (s *RiskService) Classify(ctx context.Context, req ClassifyRequest) (*assessment.Record, error) {
	snapshot, err := s.normalizer.Normalize(ctx, req.Bundle, req.CurrentCategoryID)
	if err != nil {
		return nil, err
	}

	decision, err := s.evaluator.Explain(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("classifying clinical bundle: %w", err)
	}

	record := &assessment.Record{
		ID:           uuid.NewString(),
		PatientRef:   req.PatientRef,
		CategoryID:   decision.CategoryID,
		CategoryName: decision.Category,
		Rule:         string(decision.Rule),
		MaternalAge:  snapshot.MaternalAge,
		EvaluatedAt:  snapshot.EvaluatedAt.UTC(),
	}

	fields := logrus.Fields{
		"assessment_id": record.ID,
		"patient_ref":   record.PatientRef,
		"category":      record.CategoryName,
		"category_id":   record.CategoryID,
		"rule":          record.Rule,
	}
	s.log.WithFields(fields).Info("Risk category assigned")

	if s.recorder != nil {
		if err := s.recorder.Save(ctx, record); err != nil {
			s.log.WithFields(fields).WithError(err).Error("Failed to record risk assessment")
		}
	}

	return record, nil
}

// CategoryIDs returns the resolved name to identifier mapping.
func (s *RiskService) CategoryIDs(ctx context.Context) (domain.CategoryIDs, error) {
	return s.directory.ResolveCategoryIDs(ctx)
}

// Categories returns the full category reference rows.
func (s *RiskService) Categories(ctx context.Context) ([]domain.RiskCategory, error) {
	return s.categories.ListCategories(ctx)
}

// RefreshCategories drops cached identifiers and resolves them again.
func (s *RiskService) RefreshCategories(ctx context.Context) (domain.CategoryIDs, error) {
	if err := s.directory.Invalidate(ctx); err != nil {
		s.log.WithError(err).Warn("Failed to invalidate shared category cache")
	}
	return s.directory.ResolveCategoryIDs(ctx)
}

// DirectoryStats exposes the category cache counters.
func (s *RiskService) DirectoryStats() DirectoryStats {
	return s.directory.Stats()
}

// EvaluationTimeout bounds a single classification including storage lookups.
const EvaluationTimeout = 10 * time.Second

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/maternity-risk-server/internal/domain"
)

// ConditionRepository resolves pathological-condition reference data.
type ConditionRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewConditionRepository creates a new condition repository
func NewConditionRepository(db *pgxpool.Pool, logger *logrus.Logger) *ConditionRepository {
	return &ConditionRepository{
		db:  db,
		log: logger,
	}
}

// ConditionNames returns the stored names of the given condition identifiers.
// Unknown identifiers are skipped; an empty input never reaches the database.
func (r *ConditionRepository) ConditionNames(ctx context.Context, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	query := `
		SELECT name
		FROM pathological_conditions
		WHERE id = ANY($1)
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"condition_ids": ids,
			"error":         err,
		}).Error("Failed to resolve pathological condition names")
		return nil, fmt.Errorf("%w: querying pathological conditions: %w", domain.ErrReferenceDataStore, err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: scanning pathological conditions: %w", domain.ErrReferenceDataStore, err)
	}

	return names, nil
}

// List returns every pathological condition ordered by identifier
func (r *ConditionRepository) List(ctx context.Context) ([]domain.PathologicalCondition, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM pathological_conditions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing pathological conditions: %w", domain.ErrReferenceDataStore, err)
	}

	conditions, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.PathologicalCondition])
	if err != nil {
		return nil, fmt.Errorf("%w: scanning pathological conditions: %w", domain.ErrReferenceDataStore, err)
	}

	return conditions, nil
}

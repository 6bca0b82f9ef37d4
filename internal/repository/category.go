package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/maternity-risk-server/internal/domain"
)

// CategoryRepository reads risk category reference data. It never writes.
type CategoryRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *pgxpool.Pool, logger *logrus.Logger) *CategoryRepository {
	return &CategoryRepository{
		db:  db,
		log: logger,
	}
}

// CategoryIDsByName returns the identifier of every stored category keyed by
// its canonical name. Rows with names outside the canonical set are ignored.
func (r *CategoryRepository) CategoryIDsByName(ctx context.Context) (map[domain.CategoryName]int64, error) {
	query := `SELECT id, name FROM risk_categories`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.WithError(err).Error("Failed to query risk category identifiers")
		return nil, fmt.Errorf("%w: querying risk categories: %w", domain.ErrReferenceDataStore, err)
	}
	defer rows.Close()

	ids := make(map[domain.CategoryName]int64, len(domain.CanonicalCategories))
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("%w: scanning risk category row: %w", domain.ErrReferenceDataStore, err)
		}
		if n := domain.CategoryName(name); n.IsValid() {
			ids[n] = id
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating risk category rows: %w", domain.ErrReferenceDataStore, err)
	}

	return ids, nil
}

// ListCategories returns the full category rows ordered by identifier
func (r *CategoryRepository) ListCategories(ctx context.Context) ([]domain.RiskCategory, error) {
	query := `
		SELECT id, name, color, description
		FROM risk_categories
		ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.WithError(err).Error("Failed to list risk categories")
		return nil, fmt.Errorf("%w: listing risk categories: %w", domain.ErrReferenceDataStore, err)
	}

	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RiskCategory, error) {
		var c domain.RiskCategory
		var name string
		err := row.Scan(&c.ID, &name, &c.Color, &c.Description)
		c.Name = domain.CategoryName(name)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scanning risk categories: %w", domain.ErrReferenceDataStore, err)
	}

	return categories, nil
}

// GetByName retrieves a single category by its canonical name
func (r *CategoryRepository) GetByName(ctx context.Context, name domain.CategoryName) (*domain.RiskCategory, error) {
	query := `
		SELECT id, name, color, description
		FROM risk_categories
		WHERE name = $1`

	var c domain.RiskCategory
	var stored string
	err := r.db.QueryRow(ctx, query, string(name)).Scan(&c.ID, &stored, &c.Color, &c.Description)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("risk category %q: %w", name, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"category": name,
			"error":    err,
		}).Error("Failed to get risk category by name")
		return nil, fmt.Errorf("%w: getting risk category: %w", domain.ErrReferenceDataStore, err)
	}
	c.Name = domain.CategoryName(stored)

	return &c, nil
}

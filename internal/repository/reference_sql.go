package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/maternity-risk-server/internal/domain"
)

// SQLReferenceStore serves category and condition reference data from a
// database/sql handle. The standalone server backs it with SQLite.
type SQLReferenceStore struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewSQLReferenceStore wraps an existing database handle.
func NewSQLReferenceStore(db *sql.DB, logger *logrus.Logger) *SQLReferenceStore {
	return &SQLReferenceStore{db: db, log: logger}
}

// OpenSQLiteReferenceStore opens (or creates) a SQLite reference database,
// creates the schema and seeds the canonical reference rows.
func OpenSQLiteReferenceStore(ctx context.Context, dbPath string, logger *logrus.Logger) (*SQLReferenceStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference database: %w", err)
	}

	store := NewSQLReferenceStore(db, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := store.Seed(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.WithField("path", dbPath).Info("Reference data store ready")
	return store, nil
}

// EnsureSchema creates the reference tables if they do not exist.
func (s *SQLReferenceStore) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS risk_categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		color TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS pathological_conditions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create reference schema: %w", err)
	}
	return nil
}

// Seed inserts the canonical categories and known conditions, leaving
// existing rows untouched.
func (s *SQLReferenceStore) Seed(ctx context.Context) error {
	for _, c := range DefaultCategories() {
		if _, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO risk_categories (name, color, description) VALUES (?, ?, ?)",
			string(c.Name), c.Color, c.Description,
		); err != nil {
			return fmt.Errorf("failed to seed risk category %s: %w", c.Name, err)
		}
	}
	for _, name := range DefaultConditionNames() {
		if _, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO pathological_conditions (name) VALUES (?)", name,
		); err != nil {
			return fmt.Errorf("failed to seed pathological condition %s: %w", name, err)
		}
	}
	return nil
}

// CategoryIDsByName returns the stored category identifiers keyed by name.
func (s *SQLReferenceStore) CategoryIDsByName(ctx context.Context) (map[domain.CategoryName]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM risk_categories")
	if err != nil {
		s.log.WithError(err).Error("Failed to query risk category identifiers")
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

// ListCategories returns every category row ordered by identifier.
func (s *SQLReferenceStore) ListCategories(ctx context.Context) ([]domain.RiskCategory, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, color, description FROM risk_categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%w: listing risk categories: %w", domain.ErrReferenceDataStore, err)
	}
	defer rows.Close()

	var categories []domain.RiskCategory
	for rows.Next() {
		var c domain.RiskCategory
		var name string
		if err := rows.Scan(&c.ID, &name, &c.Color, &c.Description); err != nil {
			return nil, fmt.Errorf("%w: scanning risk category row: %w", domain.ErrReferenceDataStore, err)
		}
		c.Name = domain.CategoryName(name)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating risk category rows: %w", domain.ErrReferenceDataStore, err)
	}

	return categories, nil
}

// ConditionNames resolves condition identifiers to their stored names.
func (s *SQLReferenceStore) ConditionNames(ctx context.Context, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf("SELECT name FROM pathological_conditions WHERE id IN (%s) ORDER BY id", placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"condition_ids": ids,
			"error":         err,
		}).Error("Failed to resolve pathological condition names")
		return nil, fmt.Errorf("%w: querying pathological conditions: %w", domain.ErrReferenceDataStore, err)
	}
	defer rows.Close()

	names := make([]string, 0, len(ids))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: scanning pathological condition: %w", domain.ErrReferenceDataStore, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating pathological conditions: %w", domain.ErrReferenceDataStore, err)
	}

	return names, nil
}

// Close closes the underlying database handle.
func (s *SQLReferenceStore) Close() error {
	return s.db.Close()
}

// DefaultCategories is the reference set installed at system setup.
func DefaultCategories() []domain.RiskCategory {
	return []domain.RiskCategory{
		{Name: domain.CategoryNormal, Color: "#22c55e", Description: "Sem fatores de risco identificados"},
		{Name: domain.CategoryMedio, Color: "#eab308", Description: "Fatores de risco moderados; acompanhamento reforçado"},
		{Name: domain.CategoryAlto, Color: "#ef4444", Description: "Risco materno ou fetal elevado; avaliação imediata"},
		{Name: domain.CategoryAborto, Color: "#6b7280", Description: "Perda gestacional ou inviabilidade fetal"},
	}
}

// DefaultConditionNames is the pathological-condition seed list.
func DefaultConditionNames() []string {
	return []string{
		"Pré-eclâmpsia",
		"Diabetes Mellitus Tipo 1",
		"Hipertensão Crônica Grave",
		"Diabetes Gestacional",
		"Hipertensão Gestacional",
		"Anemia",
		"Hipotireoidismo",
		"Infecção do Trato Urinário",
	}
}

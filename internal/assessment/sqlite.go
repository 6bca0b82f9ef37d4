package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/maternity-risk-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite assessment store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*Record, error) {
	rec := &Record{}
	var category string

	err := s.Scan(
		&rec.ID, &rec.PatientRef, &rec.CategoryID, &category,
		&rec.Rule, &rec.MaternalAge, &rec.EvaluatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.CategoryName = domain.CategoryName(category)
	return rec, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS risk_assessments (
		id TEXT PRIMARY KEY,
		patient_ref TEXT NOT NULL DEFAULT '',
		category_id INTEGER NOT NULL,
		category_name TEXT NOT NULL,
		rule_code TEXT NOT NULL,
		maternal_age INTEGER NOT NULL DEFAULT 0,
		evaluated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_risk_assessments_patient_ref ON risk_assessments(patient_ref);
	CREATE INDEX IF NOT EXISTS idx_risk_assessments_evaluated_at ON risk_assessments(evaluated_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save appends a record to the log.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.EvaluatedAt.IsZero() {
		record.EvaluatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments (
			id, patient_ref, category_id, category_name,
			rule_code, maternal_age, evaluated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.PatientRef,
		record.CategoryID,
		string(record.CategoryName),
		record.Rule,
		record.MaternalAge,
		record.EvaluatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, patient_ref, category_id, category_name,
		rule_code, maternal_age, evaluated_at
	FROM risk_assessments`

// Get retrieves a record by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// ListByPatient returns a patient's records, newest first.
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientRef string, limit, offset int) ([]*Record, error) {
	limit, offset = normalizeLimit(limit, offset)
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE patient_ref = ?
		ORDER BY evaluated_at DESC
		LIMIT ? OFFSET ?
	`, patientRef, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return collect(rows)
}

// List returns all records, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	limit, offset = normalizeLimit(limit, offset)
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		ORDER BY evaluated_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]*Record, error) {
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Count returns the total number of records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM risk_assessments").Scan(&count)
	return count, err
}

// ExportJSON exports all records to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports records from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

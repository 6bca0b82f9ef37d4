// Package assessment provides the append-only log of risk evaluations.
// Each call to the risk service that completes produces one Record.
package assessment

import (
	"context"
	"io"
	"time"

	"github.com/maternity-risk-server/internal/domain"
)

// Record is one completed risk evaluation.
type Record struct {
	ID           string              `json:"id"`
	PatientRef   string              `json:"patient_ref,omitempty"`
	CategoryID   int64               `json:"category_id"`
	CategoryName domain.CategoryName `json:"category_name"`
	Rule         string              `json:"rule"`
	MaternalAge  int                 `json:"maternal_age"`
	EvaluatedAt  time.Time           `json:"evaluated_at"`
}

// Store defines the interface for assessment log operations.
type Store interface {
	// Save appends a record. An empty ID is replaced with a new UUID.
	Save(ctx context.Context, record *Record) error

	// Get retrieves a record by ID. Returns (nil, nil) when it does not exist.
	Get(ctx context.Context, id string) (*Record, error)

	// ListByPatient returns a patient's records, newest first.
	ListByPatient(ctx context.Context, patientRef string, limit, offset int) ([]*Record, error)

	// List returns all records, newest first.
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// ExportJSON writes every record to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON loads records from reader, skipping IDs already present.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version     string    `json:"version"`
	ExportedAt  time.Time `json:"exported_at"`
	Count       int       `json:"count"`
	Assessments []*Record `json:"assessments"`
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// DefaultListLimit applies when callers pass a non-positive limit.
const DefaultListLimit = 50

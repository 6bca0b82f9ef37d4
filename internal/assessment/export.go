package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// lister is the subset of Store used by the shared export/import helpers.
type lister interface {
	List(ctx context.Context, limit, offset int) ([]*Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	Save(ctx context.Context, record *Record) error
}

func exportJSON(ctx context.Context, s lister, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list assessments: %w", err)
	}
	if all == nil {
		all = []*Record{}
	}

	export := &Export{
		Version:     "1.0",
		ExportedAt:  time.Now().UTC(),
		Count:       len(all),
		Assessments: all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importJSON(ctx context.Context, s lister, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rec := range export.Assessments {
		if rec.ID != "" {
			existing, err := s.Get(ctx, rec.ID)
			if err != nil {
				return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
			}
			if existing != nil {
				skipped++
				continue
			}
		}

		if err := s.Save(ctx, rec); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

func normalizeLimit(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

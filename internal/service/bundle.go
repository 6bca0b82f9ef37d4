package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/maternity-risk-server/internal/domain"
)

// Readers for the loosely typed ClinicalBundle. A key that is missing,
// null, or (for numbers) an empty string reads as absent.

var birthDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"02/01/2006",
}

func readMeasurement(b domain.ClinicalBundle, key string) (domain.Measurement, error) {
	raw, ok := b[key]
	if !ok || raw == nil {
		return domain.NotEvaluated(), nil
	}

	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case json.Number:
		var err error
		if f, err = v.Float64(); err != nil {
			return domain.NotEvaluated(), domain.NewValidationError(key, "must be a number", raw)
		}
	case domain.Measurement:
		if f, ok := v.Value(); ok && !finite(f) {
			return domain.NotEvaluated(), domain.NewValidationError(key, "must be a number", raw)
		}
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return domain.NotEvaluated(), nil
		}
		var err error
		if f, err = strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err != nil {
			return domain.NotEvaluated(), domain.NewValidationError(key, "must be a number", raw)
		}
	default:
		return domain.NotEvaluated(), domain.NewValidationError(key, "must be a number", raw)
	}

	// ParseFloat accepts NaN and Inf spellings; neither is a reading.
	if !finite(f) {
		return domain.NotEvaluated(), domain.NewValidationError(key, "must be a number", raw)
	}
	return domain.Measured(f), nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func readMovement(b domain.ClinicalBundle, key string) (domain.FetalMovement, error) {
	raw, ok := b[key]
	if !ok || raw == nil {
		return domain.MovementNotEvaluated, nil
	}

	switch v := raw.(type) {
	case bool:
		if v {
			return domain.MovementPresent, nil
		}
		return domain.MovementAbsent, nil
	case domain.FetalMovement:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "":
			return domain.MovementNotEvaluated, nil
		case "true", "sim", "presente", "present":
			return domain.MovementPresent, nil
		case "false", "não", "nao", "ausente", "absent":
			return domain.MovementAbsent, nil
		}
	}
	return domain.MovementNotEvaluated, domain.NewValidationError(key, "must be true, false or null", raw)
}

func readText(b domain.ClinicalBundle, key string) (string, error) {
	raw, ok := b[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", domain.NewValidationError(key, "must be text", raw)
	}
	return s, nil
}

func readIDs(b domain.ClinicalBundle, key string) ([]int64, error) {
	raw, ok := b[key]
	if !ok || raw == nil {
		return []int64{}, nil
	}

	switch v := raw.(type) {
	case []int64:
		return dedupe(v), nil
	case []int:
		ids := make([]int64, len(v))
		for i, id := range v {
			ids[i] = int64(id)
		}
		return dedupe(ids), nil
	case []any:
		ids := make([]int64, 0, len(v))
		for _, item := range v {
			id, err := toID(item)
			if err != nil {
				return nil, domain.NewValidationError(key, "must contain only integer identifiers", raw)
			}
			ids = append(ids, id)
		}
		return dedupe(ids), nil
	default:
		return nil, domain.NewValidationError(key, "must be a list of identifiers", raw)
	}
}

func toID(item any) (int64, error) {
	switch v := item.(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("non-integer identifier %v", v)
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported identifier type %T", item)
	}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// readHistory decodes prior pregnancies. A null entry, or one without a
// textual delivery type, yields an empty record that matches nothing.
func readHistory(b domain.ClinicalBundle, key string) ([]domain.ObstetricRecord, error) {
	raw, ok := b[key]
	if !ok || raw == nil {
		return []domain.ObstetricRecord{}, nil
	}

	switch v := raw.(type) {
	case []domain.ObstetricRecord:
		return v, nil
	case []map[string]any:
		history := make([]domain.ObstetricRecord, 0, len(v))
		for _, entry := range v {
			history = append(history, obstetricRecord(entry))
		}
		return history, nil
	case []any:
		history := make([]domain.ObstetricRecord, 0, len(v))
		for _, item := range v {
			if item == nil {
				history = append(history, domain.ObstetricRecord{})
				continue
			}
			entry, ok := item.(map[string]any)
			if !ok {
				return nil, domain.NewValidationError(key, "entries must be objects", item)
			}
			history = append(history, obstetricRecord(entry))
		}
		return history, nil
	default:
		return nil, domain.NewValidationError(key, "must be a list of prior pregnancies", raw)
	}
}

func obstetricRecord(entry map[string]any) domain.ObstetricRecord {
	var record domain.ObstetricRecord
	if dt, ok := entry[domain.FieldDeliveryType].(string); ok {
		record.DeliveryType = &dt
	}
	return record
}

// readPresence reports whether a record list (allergies, medications) is non-empty.
func readPresence(b domain.ClinicalBundle, key string) (bool, error) {
	raw, ok := b[key]
	if !ok || raw == nil {
		return false, nil
	}

	switch v := raw.(type) {
	case []any:
		return len(v) > 0, nil
	case []string:
		return len(v) > 0, nil
	case []map[string]any:
		return len(v) > 0, nil
	case map[string]any:
		return len(v) > 0, nil
	case string:
		return strings.TrimSpace(v) != "", nil
	case bool:
		return v, nil
	default:
		return false, domain.NewValidationError(key, "must be a list of records", raw)
	}
}

func readBirthDate(b domain.ClinicalBundle) (time.Time, error) {
	raw, ok := b[domain.FieldBirthDate]
	if !ok || raw == nil {
		return time.Time{}, domain.NewValidationError(domain.FieldBirthDate, "is required", nil)
	}

	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, domain.NewValidationError(domain.FieldBirthDate, "is required", raw)
		}
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, domain.NewValidationError(domain.FieldBirthDate, "is required", raw)
		}
		for _, layout := range birthDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, domain.NewValidationError(domain.FieldBirthDate, "must be a date in YYYY-MM-DD format", raw)
}

// wholeYears counts the birthdays that have passed between birth and at.
func wholeYears(birth, at time.Time) int {
	by, bm, bd := birth.Date()
	ay, am, ad := at.Date()

	years := ay - by
	if am < bm || (am == bm && ad < bd) {
		years--
	}
	return years
}

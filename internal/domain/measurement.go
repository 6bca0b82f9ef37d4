package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Measurement is a clinical reading that may not have been taken.
// The zero value is "not evaluated"; it never compares as a normal reading.
type Measurement struct {
	value float64
	valid bool
}

// Measured returns a present reading.
func Measured(v float64) Measurement {
	return Measurement{value: v, valid: true}
}

// NotEvaluated returns an absent reading.
func NotEvaluated() Measurement {
	return Measurement{}
}

// IsPresent reports whether the reading was taken.
func (m Measurement) IsPresent() bool {
	return m.valid
}

// Value returns the reading and whether it is present.
func (m Measurement) Value() (float64, bool) {
	return m.value, m.valid
}

// AtLeast reports whether the reading is present and >= threshold.
func (m Measurement) AtLeast(threshold float64) bool {
	return m.valid && m.value >= threshold
}

// Below reports whether the reading is present and < threshold.
func (m Measurement) Below(threshold float64) bool {
	return m.valid && m.value < threshold
}

// Above reports whether the reading is present and > threshold.
func (m Measurement) Above(threshold float64) bool {
	return m.valid && m.value > threshold
}

// Equals reports whether the reading is present and exactly v.
func (m Measurement) Equals(v float64) bool {
	return m.valid && m.value == v
}

// String renders the reading for logs.
func (m Measurement) String() string {
	if !m.valid {
		return "not_evaluated"
	}
	return strconv.FormatFloat(m.value, 'f', -1, 64)
}

// MarshalJSON encodes an absent reading as null.
func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.value)
}

// UnmarshalJSON accepts null or a number.
func (m *Measurement) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = NotEvaluated()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decoding measurement: %w", err)
	}
	*m = Measured(v)
	return nil
}

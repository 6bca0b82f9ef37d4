package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryNameConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    CategoryName
		expected string
	}{
		{"Normal", CategoryNormal, "Normal"},
		{"Medio", CategoryMedio, "Médio"},
		{"Alto", CategoryAlto, "Alto"},
		{"Aborto", CategoryAborto, "Aborto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.String() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, tt.value.String())
			}
			if !tt.value.IsValid() {
				t.Errorf("Expected %s to be a valid category", tt.value)
			}
		})
	}

	assert.False(t, CategoryName("medio").IsValid(), "names are case-sensitive")
	assert.False(t, CategoryName("").IsValid())
}

func TestFallbackCategoryIDs(t *testing.T) {
	require.Len(t, FallbackCategoryIDs, 4)
	for i, name := range CanonicalCategories {
		assert.Equal(t, int64(i+1), FallbackCategoryIDs[name], name)
	}
}

func TestCategoryIDs_NameOf(t *testing.T) {
	ids := CategoryIDs{
		CategoryNormal: 10,
		CategoryMedio:  11,
		CategoryAlto:   12,
		CategoryAborto: 13,
	}

	name, ok := ids.NameOf(12)
	assert.True(t, ok)
	assert.Equal(t, CategoryAlto, name)

	_, ok = ids.NameOf(99)
	assert.False(t, ok)

	assert.Equal(t, int64(13), ids.ID(CategoryAborto))
	assert.Zero(t, CategoryIDs{}.ID(CategoryAborto))
}

func TestCategoryIDs_Clone(t *testing.T) {
	ids := CategoryIDs{CategoryNormal: 1, CategoryAborto: 4}
	clone := ids.Clone()
	clone[CategoryNormal] = 100

	assert.Equal(t, int64(1), ids[CategoryNormal])
	assert.Equal(t, int64(4), clone[CategoryAborto])
}

func TestMeasurement_Predicates(t *testing.T) {
	absent := NotEvaluated()
	assert.False(t, absent.IsPresent())
	assert.False(t, absent.AtLeast(0))
	assert.False(t, absent.Below(1000))
	assert.False(t, absent.Above(-1000))
	assert.False(t, absent.Equals(0), "an absent reading is never zero")
	assert.Equal(t, "not_evaluated", absent.String())

	bcf := Measured(110)
	assert.True(t, bcf.IsPresent())
	assert.False(t, bcf.Below(110))
	assert.True(t, bcf.AtLeast(110))
	assert.False(t, bcf.Above(110))
	assert.Equal(t, "110", bcf.String())

	v, ok := Measured(38.5).Value()
	assert.True(t, ok)
	assert.Equal(t, 38.5, v)
}

func TestMeasurement_JSON(t *testing.T) {
	type payload struct {
		Temperature Measurement `json:"temperature"`
		Systolic    Measurement `json:"systolic"`
	}

	out, err := json.Marshal(payload{Temperature: Measured(37.2)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"temperature":37.2,"systolic":null}`, string(out))

	var in payload
	require.NoError(t, json.Unmarshal([]byte(`{"temperature":null,"systolic":150}`), &in))
	assert.False(t, in.Temperature.IsPresent())
	assert.True(t, in.Systolic.Equals(150))

	assert.Error(t, json.Unmarshal([]byte(`{"systolic":"high"}`), &in))
}

func TestClinicalSnapshot_HasCondition(t *testing.T) {
	s := &ClinicalSnapshot{ConditionNames: []string{ConditionPreEclampsia, "anemia"}}

	assert.True(t, s.HasCondition(ConditionPreEclampsia))
	assert.False(t, s.HasCondition(ConditionGestationalDiabetes))
	assert.False(t, (&ClinicalSnapshot{}).HasCondition(ConditionPreEclampsia))
}

func TestFetalMovement_String(t *testing.T) {
	assert.Equal(t, "not_evaluated", MovementNotEvaluated.String())
	assert.Equal(t, "present", MovementPresent.String())
	assert.Equal(t, "absent", MovementAbsent.String())
}

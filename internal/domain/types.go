// Package domain contains the core entities and value types of the maternity
// clinical risk stratification engine.
//
// An admission (or any later clinical update) is reduced to a ClinicalSnapshot
// and assigned exactly one of four mutually exclusive risk categories:
// Normal, Médio, Alto and Aborto.
package domain

import (
	"errors"
	"time"
)

// CategoryName is the canonical, case-sensitive name of a risk category.
// Names are only used to look identifiers up in the category directory.
type CategoryName string

const (
	CategoryNormal CategoryName = "Normal"
	CategoryMedio  CategoryName = "Médio"
	CategoryAlto   CategoryName = "Alto"
	CategoryAborto CategoryName = "Aborto"
)

// CanonicalCategories lists the four categories from lowest to highest precedence.
var CanonicalCategories = []CategoryName{CategoryNormal, CategoryMedio, CategoryAlto, CategoryAborto}

// FallbackCategoryIDs are substituted when reference data lacks a category.
// They do not track the identifiers actually assigned by storage.
var FallbackCategoryIDs = map[CategoryName]int64{
	CategoryNormal: 1,
	CategoryMedio:  2,
	CategoryAlto:   3,
	CategoryAborto: 4,
}

// IsValid reports whether the name is one of the four canonical categories.
func (n CategoryName) IsValid() bool {
	switch n {
	case CategoryNormal, CategoryMedio, CategoryAlto, CategoryAborto:
		return true
	default:
		return false
	}
}

// String returns the canonical name.
func (n CategoryName) String() string {
	return string(n)
}

// CategoryIDs maps every canonical category name to its identifier.
type CategoryIDs map[CategoryName]int64

// ID returns the identifier registered for name, or zero.
func (c CategoryIDs) ID(name CategoryName) int64 {
	return c[name]
}

// NameOf returns the category name owning id. The lookup walks the canonical
// order so that a duplicated identifier resolves to the lowest category.
func (c CategoryIDs) NameOf(id int64) (CategoryName, bool) {
	for _, name := range CanonicalCategories {
		if v, ok := c[name]; ok && v == id {
			return name, true
		}
	}
	return "", false
}

// Clone returns an independent copy of the mapping.
func (c CategoryIDs) Clone() CategoryIDs {
	out := make(CategoryIDs, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// RiskCategory is immutable reference data created at system setup.
type RiskCategory struct {
	ID          int64        `json:"id"`
	Name        CategoryName `json:"name"`
	Color       string       `json:"color"`
	Description string       `json:"description"`
}

// PathologicalCondition is reference data; the engine only consumes the name.
type PathologicalCondition struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Condition names, lower-cased, that drive the rule chain.
const (
	ConditionPreEclampsia              = "pré-eclâmpsia"
	ConditionDiabetesType1             = "diabetes mellitus tipo 1"
	ConditionSevereChronicHypertension = "hipertensão crônica grave"
	ConditionGestationalDiabetes       = "diabetes gestacional"
)

// FetalMovement is a tri-state observation: not evaluated, present or absent.
type FetalMovement int

const (
	MovementNotEvaluated FetalMovement = iota
	MovementPresent
	MovementAbsent
)

// String returns a stable label for logs and payloads.
func (m FetalMovement) String() string {
	switch m {
	case MovementPresent:
		return "present"
	case MovementAbsent:
		return "absent"
	default:
		return "not_evaluated"
	}
}

// ObstetricRecord is one prior pregnancy. DeliveryType is nil when the
// field was never filled in.
type ObstetricRecord struct {
	DeliveryType *string `json:"delivery_type"`
}

// ClinicalSnapshot is the canonical, typed input of the rule evaluator.
// It is built fresh for every evaluation and never persisted.
type ClinicalSnapshot struct {
	SystolicPressure  Measurement `json:"systolic_pressure"`
	DiastolicPressure Measurement `json:"diastolic_pressure"`
	Temperature       Measurement `json:"temperature"`
	FetalHeartRate    Measurement `json:"bcf"`

	MaternalAge     int    `json:"maternal_age"`
	AdmissionReason string `json:"admission_reason"`
	FetalAssessment string `json:"fetal_assessment"`

	FetalMovement FetalMovement `json:"fetal_movement"`

	ConditionIDs   []int64  `json:"condition_ids"`
	ConditionNames []string `json:"condition_names"`

	ObstetricHistory []ObstetricRecord `json:"obstetric_history"`
	HasPriorCesarean bool              `json:"has_prior_cesarean"`

	HasAllergy              bool `json:"has_allergy"`
	HasContinuousMedication bool `json:"has_continuous_medication"`

	// CurrentCategoryID is the category already stored for the patient, if any.
	CurrentCategoryID *int64 `json:"current_category_id,omitempty"`

	EvaluatedAt time.Time `json:"evaluated_at"`
}

// HasCondition reports whether the lower-cased condition name is selected.
func (s *ClinicalSnapshot) HasCondition(name string) bool {
	for _, n := range s.ConditionNames {
		if n == name {
			return true
		}
	}
	return false
}

// ClinicalBundle is the raw clinical payload as submitted by the admission
// and clinical-update handlers. Values keep their decoded JSON shape.
type ClinicalBundle map[string]any

// Keys understood by the normalizer.
const (
	FieldBirthDate             = "birth_date"
	FieldSystolicPressure      = "systolic_pressure"
	FieldDiastolicPressure     = "diastolic_pressure"
	FieldTemperature           = "temperature"
	FieldFetalHeartRate        = "bcf"
	FieldFetalMovement         = "fetal_movement"
	FieldAdmissionReason       = "admission_reason"
	FieldFetalAssessment       = "fetal_assessment"
	FieldConditionIDs          = "condition_ids"
	FieldObstetricHistory      = "obstetric_history"
	FieldDeliveryType          = "delivery_type"
	FieldAllergies             = "allergies"
	FieldContinuousMedications = "continuous_medications"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCategory    = errors.New("invalid risk category")
	ErrReferenceDataStore = errors.New("reference data lookup failed")
)

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maternity-risk-server/internal/domain"
)

// RuleCode names the rule that decided a classification.
type RuleCode string

const (
	RuleStickyAborto          RuleCode = "STICKY_ABORTO"
	RuleAdmissionText         RuleCode = "L1_ADMISSION_TEXT"
	RuleBCFZero               RuleCode = "L1_BCF_ZERO"
	RuleFetalText             RuleCode = "L1_FETAL_TEXT"
	RuleSevereHypertension    RuleCode = "L2_SEVERE_HYPERTENSION"
	RuleFever                 RuleCode = "L2_FEVER"
	RuleAdvancedMaternalAge   RuleCode = "L2_MATERNAL_AGE"
	RuleBCFOutOfRange         RuleCode = "L2_BCF_OUT_OF_RANGE"
	RuleMovementAbsent        RuleCode = "L2_MOVEMENT_ABSENT"
	RuleHighRiskCondition     RuleCode = "L2_CONDITION"
	RuleMildHypertension      RuleCode = "L3_MILD_HYPERTENSION"
	RuleAdolescentMaternalAge RuleCode = "L3_MATERNAL_AGE"
	RulePriorCesarean         RuleCode = "L3_PRIOR_CESAREAN"
	RuleGestationalDiabetes   RuleCode = "L3_GESTATIONAL_DIABETES"
	RuleAllergy               RuleCode = "L3_ALLERGY"
	RuleContinuousMedication  RuleCode = "L3_CONTINUOUS_MEDICATION"
	RuleDefault               RuleCode = "L4_DEFAULT"
)

// Clinical thresholds. Bounds are inclusive unless the rule says otherwise.
const (
	severeSystolic     = 160.0
	severeDiastolic    = 100.0
	mildSystolic       = 140.0
	mildDiastolic      = 90.0
	feverTemperature   = 38.5
	bcfLowerBound      = 110.0 // strict
	bcfUpperBound      = 160.0 // strict
	advancedAgeAbove   = 35    // strict
	adolescentAgeUnder = 18    // strict
)

var (
	abortionAdmissionMarkers = []string{"aborto"}
	nonViableFetalMarkers    = []string{"sem bcf", "óbito fetal", "inviável"}
	highRiskConditions       = []string{
		domain.ConditionPreEclampsia,
		domain.ConditionDiabetesType1,
		domain.ConditionSevereChronicHypertension,
	}
)

// riskRule pairs a predicate with the category it assigns.
type riskRule struct {
	code     RuleCode
	category domain.CategoryName
	matches  func(s *domain.ClinicalSnapshot) bool
}

// rules is evaluated top to bottom; the first match wins. The order is the
// clinical precedence: Aborto, then Alto, then Médio.
var rules = []riskRule{
	{RuleAdmissionText, domain.CategoryAborto, func(s *domain.ClinicalSnapshot) bool {
		return containsAny(s.AdmissionReason, abortionAdmissionMarkers)
	}},
	{RuleBCFZero, domain.CategoryAborto, func(s *domain.ClinicalSnapshot) bool {
		return s.FetalHeartRate.Equals(0)
	}},
	{RuleFetalText, domain.CategoryAborto, func(s *domain.ClinicalSnapshot) bool {
		return containsAny(s.FetalAssessment, nonViableFetalMarkers)
	}},

	{RuleSevereHypertension, domain.CategoryAlto, func(s *domain.ClinicalSnapshot) bool {
		return s.SystolicPressure.AtLeast(severeSystolic) || s.DiastolicPressure.AtLeast(severeDiastolic)
	}},
	{RuleFever, domain.CategoryAlto, func(s *domain.ClinicalSnapshot) bool {
		return s.Temperature.AtLeast(feverTemperature)
	}},
	{RuleAdvancedMaternalAge, domain.CategoryAlto, func(s *domain.ClinicalSnapshot) bool {
		return s.MaternalAge > advancedAgeAbove
	}},
	{RuleBCFOutOfRange, domain.CategoryAlto, func(s *domain.ClinicalSnapshot) bool {
		return s.FetalHeartRate.Below(bcfLowerBound) || s.FetalHeartRate.Above(bcfUpperBound)
	}},
	{RuleMovementAbsent, domain.CategoryAlto, func(s *domain.ClinicalSnapshot) bool {
		return s.FetalMovement == domain.MovementAbsent
	}},
	{RuleHighRiskCondition, domain.CategoryAlto, func(s *domain.ClinicalSnapshot) bool {
		for _, c := range highRiskConditions {
			if s.HasCondition(c) {
				return true
			}
		}
		return false
	}},

	{RuleMildHypertension, domain.CategoryMedio, func(s *domain.ClinicalSnapshot) bool {
		return s.SystolicPressure.AtLeast(mildSystolic) || s.DiastolicPressure.AtLeast(mildDiastolic)
	}},
	{RuleAdolescentMaternalAge, domain.CategoryMedio, func(s *domain.ClinicalSnapshot) bool {
		return s.MaternalAge < adolescentAgeUnder
	}},
	{RulePriorCesarean, domain.CategoryMedio, func(s *domain.ClinicalSnapshot) bool {
		return s.HasPriorCesarean
	}},
	{RuleGestationalDiabetes, domain.CategoryMedio, func(s *domain.ClinicalSnapshot) bool {
		return s.HasCondition(domain.ConditionGestationalDiabetes)
	}},
	{RuleAllergy, domain.CategoryMedio, func(s *domain.ClinicalSnapshot) bool {
		return s.HasAllergy
	}},
	{RuleContinuousMedication, domain.CategoryMedio, func(s *domain.ClinicalSnapshot) bool {
		return s.HasContinuousMedication
	}},
}

// Decision is the outcome of one evaluation.
type Decision struct {
	CategoryID int64               `json:"category_id"`
	Category   domain.CategoryName `json:"category_name"`
	Rule       RuleCode            `json:"rule"`
}

// Evaluator applies the risk rule chain. It holds no per-call state and is
// safe for concurrent use.
type Evaluator struct {
	directory domain.CategoryResolver
	log       *logrus.Logger
}

// NewEvaluator creates an evaluator resolving identifiers through directory.
func NewEvaluator(directory domain.CategoryResolver, logger *logrus.Logger) *Evaluator {
	return &Evaluator{
		directory: directory,
		log:       logger,
	}
}

// Evaluate returns the identifier of the category assigned to snapshot.
func (e *Evaluator) Evaluate(ctx context.Context, snapshot *domain.ClinicalSnapshot) (int64, error) {
	d, err := e.Explain(ctx, snapshot)
	if err != nil {
		return 0, err
	}
	return d.CategoryID, nil
}

// Explain returns the assigned category together with the deciding rule.
// Directory failures propagate unchanged.
func (e *Evaluator) Explain(ctx context.Context, snapshot *domain.ClinicalSnapshot) (Decision, error) {
	if snapshot == nil {
		return Decision{}, fmt.Errorf("evaluating risk: nil clinical snapshot")
	}

	ids, err := e.directory.ResolveCategoryIDs(ctx)
	if err != nil {
		return Decision{}, err
	}

	decision := decide(snapshot, ids)

	e.log.WithFields(logrus.Fields{
		"rule":        decision.Rule,
		"category":    decision.Category,
		"category_id": decision.CategoryID,
	}).Debug("Risk rule matched")

	return decision, nil
}

func decide(s *domain.ClinicalSnapshot, ids domain.CategoryIDs) Decision {
	aborto := ids.ID(domain.CategoryAborto)
	if s.CurrentCategoryID != nil && *s.CurrentCategoryID == aborto {
		return Decision{CategoryID: aborto, Category: domain.CategoryAborto, Rule: RuleStickyAborto}
	}

	for _, r := range rules {
		if r.matches(s) {
			return Decision{CategoryID: ids.ID(r.category), Category: r.category, Rule: r.code}
		}
	}

	return Decision{CategoryID: ids.ID(domain.CategoryNormal), Category: domain.CategoryNormal, Rule: RuleDefault}
}

func containsAny(text string, markers []string) bool {
	if text == "" {
		return false
	}
	lowered := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lowered, m) {
			return true
		}
	}
	return false
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maternity-risk-server/internal/domain"
)

// cesareanMarkers are matched against lower-cased delivery types. Accentless
// spellings are common in typed records.
var cesareanMarkers = []string{"cesárea", "cesarea", "cesariana"}

// Normalizer turns a raw clinical bundle into a ClinicalSnapshot.
type Normalizer struct {
	conditions domain.ConditionLookup
	now        domain.Clock
	log        *logrus.Logger
}

// NewNormalizer creates a normalizer. A nil clock uses time.Now.
func NewNormalizer(conditions domain.ConditionLookup, clock domain.Clock, logger *logrus.Logger) *Normalizer {
	if clock == nil {
		clock = time.Now
	}
	return &Normalizer{
		conditions: conditions,
		now:        clock,
		log:        logger,
	}
}

// Normalize reads every field the evaluator needs. Absent vitals stay
// absent; free text defaults to "" and the condition list to empty.
// A missing or unparseable birth date, or a field of the wrong shape, yields
// a *domain.ValidationError. Condition lookup failures propagate.
func (n *Normalizer) Normalize(ctx context.Context, bundle domain.ClinicalBundle, currentCategoryID *int64) (*domain.ClinicalSnapshot, error) {
	if bundle == nil {
		bundle = domain.ClinicalBundle{}
	}

	at := n.now()
	snapshot := &domain.ClinicalSnapshot{
		CurrentCategoryID: currentCategoryID,
		EvaluatedAt:       at,
	}

	birthDate, err := readBirthDate(bundle)
	if err != nil {
		return nil, err
	}
	if birthDate.After(at) {
		return nil, domain.NewValidationError(domain.FieldBirthDate, "must not be in the future", bundle[domain.FieldBirthDate])
	}
	snapshot.MaternalAge = wholeYears(birthDate, at)

	vitals := []struct {
		key  string
		dest *domain.Measurement
	}{
		{domain.FieldSystolicPressure, &snapshot.SystolicPressure},
		{domain.FieldDiastolicPressure, &snapshot.DiastolicPressure},
		{domain.FieldTemperature, &snapshot.Temperature},
		{domain.FieldFetalHeartRate, &snapshot.FetalHeartRate},
	}
	for _, v := range vitals {
		if *v.dest, err = readMeasurement(bundle, v.key); err != nil {
			return nil, err
		}
	}

	if snapshot.FetalMovement, err = readMovement(bundle, domain.FieldFetalMovement); err != nil {
		return nil, err
	}
	if snapshot.AdmissionReason, err = readText(bundle, domain.FieldAdmissionReason); err != nil {
		return nil, err
	}
	if snapshot.FetalAssessment, err = readText(bundle, domain.FieldFetalAssessment); err != nil {
		return nil, err
	}
	if snapshot.HasAllergy, err = readPresence(bundle, domain.FieldAllergies); err != nil {
		return nil, err
	}
	if snapshot.HasContinuousMedication, err = readPresence(bundle, domain.FieldContinuousMedications); err != nil {
		return nil, err
	}

	if snapshot.ObstetricHistory, err = readHistory(bundle, domain.FieldObstetricHistory); err != nil {
		return nil, err
	}
	snapshot.HasPriorCesarean = hasPriorCesarean(snapshot.ObstetricHistory)

	if snapshot.ConditionIDs, err = readIDs(bundle, domain.FieldConditionIDs); err != nil {
		return nil, err
	}
	if snapshot.ConditionNames, err = n.conditionNames(ctx, snapshot.ConditionIDs); err != nil {
		return nil, err
	}

	n.log.WithFields(logrus.Fields{
		"maternal_age":   snapshot.MaternalAge,
		"systolic":       snapshot.SystolicPressure.String(),
		"diastolic":      snapshot.DiastolicPressure.String(),
		"temperature":    snapshot.Temperature.String(),
		"bcf":            snapshot.FetalHeartRate.String(),
		"fetal_movement": snapshot.FetalMovement.String(),
		"conditions":     len(snapshot.ConditionNames),
	}).Debug("Clinical bundle normalized")

	return snapshot, nil
}

func (n *Normalizer) conditionNames(ctx context.Context, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	names, err := n.conditions.ConditionNames(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving pathological conditions: %w", err)
	}

	lowered := make([]string, 0, len(names))
	for _, name := range names {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(name)))
	}
	return lowered, nil
}

func hasPriorCesarean(history []domain.ObstetricRecord) bool {
	for _, record := range history {
		if record.DeliveryType == nil {
			continue
		}
		deliveryType := strings.ToLower(*record.DeliveryType)
		for _, marker := range cesareanMarkers {
			if strings.Contains(deliveryType, marker) {
				return true
			}
		}
	}
	return false
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maternity-risk-server/internal/domain"
)

func newTestEvaluator() *Evaluator {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return NewEvaluator(staticResolver{ids: domain.CategoryIDs(storedIDs)}, logger)
}

// baseline is a 28-year-old with nothing recorded; it must evaluate to Normal.
func baseline() *domain.ClinicalSnapshot {
	return &domain.ClinicalSnapshot{MaternalAge: 28}
}

func TestEvaluator_RuleChain(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(s *domain.ClinicalSnapshot)
		category domain.CategoryName
		rule     RuleCode
	}{
		{"absent everything is normal", func(s *domain.ClinicalSnapshot) {}, domain.CategoryNormal, RuleDefault},
		{"age 18 is normal", func(s *domain.ClinicalSnapshot) { s.MaternalAge = 18 }, domain.CategoryNormal, RuleDefault},
		{"age 35 is normal", func(s *domain.ClinicalSnapshot) { s.MaternalAge = 35 }, domain.CategoryNormal, RuleDefault},
		{"normal vitals", func(s *domain.ClinicalSnapshot) {
			s.SystolicPressure = domain.Measured(120)
			s.DiastolicPressure = domain.Measured(80)
			s.Temperature = domain.Measured(36.8)
			s.FetalHeartRate = domain.Measured(140)
			s.FetalMovement = domain.MovementPresent
		}, domain.CategoryNormal, RuleDefault},

		// Level 1
		{"admission text aborto", func(s *domain.ClinicalSnapshot) {
			s.AdmissionReason = "paciente em processo de aborto espontâneo"
		}, domain.CategoryAborto, RuleAdmissionText},
		{"admission text upper case", func(s *domain.ClinicalSnapshot) {
			s.AdmissionReason = "ABORTO RETIDO"
		}, domain.CategoryAborto, RuleAdmissionText},
		{"bcf zero", func(s *domain.ClinicalSnapshot) { s.FetalHeartRate = domain.Measured(0) }, domain.CategoryAborto, RuleBCFZero},
		{"fetal text sem bcf", func(s *domain.ClinicalSnapshot) { s.FetalAssessment = "Sem BCF audível" }, domain.CategoryAborto, RuleFetalText},
		{"fetal text obito", func(s *domain.ClinicalSnapshot) { s.FetalAssessment = "óbito fetal confirmado" }, domain.CategoryAborto, RuleFetalText},
		{"fetal text inviavel", func(s *domain.ClinicalSnapshot) { s.FetalAssessment = "gestação inviável" }, domain.CategoryAborto, RuleFetalText},

		// Level 2
		{"systolic 160", func(s *domain.ClinicalSnapshot) { s.SystolicPressure = domain.Measured(160) }, domain.CategoryAlto, RuleSevereHypertension},
		{"diastolic 100", func(s *domain.ClinicalSnapshot) { s.DiastolicPressure = domain.Measured(100) }, domain.CategoryAlto, RuleSevereHypertension},
		{"temperature 38.5", func(s *domain.ClinicalSnapshot) { s.Temperature = domain.Measured(38.5) }, domain.CategoryAlto, RuleFever},
		{"age 36", func(s *domain.ClinicalSnapshot) { s.MaternalAge = 36 }, domain.CategoryAlto, RuleAdvancedMaternalAge},
		{"bcf 109", func(s *domain.ClinicalSnapshot) { s.FetalHeartRate = domain.Measured(109) }, domain.CategoryAlto, RuleBCFOutOfRange},
		{"bcf 161", func(s *domain.ClinicalSnapshot) { s.FetalHeartRate = domain.Measured(161) }, domain.CategoryAlto, RuleBCFOutOfRange},
		{"movement absent", func(s *domain.ClinicalSnapshot) { s.FetalMovement = domain.MovementAbsent }, domain.CategoryAlto, RuleMovementAbsent},
		{"pre-eclampsia", func(s *domain.ClinicalSnapshot) {
			s.ConditionNames = []string{domain.ConditionPreEclampsia}
		}, domain.CategoryAlto, RuleHighRiskCondition},
		{"type 1 diabetes", func(s *domain.ClinicalSnapshot) {
			s.ConditionNames = []string{"anemia", domain.ConditionDiabetesType1}
		}, domain.CategoryAlto, RuleHighRiskCondition},
		{"severe chronic hypertension", func(s *domain.ClinicalSnapshot) {
			s.ConditionNames = []string{domain.ConditionSevereChronicHypertension}
		}, domain.CategoryAlto, RuleHighRiskCondition},

		// Level 3
		{"systolic 159 is only medium", func(s *domain.ClinicalSnapshot) { s.SystolicPressure = domain.Measured(159) }, domain.CategoryMedio, RuleMildHypertension},
		{"systolic 140", func(s *domain.ClinicalSnapshot) { s.SystolicPressure = domain.Measured(140) }, domain.CategoryMedio, RuleMildHypertension},
		{"diastolic 90", func(s *domain.ClinicalSnapshot) { s.DiastolicPressure = domain.Measured(90) }, domain.CategoryMedio, RuleMildHypertension},
		{"age 17", func(s *domain.ClinicalSnapshot) { s.MaternalAge = 17 }, domain.CategoryMedio, RuleAdolescentMaternalAge},
		{"prior cesarean", func(s *domain.ClinicalSnapshot) { s.HasPriorCesarean = true }, domain.CategoryMedio, RulePriorCesarean},
		{"gestational diabetes", func(s *domain.ClinicalSnapshot) {
			s.ConditionNames = []string{domain.ConditionGestationalDiabetes}
		}, domain.CategoryMedio, RuleGestationalDiabetes},
		{"allergy", func(s *domain.ClinicalSnapshot) { s.HasAllergy = true }, domain.CategoryMedio, RuleAllergy},
		{"continuous medication", func(s *domain.ClinicalSnapshot) { s.HasContinuousMedication = true }, domain.CategoryMedio, RuleContinuousMedication},

		// Boundaries that must not trigger
		{"systolic 139", func(s *domain.ClinicalSnapshot) { s.SystolicPressure = domain.Measured(139) }, domain.CategoryNormal, RuleDefault},
		{"diastolic 89", func(s *domain.ClinicalSnapshot) { s.DiastolicPressure = domain.Measured(89) }, domain.CategoryNormal, RuleDefault},
		{"temperature 38.4", func(s *domain.ClinicalSnapshot) { s.Temperature = domain.Measured(38.4) }, domain.CategoryNormal, RuleDefault},
		{"bcf 110", func(s *domain.ClinicalSnapshot) { s.FetalHeartRate = domain.Measured(110) }, domain.CategoryNormal, RuleDefault},
		{"bcf 160", func(s *domain.ClinicalSnapshot) { s.FetalHeartRate = domain.Measured(160) }, domain.CategoryNormal, RuleDefault},
		{"movement not evaluated", func(s *domain.ClinicalSnapshot) { s.FetalMovement = domain.MovementNotEvaluated }, domain.CategoryNormal, RuleDefault},
		{"unrelated condition", func(s *domain.ClinicalSnapshot) { s.ConditionNames = []string{"anemia"} }, domain.CategoryNormal, RuleDefault},
		{"condition substring is not equality", func(s *domain.ClinicalSnapshot) {
			s.ConditionNames = []string{"suspeita de pré-eclâmpsia"}
		}, domain.CategoryNormal, RuleDefault},
		{"aborto in fetal text only", func(s *domain.ClinicalSnapshot) { s.FetalAssessment = "risco de aborto" }, domain.CategoryNormal, RuleDefault},

		// Precedence
		{"level 2 beats level 3", func(s *domain.ClinicalSnapshot) {
			s.SystolicPressure = domain.Measured(170)
			s.MaternalAge = 16
		}, domain.CategoryAlto, RuleSevereHypertension},
		{"bcf zero is level 1 not level 2", func(s *domain.ClinicalSnapshot) {
			s.FetalHeartRate = domain.Measured(0)
			s.MaternalAge = 40
		}, domain.CategoryAborto, RuleBCFZero},
		{"admission text beats vitals", func(s *domain.ClinicalSnapshot) {
			s.AdmissionReason = "paciente em processo de aborto espontâneo"
			s.SystolicPressure = domain.Measured(118)
			s.DiastolicPressure = domain.Measured(76)
			s.Temperature = domain.Measured(36.5)
			s.FetalHeartRate = domain.Measured(140)
		}, domain.CategoryAborto, RuleAdmissionText},
		{"movement absent beats allergy", func(s *domain.ClinicalSnapshot) {
			s.FetalMovement = domain.MovementAbsent
			s.HasAllergy = true
		}, domain.CategoryAlto, RuleMovementAbsent},
	}

	e := newTestEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := baseline()
			tt.mutate(s)

			d, err := e.Explain(context.Background(), s)
			require.NoError(t, err)
			assert.Equal(t, tt.category, d.Category)
			assert.Equal(t, tt.rule, d.Rule)
			assert.Equal(t, storedIDs[tt.category], d.CategoryID)
		})
	}
}

func TestEvaluator_StickyAborto(t *testing.T) {
	e := newTestEvaluator()
	aborto := storedIDs[domain.CategoryAborto]

	inputs := map[string]func(s *domain.ClinicalSnapshot){
		"all absent":          func(s *domain.ClinicalSnapshot) {},
		"high risk vitals":    func(s *domain.ClinicalSnapshot) { s.SystolicPressure = domain.Measured(180) },
		"medium risk":         func(s *domain.ClinicalSnapshot) { s.HasAllergy = true },
		"healthy fetal data":  func(s *domain.ClinicalSnapshot) { s.FetalHeartRate = domain.Measured(140) },
		"adolescent mother":   func(s *domain.ClinicalSnapshot) { s.MaternalAge = 15 },
		"fetal loss text too": func(s *domain.ClinicalSnapshot) { s.AdmissionReason = "aborto" },
		"every trigger at once": func(s *domain.ClinicalSnapshot) {
			s.AdmissionReason = "aborto espontâneo"
			s.FetalAssessment = "óbito fetal, sem bcf"
			s.FetalHeartRate = domain.Measured(0)
			s.SystolicPressure = domain.Measured(190)
			s.DiastolicPressure = domain.Measured(120)
			s.Temperature = domain.Measured(39.5)
			s.MaternalAge = 44
			s.FetalMovement = domain.MovementAbsent
			s.ConditionNames = []string{domain.ConditionPreEclampsia, domain.ConditionGestationalDiabetes}
			s.HasPriorCesarean = true
			s.HasAllergy = true
			s.HasContinuousMedication = true
		},
	}

	for name, mutate := range inputs {
		t.Run(name, func(t *testing.T) {
			s := baseline()
			mutate(s)
			s.CurrentCategoryID = int64Ptr(aborto)

			d, err := e.Explain(context.Background(), s)
			require.NoError(t, err)
			assert.Equal(t, domain.CategoryAborto, d.Category)
			assert.Equal(t, RuleStickyAborto, d.Rule)
			assert.Equal(t, aborto, d.CategoryID)
		})
	}

	t.Run("other current category is not sticky", func(t *testing.T) {
		s := baseline()
		s.CurrentCategoryID = int64Ptr(storedIDs[domain.CategoryAlto])

		d, err := e.Explain(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, domain.CategoryNormal, d.Category)
	})
}

func TestEvaluator_Scenarios(t *testing.T) {
	e := newTestEvaluator()
	ctx := context.Background()

	t.Run("age 40 with nothing else is Alto", func(t *testing.T) {
		id, err := e.Evaluate(ctx, &domain.ClinicalSnapshot{MaternalAge: 40})
		require.NoError(t, err)
		assert.Equal(t, storedIDs[domain.CategoryAlto], id)
	})

	t.Run("prior cesarean with movement not evaluated is Medio", func(t *testing.T) {
		n := newTestNormalizer(new(MockConditionLookup))
		s, err := n.Normalize(ctx, domain.ClinicalBundle{
			domain.FieldBirthDate:         "1998-01-20",
			domain.FieldSystolicPressure:  nil,
			domain.FieldDiastolicPressure: nil,
			domain.FieldTemperature:       nil,
			domain.FieldFetalHeartRate:    nil,
			domain.FieldFetalMovement:     nil,
			domain.FieldObstetricHistory:  []any{map[string]any{"delivery_type": "cesárea eletiva"}},
			domain.FieldConditionIDs:      []any{},
			domain.FieldAllergies:         []any{},
		}, nil)
		require.NoError(t, err)
		require.Equal(t, 28, s.MaternalAge)

		id, err := e.Evaluate(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, storedIDs[domain.CategoryMedio], id)
	})
}

func TestEvaluator_FallbackIdentifiers(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	e := NewEvaluator(staticResolver{ids: domain.CategoryIDs(domain.FallbackCategoryIDs)}, logger)

	s := baseline()
	s.CurrentCategoryID = int64Ptr(4)

	id, err := e.Evaluate(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
}

func TestEvaluator_DirectoryFailurePropagates(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	e := NewEvaluator(staticResolver{err: domain.ErrReferenceDataStore}, logger)

	_, err := e.Evaluate(context.Background(), baseline())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrReferenceDataStore))

	_, err = e.Explain(context.Background(), nil)
	assert.Error(t, err)
}

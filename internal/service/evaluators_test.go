package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trial-match-engine/internal/domain"
)

func TestEvaluateAgeBounds(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	ctx := context.Background()

	criterion := &domain.Criterion{
		ID:       "age-1",
		TrialID:  "t1",
		Cluster:  domain.ClusterAge,
		Text:     "Aged 18 to 75 years",
		Strength: domain.StrengthInclusion,
		MinValue: floatPtr(18),
		MaxValue: floatPtr(75),
	}

	tests := []struct {
		name        string
		age         float64
		wantMatches bool
	}{
		{"inside bounds", 30, true},
		{"below minimum", 16, false},
		{"at minimum", 18, true},
		{"above maximum", 80, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := &domain.PatientFacts{Age: &domain.AgeFacts{Years: tt.age}}
			r := e.Evaluate(ctx, criterion, facts)
			assert.Equal(t, tt.wantMatches, r.Matches)
			assert.Equal(t, domain.MethodExact, r.MatchMethod)
		})
	}

	// Inclusion criterion failed by age 16 contributes ineligibility; the
	// same bounds as an exclusion criterion with age 16 do not.
	young := &domain.PatientFacts{Age: &domain.AgeFacts{Years: 16}}
	r := e.Evaluate(ctx, criterion, young)
	assert.True(t, r.CausesIneligibility())

	excl := *criterion
	excl.Strength = domain.StrengthExclusion
	r = e.Evaluate(ctx, &excl, young)
	assert.False(t, r.Matches)
	assert.False(t, r.CausesIneligibility())
}

func TestEvaluateAgeMissingFacts(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	criterion := &domain.Criterion{ID: "age-1", TrialID: "t1", Cluster: domain.ClusterAge, Text: "Aged 18 or older"}

	r := e.Evaluate(context.Background(), criterion, &domain.PatientFacts{})
	assert.False(t, r.Matches)
	assert.InDelta(t, 0.45, r.Confidence, 1e-9)
	assert.Contains(t, r.ConfidenceReason, "missing_patient_data")
}

func TestEvaluateBodyDoubleNegativeWeight(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	ctx := context.Background()
	weight := 71.0
	facts := &domain.PatientFacts{Body: &domain.BodyMetrics{WeightKG: &weight}}

	// "must not weigh < 30" is a minimum-weight requirement; weight 71
	// satisfies it, so this exclusion criterion does not match.
	r := e.Evaluate(ctx, &domain.Criterion{
		ID: "w1", TrialID: "t1", Cluster: domain.ClusterBMI,
		Text: "Subjects must not weigh < 30 kg",
	}, facts)
	assert.False(t, r.Matches)
	assert.False(t, r.CausesIneligibility())
	assert.Contains(t, r.ConfidenceReason, "inverts the match")

	// "weighing ≤ 18" with weight 71 simply does not match.
	r = e.Evaluate(ctx, &domain.Criterion{
		ID: "w2", TrialID: "t1", Cluster: domain.ClusterBMI,
		Text: "Subjects weighing ≤ 18 kg",
	}, facts)
	assert.False(t, r.Matches)
	assert.False(t, r.CausesIneligibility())
}

func TestEvaluateBodyPrefersBMI(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	bmi, weight := 32.0, 95.0
	facts := &domain.PatientFacts{Body: &domain.BodyMetrics{BMI: &bmi, WeightKG: &weight}}

	r := e.Evaluate(context.Background(), &domain.Criterion{
		ID: "b1", TrialID: "t1", Cluster: domain.ClusterBMI,
		Text: "BMI ≥ 30", Strength: domain.StrengthExclusion,
	}, facts)
	assert.True(t, r.Matches)
	assert.Contains(t, r.PatientValue, "BMI 32")
}

func TestEvaluateComorbiditySynonymAndPartial(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	ctx := context.Background()

	criterion := &domain.Criterion{
		ID: "c1", TrialID: "t1", Cluster: domain.ClusterComorbidity,
		Text:     "History of malignancy",
		Strength: domain.StrengthExclusion,
		Terms:    []string{"malignant tumors"},
	}

	// A specific cancer satisfies the general criterion via synonym
	// expansion plus word overlap.
	withCancer := &domain.PatientFacts{Comorbidities: []domain.ConditionRecord{{Types: []string{"breast cancer"}}}}
	r := e.Evaluate(ctx, criterion, withCancer)
	assert.True(t, r.Matches)
	assert.Equal(t, domain.MethodSynonym, r.MatchMethod)
	assert.True(t, r.CausesIneligibility())
}

func TestEvaluateComorbidityEmptyListIsConfidentNonMatch(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	criterion := &domain.Criterion{
		ID: "c1", TrialID: "t1", Cluster: domain.ClusterComorbidity,
		Text: "History of malignancy", Terms: []string{"malignant tumors"},
	}

	// Present-but-empty means the patient answered "none": a confident
	// non-match, not missing data.
	facts := &domain.PatientFacts{Comorbidities: []domain.ConditionRecord{}}
	r := e.Evaluate(context.Background(), criterion, facts)
	assert.False(t, r.Matches)
	assert.InDelta(t, 0.95, r.Confidence, 1e-9)

	// Nil means the question was never answered.
	r = e.Evaluate(context.Background(), criterion, &domain.PatientFacts{})
	assert.False(t, r.Matches)
	assert.InDelta(t, 0.45, r.Confidence, 1e-9)
}

func TestEvaluateComorbidityNoFalsePositive(t *testing.T) {
	e := newTestEvaluator(&fakeSemantic{available: false}, nil)
	criterion := &domain.Criterion{
		ID: "c1", TrialID: "t1", Cluster: domain.ClusterComorbidity,
		Text: "History of malignancy", Terms: []string{"malignant tumors"},
	}

	facts := &domain.PatientFacts{Comorbidities: []domain.ConditionRecord{{Types: []string{"diabetes"}}}}
	r := e.Evaluate(context.Background(), criterion, facts)
	assert.False(t, r.Matches)
	// Heuristics found nothing and the semantic capability is off, so the
	// uncertainty is surfaced for triage.
	assert.True(t, r.RequiresAI)
	assert.Equal(t, domain.MethodAIUnavailable, r.MatchMethod)
}

func TestEvaluateComorbidityTimeframeGate(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	criterion := &domain.Criterion{
		ID: "c1", TrialID: "t1", Cluster: domain.ClusterComorbidity,
		Text:      "Malignancy within the past 5 years",
		Terms:     []string{"cancer"},
		Timeframe: &domain.Timeframe{Value: 5, Unit: "year", Relation: domain.RelationWithin},
	}

	// Condition matches but falls outside the window: the categorical
	// match is rejected and the cascade finds nothing else.
	old := &domain.PatientFacts{Comorbidities: []domain.ConditionRecord{{
		Types:     []string{"cancer"},
		Timeframe: &domain.Timeframe{Value: 12, Unit: "year"},
	}}}
	r := e.Evaluate(context.Background(), criterion, old)
	assert.False(t, r.Matches)

	recent := &domain.PatientFacts{Comorbidities: []domain.ConditionRecord{{
		Types:     []string{"cancer"},
		Timeframe: &domain.Timeframe{Value: 2, Unit: "year"},
	}}}
	r = e.Evaluate(context.Background(), criterion, recent)
	assert.True(t, r.Matches)
	assert.Equal(t, domain.MethodExact, r.MatchMethod)
}

func TestEvaluateTreatmentClassMatch(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	criterion := &domain.Criterion{
		ID: "tr1", TrialID: "t1", Cluster: domain.ClusterTreatment,
		Text:     "Prior treatment with any JAK inhibitor",
		Strength: domain.StrengthExclusion,
		Terms:    []string{"JAK inhibitor"},
	}

	facts := &domain.PatientFacts{Treatments: []domain.TreatmentRecord{{Name: "baricitinib"}}}
	r := e.Evaluate(context.Background(), criterion, facts)
	assert.True(t, r.Matches)
	assert.Equal(t, domain.MethodDatabaseClass, r.MatchMethod)
	assert.True(t, r.CausesIneligibility())
}

func TestEvaluateTreatmentDeclaredClass(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	criterion := &domain.Criterion{
		ID: "tr2", TrialID: "t1", Cluster: domain.ClusterTreatment,
		Text:          "Current systemic immunosuppressant therapy",
		RequiredClass: "immunosuppressant",
		Terms:         []string{"immunosuppressant"},
	}

	// The drug itself is unknown to the taxonomy; the patient-declared
	// class carries the match.
	facts := &domain.PatientFacts{Treatments: []domain.TreatmentRecord{{
		Name: "investigational agent XYZ", Class: "immunosuppressant", Ongoing: true,
	}}}
	r := e.Evaluate(context.Background(), criterion, facts)
	assert.True(t, r.Matches)
	assert.Equal(t, domain.MethodDatabaseClass, r.MatchMethod)
}

func TestEvaluateTreatmentWashoutTimeframe(t *testing.T) {
	e := newTestEvaluator(&fakeSemantic{available: false}, nil)
	criterion := &domain.Criterion{
		ID: "tr3", TrialID: "t1", Cluster: domain.ClusterTreatment,
		Text:      "Dupilumab within 12 weeks of baseline",
		Terms:     []string{"dupilumab"},
		Timeframe: &domain.Timeframe{Value: 12, Unit: "week", Relation: domain.RelationWithin},
	}

	// Last dose 6 months ago is outside the washout window, so the
	// exclusion does not fire on the timeframe-gated path.
	facts := &domain.PatientFacts{Treatments: []domain.TreatmentRecord{{
		Name:      "dupilumab",
		Timeframe: &domain.Timeframe{Value: 6, Unit: "month"},
	}}}
	r := e.Evaluate(context.Background(), criterion, facts)
	assert.False(t, r.Matches)
}

func TestEvaluateMeasurementByName(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	criterion := &domain.Criterion{
		ID: "m1", TrialID: "t1", Cluster: domain.ClusterMeasurement,
		Text:     "EASI score of 16 or higher",
		Strength: domain.StrengthInclusion,
		Measure:  "EASI",
	}

	facts := &domain.PatientFacts{Measurements: []domain.MeasurementRecord{
		{Name: "EASI", Value: 22},
		{Name: "SCORAD", Value: 40},
	}}
	r := e.Evaluate(context.Background(), criterion, facts)
	assert.True(t, r.Matches)
	assert.Contains(t, r.PatientValue, "EASI")

	// The named measurement is absent even though others were reported.
	sparse := &domain.PatientFacts{Measurements: []domain.MeasurementRecord{{Name: "SCORAD", Value: 40}}}
	r = e.Evaluate(context.Background(), criterion, sparse)
	assert.False(t, r.Matches)
	assert.InDelta(t, 0.45, r.Confidence, 1e-9)
}

func TestEvaluateSeverityOrdinal(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	criterion := &domain.Criterion{
		ID: "s1", TrialID: "t1", Cluster: domain.ClusterSeverity,
		Text:     "Moderate-to-severe atopic dermatitis",
		Strength: domain.StrengthInclusion,
	}

	tests := []struct {
		level       string
		wantMatches bool
	}{
		{"severe", true},
		{"moderate", true},
		{"mild", false},
	}
	for _, tt := range tests {
		facts := &domain.PatientFacts{Severity: &domain.SeverityFacts{Level: tt.level}}
		r := e.Evaluate(context.Background(), criterion, facts)
		assert.Equal(t, tt.wantMatches, r.Matches, "level %q", tt.level)
	}
}

func TestEvaluateSeverityScore(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	criterion := &domain.Criterion{
		ID: "s2", TrialID: "t1", Cluster: domain.ClusterSeverity,
		Text: "IGA score of 3 or higher", Threshold: floatPtr(3),
	}

	score := 4.0
	facts := &domain.PatientFacts{Severity: &domain.SeverityFacts{Scale: "IGA", Score: &score}}
	r := e.Evaluate(context.Background(), criterion, facts)
	assert.True(t, r.Matches)
}

func TestEvaluateDuration(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	ctx := context.Background()

	structured := &domain.Criterion{
		ID: "d1", TrialID: "t1", Cluster: domain.ClusterDuration,
		Text:      "Diagnosis for at least 6 months",
		Strength:  domain.StrengthInclusion,
		Timeframe: &domain.Timeframe{Value: 6, Unit: "month", Relation: domain.RelationFor},
	}

	longStanding := &domain.PatientFacts{Duration: &domain.DurationFacts{Value: 2, Unit: "years"}}
	r := e.Evaluate(ctx, structured, longStanding)
	assert.True(t, r.Matches)

	recent := &domain.PatientFacts{Duration: &domain.DurationFacts{Value: 10, Unit: "weeks"}}
	r = e.Evaluate(ctx, structured, recent)
	assert.False(t, r.Matches)

	// Free-text fallback converts the parsed bound into days using the
	// unit found in the text.
	parsed := &domain.Criterion{
		ID: "d2", TrialID: "t1", Cluster: domain.ClusterDuration,
		Text: "Atopic dermatitis for at least 1 year",
	}
	r = e.Evaluate(ctx, parsed, longStanding)
	assert.True(t, r.Matches)
	r = e.Evaluate(ctx, parsed, recent)
	assert.False(t, r.Matches)
}

func TestEvaluateVariantSubtype(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	criterion := &domain.Criterion{
		ID: "v1", TrialID: "t1", Cluster: domain.ClusterVariant,
		Text:  "Extrinsic atopic dermatitis",
		Terms: []string{"extrinsic"},
	}

	facts := &domain.PatientFacts{Variant: &domain.VariantFacts{Subtypes: []string{"extrinsic"}}}
	r := e.Evaluate(context.Background(), criterion, facts)
	assert.True(t, r.Matches)
	assert.Equal(t, domain.MethodExact, r.MatchMethod)
}

func TestEvaluateBiomarkerThreshold(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	criterion := &domain.Criterion{
		ID: "bm1", TrialID: "t1", Cluster: domain.ClusterBiomarker,
		Text: "Total IgE above 1500 IU/mL", Measure: "total IgE",
		Strength: domain.StrengthExclusion,
	}

	facts := &domain.PatientFacts{Biomarkers: []domain.MeasurementRecord{{Name: "Total IgE", Value: 2100, Unit: "IU/mL"}}}
	r := e.Evaluate(context.Background(), criterion, facts)
	assert.True(t, r.Matches)
	assert.True(t, r.CausesIneligibility())
}

func TestEvaluateFlareCountAndRecency(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	ctx := context.Background()

	count := 3.0
	facts := &domain.PatientFacts{Flares: &domain.FlareFacts{
		CountPastYear: &count,
		LastFlare:     &domain.Timeframe{Value: 2, Unit: "week"},
	}}

	countCriterion := &domain.Criterion{
		ID: "f1", TrialID: "t1", Cluster: domain.ClusterFlare,
		Text: "At least 2 flares in the past year", Strength: domain.StrengthInclusion,
	}
	r := e.Evaluate(ctx, countCriterion, facts)
	assert.True(t, r.Matches)

	recencyCriterion := &domain.Criterion{
		ID: "f2", TrialID: "t1", Cluster: domain.ClusterFlare,
		Text:      "Active flare within the last 4 weeks",
		Timeframe: &domain.Timeframe{Value: 4, Unit: "week", Relation: domain.RelationWithin},
	}
	r = e.Evaluate(ctx, recencyCriterion, facts)
	assert.True(t, r.Matches)
}

func TestEvaluateUnknownCluster(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	criterion := &domain.Criterion{ID: "x1", TrialID: "t1", Cluster: "genotype", Text: "Carrier of FLG mutation"}

	r := e.Evaluate(context.Background(), criterion, &domain.PatientFacts{})
	assert.False(t, r.Matches)
	assert.InDelta(t, 0.3, r.Confidence, 1e-9)
	assert.Contains(t, r.ConfidenceReason, "unknown_cluster")
}

func TestEvaluateIdempotent(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	criterion := &domain.Criterion{
		ID: "c1", TrialID: "t1", Cluster: domain.ClusterComorbidity,
		Text: "History of malignancy", Terms: []string{"malignant tumors"},
	}
	facts := &domain.PatientFacts{Comorbidities: []domain.ConditionRecord{{Types: []string{"breast cancer"}}}}

	first := e.Evaluate(context.Background(), criterion, facts)
	second := e.Evaluate(context.Background(), criterion, facts)
	require.Equal(t, first, second)
}

func TestEvaluateUnparseableNumericText(t *testing.T) {
	e := newTestEvaluator(nil, nil)
	criterion := &domain.Criterion{
		ID: "a2", TrialID: "t1", Cluster: domain.ClusterAge,
		Text: "Age appropriate for the study population",
	}

	facts := &domain.PatientFacts{Age: &domain.AgeFacts{Years: 30}}
	r := e.Evaluate(context.Background(), criterion, facts)
	assert.False(t, r.Matches)
	assert.False(t, r.RequiresAI)
	assert.InDelta(t, 0.5, r.Confidence, 1e-9)
}

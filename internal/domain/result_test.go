package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCausesIneligibility(t *testing.T) {
	tests := []struct {
		name     string
		strength ExclusionStrength
		matches  bool
		expected bool
	}{
		{"unmet inclusion disqualifies", StrengthInclusion, false, true},
		{"met inclusion passes", StrengthInclusion, true, false},
		{"met exclusion disqualifies", StrengthExclusion, true, true},
		{"unmet exclusion passes", StrengthExclusion, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &CriterionMatchResult{Strength: tt.strength, Matches: tt.matches}
			assert.Equal(t, tt.expected, r.CausesIneligibility())
		})
	}
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-0.5))
	assert.Equal(t, 1.0, ClampConfidence(1.7))
	assert.Equal(t, 0.42, ClampConfidence(0.42))
}

func TestTotalTrials(t *testing.T) {
	results := &PatientMatchResults{
		Eligible:    make([]TrialEligibilityResult, 2),
		Ineligible:  make([]TrialEligibilityResult, 1),
		NeedsReview: make([]TrialEligibilityResult, 3),
	}
	assert.Equal(t, 6, results.TotalTrials())
}

package domain

import (
	"testing"
)

func TestClusterCodeConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    ClusterCode
		expected string
	}{
		{"Age", ClusterAge, "age"},
		{"BMI", ClusterBMI, "bmi"},
		{"Comorbidity", ClusterComorbidity, "comorbidity"},
		{"Treatment", ClusterTreatment, "treatment"},
		{"Infection", ClusterInfection, "infection"},
		{"Measurement", ClusterMeasurement, "measurement"},
		{"Severity", ClusterSeverity, "severity"},
		{"Duration", ClusterDuration, "duration"},
		{"Variant", ClusterVariant, "variant"},
		{"Biomarker", ClusterBiomarker, "biomarker"},
		{"Flare", ClusterFlare, "flare"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}
			if !tt.value.IsValid() {
				t.Errorf("Expected %s to be valid", tt.value)
			}
		})
	}

	if ClusterCode("unknown").IsValid() {
		t.Error("Expected unknown cluster code to be invalid")
	}
	if len(AllClusters()) != len(tests) {
		t.Errorf("AllClusters returned %d codes, expected %d", len(AllClusters()), len(tests))
	}
}

func TestMatchMethodIsVerified(t *testing.T) {
	tests := []struct {
		method   MatchMethod
		verified bool
	}{
		{MethodExact, true},
		{MethodSynonym, true},
		{MethodDatabase, true},
		{MethodDatabaseClass, true},
		{MethodDirectUnverified, false},
		{MethodAIFallback, false},
		{MethodAIUnavailable, false},
		{MethodAIError, false},
		{MethodNone, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			if tt.method.IsVerified() != tt.verified {
				t.Errorf("Expected IsVerified()=%v for %s", tt.verified, tt.method)
			}
			if !tt.method.IsValid() {
				t.Errorf("Expected %s to be a valid method", tt.method)
			}
		})
	}
}

func TestTrialStatusValidation(t *testing.T) {
	for _, s := range []TrialStatus{StatusEligible, StatusIneligible, StatusNeedsReview} {
		if !s.IsValid() {
			t.Errorf("Expected %s to be valid", s)
		}
	}
	if TrialStatus("pending").IsValid() {
		t.Error("Expected unknown status to be invalid")
	}

	fields := StatusNeedsReview.LogFields()
	if fields["requires_action"] != true {
		t.Error("Expected needs_review to require action")
	}
}

func TestCriterionDefaults(t *testing.T) {
	c := &Criterion{ID: "c1", TrialID: "t1", Cluster: ClusterAge, Text: "18 or older"}

	if c.EffectiveStrength() != StrengthExclusion {
		t.Errorf("Expected default strength exclusion, got %s", c.EffectiveStrength())
	}
	if c.EffectiveComparator() != ">=" {
		t.Errorf("Expected default comparator >=, got %s", c.EffectiveComparator())
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Expected valid criterion, got %v", err)
	}

	missing := &Criterion{ID: "c2", TrialID: "t1", Cluster: ClusterAge}
	if err := missing.Validate(); err == nil {
		t.Error("Expected validation error for missing free text")
	}
}

func TestPatientFactsHasCluster(t *testing.T) {
	var nilFacts *PatientFacts
	if nilFacts.HasCluster(ClusterAge) {
		t.Error("nil facts should have no clusters")
	}

	facts := &PatientFacts{
		Age:           &AgeFacts{Years: 30},
		Comorbidities: []ConditionRecord{},
	}

	if !facts.HasCluster(ClusterAge) {
		t.Error("Expected age cluster present")
	}
	// An empty, non-nil collection means the patient answered "none"; that
	// still counts as supplied facts.
	if !facts.HasCluster(ClusterComorbidity) {
		t.Error("Expected empty comorbidity list to count as supplied")
	}
	if facts.HasCluster(ClusterTreatment) {
		t.Error("Expected treatment cluster absent")
	}
}

package domain

import (
	"time"
)

// ReviewPayload is deposited in the admin review sink whenever a match was
// accepted without database verification and a human should adjudicate it.
type ReviewPayload struct {
	ID          string      `json:"id"`
	Term        string      `json:"term"`
	CriterionID string      `json:"criterion_id"`
	TrialID     string      `json:"trial_id"`
	Cluster     ClusterCode `json:"cluster"`
	MatchedText string      `json:"matched_text"`
	Method      MatchMethod `json:"method"`
	Reasoning   string      `json:"reasoning,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// CriterionMatchResult is the evaluation outcome for one (criterion,
// patient) pair. It is created once per evaluation call and never mutated
// afterward.
type CriterionMatchResult struct {
	CriterionID string      `json:"criterion_id"`
	TrialID     string      `json:"trial_id"`
	Cluster     ClusterCode `json:"cluster"`

	Matches    bool              `json:"matches"`
	Confidence float64           `json:"confidence"`
	Strength   ExclusionStrength `json:"exclusion_strength"`

	PatientValue     string `json:"patient_value,omitempty"`
	ConfidenceReason string `json:"confidence_reason,omitempty"`

	RequiresAI       bool        `json:"requires_ai,omitempty"`
	AIReasoning      string      `json:"ai_reasoning,omitempty"`
	NeedsAdminReview bool        `json:"needs_admin_review,omitempty"`
	MatchMethod      MatchMethod `json:"match_method"`

	Review *ReviewPayload `json:"review,omitempty"`
}

// CausesIneligibility is the single implementation of the
// inclusion/exclusion duality: an unmet inclusion criterion and a met
// exclusion criterion both disqualify the patient. Every aggregation layer
// must go through this method rather than re-deriving the rule.
func (r *CriterionMatchResult) CausesIneligibility() bool {
	if r.Strength == StrengthInclusion {
		return !r.Matches
	}
	return r.Matches
}

// ClampConfidence bounds a confidence value to [0,1] regardless of upstream
// inputs.
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TrialEligibilityResult aggregates all criterion results for one trial.
type TrialEligibilityResult struct {
	TrialID string      `json:"trial_id"`
	Status  TrialStatus `json:"status"`

	Results    []CriterionMatchResult `json:"results"`
	AICriteria []CriterionMatchResult `json:"ai_criteria,omitempty"`

	FailureReasons  []string `json:"failure_reasons,omitempty"`
	ConfidenceScore float64  `json:"confidence_score"`
}

// PatientMatchResults is the top-level outcome of one matching request:
// every trial in the corpus, partitioned by terminal status, each bucket
// sorted descending by confidence score.
type PatientMatchResults struct {
	EvaluatedAt time.Time     `json:"evaluated_at"`
	Facts       *PatientFacts `json:"facts"`

	Eligible    []TrialEligibilityResult `json:"eligible"`
	Ineligible  []TrialEligibilityResult `json:"ineligible"`
	NeedsReview []TrialEligibilityResult `json:"needs_review"`
}

// TotalTrials returns the number of trials evaluated across all buckets.
func (p *PatientMatchResults) TotalTrials() int {
	return len(p.Eligible) + len(p.Ineligible) + len(p.NeedsReview)
}

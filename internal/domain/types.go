// Package domain contains the core business entities for matching patient
// profiles against clinical-trial eligibility criteria.
//
// Every criterion and every patient fact is tagged with a cluster code; the
// matching engine dispatches on that code to a cluster-specific evaluator.
package domain

import (
	"errors"
)

// ClusterCode identifies the category of an eligibility criterion and the
// corresponding group of patient facts.
type ClusterCode string

const (
	ClusterAge         ClusterCode = "age"
	ClusterBMI         ClusterCode = "bmi"
	ClusterComorbidity ClusterCode = "comorbidity"
	ClusterTreatment   ClusterCode = "treatment"
	ClusterInfection   ClusterCode = "infection"
	ClusterMeasurement ClusterCode = "measurement"
	ClusterSeverity    ClusterCode = "severity"
	ClusterDuration    ClusterCode = "duration"
	ClusterVariant     ClusterCode = "variant"
	ClusterBiomarker   ClusterCode = "biomarker"
	ClusterFlare       ClusterCode = "flare"
)

// AllClusters returns every recognized cluster code in a stable order.
func AllClusters() []ClusterCode {
	return []ClusterCode{
		ClusterAge, ClusterBMI, ClusterComorbidity, ClusterTreatment,
		ClusterInfection, ClusterMeasurement, ClusterSeverity,
		ClusterDuration, ClusterVariant, ClusterBiomarker, ClusterFlare,
	}
}

// ExclusionStrength marks whether a criterion must be satisfied (inclusion)
// or must not be satisfied (exclusion) for the patient to be eligible.
type ExclusionStrength string

const (
	StrengthInclusion ExclusionStrength = "inclusion"
	StrengthExclusion ExclusionStrength = "exclusion"
)

// MatchMethod records which strategy produced a criterion match result.
// Used for audit trails and to decide whether human review is needed.
type MatchMethod string

const (
	MethodExact            MatchMethod = "exact"
	MethodSynonym          MatchMethod = "synonym"
	MethodDatabase         MatchMethod = "database"
	MethodDatabaseClass    MatchMethod = "database_class"
	MethodDirectUnverified MatchMethod = "direct_unverified"
	MethodAIFallback       MatchMethod = "ai_fallback"
	MethodAIUnavailable    MatchMethod = "ai_unavailable"
	MethodAIError          MatchMethod = "ai_error"
	MethodNone             MatchMethod = "none"
)

// TrialStatus is the terminal triage verdict for one trial.
type TrialStatus string

const (
	StatusEligible    TrialStatus = "eligible"
	StatusIneligible  TrialStatus = "ineligible"
	StatusNeedsReview TrialStatus = "needs_review"
)

// TimeRelation qualifies how a timeframe is compared: an event within the
// last N units, an event more than N units ago, or a state held for N units.
type TimeRelation string

const (
	RelationWithin TimeRelation = "within"
	RelationAfter  TimeRelation = "after"
	RelationBefore TimeRelation = "before"
	RelationFor    TimeRelation = "for"
)

// Validation errors for corpus and result integrity.
var (
	ErrInvalidCluster  = errors.New("invalid cluster code")
	ErrInvalidStrength = errors.New("invalid exclusion strength")
	ErrInvalidStatus   = errors.New("invalid trial status")
	ErrInvalidMethod   = errors.New("invalid match method")
)

// IsValid reports whether the cluster code is one of the recognized
// categories. Criteria with unrecognized codes are still evaluated, but fall
// through to a fixed low-confidence non-match.
func (c ClusterCode) IsValid() bool {
	switch c {
	case ClusterAge, ClusterBMI, ClusterComorbidity, ClusterTreatment,
		ClusterInfection, ClusterMeasurement, ClusterSeverity,
		ClusterDuration, ClusterVariant, ClusterBiomarker, ClusterFlare:
		return true
	default:
		return false
	}
}

func (c ClusterCode) String() string {
	return string(c)
}

// IsValid validates the exclusion strength tag.
func (s ExclusionStrength) IsValid() bool {
	switch s {
	case StrengthInclusion, StrengthExclusion:
		return true
	default:
		return false
	}
}

func (s ExclusionStrength) String() string {
	return string(s)
}

// IsValid validates the match method tag.
func (m MatchMethod) IsValid() bool {
	switch m {
	case MethodExact, MethodSynonym, MethodDatabase, MethodDatabaseClass,
		MethodDirectUnverified, MethodAIFallback, MethodAIUnavailable,
		MethodAIError, MethodNone:
		return true
	default:
		return false
	}
}

func (m MatchMethod) String() string {
	return string(m)
}

// IsVerified reports whether the method carries enough certainty to accept a
// match without human adjudication.
func (m MatchMethod) IsVerified() bool {
	switch m {
	case MethodExact, MethodSynonym, MethodDatabase, MethodDatabaseClass:
		return true
	default:
		return false
	}
}

// IsValid validates the trial status.
func (t TrialStatus) IsValid() bool {
	switch t {
	case StatusEligible, StatusIneligible, StatusNeedsReview:
		return true
	default:
		return false
	}
}

func (t TrialStatus) String() string {
	return string(t)
}

// LogFields returns structured logging fields for triage audit trails.
func (t TrialStatus) LogFields() map[string]any {
	return map[string]any{
		"status":          string(t),
		"is_valid":        t.IsValid(),
		"requires_action": t == StatusNeedsReview,
	}
}

// IsValid validates the timeframe relation tag.
func (r TimeRelation) IsValid() bool {
	switch r {
	case RelationWithin, RelationAfter, RelationBefore, RelationFor:
		return true
	default:
		return false
	}
}

package domain

import (
	"context"
)

// CorpusProvider gives read-only access to the full criterion corpus. The
// engine loads it exactly once at construction; persistence mechanics are
// out of scope.
type CorpusProvider interface {
	Criteria(ctx context.Context) ([]Criterion, error)
}

// TermInfo is the resolved record for a drug or condition term.
type TermInfo struct {
	Canonical  string `json:"canonical"`
	Class      string `json:"class,omitempty"`
	Type       string `json:"type,omitempty"` // drug, condition
	IsBiologic bool   `json:"is_biologic,omitempty"`
}

// DrugConditionLookup is the read-only taxonomy table consumed by the match
// cascade. Implementations must be safe for concurrent use without locking.
type DrugConditionLookup interface {
	// Resolve looks a term up in the taxonomy. The boolean distinguishes
	// "unknown term" from a zero-valued record.
	Resolve(term string) (*TermInfo, bool)

	// ClassSearchTerms returns the terms a criterion may use to name the
	// given class (e.g. "JAK inhibitor", "jak-inhibitors").
	ClassSearchTerms(class string) []string

	// GenericSearchTerms returns higher-level category terms for a resolved
	// record ("biologic", "systemic immunosuppressant") used to widen
	// matching beyond exact drug names.
	GenericSearchTerms(info *TermInfo) []string

	// SynonymsOf returns known synonyms for a term, not including the term
	// itself. Unknown terms yield nil.
	SynonymsOf(term string) []string
}

// SemanticMatchRequest is one question for the external semantic-matching
// capability.
type SemanticMatchRequest struct {
	PatientTerm    string      `json:"patient_term"`
	CriterionTerms []string    `json:"criterion_terms"`
	CriterionText  string      `json:"criterion_text"`
	Cluster        ClusterCode `json:"cluster"`
}

// SemanticMatchResult is the capability's answer.
type SemanticMatchResult struct {
	Matches    bool    `json:"matches"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// SemanticMatcher is the external semantic-matching capability. It must be
// callable concurrently. Available distinguishes "not configured" from a
// runtime error on a configured matcher.
type SemanticMatcher interface {
	Match(ctx context.Context, req *SemanticMatchRequest) (*SemanticMatchResult, error)
	Available() bool
}

// ReviewSink records match results that need human adjudication. The engine
// only needs the deposit capability; querying is an admin-tooling concern.
type ReviewSink interface {
	Record(ctx context.Context, payload *ReviewPayload) error
}

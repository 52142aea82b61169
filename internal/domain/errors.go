package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the engine's outer boundary. Everything below
// that boundary is absorbed into result data per the fail-safe model.
var (
	// ErrNilFacts is the only error MatchPatient returns: the caller passed
	// no facts object at all.
	ErrNilFacts = errors.New("patient facts are required")

	// ErrSemanticUnavailable marks an unconfigured or disabled semantic
	// matcher, as opposed to a runtime failure of a configured one.
	ErrSemanticUnavailable = errors.New("semantic matcher not configured")
)

// Reason codes embedded in CriterionMatchResult.ConfidenceReason prefixes so
// downstream consumers can bucket degraded results without string matching.
const (
	ReasonMissingData     = "missing_patient_data"
	ReasonUnparseable     = "unparseable_criterion"
	ReasonAIUnavailable   = "semantic_unavailable"
	ReasonAIError         = "semantic_error"
	ReasonEvaluatorError  = "evaluator_error"
	ReasonUnknownCluster  = "unknown_cluster"
)

// EvaluationError wraps an unexpected failure inside a cluster evaluator.
// It is caught at the dispatch boundary and converted to a non-match result;
// it never propagates past criterion evaluation.
type EvaluationError struct {
	CriterionID string
	Cluster     ClusterCode
	Cause       error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluating criterion %s (%s): %v", e.CriterionID, e.Cluster, e.Cause)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

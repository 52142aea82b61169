package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/trial-match-engine/internal/domain"
)

// TriageEngine folds a trial's per-criterion results into one terminal
// status. It is stateless: every call is a single pass over the results
// with no memory across trials.
type TriageEngine struct {
	thresholds domain.TriageThresholds
	logger     *logrus.Logger
}

// NewTriageEngine returns a triage engine using the given thresholds.
func NewTriageEngine(thresholds domain.TriageThresholds, logger *logrus.Logger) *TriageEngine {
	return &TriageEngine{thresholds: thresholds, logger: logger}
}

// Assess maps one trial's criterion results to its status.
//
// Two flags drive the state machine:
//   - hasIneligibility: any criterion disqualifies the patient, via
//     CausesIneligibility.
//   - hasLowConfidence: any AI-flagged criterion resolved below the review
//     threshold, meaning the evidence is too weak to act on automatically.
//
// Low confidence always forces needs_review, whether it accompanies an
// ineligibility signal or not. The ignore threshold deliberately plays no
// part here; see FilterIgnored.
func (t *TriageEngine) Assess(trialID string, results []domain.CriterionMatchResult) domain.TrialEligibilityResult {
	trial := domain.TrialEligibilityResult{
		TrialID: trialID,
		Results: results,
	}

	hasIneligibility := false
	hasLowConfidence := false
	var confidenceSum float64

	for i := range results {
		r := &results[i]
		confidenceSum += r.Confidence

		if r.RequiresAI {
			trial.AICriteria = append(trial.AICriteria, *r)
			if r.Confidence < t.thresholds.Review {
				hasLowConfidence = true
			}
		}

		if r.CausesIneligibility() {
			hasIneligibility = true
			trial.FailureReasons = append(trial.FailureReasons, failureReason(r))
		}
	}

	switch {
	case hasLowConfidence:
		trial.Status = domain.StatusNeedsReview
	case hasIneligibility:
		trial.Status = domain.StatusIneligible
	default:
		trial.Status = domain.StatusEligible
	}

	if len(results) == 0 {
		trial.ConfidenceScore = 1.0
	} else {
		trial.ConfidenceScore = confidenceSum / float64(len(results))
	}

	t.logger.WithFields(logrus.Fields{
		"trial_id":   trialID,
		"status":     trial.Status,
		"criteria":   len(results),
		"confidence": trial.ConfidenceScore,
	}).Debug("Trial triage complete")

	return trial
}

// failureReason renders one disqualifying criterion as a human-readable
// sentence.
func failureReason(r *domain.CriterionMatchResult) string {
	kind := "exclusion criterion met"
	if r.Strength == domain.StrengthInclusion {
		kind = "inclusion criterion not met"
	}
	reason := fmt.Sprintf("%s [%s/%s]", kind, r.Cluster, r.CriterionID)
	if r.ConfidenceReason != "" {
		reason += ": " + r.ConfidenceReason
	}
	return reason
}

// FilterIgnored drops criterion results whose confidence falls below the
// ignore threshold. This is a caller-facing display filter; it never feeds
// back into Assess, so a low-confidence result still influences the trial
// status even when a presenter chooses to hide it.
func FilterIgnored(results []domain.CriterionMatchResult, ignore float64) []domain.CriterionMatchResult {
	kept := make([]domain.CriterionMatchResult, 0, len(results))
	for _, r := range results {
		if r.Confidence >= ignore {
			kept = append(kept, r)
		}
	}
	return kept
}

// Package service implements the eligibility evaluation engine: the trial
// index, the per-cluster criterion evaluators, the match cascade, the
// confidence and triage engine, and the top-level patient matcher.
package service

import (
	"github.com/sirupsen/logrus"

	"github.com/trial-match-engine/internal/domain"
)

// TrialIndex maps trial IDs to their ordered criterion lists. It is built
// by scanning the corpus exactly once and never mutated afterward.
type TrialIndex struct {
	criteria map[string][]domain.Criterion
	order    []string
}

// NewTrialIndex builds an index from the criterion corpus. Invalid criteria
// are skipped with a warning; an empty corpus yields an empty index, not an
// error.
func NewTrialIndex(criteria []domain.Criterion, logger *logrus.Logger) *TrialIndex {
	idx := &TrialIndex{criteria: make(map[string][]domain.Criterion)}

	for _, c := range criteria {
		if err := c.Validate(); err != nil {
			logger.WithError(err).WithField("criterion_id", c.ID).Warn("Skipping invalid criterion during indexing")
			continue
		}
		if _, seen := idx.criteria[c.TrialID]; !seen {
			idx.order = append(idx.order, c.TrialID)
		}
		idx.criteria[c.TrialID] = append(idx.criteria[c.TrialID], c)
	}

	logger.WithFields(logrus.Fields{
		"trials":   len(idx.order),
		"criteria": len(criteria),
	}).Info("Built trial index")

	return idx
}

// AllTrialIDs returns every indexed trial ID in first-seen corpus order.
func (i *TrialIndex) AllTrialIDs() []string {
	out := make([]string, len(i.order))
	copy(out, i.order)
	return out
}

// CriteriaFor returns the criteria of one trial. Unknown trial IDs yield
// nil.
func (i *TrialIndex) CriteriaFor(trialID string) []domain.Criterion {
	return i.criteria[trialID]
}

// Len returns the number of indexed trials.
func (i *TrialIndex) Len() int {
	return len(i.order)
}

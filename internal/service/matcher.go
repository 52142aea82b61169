package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trial-match-engine/internal/domain"
)

// PatientMatcher is the top-level orchestrator: it fans out over every
// trial in the index, fans out again over each trial's criteria, folds the
// results through the triage engine and partitions the trials into the
// three terminal buckets.
type PatientMatcher struct {
	index     *TrialIndex
	evaluator *CriterionEvaluator
	triage    *TriageEngine
	logger    *logrus.Logger

	maxConcurrentTrials int
}

// NewPatientMatcher builds a matcher over a fixed trial index.
func NewPatientMatcher(
	index *TrialIndex,
	evaluator *CriterionEvaluator,
	triage *TriageEngine,
	maxConcurrentTrials int,
	logger *logrus.Logger,
) *PatientMatcher {
	if maxConcurrentTrials < 1 {
		maxConcurrentTrials = 1
	}
	return &PatientMatcher{
		index:               index,
		evaluator:           evaluator,
		triage:              triage,
		maxConcurrentTrials: maxConcurrentTrials,
		logger:              logger,
	}
}

// MatchPatient evaluates the patient against every trial in the index.
// This is the only operation in the engine that returns an error, and only
// for nil facts; every downstream failure has already been converted into
// result data by the evaluator and cascade layers.
func (m *PatientMatcher) MatchPatient(ctx context.Context, facts *domain.PatientFacts) (*domain.PatientMatchResults, error) {
	if facts == nil {
		return nil, domain.ErrNilFacts
	}

	trialIDs := m.index.AllTrialIDs()
	m.logger.WithFields(logrus.Fields{
		"trials":          len(trialIDs),
		"max_concurrency": m.maxConcurrentTrials,
	}).Info("Starting patient matching")

	start := time.Now()
	trials := make([]domain.TrialEligibilityResult, len(trialIDs))

	sem := make(chan struct{}, m.maxConcurrentTrials)
	var wg sync.WaitGroup
	for i, trialID := range trialIDs {
		wg.Add(1)
		go func(slot int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			trials[slot] = m.evaluateTrial(ctx, id, facts)
		}(i, trialID)
	}
	wg.Wait()

	results := &domain.PatientMatchResults{
		EvaluatedAt: time.Now().UTC(),
		Facts:       facts,
	}
	for _, trial := range trials {
		switch trial.Status {
		case domain.StatusEligible:
			results.Eligible = append(results.Eligible, trial)
		case domain.StatusIneligible:
			results.Ineligible = append(results.Ineligible, trial)
		default:
			results.NeedsReview = append(results.NeedsReview, trial)
		}
	}
	sortByConfidence(results.Eligible)
	sortByConfidence(results.Ineligible)
	sortByConfidence(results.NeedsReview)

	m.logger.WithFields(logrus.Fields{
		"eligible":     len(results.Eligible),
		"ineligible":   len(results.Ineligible),
		"needs_review": len(results.NeedsReview),
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Info("Patient matching complete")

	return results, nil
}

// evaluateTrial runs all of one trial's criteria concurrently and triages
// the collected results. Each criterion writes into its own slot, so no
// locking is needed on the result slice.
func (m *PatientMatcher) evaluateTrial(ctx context.Context, trialID string, facts *domain.PatientFacts) domain.TrialEligibilityResult {
	criteria := m.index.CriteriaFor(trialID)
	results := make([]domain.CriterionMatchResult, len(criteria))

	var wg sync.WaitGroup
	for i := range criteria {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = *m.evaluator.Evaluate(ctx, &criteria[slot], facts)
		}(i)
	}
	wg.Wait()

	return m.triage.Assess(trialID, results)
}

func sortByConfidence(trials []domain.TrialEligibilityResult) {
	sort.SliceStable(trials, func(i, j int) bool {
		return trials[i].ConfidenceScore > trials[j].ConfidenceScore
	})
}

package service

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/trial-match-engine/internal/domain"
	"github.com/trial-match-engine/internal/lookup"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testMatchingConfig() domain.MatchingConfig {
	return domain.MatchingConfig{
		Thresholds: domain.TriageThresholds{Exclude: 0.8, Review: 0.5, Ignore: 0.3},
		Tiers: domain.ConfidenceTiers{
			Exact:            0.95,
			Database:         0.9,
			DatabaseClass:    0.85,
			Synonym:          0.85,
			Partial:          0.7,
			DirectUnverified: 0.65,
			SemanticCeiling:  0.8,
			Unparseable:      0.5,
			MissingData:      0.45,
			NoMatch:          0.3,
			ErrorFallback:    0.3,
		},
		SeverityOrdinals: map[string]int{
			"clear":       0,
			"mild":        1,
			"moderate":    2,
			"severe":      3,
			"very severe": 4,
		},
		TimeUnitDays: map[string]float64{
			"day":   1,
			"week":  7,
			"month": 30,
			"year":  365,
		},
		MinSignificantWordLen: 4,
		MaxConcurrentTrials:   8,
	}
}

// fakeSemantic is a canned semantic matcher.
type fakeSemantic struct {
	available bool
	result    *domain.SemanticMatchResult
	err       error

	mu    sync.Mutex
	calls []string
}

func (f *fakeSemantic) Available() bool { return f.available }

func (f *fakeSemantic) Match(ctx context.Context, req *domain.SemanticMatchRequest) (*domain.SemanticMatchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.PatientTerm)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeSink records every review payload it receives.
type fakeSink struct {
	mu       sync.Mutex
	payloads []*domain.ReviewPayload
	err      error
}

func (f *fakeSink) Record(ctx context.Context, payload *domain.ReviewPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func newTestEvaluator(semantic domain.SemanticMatcher, sink domain.ReviewSink) *CriterionEvaluator {
	cfg := testMatchingConfig()
	table := lookup.DefaultTable()
	cascade := NewMatchCascade(table, semantic, sink, cfg.Tiers, cfg.MinSignificantWordLen, testLogger())
	return NewCriterionEvaluator(cascade, table, cfg, testLogger())
}

func floatPtr(v float64) *float64 { return &v }

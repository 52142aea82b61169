package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trial-match-engine/internal/domain"
	"github.com/trial-match-engine/internal/lookup"
)

func newTestCascade(semantic domain.SemanticMatcher, sink domain.ReviewSink) *MatchCascade {
	cfg := testMatchingConfig()
	return NewMatchCascade(lookup.DefaultTable(), semantic, sink, cfg.Tiers, cfg.MinSignificantWordLen, testLogger())
}

func treatmentCriterion(terms ...string) *domain.Criterion {
	return &domain.Criterion{
		ID:      "c1",
		TrialID: "t1",
		Cluster: domain.ClusterTreatment,
		Text:    "Prior treatment criterion",
		Terms:   terms,
	}
}

func TestCascadeDatabaseTier(t *testing.T) {
	cascade := newTestCascade(nil, nil)

	// Brand name resolves to the canonical drug, which appears among the
	// criterion terms.
	outcome := cascade.MatchTerm(context.Background(), "Dupixent", treatmentCriterion("dupilumab", "tralokinumab"))
	require.NotNil(t, outcome)
	assert.True(t, outcome.matches)
	assert.Equal(t, domain.MethodDatabase, outcome.method)
	assert.InDelta(t, 0.9, outcome.confidence, 1e-9)
	assert.False(t, outcome.requiresAI)
}

func TestCascadeDatabaseClassTier(t *testing.T) {
	cascade := newTestCascade(nil, nil)

	outcome := cascade.MatchTerm(context.Background(), "abrocitinib", treatmentCriterion("JAK inhibitors"))
	require.NotNil(t, outcome)
	assert.True(t, outcome.matches)
	assert.Equal(t, domain.MethodDatabaseClass, outcome.method)
	assert.InDelta(t, 0.85, outcome.confidence, 1e-9)
}

func TestCascadeRequiredClassField(t *testing.T) {
	cascade := newTestCascade(nil, nil)

	c := treatmentCriterion()
	c.Text = "Any systemic JAK inhibitor"
	c.RequiredClass = "JAK inhibitor"
	outcome := cascade.MatchTerm(context.Background(), "upadacitinib", c)
	require.NotNil(t, outcome)
	assert.True(t, outcome.matches)
	assert.Equal(t, domain.MethodDatabaseClass, outcome.method)
}

func TestCascadeDirectUnverifiedTier(t *testing.T) {
	sink := &fakeSink{}
	cascade := newTestCascade(nil, sink)

	// The term is unknown to the taxonomy but literally matches a criterion
	// term, so it is accepted with the unverified tier and queued for
	// review.
	outcome := cascade.MatchTerm(context.Background(), "nemolizumab", treatmentCriterion("nemolizumab"))
	require.NotNil(t, outcome)
	assert.True(t, outcome.matches)
	assert.Equal(t, domain.MethodDirectUnverified, outcome.method)
	assert.InDelta(t, 0.65, outcome.confidence, 1e-9)
	assert.True(t, outcome.needsReview)
	require.NotNil(t, outcome.review)
	assert.Equal(t, 1, sink.count())
}

func TestCascadeSemanticUnavailable(t *testing.T) {
	cascade := newTestCascade(&fakeSemantic{available: false}, nil)

	outcome := cascade.MatchTerm(context.Background(), "phototherapy", treatmentCriterion("systemic biologic therapy"))
	require.NotNil(t, outcome)
	assert.False(t, outcome.matches)
	assert.Equal(t, domain.MethodAIUnavailable, outcome.method)
	assert.True(t, outcome.requiresAI)
	assert.InDelta(t, 0.3, outcome.confidence, 1e-9)
}

func TestCascadeSemanticError(t *testing.T) {
	semantic := &fakeSemantic{available: true, err: errors.New("upstream timeout")}
	cascade := newTestCascade(semantic, nil)

	outcome := cascade.MatchTerm(context.Background(), "phototherapy", treatmentCriterion("systemic biologic therapy"))
	require.NotNil(t, outcome)
	assert.False(t, outcome.matches)
	assert.Equal(t, domain.MethodAIError, outcome.method)
	assert.True(t, outcome.requiresAI)
	assert.Contains(t, outcome.aiReasoning, "upstream timeout")
}

func TestCascadeSemanticMatchClampsConfidence(t *testing.T) {
	semantic := &fakeSemantic{
		available: true,
		result: &domain.SemanticMatchResult{
			Matches:    true,
			Confidence: 0.99,
			Reasoning:  "phototherapy is a systemic treatment modality for this indication",
		},
	}
	sink := &fakeSink{}
	cascade := newTestCascade(semantic, sink)

	outcome := cascade.MatchTerm(context.Background(), "phototherapy", treatmentCriterion("systemic therapy for atopic dermatitis"))
	require.NotNil(t, outcome)
	assert.True(t, outcome.matches)
	assert.Equal(t, domain.MethodAIFallback, outcome.method)
	// Reported 0.99 is clamped to the configured semantic ceiling.
	assert.InDelta(t, 0.8, outcome.confidence, 1e-9)
	assert.True(t, outcome.needsReview)
	assert.Equal(t, 1, sink.count())
}

func TestCascadeKnownTermUnrelatedCriterionFallsThrough(t *testing.T) {
	semantic := &fakeSemantic{
		available: true,
		result:    &domain.SemanticMatchResult{Matches: false, Confidence: 0.7, Reasoning: "unrelated"},
	}
	cascade := newTestCascade(semantic, nil)

	// Methotrexate is in the taxonomy but has nothing to do with a TNF
	// criterion; the database tier must defer instead of answering, and
	// the semantic tier gives the definitive no.
	outcome := cascade.MatchTerm(context.Background(), "methotrexate", treatmentCriterion("TNF inhibitor"))
	require.NotNil(t, outcome)
	assert.False(t, outcome.matches)
	assert.Equal(t, domain.MethodAIFallback, outcome.method)
	assert.Equal(t, []string{"methotrexate"}, semantic.calls)
}

func TestCascadeSinkFailureDoesNotLoseMatch(t *testing.T) {
	sink := &fakeSink{err: errors.New("disk full")}
	cascade := newTestCascade(nil, sink)

	outcome := cascade.MatchTerm(context.Background(), "nemolizumab", treatmentCriterion("nemolizumab"))
	require.NotNil(t, outcome)
	assert.True(t, outcome.matches)
}

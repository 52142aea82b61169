package external

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trial-match-engine/internal/domain"
)

func newMemoryCache(t *testing.T, ttl time.Duration) *MatchCache {
	t.Helper()
	cache, err := NewMatchCache(domain.CacheConfig{MemorySize: 16, TTL: ttl}, testLogger())
	require.NoError(t, err)
	return cache
}

func TestMatchCacheRoundTrip(t *testing.T) {
	cache := newMemoryCache(t, time.Minute)
	defer cache.Close()
	ctx := context.Background()

	req := testRequest()
	result := &domain.SemanticMatchResult{Matches: true, Confidence: 0.8, Reasoning: "ok"}

	_, ok := cache.Get(ctx, req)
	assert.False(t, ok, "empty cache must miss")

	cache.Set(ctx, req, result)
	got, ok := cache.Get(ctx, req)
	require.True(t, ok)
	assert.Equal(t, result, got)
}

func TestMatchCacheKeyDependsOnFullContext(t *testing.T) {
	cache := newMemoryCache(t, time.Minute)
	defer cache.Close()

	base := testRequest()

	differentTerm := *base
	differentTerm.PatientTerm = "methotrexate"

	differentCriterion := *base
	differentCriterion.CriterionText = "Prior phototherapy"

	differentCluster := *base
	differentCluster.Cluster = domain.ClusterComorbidity

	baseKey := cache.Key(base)
	assert.NotEqual(t, baseKey, cache.Key(&differentTerm))
	assert.NotEqual(t, baseKey, cache.Key(&differentCriterion))
	assert.NotEqual(t, baseKey, cache.Key(&differentCluster))
	assert.Equal(t, baseKey, cache.Key(testRequest()), "identical requests share a key")
}

func TestMatchCacheExpiry(t *testing.T) {
	cache := newMemoryCache(t, 10*time.Millisecond)
	defer cache.Close()
	ctx := context.Background()

	req := testRequest()
	cache.Set(ctx, req, &domain.SemanticMatchResult{Matches: true, Confidence: 0.8})

	time.Sleep(25 * time.Millisecond)
	_, ok := cache.Get(ctx, req)
	assert.False(t, ok, "expired entries must miss")
}

func TestMatchCacheLastWriteWins(t *testing.T) {
	cache := newMemoryCache(t, time.Minute)
	defer cache.Close()
	ctx := context.Background()

	req := testRequest()
	cache.Set(ctx, req, &domain.SemanticMatchResult{Matches: false, Confidence: 0.4})
	cache.Set(ctx, req, &domain.SemanticMatchResult{Matches: true, Confidence: 0.8})

	got, ok := cache.Get(ctx, req)
	require.True(t, ok)
	assert.True(t, got.Matches)
}

// Package external holds the adapters for capabilities the matching engine
// treats as opaque: the semantic-matching service and the cache in front of
// it.
package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/trial-match-engine/internal/domain"
)

// CachedMatch is the stored envelope for one semantic match answer.
type CachedMatch struct {
	Data      *domain.SemanticMatchResult `json:"data"`
	CachedAt  time.Time                   `json:"cached_at"`
	ExpiresAt time.Time                   `json:"expires_at"`
}

// MatchCache fronts the semantic matcher with a size-bounded, TTL-bounded
// in-memory LRU and an optional Redis tier shared across instances.
// Concurrent writers to the same key are tolerated with last-write-wins
// semantics; identical keys cache idempotent answers, so no coordination is
// needed.
type MatchCache struct {
	memory *lru.LRU[string, *CachedMatch]
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewMatchCache creates the cache. Redis is attached only when the config
// enables it and the server answers a ping; otherwise the cache quietly
// runs memory-only.
func NewMatchCache(config domain.CacheConfig, logger *logrus.Logger) (*MatchCache, error) {
	size := config.MemorySize
	if size <= 0 {
		size = 4096
	}
	ttl := config.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	cache := &MatchCache{
		memory: lru.NewLRU[string, *CachedMatch](size, nil, ttl),
		ttl:    ttl,
		logger: logger,
	}

	if config.RedisEnabled {
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		opts.PoolSize = config.PoolSize
		opts.PoolTimeout = config.PoolTimeout
		opts.MaxRetries = config.MaxRetries

		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		cache.redis = client
	}

	return cache, nil
}

// Key derives the cache key from the full request context: the same patient
// term against a different criterion is a different question.
func (c *MatchCache) Key(req *domain.SemanticMatchRequest) string {
	payload := strings.Join([]string{
		req.PatientTerm,
		strings.Join(req.CriterionTerms, "|"),
		req.CriterionText,
		string(req.Cluster),
	}, "\x1f")
	hash := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("match:%x", hash)
}

// Get returns a cached answer and whether one was found.
func (c *MatchCache) Get(ctx context.Context, req *domain.SemanticMatchRequest) (*domain.SemanticMatchResult, bool) {
	key := c.Key(req)

	if cached, ok := c.memory.Get(key); ok {
		if time.Now().Before(cached.ExpiresAt) {
			return cached.Data, true
		}
		c.memory.Remove(key)
	}

	if c.redis == nil {
		return nil, false
	}

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Debug("Redis cache read failed")
		return nil, false
	}

	var cached CachedMatch
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		c.redis.Del(ctx, key)
		return nil, false
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false
	}

	// Promote to the memory tier for subsequent hits.
	c.memory.Add(key, &cached)
	return cached.Data, true
}

// Set stores an answer in both tiers.
func (c *MatchCache) Set(ctx context.Context, req *domain.SemanticMatchRequest, result *domain.SemanticMatchResult) {
	key := c.Key(req)
	cached := &CachedMatch{
		Data:      result,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(c.ttl),
	}
	c.memory.Add(key, cached)

	if c.redis == nil {
		return
	}
	jsonData, err := json.Marshal(cached)
	if err != nil {
		c.logger.WithError(err).Debug("Failed to marshal cache entry")
		return
	}
	if err := c.redis.Set(ctx, key, jsonData, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("Redis cache write failed")
	}
}

// Close releases the Redis connection when one is attached.
func (c *MatchCache) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

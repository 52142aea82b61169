// Package config loads and validates application configuration from a YAML
// file and TRIAL_MATCH_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/trial-match-engine/internal/domain"
)

// Manager loads configuration through Viper and hands out typed sections.
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a configuration manager, reading config.yaml if present
// and falling back to defaults plus environment overrides.
func NewManager() (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	m.v.SetConfigName("config")
	m.v.SetConfigType("yaml")
	m.v.AddConfigPath(".")
	m.v.AddConfigPath("./config")
	m.v.AddConfigPath("/etc/trial-match-engine/")

	m.v.SetEnvPrefix("TRIAL_MATCH")
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	m.setDefaults()

	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; defaults and environment variables apply.
	}

	config := &domain.Config{}
	if err := m.v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

func (m *Manager) setDefaults() {
	// Server defaults
	m.v.SetDefault("server.host", "0.0.0.0")
	m.v.SetDefault("server.port", 8080)
	m.v.SetDefault("server.read_timeout", "30s")
	m.v.SetDefault("server.write_timeout", "30s")
	m.v.SetDefault("server.idle_timeout", "120s")

	// Logging defaults
	m.v.SetDefault("logging.level", "info")
	m.v.SetDefault("logging.format", "text")

	// Triage thresholds
	m.v.SetDefault("matching.thresholds.exclude", 0.8)
	m.v.SetDefault("matching.thresholds.review", 0.5)
	m.v.SetDefault("matching.thresholds.ignore", 0.3)

	// Confidence tiers, ordered exact > database > synonym/class > partial
	// > semantic ceiling > direct unverified > missing data > no match.
	m.v.SetDefault("matching.tiers.exact", 0.95)
	m.v.SetDefault("matching.tiers.database", 0.9)
	m.v.SetDefault("matching.tiers.database_class", 0.85)
	m.v.SetDefault("matching.tiers.synonym", 0.85)
	m.v.SetDefault("matching.tiers.partial", 0.7)
	m.v.SetDefault("matching.tiers.direct_unverified", 0.65)
	m.v.SetDefault("matching.tiers.semantic_ceiling", 0.8)
	m.v.SetDefault("matching.tiers.unparseable", 0.5)
	m.v.SetDefault("matching.tiers.missing_data", 0.45)
	m.v.SetDefault("matching.tiers.no_match", 0.3)
	m.v.SetDefault("matching.tiers.error_fallback", 0.3)

	// Severity ordinal scale
	m.v.SetDefault("matching.severity_ordinals", map[string]int{
		"clear":       0,
		"mild":        1,
		"moderate":    2,
		"severe":      3,
		"very severe": 4,
	})

	// Time-unit conversion factors (days)
	m.v.SetDefault("matching.time_unit_days", map[string]float64{
		"day":   1,
		"week":  7,
		"month": 30,
		"year":  365,
	})

	m.v.SetDefault("matching.min_significant_word_len", 4)
	m.v.SetDefault("matching.max_concurrent_trials", 8)

	// Semantic matcher defaults
	m.v.SetDefault("semantic.enabled", false)
	m.v.SetDefault("semantic.model", "claude-sonnet-4-20250514")
	m.v.SetDefault("semantic.max_tokens", 1024)
	m.v.SetDefault("semantic.timeout", "30s")
	m.v.SetDefault("semantic.rate_limit", 5)
	m.v.SetDefault("semantic.burst", 2)

	// Semantic cache defaults
	m.v.SetDefault("cache.memory_size", 2048)
	m.v.SetDefault("cache.ttl", "24h")
	m.v.SetDefault("cache.redis_enabled", false)
	m.v.SetDefault("cache.redis_url", "redis://localhost:6379")
	m.v.SetDefault("cache.pool_size", 10)
	m.v.SetDefault("cache.pool_timeout", "5s")
	m.v.SetDefault("cache.max_retries", 3)

	// Review sink defaults
	m.v.SetDefault("review.backend", "sqlite")
	m.v.SetDefault("review.path", "data/review.db")

	// Corpus and taxonomy
	m.v.SetDefault("corpus.path", "data/criteria.json")
	m.v.SetDefault("lookup.path", "")
}

// GetConfig returns the full configuration.
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetMatchingConfig returns the matching section.
func (m *Manager) GetMatchingConfig() domain.MatchingConfig {
	return m.config.Matching
}

// GetServerConfig returns the server section.
func (m *Manager) GetServerConfig() domain.ServerConfig {
	return m.config.Server
}

// Validate checks cross-field configuration invariants.
func (m *Manager) Validate() error {
	cfg := m.config

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	th := cfg.Matching.Thresholds
	for name, v := range map[string]float64{
		"exclude": th.Exclude,
		"review":  th.Review,
		"ignore":  th.Ignore,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold %s out of range [0,1]: %f", name, v)
		}
	}

	tiers := cfg.Matching.Tiers
	if tiers.Exact < tiers.Synonym || tiers.Synonym < tiers.SemanticCeiling {
		return fmt.Errorf("confidence tiers must be ordered exact >= synonym >= semantic ceiling")
	}
	if tiers.MissingData <= tiers.NoMatch {
		return fmt.Errorf("missing-data tier must sit above the no-match tier")
	}

	if cfg.Semantic.Enabled && cfg.Semantic.APIKey == "" {
		return fmt.Errorf("semantic matching enabled but no API key configured")
	}

	if cfg.Matching.MaxConcurrentTrials <= 0 {
		return fmt.Errorf("max_concurrent_trials must be positive")
	}

	return nil
}

package domain

import (
	"time"
)

// Config is the main application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Matching MatchingConfig `mapstructure:"matching"`
	Semantic SemanticConfig `mapstructure:"semantic"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Review   ReviewConfig   `mapstructure:"review"`
	Corpus   CorpusConfig   `mapstructure:"corpus"`
	Lookup   LookupConfig   `mapstructure:"lookup"`
}

// ServerConfig is the HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// TriageThresholds are the three externally configurable confidence
// thresholds feeding the trial status state machine. Ignore is a recommended
// downstream filter only; it never gates the state machine itself.
type TriageThresholds struct {
	Exclude float64 `mapstructure:"exclude"`
	Review  float64 `mapstructure:"review"`
	Ignore  float64 `mapstructure:"ignore"`
}

// ConfidenceTiers are the fixed constants assigned per match method, ordered
// exact > database > synonym/class > partial > semantic > missing-data >
// no-match.
type ConfidenceTiers struct {
	Exact            float64 `mapstructure:"exact"`
	Database         float64 `mapstructure:"database"`
	DatabaseClass    float64 `mapstructure:"database_class"`
	Synonym          float64 `mapstructure:"synonym"`
	Partial          float64 `mapstructure:"partial"`
	DirectUnverified float64 `mapstructure:"direct_unverified"`
	SemanticCeiling  float64 `mapstructure:"semantic_ceiling"`
	Unparseable      float64 `mapstructure:"unparseable"`
	MissingData      float64 `mapstructure:"missing_data"`
	NoMatch          float64 `mapstructure:"no_match"`
	ErrorFallback    float64 `mapstructure:"error_fallback"`
}

// MatchingConfig groups everything the evaluators and triage engine consume.
// All of it is read-only for the duration of a matching session and may be
// shared across concurrent evaluations without locking.
type MatchingConfig struct {
	Thresholds TriageThresholds `mapstructure:"thresholds"`
	Tiers      ConfidenceTiers  `mapstructure:"tiers"`

	// SeverityOrdinals maps severity names to an ordinal scale; a patient
	// level must be >= the required level.
	SeverityOrdinals map[string]int `mapstructure:"severity_ordinals"`

	// TimeUnitDays converts timeframe units to days before comparison.
	TimeUnitDays map[string]float64 `mapstructure:"time_unit_days"`

	// MinSignificantWordLen is the shortest word that counts toward
	// partial/shared-word term overlap.
	MinSignificantWordLen int `mapstructure:"min_significant_word_len"`

	// MaxConcurrentTrials bounds the trial evaluation fan-out.
	MaxConcurrentTrials int `mapstructure:"max_concurrent_trials"`
}

// SemanticConfig configures the external semantic-matching capability.
type SemanticConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second
	Burst     int           `mapstructure:"burst"`
}

// CacheConfig configures the semantic match response cache.
type CacheConfig struct {
	MemorySize   int           `mapstructure:"memory_size"`
	TTL          time.Duration `mapstructure:"ttl"`
	RedisEnabled bool          `mapstructure:"redis_enabled"`
	RedisURL     string        `mapstructure:"redis_url"`
	PoolSize     int           `mapstructure:"pool_size"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// ReviewConfig configures the admin review sink.
type ReviewConfig struct {
	Backend string `mapstructure:"backend"` // sqlite, memory
	Path    string `mapstructure:"path"`
}

// CorpusConfig locates the criterion corpus.
type CorpusConfig struct {
	Path string `mapstructure:"path"`
}

// LookupConfig locates the drug/condition taxonomy seed. Empty path means
// the built-in seed.
type LookupConfig struct {
	Path string `mapstructure:"path"`
}

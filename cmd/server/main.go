package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/trial-match-engine/internal/api"
	"github.com/trial-match-engine/internal/config"
	"github.com/trial-match-engine/internal/corpus"
	"github.com/trial-match-engine/internal/domain"
	"github.com/trial-match-engine/internal/lookup"
	"github.com/trial-match-engine/internal/review"
	"github.com/trial-match-engine/internal/service"
	"github.com/trial-match-engine/pkg/external"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting trial match engine")

	// Drug/condition taxonomy: built-in seed unless a file is configured.
	table := lookup.DefaultTable()
	if cfg.Lookup.Path != "" {
		table, err = lookup.NewTableFromFile(cfg.Lookup.Path)
		if err != nil {
			log.Fatalf("Failed to load lookup table: %v", err)
		}
	}

	provider := corpus.NewFileProvider(cfg.Corpus.Path, logger)
	criteria, err := provider.Criteria(context.Background())
	if err != nil {
		log.Fatalf("Failed to load criterion corpus: %v", err)
	}
	index := service.NewTrialIndex(criteria, logger)

	reviewStore := newReviewStore(cfg.Review, logger)
	defer reviewStore.Close()

	// The semantic capability and its cache are optional; the engine
	// degrades to ai_unavailable outcomes without them.
	var semantic domain.SemanticMatcher
	if cfg.Semantic.Enabled {
		cache, err := external.NewMatchCache(cfg.Cache, logger)
		if err != nil {
			log.Fatalf("Failed to create match cache: %v", err)
		}
		defer cache.Close()
		semantic = external.NewAnthropicMatcher(cfg.Semantic, cache, logger)
	}

	cascade := service.NewMatchCascade(table, semantic, reviewStore, cfg.Matching.Tiers, cfg.Matching.MinSignificantWordLen, logger)
	evaluator := service.NewCriterionEvaluator(cascade, table, cfg.Matching, logger)
	triage := service.NewTriageEngine(cfg.Matching.Thresholds, logger)
	matcher := service.NewPatientMatcher(index, evaluator, triage, cfg.Matching.MaxConcurrentTrials, logger)

	server := api.NewServer(cfg, matcher, index, reviewStore, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

func newReviewStore(cfg domain.ReviewConfig, logger *logrus.Logger) review.Store {
	if cfg.Backend == "sqlite" && cfg.Path != "" {
		store, err := review.NewSQLiteStore(cfg.Path)
		if err != nil {
			log.Fatalf("Failed to open review store: %v", err)
		}
		logger.WithField("path", cfg.Path).Info("Using SQLite review store")
		return store
	}
	logger.Info("Using in-memory review store")
	return review.NewMemoryStore()
}

// Package api exposes the matching engine over HTTP: one matching
// endpoint, read access to the trial corpus, and the admin review surface.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/trial-match-engine/internal/domain"
	"github.com/trial-match-engine/internal/middleware"
	"github.com/trial-match-engine/internal/review"
	"github.com/trial-match-engine/internal/service"
)

// Server represents the HTTP server
type Server struct {
	config  *domain.Config
	matcher *service.PatientMatcher
	index   *service.TrialIndex
	reviews review.Store
	logger  *logrus.Logger

	router *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(
	config *domain.Config,
	matcher *service.PatientMatcher,
	index *service.TrialIndex,
	reviews review.Store,
	logger *logrus.Logger,
) *Server {
	if config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(corsMiddleware())

	s := &Server{
		config:  config,
		matcher: matcher,
		index:   index,
		reviews: reviews,
		logger:  logger,
		router:  router,
	}
	s.setupRoutes()
	return s
}

// Start starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/match", s.handleMatch)
		v1.GET("/trials", s.handleListTrials)
		v1.GET("/trials/:id/criteria", s.handleTrialCriteria)
		v1.GET("/reviews", s.handleListReviews)
		v1.POST("/reviews/:id/resolution", s.handleResolveReview)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"trials":    s.index.Len(),
	})
}

// handleMatch evaluates the posted patient facts against every trial.
// With ?filtered=true, criterion results below the ignore threshold are
// dropped from the response; trial statuses are computed before filtering
// and are unaffected by it.
func (s *Server) handleMatch(c *gin.Context) {
	var facts domain.PatientFacts
	if err := c.ShouldBindJSON(&facts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient facts: " + err.Error()})
		return
	}

	results, err := s.matcher.MatchPatient(c.Request.Context(), &facts)
	if err != nil {
		if errors.Is(err, domain.ErrNilFacts) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "matching failed"})
		return
	}

	if c.Query("filtered") == "true" {
		ignore := s.config.Matching.Thresholds.Ignore
		for _, bucket := range [][]domain.TrialEligibilityResult{results.Eligible, results.Ineligible, results.NeedsReview} {
			for i := range bucket {
				bucket[i].Results = service.FilterIgnored(bucket[i].Results, ignore)
			}
		}
	}

	c.JSON(http.StatusOK, results)
}

// handleListTrials returns the indexed trials and their criterion counts.
func (s *Server) handleListTrials(c *gin.Context) {
	type trialSummary struct {
		TrialID       string `json:"trial_id"`
		CriteriaCount int    `json:"criteria_count"`
	}

	ids := s.index.AllTrialIDs()
	trials := make([]trialSummary, 0, len(ids))
	for _, id := range ids {
		trials = append(trials, trialSummary{
			TrialID:       id,
			CriteriaCount: len(s.index.CriteriaFor(id)),
		})
	}
	c.JSON(http.StatusOK, gin.H{"trials": trials, "count": len(trials)})
}

// handleTrialCriteria returns one trial's criteria.
func (s *Server) handleTrialCriteria(c *gin.Context) {
	trialID := c.Param("id")
	criteria := s.index.CriteriaFor(trialID)
	if criteria == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown trial: " + trialID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trial_id": trialID, "criteria": criteria})
}

// handleListReviews returns pending (or otherwise filtered) review entries.
func (s *Server) handleListReviews(c *gin.Context) {
	if s.reviews == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "review store not configured"})
		return
	}

	resolution := review.Resolution(c.DefaultQuery("resolution", string(review.ResolutionPending)))
	if c.Query("resolution") == "all" {
		resolution = ""
	}

	entries, err := s.reviews.List(c.Request.Context(), resolution, 100, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reviews"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": entries, "count": len(entries)})
}

type resolveRequest struct {
	Resolution review.Resolution `json:"resolution" binding:"required"`
	Notes      string            `json:"notes"`
}

// handleResolveReview records an administrator's verdict on a flagged match.
func (s *Server) handleResolveReview(c *gin.Context) {
	if s.reviews == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "review store not configured"})
		return
	}

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resolution: " + err.Error()})
		return
	}
	if req.Resolution != review.ResolutionApproved && req.Resolution != review.ResolutionRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resolution must be approved or rejected"})
		return
	}

	if err := s.reviews.Resolve(c.Request.Context(), c.Param("id"), req.Resolution, req.Notes); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "resolution": req.Resolution})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

package external

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/trial-match-engine/internal/domain"
)

const semanticSystemPrompt = "You are a clinical terminology expert. You decide whether a patient-reported medical term satisfies a clinical-trial eligibility criterion, accounting for synonyms, drug classes, and subsumption (a specific condition satisfies a more general one). Respond with strict JSON only."

// AnthropicMessager is the slice of the Anthropic client the matcher needs;
// tests substitute a fake.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicMatcher implements the semantic-matching capability on the
// Anthropic API, with a response cache, a client-side rate limit and a
// circuit breaker so a degraded upstream cannot stall trial evaluation.
type AnthropicMatcher struct {
	messages  AnthropicMessager
	cache     *MatchCache
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	model     anthropic.Model
	maxTokens int64
	timeout   time.Duration
	logger    *logrus.Logger
}

// NewAnthropicMatcher builds the matcher. A disabled config or missing API
// key yields a matcher that reports unavailable rather than an error: the
// engine degrades, it does not refuse to start.
func NewAnthropicMatcher(config domain.SemanticConfig, cache *MatchCache, logger *logrus.Logger) *AnthropicMatcher {
	m := &AnthropicMatcher{
		cache:     cache,
		model:     anthropic.ModelClaudeSonnet4_20250514,
		maxTokens: 1024,
		timeout:   30 * time.Second,
		logger:    logger,
	}
	if config.Model != "" {
		m.model = anthropic.Model(config.Model)
	}
	if config.MaxTokens > 0 {
		m.maxTokens = int64(config.MaxTokens)
	}
	if config.Timeout > 0 {
		m.timeout = config.Timeout
	}

	rps := config.RateLimit
	if rps <= 0 {
		rps = 5
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 10
	}
	m.limiter = rate.NewLimiter(rate.Limit(rps), burst)

	m.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "anthropic-semantic-match",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	if config.Enabled && config.APIKey != "" {
		client := anthropic.NewClient(option.WithAPIKey(config.APIKey))
		m.messages = &client.Messages
	}
	return m
}

// Available reports whether a client is configured. It deliberately does
// not consult the circuit breaker: a tripped breaker is a runtime error
// surfaced per call (ai_error), not an absence of capability
// (ai_unavailable).
func (m *AnthropicMatcher) Available() bool {
	return m.messages != nil
}

// semanticAnswer is the strict JSON schema the model must produce.
type semanticAnswer struct {
	Matches    *bool    `json:"matches"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// Match answers one semantic question, consulting the cache first.
func (m *AnthropicMatcher) Match(ctx context.Context, req *domain.SemanticMatchRequest) (*domain.SemanticMatchResult, error) {
	if m.messages == nil {
		return nil, domain.ErrSemanticUnavailable
	}

	if m.cache != nil {
		if result, ok := m.cache.Get(ctx, req); ok {
			return result, nil
		}
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	raw, err := m.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()
		return m.callModel(callCtx, req)
	})
	if err != nil {
		return nil, err
	}
	result := raw.(*domain.SemanticMatchResult)

	if m.cache != nil {
		m.cache.Set(ctx, req, result)
	}
	return result, nil
}

func (m *AnthropicMatcher) callModel(ctx context.Context, req *domain.SemanticMatchRequest) (*domain.SemanticMatchResult, error) {
	resp, err := m.messages.New(ctx, anthropic.MessageNewParams{
		Model:       m.model,
		MaxTokens:   m.maxTokens,
		System:      []anthropic.TextBlockParam{{Text: semanticSystemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(req)))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic call: %w", err)
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	text := stripCodeFences(sb.String())
	if text == "" {
		return nil, fmt.Errorf("empty model response")
	}

	var answer semanticAnswer
	if err := json.Unmarshal([]byte(text), &answer); err != nil {
		return nil, fmt.Errorf("invalid model response: %w", err)
	}
	if answer.Matches == nil || answer.Confidence == nil {
		return nil, fmt.Errorf("model response missing required fields")
	}

	return &domain.SemanticMatchResult{
		Matches:    *answer.Matches,
		Confidence: domain.ClampConfidence(*answer.Confidence),
		Reasoning:  answer.Reasoning,
	}, nil
}

func buildPrompt(req *domain.SemanticMatchRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Eligibility cluster: %s\n", req.Cluster)
	fmt.Fprintf(&sb, "Patient-reported term: %q\n", req.PatientTerm)
	if len(req.CriterionTerms) > 0 {
		fmt.Fprintf(&sb, "Criterion terms: %s\n", strings.Join(req.CriterionTerms, "; "))
	}
	fmt.Fprintf(&sb, "Criterion text: %q\n\n", req.CriterionText)
	sb.WriteString(`Does the patient-reported term satisfy this criterion? Respond with only this JSON object:
{"matches": true|false, "confidence": 0.0-1.0, "reasoning": "one sentence"}`)
	return sb.String()
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/trial-match-engine/internal/domain"
)

// semanticHardCap bounds semantic-fallback confidence regardless of
// configuration; the external capability is never trusted at the level of a
// verified database or synonym hit.
const semanticHardCap = 0.89

// strategyOutcome is one cascade tier's definitive answer for a (patient
// term, criterion) pair.
type strategyOutcome struct {
	matches     bool
	confidence  float64
	method      domain.MatchMethod
	matchedTerm string
	reason      string
	requiresAI  bool
	needsReview bool
	aiReasoning string
	review      *domain.ReviewPayload
}

// matchStrategy attempts one tier. The boolean reports whether the tier
// produced a definitive result; false means "no opinion, try the next
// tier". Adding a tier is a list insertion in NewMatchCascade.
type matchStrategy func(ctx context.Context, term string, criterion *domain.Criterion) (*strategyOutcome, bool)

// MatchCascade resolves drug/condition terms that the structured and
// heuristic paths could not: taxonomy database match, direct unverified
// literal match, then the external semantic fallback. Tiers run in order
// and short-circuit on the first definitive result.
type MatchCascade struct {
	lookup     domain.DrugConditionLookup
	semantic   domain.SemanticMatcher
	reviews    domain.ReviewSink
	tiers      domain.ConfidenceTiers
	minWordLen int
	logger     *logrus.Logger

	strategies []matchStrategy
}

// NewMatchCascade wires the strategy list. The semantic matcher and review
// sink may be nil; absence degrades to ai_unavailable outcomes and dropped
// review payloads respectively.
func NewMatchCascade(
	lookup domain.DrugConditionLookup,
	semantic domain.SemanticMatcher,
	reviews domain.ReviewSink,
	tiers domain.ConfidenceTiers,
	minWordLen int,
	logger *logrus.Logger,
) *MatchCascade {
	c := &MatchCascade{
		lookup:     lookup,
		semantic:   semantic,
		reviews:    reviews,
		tiers:      tiers,
		minWordLen: minWordLen,
		logger:     logger,
	}
	c.strategies = []matchStrategy{
		c.databaseStrategy,
		c.directStrategy,
		c.semanticStrategy,
	}
	return c
}

// MatchTerm runs the cascade for one patient term. The semantic tier is
// always definitive (capability absence and failure are conservative
// non-match outcomes), so MatchTerm never returns nil in practice; the nil
// path exists only for a cascade constructed with a truncated strategy
// list.
func (c *MatchCascade) MatchTerm(ctx context.Context, term string, criterion *domain.Criterion) *strategyOutcome {
	for _, strategy := range c.strategies {
		if outcome, ok := strategy(ctx, term, criterion); ok {
			c.logger.WithFields(logrus.Fields{
				"term":         term,
				"criterion_id": criterion.ID,
				"method":       outcome.method,
				"matches":      outcome.matches,
			}).Debug("Match cascade resolved")
			return outcome
		}
	}
	return nil
}

// databaseStrategy checks the drug/condition taxonomy: direct synonym
// equality against the criterion's terms, then class membership against the
// criterion's declared class or class-shaped terms.
func (c *MatchCascade) databaseStrategy(ctx context.Context, term string, criterion *domain.Criterion) (*strategyOutcome, bool) {
	if c.lookup == nil {
		return nil, false
	}
	info, found := c.lookup.Resolve(term)
	if !found {
		return nil, false
	}

	criterionTerms := criterionTermSet(criterion)

	// Direct equality between the resolved record's names and the
	// criterion's terms.
	names := append([]string{info.Canonical}, c.lookup.SynonymsOf(info.Canonical)...)
	for _, name := range names {
		for _, ct := range criterionTerms {
			if termsEqual(name, ct) {
				return &strategyOutcome{
					matches:     true,
					confidence:  c.tiers.Database,
					method:      domain.MethodDatabase,
					matchedTerm: ct,
					reason:      fmt.Sprintf("%q verified against taxonomy entry %q", term, info.Canonical),
				}, true
			}
		}
	}

	// Class membership: the criterion may name a class instead of a drug.
	if criterion.RequiredClass != "" && termsEqual(info.Class, criterion.RequiredClass) {
		return c.classOutcome(term, info, criterion.RequiredClass), true
	}
	classTerms := append(c.lookup.ClassSearchTerms(info.Class), c.lookup.GenericSearchTerms(info)...)
	for _, classTerm := range classTerms {
		for _, ct := range criterionTerms {
			if termsEqual(classTerm, ct) || partialOverlap(classTerm, ct, c.minWordLen) {
				return c.classOutcome(term, info, ct), true
			}
		}
	}

	// Known term, no relationship to this criterion: defer to later tiers.
	return nil, false
}

func (c *MatchCascade) classOutcome(term string, info *domain.TermInfo, matched string) *strategyOutcome {
	return &strategyOutcome{
		matches:     true,
		confidence:  c.tiers.DatabaseClass,
		method:      domain.MethodDatabaseClass,
		matchedTerm: matched,
		reason:      fmt.Sprintf("%q belongs to class %q, matching criterion term %q", term, info.Class, matched),
	}
}

// directStrategy accepts a literal case/format-insensitive match for a term
// the taxonomy does not know, but flags it for admin review: an unverified
// literal match is never silently trusted.
func (c *MatchCascade) directStrategy(ctx context.Context, term string, criterion *domain.Criterion) (*strategyOutcome, bool) {
	if c.lookup != nil {
		if _, found := c.lookup.Resolve(term); found {
			// Known terms were already given their chance in the database
			// tier.
			return nil, false
		}
	}

	for _, ct := range criterionTermSet(criterion) {
		if termsEqual(term, ct) || partialOverlap(term, ct, c.minWordLen) {
			payload := &domain.ReviewPayload{
				ID:          uuid.NewString(),
				Term:        term,
				CriterionID: criterion.ID,
				TrialID:     criterion.TrialID,
				Cluster:     criterion.Cluster,
				MatchedText: ct,
				Method:      domain.MethodDirectUnverified,
				CreatedAt:   time.Now().UTC(),
			}
			c.recordReview(ctx, payload)
			return &strategyOutcome{
				matches:     true,
				confidence:  c.tiers.DirectUnverified,
				method:      domain.MethodDirectUnverified,
				matchedTerm: ct,
				reason:      fmt.Sprintf("%q matched criterion term %q literally but is not in the taxonomy", term, ct),
				needsReview: true,
				review:      payload,
			}, true
		}
	}
	return nil, false
}

// semanticStrategy delegates to the external capability. It is always
// definitive: capability absence and capability failure both produce
// conservative non-match outcomes rather than passing the question along.
func (c *MatchCascade) semanticStrategy(ctx context.Context, term string, criterion *domain.Criterion) (*strategyOutcome, bool) {
	if c.semantic == nil || !c.semantic.Available() {
		return &strategyOutcome{
			matches:    false,
			confidence: c.tiers.ErrorFallback,
			method:     domain.MethodAIUnavailable,
			reason:     fmt.Sprintf("%s: cannot verify %q without the semantic matcher", domain.ReasonAIUnavailable, term),
			requiresAI: true,
		}, true
	}

	result, err := c.semantic.Match(ctx, &domain.SemanticMatchRequest{
		PatientTerm:    term,
		CriterionTerms: criterionTermSet(criterion),
		CriterionText:  criterion.Text,
		Cluster:        criterion.Cluster,
	})
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"term":         term,
			"criterion_id": criterion.ID,
		}).Warn("Semantic match failed")
		return &strategyOutcome{
			matches:     false,
			confidence:  c.tiers.ErrorFallback,
			method:      domain.MethodAIError,
			reason:      fmt.Sprintf("%s: semantic matching failed for %q", domain.ReasonAIError, term),
			requiresAI:  true,
			aiReasoning: err.Error(),
		}, true
	}

	// The capability's self-reported confidence is clamped below the
	// verified tiers to reflect its lower certainty.
	confidence := math.Min(result.Confidence, math.Min(c.tiers.SemanticCeiling, semanticHardCap))

	outcome := &strategyOutcome{
		matches:     result.Matches,
		confidence:  domain.ClampConfidence(confidence),
		method:      domain.MethodAIFallback,
		reason:      fmt.Sprintf("semantic match for %q", term),
		requiresAI:  true,
		aiReasoning: result.Reasoning,
	}
	if result.Matches {
		outcome.needsReview = true
		payload := &domain.ReviewPayload{
			ID:          uuid.NewString(),
			Term:        term,
			CriterionID: criterion.ID,
			TrialID:     criterion.TrialID,
			Cluster:     criterion.Cluster,
			MatchedText: criterion.Text,
			Method:      domain.MethodAIFallback,
			Reasoning:   result.Reasoning,
			CreatedAt:   time.Now().UTC(),
		}
		c.recordReview(ctx, payload)
		outcome.review = payload
	}
	return outcome, true
}

// recordReview deposits a payload in the review sink, best effort; a sink
// failure degrades to a log line, never to a lost match result.
func (c *MatchCascade) recordReview(ctx context.Context, payload *domain.ReviewPayload) {
	if c.reviews == nil {
		return
	}
	if err := c.reviews.Record(ctx, payload); err != nil {
		c.logger.WithError(err).WithField("criterion_id", payload.CriterionID).Warn("Failed to record review payload")
	}
}

package service

import (
	"regexp"
	"strings"

	"github.com/trial-match-engine/internal/domain"
)

// heuristicTier distinguishes the string-matching tiers so callers can
// assign decreasing confidence ceilings: exact > synonym > partial.
type heuristicTier int

const (
	tierNone heuristicTier = iota
	tierExact
	tierSynonym
	tierPartial
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeTerm lower-cases a term and collapses punctuation so "Type-2
// Diabetes" and "type 2 diabetes" compare equal.
func normalizeTerm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// significantWords returns the words of a normalized term longer than
// minLen. Short words (of, the, and, unit tags) never count toward partial
// overlap.
func significantWords(s string, minLen int) []string {
	var words []string
	for _, w := range strings.Fields(normalizeTerm(s)) {
		if len(w) >= minLen {
			words = append(words, w)
		}
	}
	return words
}

// termsEqual is case/format-insensitive equality.
func termsEqual(a, b string) bool {
	na, nb := normalizeTerm(a), normalizeTerm(b)
	return na != "" && na == nb
}

// partialOverlap reports whether two compound terms overlap by substring
// containment or by sharing a significant word. This is what lets "breast
// cancer" satisfy a general "malignant tumors" criterion once synonym
// expansion has put "cancer" in play.
func partialOverlap(a, b string, minWordLen int) bool {
	na, nb := normalizeTerm(a), normalizeTerm(b)
	if na == "" || nb == "" {
		return false
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	bWords := make(map[string]bool)
	for _, w := range significantWords(nb, minWordLen) {
		bWords[w] = true
	}
	for _, w := range significantWords(na, minWordLen) {
		if bWords[w] {
			return true
		}
	}
	return false
}

// expandTerm returns the term plus its synonym-table expansion.
func expandTerm(lookup domain.DrugConditionLookup, term string) []string {
	out := []string{term}
	if lookup != nil {
		out = append(out, lookup.SynonymsOf(term)...)
	}
	return out
}

// matchTermHeuristic runs the ordered string-matching tiers for one patient
// term against a criterion term list: exact overlap, synonym-expanded
// overlap, then partial/shared-word overlap across both expansions. Returns
// the tier that hit and the criterion term it hit against.
func matchTermHeuristic(lookup domain.DrugConditionLookup, patientTerm string, criterionTerms []string, minWordLen int) (heuristicTier, string) {
	for _, ct := range criterionTerms {
		if termsEqual(patientTerm, ct) {
			return tierExact, ct
		}
	}

	patientSet := expandTerm(lookup, patientTerm)
	for _, ct := range criterionTerms {
		criterionSet := expandTerm(lookup, ct)
		for _, p := range patientSet {
			for _, c := range criterionSet {
				if termsEqual(p, c) {
					return tierSynonym, ct
				}
			}
		}
	}

	for _, ct := range criterionTerms {
		criterionSet := expandTerm(lookup, ct)
		for _, p := range patientSet {
			for _, c := range criterionSet {
				if partialOverlap(p, c, minWordLen) {
					return tierPartial, ct
				}
			}
		}
	}

	return tierNone, ""
}

// criterionTermSet returns the criterion's declared terms, falling back to
// its free text as a single opaque term when the corpus supplied none.
func criterionTermSet(c *domain.Criterion) []string {
	if len(c.Terms) > 0 {
		return c.Terms
	}
	return []string{c.Text}
}

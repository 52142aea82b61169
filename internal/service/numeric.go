package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/trial-match-engine/internal/domain"
)

// numericConstraint is a parsed numeric requirement: an inclusive (or
// strict) lower and/or upper bound. The inverted flag marks the
// double-negative phrasing family ("must not X < N"): the bound check is
// computed normally and the match boolean flipped by the caller.
type numericConstraint struct {
	min       *float64
	max       *float64
	strictMin bool
	strictMax bool
	inverted  bool
	source    string
}

// Free-text pattern families tried when structured bounds are absent. The
// double-negative family must run first: its surface text also contains the
// at-most markers.
var (
	reDoubleNegative = regexp.MustCompile(`(?i)\b(?:must|may|should|shall|do(?:es)?)\s+not\b[^.;]*?(?:<|≤|\bless\s+than\b|\bbelow\b|\bunder\b|\bfewer\s+than\b)\s*(\d+(?:\.\d+)?)`)

	reBetween   = regexp.MustCompile(`(?i)\bbetween\s+(\d+(?:\.\d+)?)\s+and\s+(\d+(?:\.\d+)?)`)
	reRange     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:to|through|–|-)\s*(\d+(?:\.\d+)?)`)

	reAtMost  = regexp.MustCompile(`(?i)(?:≤|<=|\bat\s+most\b|\bno\s+(?:more|greater)\s+than\b|\bmaximum(?:\s+of)?\b|\bup\s+to\b|\bunder\b|\bbelow\b|\bless\s+than\b|\byounger\s+than\b|<)\s*(\d+(?:\.\d+)?)`)
	reOrLess  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:years?\s*)?(?:of\s+age\s+)?or\s+(?:younger|less|lower|below)`)

	reAtLeast = regexp.MustCompile(`(?i)(?:≥|>=|\bat\s+least\b|\bminimum(?:\s+of)?\b|\bno\s+(?:less|fewer)\s+than\b|\bover\b|\babove\b|\bgreater\s+than\b|\bolder\s+than\b|\bmore\s+than\b|>)\s*(\d+(?:\.\d+)?)`)
	reOrMore  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:years?\s*)?(?:of\s+age\s+)?or\s+(?:older|more|greater|higher|above)`)
)

// constraintFromCriterion builds a constraint from the structured bound
// fields, when present.
func constraintFromCriterion(c *domain.Criterion) (*numericConstraint, bool) {
	if c.MinValue == nil && c.MaxValue == nil && c.Threshold == nil {
		return nil, false
	}

	nc := &numericConstraint{source: "structured bounds"}
	if c.MinValue != nil {
		v := *c.MinValue
		nc.min = &v
	}
	if c.MaxValue != nil {
		v := *c.MaxValue
		nc.max = &v
	}
	if c.Threshold != nil {
		v := *c.Threshold
		switch c.EffectiveComparator() {
		case ">=":
			nc.min = &v
		case ">":
			nc.min = &v
			nc.strictMin = true
		case "<=":
			nc.max = &v
		case "<":
			nc.max = &v
			nc.strictMax = true
		case "=", "==":
			nc.min = &v
			nc.max = &v
		default:
			nc.min = &v
		}
	}
	return nc, true
}

// parseNumericConstraint recovers a constraint from free text. The pattern
// families are tried in a fixed order; returns false when no numeric
// literal can be recovered.
func parseNumericConstraint(text string) (*numericConstraint, bool) {
	if m := reDoubleNegative.FindStringSubmatch(text); m != nil {
		v := mustParse(m[1])
		// "must not X < N" is semantically a minimum-value requirement on
		// the underlying quantity; the caller flips the match boolean so
		// exclusion semantics come out right.
		return &numericConstraint{
			min:      &v,
			inverted: true,
			source:   fmt.Sprintf("double-negative phrasing, minimum %s", m[1]),
		}, true
	}

	if m := reBetween.FindStringSubmatch(text); m != nil {
		lo, hi := mustParse(m[1]), mustParse(m[2])
		return &numericConstraint{min: &lo, max: &hi, source: fmt.Sprintf("range %s to %s", m[1], m[2])}, true
	}
	if m := reRange.FindStringSubmatch(text); m != nil {
		lo, hi := mustParse(m[1]), mustParse(m[2])
		if lo <= hi {
			return &numericConstraint{min: &lo, max: &hi, source: fmt.Sprintf("range %s to %s", m[1], m[2])}, true
		}
	}

	nc := &numericConstraint{}
	var parts []string
	if m := reAtMost.FindStringSubmatch(text); m != nil {
		v := mustParse(m[1])
		nc.max = &v
		parts = append(parts, "maximum "+m[1])
	} else if m := reOrLess.FindStringSubmatch(text); m != nil {
		v := mustParse(m[1])
		nc.max = &v
		parts = append(parts, "maximum "+m[1])
	}
	if m := reAtLeast.FindStringSubmatch(text); m != nil {
		v := mustParse(m[1])
		nc.min = &v
		parts = append(parts, "minimum "+m[1])
	} else if m := reOrMore.FindStringSubmatch(text); m != nil {
		v := mustParse(m[1])
		nc.min = &v
		parts = append(parts, "minimum "+m[1])
	}

	if nc.min == nil && nc.max == nil {
		return nil, false
	}
	nc.source = strings.Join(parts, ", ")
	return nc, true
}

// satisfied reports whether a value meets the bounds, before any inversion.
func (nc *numericConstraint) satisfied(v float64) bool {
	if nc.min != nil {
		if nc.strictMin {
			if v <= *nc.min {
				return false
			}
		} else if v < *nc.min {
			return false
		}
	}
	if nc.max != nil {
		if nc.strictMax {
			if v >= *nc.max {
				return false
			}
		} else if v > *nc.max {
			return false
		}
	}
	return true
}

// describe renders the bound for confidence reasons.
func (nc *numericConstraint) describe() string {
	switch {
	case nc.min != nil && nc.max != nil:
		return fmt.Sprintf("[%g, %g]", *nc.min, *nc.max)
	case nc.min != nil:
		op := ">="
		if nc.strictMin {
			op = ">"
		}
		return fmt.Sprintf("%s %g", op, *nc.min)
	case nc.max != nil:
		op := "<="
		if nc.strictMax {
			op = "<"
		}
		return fmt.Sprintf("%s %g", op, *nc.max)
	default:
		return "unbounded"
	}
}

func mustParse(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

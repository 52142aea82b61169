package domain

import (
	"errors"
	"fmt"
)

// Timeframe expresses a duration requirement or report, normalized for
// comparison through the configured time-unit conversion table.
type Timeframe struct {
	Value    float64      `json:"value"`
	Unit     string       `json:"unit"`               // day, week, month, year
	Relation TimeRelation `json:"relation,omitempty"` // defaults to within
}

// EffectiveRelation returns the relation tag, defaulting to within.
func (t *Timeframe) EffectiveRelation() TimeRelation {
	if t == nil || t.Relation == "" {
		return RelationWithin
	}
	return t.Relation
}

// Criterion is one eligibility rule extracted from a trial protocol.
//
// Structured fields are optional; free text is mandatory. When the
// structured fields a cluster evaluator needs are absent, the evaluator
// falls back to parsing the free text.
type Criterion struct {
	ID       string            `json:"id"`
	TrialID  string            `json:"trial_id"`
	Cluster  ClusterCode       `json:"cluster"`
	Text     string            `json:"text"`
	Strength ExclusionStrength `json:"exclusion_strength,omitempty"`

	// Numeric bounds for threshold-shaped criteria.
	MinValue   *float64 `json:"min_value,omitempty"`
	MaxValue   *float64 `json:"max_value,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	Comparator string   `json:"comparator,omitempty"` // >=, <=, >, <; defaults to >=

	// Term lists for categorical criteria (conditions, drugs, subtypes).
	Terms         []string `json:"terms,omitempty"`
	RequiredClass string   `json:"required_class,omitempty"`

	// Sub-conditions gating a categorical match.
	Timeframe *Timeframe `json:"timeframe,omitempty"`
	Severity  string     `json:"severity,omitempty"`

	// Named measurement or biomarker the criterion targets (e.g. "EASI",
	// "total IgE").
	Measure string `json:"measure,omitempty"`
}

// EffectiveStrength returns the criterion's strength tag, defaulting to
// exclusion when the corpus omits it.
func (c *Criterion) EffectiveStrength() ExclusionStrength {
	if c.Strength == "" {
		return StrengthExclusion
	}
	return c.Strength
}

// EffectiveComparator returns the comparison operator for Threshold,
// defaulting to >=.
func (c *Criterion) EffectiveComparator() string {
	if c.Comparator == "" {
		return ">="
	}
	return c.Comparator
}

// Validate ensures the criterion can participate in matching. Free text is
// the only mandatory payload beyond identity.
func (c *Criterion) Validate() error {
	if c.ID == "" {
		return errors.New("criterion validation: ID is required")
	}
	if c.TrialID == "" {
		return errors.New("criterion validation: trial ID is required")
	}
	if c.Text == "" {
		return errors.New("criterion validation: free text is required")
	}
	if c.Strength != "" && !c.Strength.IsValid() {
		return fmt.Errorf("criterion validation: %w", ErrInvalidStrength)
	}
	return nil
}

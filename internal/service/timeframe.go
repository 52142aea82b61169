package service

import (
	"fmt"
	"strings"

	"github.com/trial-match-engine/internal/domain"
)

// timeframeToDays normalizes a timeframe to days using the configured
// conversion table. Unknown units fail the conversion rather than guessing.
func timeframeToDays(tf *domain.Timeframe, unitDays map[string]float64) (float64, bool) {
	if tf == nil {
		return 0, false
	}
	unit := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(tf.Unit), "s"))
	factor, ok := unitDays[unit]
	if !ok {
		return 0, false
	}
	return tf.Value * factor, true
}

// timeframeSatisfied compares a patient-reported timeframe against a
// criterion requirement after normalizing both to days. The requirement's
// relation tag decides the direction:
//
//	within, before: the patient's timeframe must fall inside the window
//	after, for:     the patient's timeframe must reach at least the window
//
// Returns (satisfied, comparable): when either side cannot be normalized,
// comparable is false and the caller treats the sub-condition as
// undetermined rather than failed.
func timeframeSatisfied(required, actual *domain.Timeframe, unitDays map[string]float64) (bool, bool, string) {
	reqDays, ok := timeframeToDays(required, unitDays)
	if !ok {
		return false, false, ""
	}
	actDays, ok := timeframeToDays(actual, unitDays)
	if !ok {
		return false, false, ""
	}

	relation := required.EffectiveRelation()
	var satisfied bool
	switch relation {
	case domain.RelationWithin, domain.RelationBefore:
		satisfied = actDays <= reqDays
	case domain.RelationAfter, domain.RelationFor:
		satisfied = actDays >= reqDays
	default:
		satisfied = actDays <= reqDays
	}

	detail := fmt.Sprintf("timeframe %s: patient %g day(s) vs required %g day(s)", relation, actDays, reqDays)
	return satisfied, true, detail
}

// severitySatisfied compares named severity levels on the configured
// ordinal scale; the patient's level must be at or above the required
// level. Returns (satisfied, comparable).
func severitySatisfied(required, actual string, ordinals map[string]int) (bool, bool) {
	req, ok := ordinals[strings.ToLower(strings.TrimSpace(required))]
	if !ok {
		return false, false
	}
	act, ok := ordinals[strings.ToLower(strings.TrimSpace(actual))]
	if !ok {
		return false, false
	}
	return act >= req, true
}

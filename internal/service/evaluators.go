package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/trial-match-engine/internal/domain"
)

// evaluatorFunc is one per-cluster evaluator: a pure function of the
// criterion and the patient's cluster-specific facts. All evaluator state
// travels as parameters; the strategy map below replaces dynamic dispatch
// over hidden object state.
type evaluatorFunc func(ctx context.Context, c *domain.Criterion, facts *domain.PatientFacts) *domain.CriterionMatchResult

// CriterionEvaluator dispatches a (cluster, criterion, patient-facts)
// triple to the matching cluster evaluator and absorbs evaluator failures
// at the dispatch boundary.
type CriterionEvaluator struct {
	cascade *MatchCascade
	lookup  domain.DrugConditionLookup
	cfg     domain.MatchingConfig
	logger  *logrus.Logger

	evaluators map[domain.ClusterCode]evaluatorFunc
}

// NewCriterionEvaluator builds the evaluator strategy map.
func NewCriterionEvaluator(
	cascade *MatchCascade,
	lookup domain.DrugConditionLookup,
	cfg domain.MatchingConfig,
	logger *logrus.Logger,
) *CriterionEvaluator {
	e := &CriterionEvaluator{
		cascade: cascade,
		lookup:  lookup,
		cfg:     cfg,
		logger:  logger,
	}
	e.evaluators = map[domain.ClusterCode]evaluatorFunc{
		domain.ClusterAge:         e.evaluateAge,
		domain.ClusterBMI:         e.evaluateBody,
		domain.ClusterComorbidity: e.evaluateComorbidity,
		domain.ClusterTreatment:   e.evaluateTreatment,
		domain.ClusterInfection:   e.evaluateInfection,
		domain.ClusterMeasurement: e.evaluateMeasurement,
		domain.ClusterSeverity:    e.evaluateSeverity,
		domain.ClusterDuration:    e.evaluateDuration,
		domain.ClusterVariant:     e.evaluateVariant,
		domain.ClusterBiomarker:   e.evaluateBiomarker,
		domain.ClusterFlare:       e.evaluateFlare,
	}
	return e
}

// Evaluate routes one criterion to its cluster evaluator. Any panic inside
// an evaluator is converted to a fixed-confidence non-match here; no error
// ever propagates to sibling criteria.
func (e *CriterionEvaluator) Evaluate(ctx context.Context, c *domain.Criterion, facts *domain.PatientFacts) (result *domain.CriterionMatchResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"criterion_id": c.ID,
				"cluster":      c.Cluster,
				"panic":        r,
			}).Error("Evaluator panicked, converting to non-match")
			result = e.baseResult(c)
			result.Confidence = e.cfg.Tiers.ErrorFallback
			result.ConfidenceReason = fmt.Sprintf("%s: error during evaluation", domain.ReasonEvaluatorError)
			result.MatchMethod = domain.MethodNone
		}
	}()

	fn, ok := e.evaluators[c.Cluster]
	if !ok {
		result = e.baseResult(c)
		result.Confidence = e.cfg.Tiers.ErrorFallback
		result.ConfidenceReason = fmt.Sprintf("%s: no evaluator for cluster %q", domain.ReasonUnknownCluster, c.Cluster)
		result.MatchMethod = domain.MethodNone
		return result
	}

	result = fn(ctx, c, facts)
	result.Confidence = domain.ClampConfidence(result.Confidence)
	return result
}

// baseResult pre-fills the identity fields every evaluator result carries.
func (e *CriterionEvaluator) baseResult(c *domain.Criterion) *domain.CriterionMatchResult {
	return &domain.CriterionMatchResult{
		CriterionID: c.ID,
		TrialID:     c.TrialID,
		Cluster:     c.Cluster,
		Strength:    c.EffectiveStrength(),
		MatchMethod: domain.MethodNone,
	}
}

// missingData is the shared policy for absent patient facts: never an
// error, a fixed confidence tier clearly below exact and above no-match.
func (e *CriterionEvaluator) missingData(c *domain.Criterion, what string) *domain.CriterionMatchResult {
	r := e.baseResult(c)
	r.Confidence = e.cfg.Tiers.MissingData
	r.ConfidenceReason = fmt.Sprintf("%s: %s not reported", domain.ReasonMissingData, what)
	r.PatientValue = "not reported"
	return r
}

// unparseable is the shared policy for criteria whose free text yields no
// usable threshold or condition.
func (e *CriterionEvaluator) unparseable(c *domain.Criterion, what string) *domain.CriterionMatchResult {
	r := e.baseResult(c)
	r.Confidence = e.cfg.Tiers.Unparseable
	r.ConfidenceReason = fmt.Sprintf("%s: no %s threshold recoverable from criterion text", domain.ReasonUnparseable, what)
	return r
}

// evaluateNumericValue applies the structured-bounds-then-text-parsing
// policy shared by every threshold-shaped cluster.
func (e *CriterionEvaluator) evaluateNumericValue(c *domain.Criterion, value float64, label string) *domain.CriterionMatchResult {
	nc, ok := constraintFromCriterion(c)
	if !ok {
		nc, ok = parseNumericConstraint(c.Text)
	}
	if !ok {
		r := e.unparseable(c, label)
		r.PatientValue = fmt.Sprintf("%s %g", label, value)
		return r
	}

	matched := nc.satisfied(value)
	reason := fmt.Sprintf("%s %g compared against %s (%s)", label, value, nc.describe(), nc.source)
	if nc.inverted {
		matched = !matched
		reason += "; double-negative phrasing inverts the match"
	}

	r := e.baseResult(c)
	r.Matches = matched
	r.Confidence = e.cfg.Tiers.Exact
	r.ConfidenceReason = reason
	r.PatientValue = fmt.Sprintf("%s %g", label, value)
	r.MatchMethod = domain.MethodExact
	return r
}

func (e *CriterionEvaluator) evaluateAge(ctx context.Context, c *domain.Criterion, facts *domain.PatientFacts) *domain.CriterionMatchResult {
	if facts == nil || facts.Age == nil {
		return e.missingData(c, "age")
	}
	return e.evaluateNumericValue(c, facts.Age.Years, "age")
}

var reWeightMarker = regexp.MustCompile(`(?i)\bweigh|kilograms?\b|\bkg\b`)

func (e *CriterionEvaluator) evaluateBody(ctx context.Context, c *domain.Criterion, facts *domain.PatientFacts) *domain.CriterionMatchResult {
	if facts == nil || facts.Body == nil {
		return e.missingData(c, "body metrics")
	}
	body := facts.Body

	wantsWeight := reWeightMarker.MatchString(c.Text) && !strings.Contains(strings.ToLower(c.Text), "bmi")
	if wantsWeight {
		if body.WeightKG == nil {
			return e.missingData(c, "weight")
		}
		return e.evaluateNumericValue(c, *body.WeightKG, "weight")
	}

	if body.BMI != nil {
		return e.evaluateNumericValue(c, *body.BMI, "BMI")
	}
	if body.WeightKG != nil {
		return e.evaluateNumericValue(c, *body.WeightKG, "weight")
	}
	return e.missingData(c, "BMI")
}

func (e *CriterionEvaluator) evaluateComorbidity(ctx context.Context, c *domain.Criterion, facts *domain.PatientFacts) *domain.CriterionMatchResult {
	var records []domain.ConditionRecord
	supplied := facts != nil && facts.Comorbidities != nil
	if supplied {
		records = facts.Comorbidities
	}
	return e.evaluateConditionList(ctx, c, records, supplied, "comorbidities")
}

func (e *CriterionEvaluator) evaluateInfection(ctx context.Context, c *domain.Criterion, facts *domain.PatientFacts) *domain.CriterionMatchResult {
	var records []domain.ConditionRecord
	supplied := facts != nil && facts.Infections != nil
	if supplied {
		records = facts.Infections
	}

	// Criteria about active infections do not match resolved ones.
	if strings.Contains(strings.ToLower(c.Text), "active") {
		filtered := make([]domain.ConditionRecord, 0, len(records))
		for _, rec := range records {
			if !strings.EqualFold(rec.Status, "resolved") {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	return e.evaluateConditionList(ctx, c, records, supplied, "infections")
}

// evaluateConditionList is the shared categorical path for comorbidities
// and infections: heuristic string tiers first, then the match cascade for
// anything unresolved.
func (e *CriterionEvaluator) evaluateConditionList(ctx context.Context, c *domain.Criterion, records []domain.ConditionRecord, supplied bool, noun string) *domain.CriterionMatchResult {
	if !supplied {
		return e.missingData(c, noun)
	}
	if len(records) == 0 {
		r := e.baseResult(c)
		r.Confidence = e.cfg.Tiers.Exact
		r.ConfidenceReason = fmt.Sprintf("patient reports no %s", noun)
		r.PatientValue = "none reported"
		return r
	}

	criterionTerms := criterionTermSet(c)
	var best *domain.CriterionMatchResult
	var unresolved []string

	for _, rec := range records {
		// The timeframe/severity gate is a property of the record, not of
		// the tier that matched it: a record outside the window can never
		// satisfy the criterion, so its terms are withheld from the
		// cascade as well.
		pass, detail := e.subConditionsPass(c, rec.Severity, rec.Timeframe)

		for _, term := range rec.Types {
			tier, hit := matchTermHeuristic(e.lookup, term, criterionTerms, e.cfg.MinSignificantWordLen)
			if tier == tierNone {
				if pass {
					unresolved = append(unresolved, term)
				}
				continue
			}
			if !pass {
				continue
			}

			r := e.baseResult(c)
			r.Matches = true
			r.PatientValue = term
			switch tier {
			case tierExact:
				r.Confidence = e.cfg.Tiers.Exact
				r.MatchMethod = domain.MethodExact
				r.ConfidenceReason = fmt.Sprintf("%q matches criterion term %q exactly", term, hit)
			case tierSynonym:
				r.Confidence = e.cfg.Tiers.Synonym
				r.MatchMethod = domain.MethodSynonym
				r.ConfidenceReason = fmt.Sprintf("%q matches criterion term %q via synonym expansion", term, hit)
			case tierPartial:
				r.Confidence = e.cfg.Tiers.Partial
				r.MatchMethod = domain.MethodSynonym
				r.ConfidenceReason = fmt.Sprintf("%q overlaps criterion term %q on a significant word", term, hit)
			}
			if detail != "" {
				r.ConfidenceReason += "; " + detail
			}
			if best == nil || r.Confidence > best.Confidence {
				best = r
			}
		}
	}
	if best != nil {
		return best
	}

	// No heuristic tier resolved; hand the remaining terms to the cascade.
	return e.cascadeOverTerms(ctx, c, unresolved, noun)
}

// subConditionsPass applies the timeframe and severity gates when both
// sides supply them. An incomparable sub-field is accepted with a note:
// uncertainty must lean toward the fail-safe side, not silently discard a
// condition match.
func (e *CriterionEvaluator) subConditionsPass(c *domain.Criterion, patientSeverity string, patientTimeframe *domain.Timeframe) (bool, string) {
	var notes []string

	if c.Timeframe != nil && patientTimeframe != nil {
		satisfied, comparable, detail := timeframeSatisfied(c.Timeframe, patientTimeframe, e.cfg.TimeUnitDays)
		if comparable {
			if !satisfied {
				return false, ""
			}
			notes = append(notes, detail)
		} else {
			notes = append(notes, "timeframe sub-condition incomparable, accepted conservatively")
		}
	}

	if c.Severity != "" && patientSeverity != "" {
		satisfied, comparable := severitySatisfied(c.Severity, patientSeverity, e.cfg.SeverityOrdinals)
		if comparable {
			if !satisfied {
				return false, ""
			}
			notes = append(notes, fmt.Sprintf("severity %q meets required %q", patientSeverity, c.Severity))
		} else {
			notes = append(notes, "severity sub-condition incomparable, accepted conservatively")
		}
	}

	return true, strings.Join(notes, "; ")
}

// cascadeOverTerms runs the match cascade for each unresolved patient term
// and folds the outcomes: any match wins (highest confidence); otherwise an
// AI-flagged outcome is propagated so the triage engine sees the
// uncertainty; otherwise a plain no-match.
func (e *CriterionEvaluator) cascadeOverTerms(ctx context.Context, c *domain.Criterion, terms []string, noun string) *domain.CriterionMatchResult {
	var bestMatch, aiOutcome *strategyOutcome
	var aiTerm, bestTerm string

	for _, term := range terms {
		outcome := e.cascade.MatchTerm(ctx, term, c)
		if outcome == nil {
			continue
		}
		if outcome.matches {
			if bestMatch == nil || outcome.confidence > bestMatch.confidence {
				bestMatch, bestTerm = outcome, term
			}
		} else if outcome.requiresAI && aiOutcome == nil {
			aiOutcome, aiTerm = outcome, term
		}
	}

	if bestMatch != nil {
		return e.outcomeResult(c, bestMatch, bestTerm)
	}
	if aiOutcome != nil {
		return e.outcomeResult(c, aiOutcome, aiTerm)
	}

	r := e.baseResult(c)
	r.Confidence = e.cfg.Tiers.NoMatch
	r.ConfidenceReason = fmt.Sprintf("no reported %s matched the criterion terms", noun)
	r.PatientValue = strings.Join(terms, ", ")
	return r
}

// outcomeResult converts a cascade outcome into a criterion result.
func (e *CriterionEvaluator) outcomeResult(c *domain.Criterion, o *strategyOutcome, term string) *domain.CriterionMatchResult {
	r := e.baseResult(c)
	r.Matches = o.matches
	r.Confidence = o.confidence
	r.ConfidenceReason = o.reason
	r.PatientValue = term
	r.MatchMethod = o.method
	r.RequiresAI = o.requiresAI
	r.AIReasoning = o.aiReasoning
	r.NeedsAdminReview = o.needsReview
	r.Review = o.review
	return r
}

func (e *CriterionEvaluator) evaluateTreatment(ctx context.Context, c *domain.Criterion, facts *domain.PatientFacts) *domain.CriterionMatchResult {
	if facts == nil || facts.Treatments == nil {
		return e.missingData(c, "treatment history")
	}
	if len(facts.Treatments) == 0 {
		r := e.baseResult(c)
		r.Confidence = e.cfg.Tiers.Exact
		r.ConfidenceReason = "patient reports no prior treatments"
		r.PatientValue = "none reported"
		return r
	}

	lowerText := strings.ToLower(c.Text)
	requiresOngoing := strings.Contains(lowerText, "current") || strings.Contains(lowerText, "ongoing")

	criterionTerms := criterionTermSet(c)
	var best *domain.CriterionMatchResult
	var unresolved []string

	for _, rec := range facts.Treatments {
		if requiresOngoing && !rec.Ongoing {
			continue
		}
		if pass, _ := e.subConditionsPass(c, "", rec.Timeframe); !pass {
			continue
		}

		// A patient-declared drug class can satisfy a class-shaped
		// criterion before the taxonomy is consulted.
		if rec.Class != "" {
			tier, hit := matchTermHeuristic(e.lookup, rec.Class, criterionTerms, e.cfg.MinSignificantWordLen)
			if c.RequiredClass != "" && termsEqual(rec.Class, c.RequiredClass) {
				tier, hit = tierExact, c.RequiredClass
			}
			if tier == tierExact || tier == tierSynonym {
				r := e.baseResult(c)
				r.Matches = true
				r.Confidence = e.cfg.Tiers.DatabaseClass
				r.MatchMethod = domain.MethodDatabaseClass
				r.PatientValue = fmt.Sprintf("%s (%s)", rec.Name, rec.Class)
				r.ConfidenceReason = fmt.Sprintf("declared class %q matches criterion term %q", rec.Class, hit)
				if best == nil || r.Confidence > best.Confidence {
					best = r
				}
				continue
			}
		}

		outcome := e.cascade.MatchTerm(ctx, rec.Name, c)
		if outcome == nil {
			unresolved = append(unresolved, rec.Name)
			continue
		}
		r := e.outcomeResult(c, outcome, rec.Name)
		if r.Matches {
			if best == nil || r.Confidence > best.Confidence {
				best = r
			}
		} else if best == nil && (r.RequiresAI || r.Confidence > 0) {
			best = r
		}
	}

	if best != nil {
		return best
	}
	r := e.baseResult(c)
	r.Confidence = e.cfg.Tiers.NoMatch
	r.ConfidenceReason = "no reported treatment matched the criterion"
	r.PatientValue = strings.Join(unresolved, ", ")
	return r
}

func (e *CriterionEvaluator) evaluateMeasurement(ctx context.Context, c *domain.Criterion, facts *domain.PatientFacts) *domain.CriterionMatchResult {
	var records []domain.MeasurementRecord
	if facts != nil {
		records = facts.Measurements
	}
	if records == nil {
		return e.missingData(c, "measurements")
	}
	return e.evaluateNamedValue(c, records, "measurement")
}

func (e *CriterionEvaluator) evaluateBiomarker(ctx context.Context, c *domain.Criterion, facts *domain.PatientFacts) *domain.CriterionMatchResult {
	var records []domain.MeasurementRecord
	if facts != nil {
		records = facts.Biomarkers
	}
	if records == nil {
		return e.missingData(c, "biomarkers")
	}
	return e.evaluateNamedValue(c, records, "biomarker")
}

// evaluateNamedValue locates the record a measurement/biomarker criterion
// targets and applies the shared numeric policy to its value.
func (e *CriterionEvaluator) evaluateNamedValue(c *domain.Criterion, records []domain.MeasurementRecord, noun string) *domain.CriterionMatchResult {
	target := c.Measure
	for _, rec := range records {
		var hit bool
		if target != "" {
			hit = termsEqual(rec.Name, target) || partialOverlap(rec.Name, target, e.cfg.MinSignificantWordLen)
		} else {
			hit = partialOverlap(rec.Name, c.Text, e.cfg.MinSignificantWordLen)
		}
		if hit {
			result := e.evaluateNumericValue(c, rec.Value, rec.Name)
			return result
		}
	}

	what := target
	if what == "" {
		what = noun + " value"
	}
	return e.missingData(c, what)
}

func (e *CriterionEvaluator) evaluateSeverity(ctx context.Context, c *domain.Criterion, facts *domain.PatientFacts) *domain.CriterionMatchResult {
	if facts == nil || facts.Severity == nil {
		return e.missingData(c, "disease severity")
	}
	sev := facts.Severity

	required := c.Severity
	if required == "" {
		required = requiredSeverityFromText(c.Text, e.cfg.SeverityOrdinals)
	}

	if required != "" && sev.Level != "" {
		satisfied, comparable := severitySatisfied(required, sev.Level, e.cfg.SeverityOrdinals)
		if comparable {
			r := e.baseResult(c)
			r.Matches = satisfied
			r.Confidence = e.cfg.Tiers.Exact
			r.MatchMethod = domain.MethodExact
			r.PatientValue = sev.Level
			r.ConfidenceReason = fmt.Sprintf("severity %q compared against required %q on the ordinal scale", sev.Level, required)
			return r
		}
	}

	if sev.Score != nil {
		label := sev.Scale
		if label == "" {
			label = "severity score"
		}
		return e.evaluateNumericValue(c, *sev.Score, label)
	}

	if required != "" {
		return e.missingData(c, "severity level")
	}
	return e.unparseable(c, "severity")
}

// requiredSeverityFromText scans the criterion text for ordinal level names
// and takes the lowest mentioned: "moderate-to-severe" requires at least
// moderate.
func requiredSeverityFromText(text string, ordinals map[string]int) string {
	lower := strings.ToLower(text)
	bestName := ""
	bestOrdinal := 0
	for name, ord := range ordinals {
		if strings.Contains(lower, name) {
			if bestName == "" || ord < bestOrdinal {
				bestName, bestOrdinal = name, ord
			}
		}
	}
	return bestName
}

var reDurationUnit = regexp.MustCompile(`(?i)\b(day|week|month|year)s?\b`)

func (e *CriterionEvaluator) evaluateDuration(ctx context.Context, c *domain.Criterion, facts *domain.PatientFacts) *domain.CriterionMatchResult {
	if facts == nil || facts.Duration == nil {
		return e.missingData(c, "disease duration")
	}

	patientTF := &domain.Timeframe{Value: facts.Duration.Value, Unit: facts.Duration.Unit}
	patientDays, ok := timeframeToDays(patientTF, e.cfg.TimeUnitDays)
	if !ok {
		return e.missingData(c, fmt.Sprintf("duration in a recognized unit (got %q)", facts.Duration.Unit))
	}

	if c.Timeframe != nil {
		required := *c.Timeframe
		if required.Relation == "" {
			// A bare duration requirement means "has had the condition for
			// at least this long".
			required.Relation = domain.RelationFor
		}
		satisfied, comparable, detail := timeframeSatisfied(&required, patientTF, e.cfg.TimeUnitDays)
		if comparable {
			r := e.baseResult(c)
			r.Matches = satisfied
			r.Confidence = e.cfg.Tiers.Exact
			r.MatchMethod = domain.MethodExact
			r.PatientValue = fmt.Sprintf("%g %s", facts.Duration.Value, facts.Duration.Unit)
			r.ConfidenceReason = detail
			return r
		}
	}

	nc, parsed := parseNumericConstraint(c.Text)
	if !parsed {
		return e.unparseable(c, "duration")
	}
	factor := 365.0
	if m := reDurationUnit.FindStringSubmatch(c.Text); m != nil {
		factor = e.cfg.TimeUnitDays[strings.ToLower(m[1])]
	}
	scaled := &numericConstraint{inverted: nc.inverted, source: nc.source + " (converted to days)", strictMin: nc.strictMin, strictMax: nc.strictMax}
	if nc.min != nil {
		v := *nc.min * factor
		scaled.min = &v
	}
	if nc.max != nil {
		v := *nc.max * factor
		scaled.max = &v
	}

	matched := scaled.satisfied(patientDays)
	reason := fmt.Sprintf("duration %g day(s) compared against %s (%s)", patientDays, scaled.describe(), scaled.source)
	if scaled.inverted {
		matched = !matched
		reason += "; double-negative phrasing inverts the match"
	}

	r := e.baseResult(c)
	r.Matches = matched
	r.Confidence = e.cfg.Tiers.Exact
	r.MatchMethod = domain.MethodExact
	r.PatientValue = fmt.Sprintf("%g %s", facts.Duration.Value, facts.Duration.Unit)
	r.ConfidenceReason = reason
	return r
}

func (e *CriterionEvaluator) evaluateVariant(ctx context.Context, c *domain.Criterion, facts *domain.PatientFacts) *domain.CriterionMatchResult {
	if facts == nil || facts.Variant == nil {
		return e.missingData(c, "disease subtype")
	}
	subtypes := facts.Variant.Subtypes
	if len(subtypes) == 0 {
		r := e.baseResult(c)
		r.Confidence = e.cfg.Tiers.Exact
		r.ConfidenceReason = "patient reports no particular disease subtype"
		r.PatientValue = "none reported"
		return r
	}

	criterionTerms := criterionTermSet(c)
	for _, subtype := range subtypes {
		tier, hit := matchTermHeuristic(e.lookup, subtype, criterionTerms, e.cfg.MinSignificantWordLen)
		if tier == tierNone {
			continue
		}
		r := e.baseResult(c)
		r.Matches = true
		r.PatientValue = subtype
		switch tier {
		case tierExact:
			r.Confidence = e.cfg.Tiers.Exact
			r.MatchMethod = domain.MethodExact
			r.ConfidenceReason = fmt.Sprintf("subtype %q matches criterion term %q exactly", subtype, hit)
		case tierSynonym:
			r.Confidence = e.cfg.Tiers.Synonym
			r.MatchMethod = domain.MethodSynonym
			r.ConfidenceReason = fmt.Sprintf("subtype %q matches criterion term %q via synonym expansion", subtype, hit)
		default:
			r.Confidence = e.cfg.Tiers.Partial
			r.MatchMethod = domain.MethodSynonym
			r.ConfidenceReason = fmt.Sprintf("subtype %q overlaps criterion term %q", subtype, hit)
		}
		return r
	}

	return e.cascadeOverTerms(ctx, c, subtypes, "disease subtypes")
}

func (e *CriterionEvaluator) evaluateFlare(ctx context.Context, c *domain.Criterion, facts *domain.PatientFacts) *domain.CriterionMatchResult {
	if facts == nil || facts.Flares == nil {
		return e.missingData(c, "flare history")
	}
	flares := facts.Flares

	_, hasNumeric := constraintFromCriterion(c)
	if !hasNumeric {
		_, hasNumeric = parseNumericConstraint(c.Text)
	}
	if hasNumeric && flares.CountPastYear != nil {
		return e.evaluateNumericValue(c, *flares.CountPastYear, "flare count")
	}

	if c.Timeframe != nil && flares.LastFlare != nil {
		satisfied, comparable, detail := timeframeSatisfied(c.Timeframe, flares.LastFlare, e.cfg.TimeUnitDays)
		if comparable {
			r := e.baseResult(c)
			r.Matches = satisfied
			r.Confidence = e.cfg.Tiers.Exact
			r.MatchMethod = domain.MethodExact
			r.PatientValue = fmt.Sprintf("last flare %g %s ago", flares.LastFlare.Value, flares.LastFlare.Unit)
			r.ConfidenceReason = "last flare " + detail
			return r
		}
	}

	if hasNumeric {
		return e.missingData(c, "flare count")
	}
	return e.unparseable(c, "flare history")
}

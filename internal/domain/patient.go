package domain

// PatientFacts holds one respondent's answers, grouped by the same cluster
// codes as criteria. A nil cluster field means the questionnaire never asked
// or the patient never answered; evaluators must treat that as "cannot
// determine", which is distinct from a present-but-empty collection
// ("patient reports none").
type PatientFacts struct {
	Age           *AgeFacts           `json:"age,omitempty"`
	Body          *BodyMetrics        `json:"body,omitempty"`
	Comorbidities []ConditionRecord   `json:"comorbidities,omitempty"`
	Treatments    []TreatmentRecord   `json:"treatments,omitempty"`
	Infections    []ConditionRecord   `json:"infections,omitempty"`
	Measurements  []MeasurementRecord `json:"measurements,omitempty"`
	Severity      *SeverityFacts      `json:"severity,omitempty"`
	Duration      *DurationFacts      `json:"duration,omitempty"`
	Variant       *VariantFacts       `json:"variant,omitempty"`
	Biomarkers    []MeasurementRecord `json:"biomarkers,omitempty"`
	Flares        *FlareFacts         `json:"flares,omitempty"`
}

// AgeFacts is the patient's reported age.
type AgeFacts struct {
	Years float64 `json:"years"`
}

// BodyMetrics carries weight, height and body-mass index. Any subset may be
// reported; BMI is preferred when a criterion targets it directly.
type BodyMetrics struct {
	BMI      *float64 `json:"bmi,omitempty"`
	WeightKG *float64 `json:"weight_kg,omitempty"`
	HeightCM *float64 `json:"height_cm,omitempty"`
}

// ConditionRecord is one reported comorbidity or infection. Types carries
// the patient's own wording of the condition, possibly several phrasings.
type ConditionRecord struct {
	Types     []string   `json:"types"`
	Pattern   string     `json:"pattern,omitempty"`
	Severity  string     `json:"severity,omitempty"`
	Status    string     `json:"status,omitempty"` // active, resolved
	Timeframe *Timeframe `json:"timeframe,omitempty"`
}

// TreatmentRecord is one drug or therapy the patient has received.
type TreatmentRecord struct {
	Name      string     `json:"name"`
	Class     string     `json:"class,omitempty"`
	Ongoing   bool       `json:"ongoing,omitempty"`
	Response  string     `json:"response,omitempty"`
	Timeframe *Timeframe `json:"timeframe,omitempty"`
}

// MeasurementRecord is one named clinical measurement or biomarker value.
type MeasurementRecord struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// SeverityFacts carries the patient's disease severity, either as a named
// ordinal level or a numeric score on a named scale.
type SeverityFacts struct {
	Scale string   `json:"scale,omitempty"`
	Level string   `json:"level,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

// DurationFacts is how long the patient has had the condition.
type DurationFacts struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// VariantFacts carries the reported disease subtype(s).
type VariantFacts struct {
	Subtypes []string `json:"subtypes"`
}

// FlareFacts summarizes flare history.
type FlareFacts struct {
	CountPastYear *float64   `json:"count_past_year,omitempty"`
	LastFlare     *Timeframe `json:"last_flare,omitempty"`
}

// HasCluster reports whether the patient supplied any facts for the given
// cluster. For collection clusters an empty non-nil slice still counts as
// supplied: the patient answered and reported none.
func (p *PatientFacts) HasCluster(c ClusterCode) bool {
	if p == nil {
		return false
	}
	switch c {
	case ClusterAge:
		return p.Age != nil
	case ClusterBMI:
		return p.Body != nil
	case ClusterComorbidity:
		return p.Comorbidities != nil
	case ClusterTreatment:
		return p.Treatments != nil
	case ClusterInfection:
		return p.Infections != nil
	case ClusterMeasurement:
		return p.Measurements != nil
	case ClusterSeverity:
		return p.Severity != nil
	case ClusterDuration:
		return p.Duration != nil
	case ClusterVariant:
		return p.Variant != nil
	case ClusterBiomarker:
		return p.Biomarkers != nil
	case ClusterFlare:
		return p.Flares != nil
	default:
		return false
	}
}

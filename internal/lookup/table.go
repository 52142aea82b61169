// Package lookup implements the read-only drug/condition taxonomy table
// consumed by the match cascade. The table is built once, either from the
// built-in seed or from a JSON file, and is safe for concurrent reads.
package lookup

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/trial-match-engine/internal/domain"
)

// Seed is the external JSON shape for taxonomy data.
type Seed struct {
	Entries      []SeedEntry                `json:"entries"`
	Synonyms     map[string][]string        `json:"synonyms"`
	ClassTerms   map[string][]string        `json:"class_terms"`
	GenericTerms map[string][]string        `json:"generic_terms"`
}

// SeedEntry is one drug or condition record.
type SeedEntry struct {
	Canonical  string   `json:"canonical"`
	Class      string   `json:"class,omitempty"`
	Type       string   `json:"type,omitempty"`
	IsBiologic bool     `json:"is_biologic,omitempty"`
	Aliases    []string `json:"aliases,omitempty"`
}

// Table implements domain.DrugConditionLookup over normalized in-memory
// maps. No mutation after construction.
type Table struct {
	entries      map[string]domain.TermInfo // normalized term -> record
	synonyms     map[string][]string        // normalized term -> synonyms
	classTerms   map[string][]string        // normalized class -> search terms
	genericTerms map[string][]string        // normalized class or type -> category terms
}

// NewTable builds a lookup table from seed data.
func NewTable(seed *Seed) *Table {
	t := &Table{
		entries:      make(map[string]domain.TermInfo),
		synonyms:     make(map[string][]string),
		classTerms:   make(map[string][]string),
		genericTerms: make(map[string][]string),
	}

	for _, e := range seed.Entries {
		info := domain.TermInfo{
			Canonical:  e.Canonical,
			Class:      e.Class,
			Type:       e.Type,
			IsBiologic: e.IsBiologic,
		}
		t.entries[normalize(e.Canonical)] = info
		for _, alias := range e.Aliases {
			t.entries[normalize(alias)] = info
		}
		// Aliases double as synonyms of the canonical name and vice versa.
		if len(e.Aliases) > 0 {
			names := append([]string{e.Canonical}, e.Aliases...)
			for i, name := range names {
				var others []string
				for j, other := range names {
					if i != j {
						others = append(others, other)
					}
				}
				key := normalize(name)
				t.synonyms[key] = append(t.synonyms[key], others...)
			}
		}
	}

	for term, syns := range seed.Synonyms {
		// Synonym groups are symmetric: every member maps to all others.
		group := append([]string{term}, syns...)
		for i, name := range group {
			key := normalize(name)
			for j, other := range group {
				if i != j {
					t.synonyms[key] = append(t.synonyms[key], other)
				}
			}
		}
	}

	for class, terms := range seed.ClassTerms {
		t.classTerms[normalize(class)] = terms
	}
	for key, terms := range seed.GenericTerms {
		t.genericTerms[normalize(key)] = terms
	}

	return t
}

// NewTableFromFile loads taxonomy seed data from a JSON file.
func NewTableFromFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}
	seed := &Seed{}
	if err := json.Unmarshal(data, seed); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy file: %w", err)
	}
	return NewTable(seed), nil
}

// Resolve looks a term up in the taxonomy.
func (t *Table) Resolve(term string) (*domain.TermInfo, bool) {
	info, ok := t.entries[normalize(term)]
	if !ok {
		return nil, false
	}
	return &info, true
}

// ClassSearchTerms returns the terms a criterion may use to name a class,
// always including the class name itself.
func (t *Table) ClassSearchTerms(class string) []string {
	if class == "" {
		return nil
	}
	terms := []string{class}
	terms = append(terms, t.classTerms[normalize(class)]...)
	return terms
}

// GenericSearchTerms returns higher-level category terms for a resolved
// record: its class search terms plus anything registered for its type, and
// "biologic" when the record is one.
func (t *Table) GenericSearchTerms(info *domain.TermInfo) []string {
	if info == nil {
		return nil
	}
	var terms []string
	terms = append(terms, t.genericTerms[normalize(info.Class)]...)
	terms = append(terms, t.genericTerms[normalize(info.Type)]...)
	if info.IsBiologic {
		terms = append(terms, "biologic", "biologic therapy", "monoclonal antibody")
	}
	return terms
}

// SynonymsOf returns known synonyms for a term, not including the term
// itself.
func (t *Table) SynonymsOf(term string) []string {
	syns := t.synonyms[normalize(term)]
	if len(syns) == 0 {
		return nil
	}
	out := make([]string, len(syns))
	copy(out, syns)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DefaultTable returns a table seeded with common immunology and
// dermatology drugs plus widely used condition synonym groups. Production
// deployments load a fuller taxonomy from file; the built-in seed keeps the
// engine useful without one.
func DefaultTable() *Table {
	return NewTable(&Seed{
		Entries: []SeedEntry{
			{Canonical: "dupilumab", Class: "IL-4/IL-13 inhibitor", Type: "drug", IsBiologic: true, Aliases: []string{"dupixent"}},
			{Canonical: "tralokinumab", Class: "IL-13 inhibitor", Type: "drug", IsBiologic: true, Aliases: []string{"adbry", "adtralza"}},
			{Canonical: "adalimumab", Class: "TNF inhibitor", Type: "drug", IsBiologic: true, Aliases: []string{"humira"}},
			{Canonical: "etanercept", Class: "TNF inhibitor", Type: "drug", IsBiologic: true, Aliases: []string{"enbrel"}},
			{Canonical: "abrocitinib", Class: "JAK inhibitor", Type: "drug", Aliases: []string{"cibinqo"}},
			{Canonical: "upadacitinib", Class: "JAK inhibitor", Type: "drug", Aliases: []string{"rinvoq"}},
			{Canonical: "baricitinib", Class: "JAK inhibitor", Type: "drug", Aliases: []string{"olumiant"}},
			{Canonical: "methotrexate", Class: "immunosuppressant", Type: "drug", Aliases: []string{"mtx", "trexall"}},
			{Canonical: "cyclosporine", Class: "immunosuppressant", Type: "drug", Aliases: []string{"ciclosporin", "neoral"}},
			{Canonical: "azathioprine", Class: "immunosuppressant", Type: "drug", Aliases: []string{"imuran"}},
			{Canonical: "mycophenolate", Class: "immunosuppressant", Type: "drug", Aliases: []string{"mycophenolate mofetil", "cellcept"}},
			{Canonical: "prednisone", Class: "systemic corticosteroid", Type: "drug", Aliases: []string{"deltasone"}},
			{Canonical: "prednisolone", Class: "systemic corticosteroid", Type: "drug"},
			{Canonical: "tacrolimus", Class: "topical calcineurin inhibitor", Type: "drug", Aliases: []string{"protopic"}},
			{Canonical: "pimecrolimus", Class: "topical calcineurin inhibitor", Type: "drug", Aliases: []string{"elidel"}},
			{Canonical: "omalizumab", Class: "anti-IgE antibody", Type: "drug", IsBiologic: true, Aliases: []string{"xolair"}},
		},
		Synonyms: map[string][]string{
			"atopic dermatitis": {"eczema", "atopic eczema", "ad"},
			"cancer":            {"malignancy", "malignant tumor", "malignant tumors", "neoplasm", "carcinoma"},
			"diabetes":          {"diabetes mellitus", "type 2 diabetes", "type 1 diabetes"},
			"hypertension":      {"high blood pressure"},
			"tuberculosis":      {"tb", "latent tuberculosis"},
			"hepatitis b":       {"hbv", "hepatitis b virus"},
			"hepatitis c":       {"hcv", "hepatitis c virus"},
			"hiv":               {"human immunodeficiency virus"},
			"asthma":            {"bronchial asthma"},
			"herpes simplex":    {"hsv", "cold sores", "eczema herpeticum"},
		},
		ClassTerms: map[string][]string{
			"JAK inhibitor":                 {"jak inhibitors", "janus kinase inhibitor", "jak-inhibitor"},
			"TNF inhibitor":                 {"tnf inhibitors", "anti-tnf", "tnf blocker"},
			"IL-4/IL-13 inhibitor":          {"il-4 inhibitor", "il-13 inhibitor", "interleukin inhibitor"},
			"IL-13 inhibitor":               {"il-13 inhibitor", "interleukin inhibitor"},
			"immunosuppressant":             {"immunosuppressants", "immunosuppressive therapy", "systemic immunosuppressant"},
			"systemic corticosteroid":       {"corticosteroids", "systemic steroids", "oral steroids"},
			"topical calcineurin inhibitor": {"calcineurin inhibitors", "tci"},
			"anti-IgE antibody":             {"anti-ige therapy"},
		},
		GenericTerms: map[string][]string{
			"JAK inhibitor":           {"small molecule", "systemic therapy"},
			"immunosuppressant":       {"systemic therapy", "dmard"},
			"systemic corticosteroid": {"systemic therapy"},
			"drug":                    {"medication"},
		},
	})
}

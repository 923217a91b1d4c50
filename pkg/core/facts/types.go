// Package facts defines the tagged fact records consumed by the metrics engine
// and the normalizer that turns raw SEC records into numeric facts.
//
// A fact is one reported value for one XBRL concept over one period:
//   - Flow concepts (revenue, net income, cash flow) carry a start and end date.
//   - Stock concepts (assets, liabilities, equity) are instants and carry only an end date.
package facts

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// DateLayout is the date format used by the SEC companyfacts API.
const DateLayout = "2006-01-02"

// =============================================================================
// FILING TYPES
// =============================================================================

// FilingType is the coarse class of the filing a fact was reported in.
type FilingType int

const (
	FilingOther FilingType = iota
	FilingQuarterly
	FilingAnnual
)

func (t FilingType) String() string {
	switch t {
	case FilingQuarterly:
		return "quarterly"
	case FilingAnnual:
		return "annual"
	default:
		return "other"
	}
}

// MarshalJSON renders the filing type as its lowercase name.
func (t FilingType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// ParseFilingType maps an SEC form name to a FilingType.
// Amendments ("10-Q/A", "10-K/A") keep the class of the original form.
func ParseFilingType(form string) FilingType {
	base := strings.ToUpper(strings.TrimSpace(form))
	base = strings.TrimSuffix(base, "/A")
	switch base {
	case "10-Q", "10-QT":
		return FilingQuarterly
	case "10-K", "10-KT", "10-K405", "20-F", "40-F":
		return FilingAnnual
	default:
		return FilingOther
	}
}

// IsAmendment reports whether the form is an amended filing.
func IsAmendment(form string) bool {
	return strings.HasSuffix(strings.ToUpper(strings.TrimSpace(form)), "/A")
}

// ConceptKind distinguishes flow concepts from point-in-time stock concepts.
type ConceptKind int

const (
	Flow ConceptKind = iota
	Stock
)

func (k ConceptKind) String() string {
	if k == Stock {
		return "stock"
	}
	return "flow"
}

// =============================================================================
// RAW AND NORMALIZED RECORDS
// =============================================================================

// RawFact is one record as delivered by the SEC companyfacts API.
// Val is kept undecoded so that missing and non-numeric values can be told apart.
type RawFact struct {
	Concept string          `json:"-"`
	Unit    string          `json:"-"`
	Start   string          `json:"start,omitempty"`
	End     string          `json:"end"`
	Val     json.RawMessage `json:"val"`
	Form    string          `json:"form"`
	Filed   string          `json:"filed"`
	Frame   string          `json:"frame,omitempty"`
	Accn    string          `json:"accn,omitempty"`
	FY      *int            `json:"fy,omitempty"`
	FP      string          `json:"fp,omitempty"`
}

// Fact is a normalized, numerically valid RawFact.
type Fact struct {
	Concept      string     `json:"concept"`
	Unit         string     `json:"unit"`
	Start        time.Time  `json:"start,omitzero"`
	End          time.Time  `json:"end"`
	Value        float64    `json:"value"`
	FilingType   FilingType `json:"filing_type"`
	Form         string     `json:"form"`
	Filed        time.Time  `json:"filed"`
	Frame        string     `json:"frame,omitempty"`
	Accession    string     `json:"accession,omitempty"`
	FiscalYear   int        `json:"fiscal_year,omitempty"`
	FiscalPeriod string     `json:"fiscal_period,omitempty"`
}

// HasStart reports whether the fact spans a period (flow) rather than an instant.
func (f Fact) HasStart() bool {
	return !f.Start.IsZero()
}

// DurationDays returns the inclusive length of the reported period in days.
// ok is false for instants.
func (f Fact) DurationDays() (days int, ok bool) {
	if !f.HasStart() {
		return 0, false
	}
	return int(f.End.Sub(f.Start).Hours()/24) + 1, true
}

// InferKind guesses the concept kind from the data: a concept none of whose
// facts carries a start date is a stock concept.
func InferKind(list []Fact) ConceptKind {
	for _, f := range list {
		if f.HasStart() {
			return Flow
		}
	}
	if len(list) == 0 {
		return Flow
	}
	return Stock
}

// =============================================================================
// INPUT CONTRACT
// =============================================================================

// ConceptFacts maps concept name -> unit -> raw records.
type ConceptFacts map[string]map[string][]RawFact

// Concepts returns the concept names in sorted order.
func (c ConceptFacts) Concepts() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Units returns the units reported for a concept in sorted order.
func (c ConceptFacts) Units(concept string) []string {
	units := make([]string, 0, len(c[concept]))
	for u := range c[concept] {
		units = append(units, u)
	}
	sort.Strings(units)
	return units
}

// Records returns the raw records for one concept and unit, stamped with both names.
func (c ConceptFacts) Records(concept, unit string) []RawFact {
	src := c[concept][unit]
	out := make([]RawFact, len(src))
	for i, r := range src {
		r.Concept = concept
		r.Unit = unit
		out[i] = r
	}
	return out
}

// CompanyFacts is the decoded input for one company.
type CompanyFacts struct {
	CIK        string       `json:"cik"`
	EntityName string       `json:"entity_name"`
	Facts      ConceptFacts `json:"-"`
	// Skipped lists concepts whose payload could not be decoded.
	Skipped []string `json:"skipped,omitempty"`
}

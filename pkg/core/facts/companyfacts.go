package facts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// taxonomyPrecedence orders taxonomies when the same concept name appears in more than one.
var taxonomyPrecedence = []string{"us-gaap", "ifrs-full", "dei", "srt"}

type companyFactsDoc struct {
	CIK        json.RawMessage            `json:"cik"`
	EntityName string                     `json:"entityName"`
	Facts      map[string]json.RawMessage `json:"facts"`
}

type conceptDoc struct {
	Label string                     `json:"label"`
	Units map[string]json.RawMessage `json:"units"`
}

// ParseCompanyFacts decodes an SEC companyfacts document
// (https://data.sec.gov/api/xbrl/companyfacts/CIK##########.json).
//
// Taxonomies are flattened into one concept namespace. A taxonomy or concept
// whose payload is malformed is skipped and listed in CompanyFacts.Skipped, and
// a record that does not decode is dropped from its unit. Only a document that
// is not a JSON object is an error.
func ParseCompanyFacts(data []byte) (*CompanyFacts, error) {
	var doc companyFactsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse companyfacts document: %w", err)
	}

	cf := &CompanyFacts{
		CIK:        NormalizeCIK(strings.Trim(string(doc.CIK), `"`)),
		EntityName: doc.EntityName,
		Facts:      make(ConceptFacts),
	}

	for _, taxonomy := range orderedTaxonomies(doc.Facts) {
		var concepts map[string]json.RawMessage
		if err := json.Unmarshal(doc.Facts[taxonomy], &concepts); err != nil {
			cf.Skipped = append(cf.Skipped, taxonomy)
			continue
		}
		names := make([]string, 0, len(concepts))
		for name := range concepts {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if _, seen := cf.Facts[name]; seen {
				continue
			}
			units, err := decodeConcept(concepts[name])
			if err != nil {
				cf.Skipped = append(cf.Skipped, taxonomy+":"+name)
				continue
			}
			cf.Facts[name] = units
		}
	}
	return cf, nil
}

// DecodeConceptFacts decodes the bare input mapping: concept -> unit -> [records].
// Malformed concepts are skipped and returned by name.
func DecodeConceptFacts(data []byte) (ConceptFacts, []string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse concept facts: %w", err)
	}

	out := make(ConceptFacts, len(doc))
	var skipped []string
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		units, err := decodeUnits(doc[name])
		if err != nil {
			skipped = append(skipped, name)
			continue
		}
		out[name] = units
	}
	return out, skipped, nil
}

// Decode accepts either a companyfacts document or the bare concept mapping.
func Decode(data []byte) (*CompanyFacts, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("failed to parse facts payload: %w", err)
	}
	if _, ok := top["facts"]; ok {
		return ParseCompanyFacts(data)
	}

	concepts, skipped, err := DecodeConceptFacts(data)
	if err != nil {
		return nil, err
	}
	return &CompanyFacts{Facts: concepts, Skipped: skipped}, nil
}

// NormalizeCIK zero-pads a numeric CIK to 10 digits. Non-numeric input is returned trimmed.
func NormalizeCIK(cik string) string {
	cik = strings.TrimSpace(cik)
	if cik == "" || cik == "null" {
		return ""
	}
	n, err := strconv.ParseUint(strings.TrimLeft(cik, "0"), 10, 64)
	if err != nil {
		if strings.Trim(cik, "0") == "" {
			return ""
		}
		return cik
	}
	return fmt.Sprintf("%010d", n)
}

func decodeConcept(raw json.RawMessage) (map[string][]RawFact, error) {
	var c conceptDoc
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if c.Units == nil {
		return nil, fmt.Errorf("concept has no units")
	}
	return decodeUnitMap(c.Units)
}

func decodeUnits(raw json.RawMessage) (map[string][]RawFact, error) {
	var units map[string]json.RawMessage
	if err := json.Unmarshal(raw, &units); err != nil {
		return nil, err
	}
	if units == nil {
		return nil, fmt.Errorf("concept has no units")
	}
	return decodeUnitMap(units)
}

func decodeUnitMap(units map[string]json.RawMessage) (map[string][]RawFact, error) {
	out := make(map[string][]RawFact, len(units))
	for unit, raw := range units {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			return nil, fmt.Errorf("unit %s: records are not a list", unit)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("unit %s: %w", unit, err)
		}
		records := make([]RawFact, 0, len(items))
		for _, item := range items {
			var rec RawFact
			if err := json.Unmarshal(item, &rec); err != nil {
				continue
			}
			records = append(records, rec)
		}
		out[unit] = records
	}
	return out, nil
}

func orderedTaxonomies(m map[string]json.RawMessage) []string {
	rank := make(map[string]int, len(taxonomyPrecedence))
	for i, t := range taxonomyPrecedence {
		rank[t] = i
	}
	names := make([]string, 0, len(m))
	for t := range m {
		names = append(names, t)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, iok := rank[names[i]]
		rj, jok := rank[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return names[i] < names[j]
		}
	})
	return names
}

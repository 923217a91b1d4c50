package facts

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Normalize filters raw records down to numerically valid, non-zero facts.
//
// A record is dropped when its value is missing, null, non-numeric, NaN/Inf or
// exactly zero, or when its end or filed date does not parse. An unparseable
// start date turns the record into an instant rather than dropping it.
// Input order is preserved. Normalize never fails.
func Normalize(raw []RawFact) []Fact {
	out := make([]Fact, 0, len(raw))
	for _, r := range raw {
		f, ok := normalizeOne(r)
		if !ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

func normalizeOne(r RawFact) (Fact, bool) {
	value, ok := ParseValue(r.Val)
	if !ok || value == 0 {
		return Fact{}, false
	}
	end, ok := parseDate(r.End)
	if !ok {
		return Fact{}, false
	}
	filed, ok := parseDate(r.Filed)
	if !ok {
		return Fact{}, false
	}

	f := Fact{
		Concept:      r.Concept,
		Unit:         r.Unit,
		End:          end,
		Value:        value,
		FilingType:   ParseFilingType(r.Form),
		Form:         strings.TrimSpace(r.Form),
		Filed:        filed,
		Frame:        r.Frame,
		Accession:    r.Accn,
		FiscalPeriod: r.FP,
	}
	if r.FY != nil {
		f.FiscalYear = *r.FY
	}
	if start, ok := parseDate(r.Start); ok && !start.After(end) {
		f.Start = start
	}
	return f, true
}

// ParseValue decodes a JSON number, or a string holding a number, into a float.
// ok is false for missing, null, non-numeric, NaN and infinite values.
func ParseValue(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		text = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	}
	if text == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseDate accepts a calendar date, or the date part of an RFC 3339 timestamp.
// The result is truncated to midnight UTC.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

package facts

import (
	"encoding/json"
	"testing"
)

func raw(val string, end, form, filed string) RawFact {
	return RawFact{
		Concept: "Revenues",
		Unit:    "USD",
		End:     end,
		Val:     json.RawMessage(val),
		Form:    form,
		Filed:   filed,
	}
}

func TestNormalize_DropsInvalidValues(t *testing.T) {
	input := []RawFact{
		raw(`100`, "2024-03-31", "10-Q", "2024-05-01"),
		raw(`0`, "2024-03-31", "10-Q", "2024-05-01"),
		raw(`null`, "2024-03-31", "10-Q", "2024-05-01"),
		raw(``, "2024-03-31", "10-Q", "2024-05-01"),
		raw(`"abc"`, "2024-03-31", "10-Q", "2024-05-01"),
		raw(`"1,250"`, "2024-06-30", "10-Q", "2024-08-01"),
		raw(`{"x":1}`, "2024-03-31", "10-Q", "2024-05-01"),
		raw(`-42.5`, "2024-09-30", "10-Q", "2024-11-01"),
		raw(`7`, "not-a-date", "10-Q", "2024-05-01"),
		raw(`7`, "2024-03-31", "10-Q", ""),
	}

	got := Normalize(input)
	if len(got) != 3 {
		t.Fatalf("Expected 3 facts, got %d: %+v", len(got), got)
	}

	want := []float64{100, 1250, -42.5}
	for i, w := range want {
		if got[i].Value != w {
			t.Errorf("fact %d: expected value %v, got %v", i, w, got[i].Value)
		}
	}
	if got[0].FilingType != FilingQuarterly {
		t.Errorf("Expected quarterly filing type, got %s", got[0].FilingType)
	}
	if got[1].End.Format(DateLayout) != "2024-06-30" {
		t.Errorf("Expected order to be preserved, got end %s", got[1].End.Format(DateLayout))
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	if got := Normalize(nil); len(got) != 0 {
		t.Errorf("Expected empty output, got %d facts", len(got))
	}
}

func TestNormalize_StartDateAndDuration(t *testing.T) {
	r := raw(`10`, "2024-03-31", "10-Q", "2024-05-01")
	r.Start = "2024-01-01"
	fy := 2024
	r.FY = &fy
	r.FP = "Q1"
	r.Accn = "0000320193-24-000010"

	got := Normalize([]RawFact{r})
	if len(got) != 1 {
		t.Fatalf("Expected 1 fact, got %d", len(got))
	}
	days, ok := got[0].DurationDays()
	if !ok || days != 91 {
		t.Errorf("Expected 91 day duration, got %d (ok=%v)", days, ok)
	}
	if got[0].FiscalYear != 2024 || got[0].FiscalPeriod != "Q1" || got[0].Accession == "" {
		t.Errorf("Expected metadata to be carried over, got %+v", got[0])
	}

	instant := raw(`10`, "2024-03-31", "10-Q", "2024-05-01")
	got = Normalize([]RawFact{instant})
	if _, ok := got[0].DurationDays(); ok {
		t.Error("Expected an instant to have no duration")
	}
}

func TestParseFilingType(t *testing.T) {
	tests := []struct {
		form string
		want FilingType
	}{
		{"10-Q", FilingQuarterly},
		{"10-Q/A", FilingQuarterly},
		{"10-K", FilingAnnual},
		{"10-K/A", FilingAnnual},
		{"20-F", FilingAnnual},
		{" 10-k ", FilingAnnual},
		{"8-K", FilingOther},
		{"S-1", FilingOther},
	}
	for _, tt := range tests {
		if got := ParseFilingType(tt.form); got != tt.want {
			t.Errorf("ParseFilingType(%q) = %s, want %s", tt.form, got, tt.want)
		}
	}
	if !IsAmendment("10-K/A") || IsAmendment("10-K") {
		t.Error("IsAmendment misclassified forms")
	}
}

func TestInferKind(t *testing.T) {
	stock := Normalize([]RawFact{raw(`5`, "2024-03-31", "10-Q", "2024-05-01")})
	if InferKind(stock) != Stock {
		t.Error("Expected instants to infer Stock")
	}
	r := raw(`5`, "2024-03-31", "10-Q", "2024-05-01")
	r.Start = "2024-01-01"
	if InferKind(Normalize([]RawFact{r})) != Flow {
		t.Error("Expected durations to infer Flow")
	}
}

const companyFactsJSON = `{
  "cik": 320193,
  "entityName": "Apple Inc.",
  "facts": {
    "dei": {
      "Revenues": {"units": {"USD": [{"end": "2024-03-31", "val": 1, "form": "10-Q", "filed": "2024-05-01"}]}}
    },
    "us-gaap": {
      "Revenues": {
        "label": "Revenues",
        "units": {"USD": [
          {"start": "2024-01-01", "end": "2024-03-31", "val": 90753000000, "accn": "0000320193-24-000069", "fy": 2024, "fp": "Q2", "form": "10-Q", "filed": "2024-05-03", "frame": "CY2024Q1"}
        ]}
      },
      "Broken": {"units": {"USD": {"not": "a list"}}},
      "AlsoBroken": {"units": "nope"}
    }
  }
}`

func TestParseCompanyFacts(t *testing.T) {
	cf, err := ParseCompanyFacts([]byte(companyFactsJSON))
	if err != nil {
		t.Fatalf("ParseCompanyFacts failed: %v", err)
	}
	if cf.CIK != "0000320193" {
		t.Errorf("Expected padded CIK, got %q", cf.CIK)
	}
	if cf.EntityName != "Apple Inc." {
		t.Errorf("Expected entity name, got %q", cf.EntityName)
	}

	recs := cf.Facts.Records("Revenues", "USD")
	if len(recs) != 1 {
		t.Fatalf("Expected 1 Revenues record, got %d", len(recs))
	}
	if recs[0].Accn != "0000320193-24-000069" {
		t.Errorf("Expected us-gaap to win over dei, got %+v", recs[0])
	}
	if recs[0].Concept != "Revenues" || recs[0].Unit != "USD" {
		t.Errorf("Expected records to be stamped with concept and unit, got %+v", recs[0])
	}

	if len(cf.Skipped) != 2 {
		t.Errorf("Expected 2 skipped concepts, got %v", cf.Skipped)
	}
	if _, ok := cf.Facts["Broken"]; ok {
		t.Error("Expected malformed concept to be absent")
	}
}

func TestParseCompanyFacts_NotJSON(t *testing.T) {
	if _, err := ParseCompanyFacts([]byte("<html>")); err == nil {
		t.Error("Expected an error for a non-JSON document")
	}
}

func TestParseCompanyFacts_DropsMistypedRecord(t *testing.T) {
	payload := `{
  "cik": 320193,
  "facts": {
    "us-gaap": {
      "Revenues": {"units": {"USD": [
        {"end": "2024-03-30", "val": 90753000000, "form": "10-Q", "filed": "2024-05-03"},
        {"end": 20240630, "val": 85777000000, "form": "10-Q", "filed": "2024-08-02"}
      ]}}
    },
    "custom": "not an object"
  }
}`
	cf, err := ParseCompanyFacts([]byte(payload))
	if err != nil {
		t.Fatalf("ParseCompanyFacts failed: %v", err)
	}

	recs := cf.Facts.Records("Revenues", "USD")
	if len(recs) != 1 {
		t.Fatalf("Expected 1 Revenues record, got %d", len(recs))
	}
	if recs[0].End != "2024-03-30" {
		t.Errorf("Expected the well-formed record to survive, got %+v", recs[0])
	}
	if len(cf.Skipped) != 1 || cf.Skipped[0] != "custom" {
		t.Errorf("Expected only the custom taxonomy to be skipped, got %v", cf.Skipped)
	}
}

func TestDecode_BareMapping(t *testing.T) {
	payload := `{
      "Assets": {"USD": [{"end": "2024-03-31", "val": 500, "form": "10-Q", "filed": "2024-05-01"}]},
      "Liabilities": {"USD": "oops"}
    }`
	cf, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(cf.Facts.Records("Assets", "USD")) != 1 {
		t.Error("Expected Assets to decode")
	}
	if len(cf.Skipped) != 1 || cf.Skipped[0] != "Liabilities" {
		t.Errorf("Expected Liabilities to be skipped, got %v", cf.Skipped)
	}
}

func TestNormalizeCIK(t *testing.T) {
	tests := map[string]string{
		"320193":     "0000320193",
		"0000320193": "0000320193",
		"":           "",
		"0":          "",
		"ABC":        "ABC",
	}
	for in, want := range tests {
		if got := NormalizeCIK(in); got != want {
			t.Errorf("NormalizeCIK(%q) = %q, want %q", in, got, want)
		}
	}
}

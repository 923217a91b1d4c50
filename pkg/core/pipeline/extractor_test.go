package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"filing_metrics/pkg/core/calc"
	"filing_metrics/pkg/core/diag"
	"filing_metrics/pkg/core/facts"
	"filing_metrics/pkg/core/period"
	"filing_metrics/pkg/core/quality"
	"filing_metrics/pkg/core/resolve"
)

// --- Mocks ---

type MockDescriber struct {
	DescribeFunc func(ctx context.Context, cik, accession string) (string, error)
	Calls        []string
}

func (m *MockDescriber) Describe(ctx context.Context, cik, accession string) (string, error) {
	m.Calls = append(m.Calls, accession)
	if m.DescribeFunc != nil {
		return m.DescribeFunc(ctx, cik, accession)
	}
	return "", nil
}

// --- Helpers ---

func raw(start, end string, val float64, form, filed, accn string) facts.RawFact {
	b, _ := json.Marshal(val)
	return facts.RawFact{Start: start, End: end, Val: b, Form: form, Filed: filed, Accn: accn}
}

const (
	tenK2023  = "0000320193-24-000010"
	tenKA2023 = "0000320193-24-000031"
)

// implausibleCompany reports net income above revenue.
func implausibleCompany() *facts.CompanyFacts {
	return &facts.CompanyFacts{
		CIK:        "0000320193",
		EntityName: "Example Corp",
		Facts: facts.ConceptFacts{
			"Revenues":      {"USD": {raw("2023-01-01", "2023-12-31", 100e6, "10-K", "2024-02-01", tenK2023)}},
			"CostOfRevenue": {"USD": {raw("2023-01-01", "2023-12-31", 40e6, "10-K", "2024-02-01", tenK2023)}},
			"NetIncomeLoss": {"USD": {raw("2023-01-01", "2023-12-31", 250e6, "10-K", "2024-02-01", tenK2023)}},
			"Assets":        {"USD": {raw("", "2023-12-31", 500e6, "10-K", "2024-02-01", tenK2023)}},
		},
	}
}

// --- Tests ---

func TestExtract_ImplausibleNetMarginPenalizedButReported(t *testing.T) {
	m := NewExtractor(DefaultOptions()).Extract(context.Background(), implausibleCompany())

	nm, ok := m.Derived[calc.NetMarginName]
	if !ok || nm.Value != 2.5 {
		t.Fatalf("Expected netMargin 2.5 to be reported, got %+v", nm)
	}
	if !m.Quality.Penalized || m.Quality.Status != quality.Poor {
		t.Errorf("Expected a penalized poor assessment, got %+v", m.Quality)
	}
	if m.Quality.Score != 0.375 {
		t.Errorf("Expected score 0.75 halved, got %v", m.Quality.Score)
	}
	if diag.Count(m.Warnings, diag.ImplausibleRatio) != 1 {
		t.Errorf("Expected an implausible-ratio warning, got %v", m.Warnings)
	}
}

func TestExtract_LaterAnnualFilingWins(t *testing.T) {
	cf := &facts.CompanyFacts{
		CIK: "0000320193",
		Facts: facts.ConceptFacts{
			"NetIncomeLoss": {"USD": {
				raw("2023-01-01", "2023-12-31", 90, "10-K", "2024-02-01", tenK2023),
				raw("2023-01-01", "2023-12-31", 95, "10-K/A", "2024-03-15", tenKA2023),
			}},
		},
	}
	m := NewExtractor(DefaultOptions()).Extract(context.Background(), cf)

	s := m.Series[resolve.NetIncome]
	if len(s.Annual) != 1 || s.Annual[0].Value != 95 {
		t.Fatalf("Expected only the later-filed annual value, got %+v", s.Annual)
	}
	if len(m.Citations) != 1 || m.Citations[0].Accession != tenKA2023 {
		t.Errorf("Expected only the amendment to be cited, got %+v", m.Citations)
	}
}

func TestExtract_YTDInFourthQuarter(t *testing.T) {
	doc := `{
		"cik": 320193,
		"entityName": "Example Corp",
		"facts": {"us-gaap": {"Revenues": {"units": {"USD": [
			{"end": "2022-03-31", "val": 9000000000,  "form": "10-Q", "filed": "2022-05-01"},
			{"end": "2022-06-30", "val": 9500000000,  "form": "10-Q", "filed": "2022-08-01"},
			{"end": "2022-09-30", "val": 9800000000,  "form": "10-Q", "filed": "2022-11-01"},
			{"end": "2022-12-31", "val": 10200000000, "form": "10-Q", "filed": "2023-02-01"},
			{"end": "2023-03-31", "val": 10000000000, "form": "10-Q", "filed": "2023-05-01"},
			{"end": "2023-06-30", "val": 11000000000, "form": "10-Q", "filed": "2023-08-01"},
			{"end": "2023-09-30", "val": 12000000000, "form": "10-Q", "filed": "2023-11-01"},
			{"end": "2023-12-31", "val": 95000000000, "form": "10-Q", "filed": "2024-02-01"}
		]}}}}
	}`
	cf, err := facts.Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	m := NewExtractor(DefaultOptions()).Extract(context.Background(), cf)

	s := m.Series[resolve.Revenue]
	if len(s.YTD) != 1 || s.YTD[0].Value != 95e9 {
		t.Fatalf("Expected the 95B value as YTD, got %+v", s.YTD)
	}
	for _, p := range s.Quarterly {
		if p.Value == 95e9 {
			t.Error("Expected the YTD value not to be counted as a quarter")
		}
	}
	if p, ok := s.Quarter(2023, 1); !ok || p.Value != 10e9 {
		t.Errorf("Expected Q1 2023 quarterly, got %+v", p)
	}
	if p, ok := s.Quarter(2023, 2); !ok || p.Value != 11e9 {
		t.Errorf("Expected Q2 2023 quarterly, got %+v", p)
	}
	if m.EntityName != "Example Corp" || m.CIK != "0000320193" {
		t.Errorf("Expected company identity carried through, got %q %q", m.CIK, m.EntityName)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	e := NewExtractor(DefaultOptions())
	first := e.Extract(context.Background(), implausibleCompany())
	second := e.Extract(context.Background(), implausibleCompany())

	if !reflect.DeepEqual(first, second) {
		t.Fatal("Expected identical output for identical input")
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Fatal("Expected identical JSON for identical input")
	}
}

func TestExtract_Citations(t *testing.T) {
	cf := &facts.CompanyFacts{
		CIK: "0000320193",
		Facts: facts.ConceptFacts{
			"Revenues": {"USD": {
				raw("2024-01-01", "2024-03-31", 120, "10-Q", "2024-05-02", "0000320193-24-000050"),
				raw("2023-01-01", "2023-12-31", 440, "10-K", "2024-02-01", tenK2023),
				raw("2022-01-01", "2022-12-31", 400, "10-K", "2024-02-01", tenK2023),
			}},
			"Assets": {"USD": {
				raw("", "2024-03-31", 900, "10-Q", "2024-05-02", ""),
			}},
		},
	}
	m := NewExtractor(DefaultOptions()).Extract(context.Background(), cf)

	if len(m.Citations) != 3 {
		t.Fatalf("Expected 3 distinct filings, got %+v", m.Citations)
	}
	// Same filing date: the unknown accession sorts first.
	if m.Citations[0].Accession != "" || m.Citations[1].Accession != "0000320193-24-000050" {
		t.Errorf("Unexpected order: %+v", m.Citations)
	}
	if got := m.Citations[1].Description; got != "10-Q filed 2024-05-02 (FY2024 Q1)" {
		t.Errorf("Unexpected description %q", got)
	}
	if got := m.Citations[1].SourceURL; got != "https://www.sec.gov/Archives/edgar/data/320193/000032019324000050/" {
		t.Errorf("Unexpected source URL %q", got)
	}
	if !strings.Contains(m.Citations[0].SourceURL, "action=getcompany") {
		t.Errorf("Expected a browse URL without an accession, got %q", m.Citations[0].SourceURL)
	}
	if got := m.Citations[2].Description; got != "10-K filed 2024-02-01 (FY2023)" {
		t.Errorf("Expected the newest period a filing contributed, got %q", got)
	}
}

func TestExtract_Describer(t *testing.T) {
	mock := &MockDescriber{
		DescribeFunc: func(ctx context.Context, cik, accession string) (string, error) {
			if accession == tenK2023 {
				return "", errors.New("index unavailable")
			}
			return "Amended annual report", nil
		},
	}
	cf := &facts.CompanyFacts{
		CIK: "0000320193",
		Facts: facts.ConceptFacts{
			"NetIncomeLoss": {"USD": {
				raw("2023-01-01", "2023-12-31", 95, "10-K/A", "2024-03-15", tenKA2023),
				raw("2022-01-01", "2022-12-31", 80, "10-K", "2024-02-01", tenK2023),
			}},
		},
	}

	e := NewExtractor(DefaultOptions())
	e.SetDescriber(mock)
	m := e.Extract(context.Background(), cf)

	if m.Citations[0].Description != "Amended annual report" {
		t.Errorf("Expected the describer's text, got %q", m.Citations[0].Description)
	}
	if m.Citations[1].Description != "10-K filed 2024-02-01 (FY2022)" {
		t.Errorf("Expected the local description after a failed lookup, got %q", m.Citations[1].Description)
	}

	opts := DefaultOptions()
	opts.DescribeLimit = 1
	limited := NewExtractor(opts)
	mock.Calls = nil
	limited.SetDescriber(mock)
	limited.Extract(context.Background(), cf)
	if len(mock.Calls) != 1 || mock.Calls[0] != tenKA2023 {
		t.Errorf("Expected only the newest filing described, got %v", mock.Calls)
	}
}

func TestExtract_MissingAndSkipped(t *testing.T) {
	cf := &facts.CompanyFacts{
		CIK:     "0000000001",
		Skipped: []string{"us-gaap:Broken"},
		Facts:   facts.ConceptFacts{},
	}
	m := NewExtractor(DefaultOptions()).Extract(context.Background(), cf)

	if len(m.Series) != 0 || len(m.Missing) != len(resolve.Metrics()) {
		t.Errorf("Expected every metric missing, got %d series, %d missing", len(m.Series), len(m.Missing))
	}
	if diag.Count(m.Warnings, diag.MalformedConcept) != 1 {
		t.Errorf("Expected a malformed-concept warning, got %v", m.Warnings)
	}
	if m.Quality.Status != quality.Poor || m.Quality.Score != 0 {
		t.Errorf("Expected a zero score, got %+v", m.Quality)
	}

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(b), `"revenue":{`) {
		t.Error("Expected a missing metric to be absent, not zero")
	}
}

func TestExtract_NilInputAndLogging(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	m := NewExtractor(DefaultOptions()).Extract(ctx, nil)
	if m == nil || len(m.Series) != 0 {
		t.Fatalf("Expected an empty result, got %+v", m)
	}
	if !strings.Contains(buf.String(), `"component":"pipeline"`) {
		t.Errorf("Expected a component-tagged log entry, got %s", buf.String())
	}
}

func TestExtract_CustomThresholds(t *testing.T) {
	opts := DefaultOptions()
	opts.Thresholds = period.DefaultThresholds()
	opts.Thresholds.YTDRatioThreshold = 20

	cf := &facts.CompanyFacts{
		CIK: "0000320193",
		Facts: facts.ConceptFacts{"Revenues": {"USD": {
			raw("", "2023-03-31", 10, "10-Q", "2023-05-01", ""),
			raw("", "2023-12-31", 95, "10-Q", "2024-02-01", ""),
		}}},
	}
	m := NewExtractor(opts).Extract(context.Background(), cf)
	if len(m.Series[resolve.Revenue].YTD) != 0 {
		t.Error("Expected a 9.5x value to stay quarterly under a 20x threshold")
	}
}

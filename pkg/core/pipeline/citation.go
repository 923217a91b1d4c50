package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"filing_metrics/pkg/core/facts"
	"filing_metrics/pkg/core/period"
	"filing_metrics/pkg/core/resolve"
)

const (
	archiveURL = "https://www.sec.gov/Archives/edgar/data/%s/%s/"
	browseURL  = "https://www.sec.gov/cgi-bin/browse-edgar"
)

// Citation points at one filing that contributed values to the output.
type Citation struct {
	FilingType  facts.FilingType
	Form        string
	FilingDate  time.Time
	Accession   string
	SourceURL   string
	Description string

	// Period of the newest value this filing contributed.
	fiscalYear    int
	fiscalQuarter int
	periodEnd     time.Time
	annual        bool
}

// Describer produces a human-readable description of a filing, e.g. from its
// EDGAR index page.
type Describer interface {
	Describe(ctx context.Context, cik, accession string) (string, error)
}

// buildCitations collects every distinct filing behind the resolved series,
// ordered by filing date descending, then accession.
func buildCitations(cik string, series map[resolve.MetricKind]resolve.MetricSeries) []Citation {
	byKey := make(map[string]*Citation)
	for _, m := range resolve.Metrics() {
		s, ok := series[m]
		if !ok {
			continue
		}
		for _, p := range s.All {
			key := p.Accession
			if key == "" {
				key = p.Form + "|" + p.FilingDate.Format(facts.DateLayout)
			}
			c, seen := byKey[key]
			if !seen {
				c = &Citation{
					FilingType: p.FilingType,
					Form:       p.Form,
					FilingDate: p.FilingDate,
					Accession:  p.Accession,
				}
				byKey[key] = c
			}
			if !seen || p.PeriodEnd.After(c.periodEnd) {
				c.periodEnd = p.PeriodEnd
				c.fiscalYear = p.FiscalYear
				c.fiscalQuarter = p.FiscalQuarter
				c.annual = p.Kind == period.Annual
			}
		}
	}

	out := make([]Citation, 0, len(byKey))
	for _, c := range byKey {
		c.SourceURL = sourceURL(cik, c.Accession, c.Form)
		c.Description = c.describe()
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.FilingDate.Equal(b.FilingDate) {
			return a.FilingDate.After(b.FilingDate)
		}
		if a.Accession != b.Accession {
			return a.Accession < b.Accession
		}
		return a.Form < b.Form
	})
	return out
}

func (c *Citation) describe() string {
	fp := fmt.Sprintf("FY%d Q%d", c.fiscalYear, c.fiscalQuarter)
	if c.annual {
		fp = fmt.Sprintf("FY%d", c.fiscalYear)
	}
	return fmt.Sprintf("%s filed %s (%s)", c.Form, c.FilingDate.Format(facts.DateLayout), fp)
}

// sourceURL is the EDGAR archive folder of the filing, or the company's filing
// list when the accession is unknown.
func sourceURL(cik, accession, form string) string {
	n, err := strconv.ParseInt(cik, 10, 64)
	if accession != "" && err == nil {
		return fmt.Sprintf(archiveURL, strconv.FormatInt(n, 10), strings.ReplaceAll(accession, "-", ""))
	}
	q := url.Values{}
	q.Set("action", "getcompany")
	q.Set("CIK", cik)
	q.Set("type", form)
	return browseURL + "?" + q.Encode()
}

// MarshalJSON renders the filing date as a calendar date.
func (c Citation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FilingType  facts.FilingType `json:"filing_type"`
		Form        string           `json:"form"`
		FilingDate  string           `json:"filing_date"`
		Accession   string           `json:"accession,omitempty"`
		SourceURL   string           `json:"source_url"`
		Description string           `json:"description"`
	}{c.FilingType, c.Form, c.FilingDate.Format(facts.DateLayout), c.Accession, c.SourceURL, c.Description})
}

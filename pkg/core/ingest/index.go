package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"filing_metrics/pkg/core/facts"
)

// Describe fetches the EDGAR filing index page for an accession and returns a
// one-line description, e.g. "10-Q Quarterly report (period of report 2024-03-30)".
// It satisfies pipeline.Describer.
func (c *EDGARClient) Describe(ctx context.Context, cik, accession string) (string, error) {
	padded := facts.NormalizeCIK(cik)
	cikInt, err := strconv.ParseInt(padded, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid CIK %q", cik)
	}
	accession = strings.TrimSpace(accession)
	if accession == "" {
		return "", fmt.Errorf("empty accession: %w", ErrNotFound)
	}

	url := fmt.Sprintf("%s/Archives/edgar/data/%d/%s/%s-index.htm",
		c.opts.ArchiveURL, cikInt, strings.ReplaceAll(accession, "-", ""), accession)
	body, err := c.get(ctx, url, "text/html")
	if err != nil {
		return "", fmt.Errorf("failed to fetch filing index %s: %w", accession, err)
	}
	return parseIndexPage(body)
}

// parseIndexPage extracts the form name and the period of report.
func parseIndexPage(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse filing index: %w", err)
	}

	form := collapse(doc.Find("#formName").First().Text())
	form = strings.TrimPrefix(form, "Form ")
	if form == "" {
		return "", fmt.Errorf("filing index has no form name")
	}

	var period string
	doc.Find(".formGrouping .infoHead").Each(func(_ int, head *goquery.Selection) {
		if period != "" {
			return
		}
		if strings.EqualFold(collapse(head.Text()), "Period of Report") {
			period = collapse(head.NextFiltered(".info").First().Text())
		}
	})

	if period == "" {
		return form, nil
	}
	return fmt.Sprintf("%s (period of report %s)", form, period), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

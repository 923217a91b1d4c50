package period

import "filing_metrics/pkg/core/facts"

// SelectCanonical picks the one fact that represents a (concept, period end)
// pair out of re-filed and restated candidates.
//
// Priority:
//  1. Recency: the latest filing date wins.
//  2. With preferQuarterly, a 10-Q beats a 10-K filed the same day.
//  3. An amended filing (10-K/A, 10-Q/A) beats the original filed the same day.
//  4. A fact carrying an SEC frame (the API's own de-duplicated pick) wins.
//  5. Latest accession number, then latest start date, then larger value.
//
// The rule is total: for any non-empty input exactly one fact is returned,
// independent of input order. ok is false only for an empty input.
func SelectCanonical(candidates []facts.Fact, preferQuarterly bool) (facts.Fact, bool) {
	if len(candidates) == 0 {
		return facts.Fact{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if supersedes(c, best, preferQuarterly) {
			best = c
		}
	}
	return best, true
}

// supersedes reports whether incoming should replace existing as the canonical fact.
func supersedes(incoming, existing facts.Fact, preferQuarterly bool) bool {
	if !incoming.Filed.Equal(existing.Filed) {
		return incoming.Filed.After(existing.Filed)
	}
	if preferQuarterly {
		iq := incoming.FilingType == facts.FilingQuarterly
		eq := existing.FilingType == facts.FilingQuarterly
		if iq != eq {
			return iq
		}
	}
	if ia, ea := facts.IsAmendment(incoming.Form), facts.IsAmendment(existing.Form); ia != ea {
		return ia
	}
	if (incoming.Frame != "") != (existing.Frame != "") {
		return incoming.Frame != ""
	}
	if incoming.Accession != existing.Accession {
		return incoming.Accession > existing.Accession
	}
	if !incoming.Start.Equal(existing.Start) {
		return incoming.Start.After(existing.Start)
	}
	if incoming.Value != existing.Value {
		return incoming.Value > existing.Value
	}
	// Remaining fields only break ties between otherwise identical facts.
	return factLess(existing, incoming)
}

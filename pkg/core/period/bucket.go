package period

import (
	"sort"
	"time"

	"filing_metrics/pkg/core/facts"
)

// Bucket holds every fact sharing one concept and one period end date.
type Bucket struct {
	Concept string
	End     time.Time
	Facts   []facts.Fact
}

type bucketKey struct {
	concept string
	end     time.Time
}

// Bucketize groups facts by (concept, period end date).
//
// Buckets are ordered by end date then concept, and the facts inside a bucket
// follow a total order, so the grouping does not depend on input order.
func Bucketize(list []facts.Fact) []Bucket {
	index := make(map[bucketKey]int)
	var buckets []Bucket

	for _, f := range list {
		key := bucketKey{concept: f.Concept, end: dateOnly(f.End)}
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, Bucket{Concept: key.concept, End: key.end})
		}
		buckets[i].Facts = append(buckets[i].Facts, f)
	}

	sort.Slice(buckets, func(i, j int) bool {
		if !buckets[i].End.Equal(buckets[j].End) {
			return buckets[i].End.Before(buckets[j].End)
		}
		return buckets[i].Concept < buckets[j].Concept
	})
	for i := range buckets {
		sort.SliceStable(buckets[i].Facts, func(a, b int) bool {
			return factLess(buckets[i].Facts[a], buckets[i].Facts[b])
		})
	}
	return buckets
}

// factLess is a total order on facts: filed, form, accession, start, value, unit.
func factLess(a, b facts.Fact) bool {
	if !a.Filed.Equal(b.Filed) {
		return a.Filed.Before(b.Filed)
	}
	if a.Form != b.Form {
		return a.Form < b.Form
	}
	if a.Accession != b.Accession {
		return a.Accession < b.Accession
	}
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	if a.Value != b.Value {
		return a.Value < b.Value
	}
	if a.Frame != b.Frame {
		return a.Frame < b.Frame
	}
	return a.Unit < b.Unit
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

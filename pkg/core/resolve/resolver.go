package resolve

import (
	"fmt"

	"filing_metrics/pkg/core/diag"
	"filing_metrics/pkg/core/facts"
	"filing_metrics/pkg/core/period"
)

// Resolver turns raw concept facts into metric series.
type Resolver struct {
	classifier *period.Classifier
}

// NewResolver creates a resolver that classifies with the given classifier.
func NewResolver(c *period.Classifier) *Resolver {
	return &Resolver{classifier: c}
}

// Resolution is the outcome of resolving every registered metric.
type Resolution struct {
	Series   map[MetricKind]MetricSeries
	Missing  []MetricKind
	Warnings []diag.Warning
}

// Present reports which metrics resolved.
func (r Resolution) Present() map[MetricKind]bool {
	out := make(map[MetricKind]bool, len(r.Series))
	for m := range r.Series {
		out[m] = true
	}
	return out
}

// Resolve walks the metric's concepts in order and returns the first one whose
// classification yields data. Later fallbacks are not consulted once one does.
// ok=false means no concept produced data.
func (r *Resolver) Resolve(m MetricKind, cf facts.ConceptFacts) (MetricSeries, bool) {
	def := m.Definition()
	for _, concept := range def.Concepts {
		unit, ok := pickUnit(cf, concept, def.Units)
		if !ok {
			continue
		}
		list := facts.Normalize(cf.Records(concept, unit))
		if len(list) == 0 {
			continue
		}
		res := r.classifier.Classify(def.Kind, list)
		if res.Empty() {
			continue
		}
		s := newSeries(m, concept, unit, res)
		if def.Kind == facts.Stock && facts.InferKind(list) == facts.Flow {
			s.Warnings = append(s.Warnings, diag.Warning{
				Code:    diag.KindMismatch,
				Concept: concept,
				Message: "stock concept reports period start dates; classified as point-in-time",
			})
		}
		for i := range s.Warnings {
			s.Warnings[i].Metric = def.Name
		}
		return s, true
	}
	return MetricSeries{}, false
}

// ResolveAll resolves every registered metric in enumeration order.
func (r *Resolver) ResolveAll(cf facts.ConceptFacts) Resolution {
	out := Resolution{Series: make(map[MetricKind]MetricSeries)}
	for _, m := range Metrics() {
		s, ok := r.Resolve(m, cf)
		if !ok {
			out.Missing = append(out.Missing, m)
			out.Warnings = append(out.Warnings, diag.Warning{
				Code:    diag.MissingConcept,
				Metric:  m.String(),
				Message: fmt.Sprintf("none of %d candidate concepts produced data", len(m.Definition().Concepts)),
			})
			continue
		}
		out.Series[m] = s
		out.Warnings = append(out.Warnings, s.Warnings...)
	}
	diag.Sort(out.Warnings)
	return out
}

// pickUnit returns the first of the preferred units the concept reports.
func pickUnit(cf facts.ConceptFacts, concept string, units []string) (string, bool) {
	byUnit, ok := cf[concept]
	if !ok {
		return "", false
	}
	for _, u := range units {
		if len(byUnit[u]) > 0 {
			return u, true
		}
	}
	return "", false
}

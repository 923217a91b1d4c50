package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"filing_metrics/pkg/core/pipeline"
)

// Instruments are the Prometheus collectors for extraction traffic.
// A nil *Instruments records nothing.
type Instruments struct {
	extractions *prometheus.CounterVec
	fetches     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewInstruments creates the collectors and registers them with reg.
func NewInstruments(reg prometheus.Registerer) (*Instruments, error) {
	inst := &Instruments{
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filing_metrics",
			Name:      "extractions_total",
			Help:      "Completed extractions by data quality status.",
		}, []string{"status"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filing_metrics",
			Name:      "companyfacts_fetches_total",
			Help:      "Companyfacts documents served, by source.",
		}, []string{"source"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filing_metrics",
			Name:      "request_failures_total",
			Help:      "Failed API requests by HTTP status code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "filing_metrics",
			Name:      "extraction_duration_seconds",
			Help:      "Time spent in the extraction pipeline.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	for _, c := range []prometheus.Collector{inst.extractions, inst.fetches, inst.failures, inst.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

func (i *Instruments) timer() func() {
	if i == nil {
		return func() {}
	}
	t := prometheus.NewTimer(i.duration)
	return func() { t.ObserveDuration() }
}

func (i *Instruments) extracted(m *pipeline.Metrics) {
	if i == nil {
		return
	}
	i.extractions.WithLabelValues(string(m.Quality.Status)).Inc()
}

func (i *Instruments) fetched(cached bool) {
	if i == nil {
		return
	}
	source := "sec"
	if cached {
		source = "cache"
	}
	i.fetches.WithLabelValues(source).Inc()
}

func (i *Instruments) failed(status int) {
	if i == nil {
		return
	}
	i.failures.WithLabelValues(strconv.Itoa(status)).Inc()
}

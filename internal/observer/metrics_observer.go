package observer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsObserver turns analysis events into Prometheus series.
type MetricsObserver struct {
	analyses *prometheus.CounterVec
	failures *prometheus.CounterVec
	fetches  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsObserver registers its collectors on reg.
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	o := &MetricsObserver{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medical_imaging",
			Name:      "analyses_total",
			Help:      "Analysis requests by source and outcome.",
		}, []string{"source", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medical_imaging",
			Name:      "analysis_failures_total",
			Help:      "Failed analyses by error kind.",
		}, []string{"kind"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medical_imaging",
			Name:      "image_fetches_total",
			Help:      "Remote image fetches by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medical_imaging",
			Name:      "analysis_duration_seconds",
			Help:      "Wall-clock time of successful analyses.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"source"}),
	}

	reg.MustRegister(o.analyses, o.failures, o.fetches, o.duration)
	return o
}

// OnEvent handles analysis events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	switch event.EventType {
	case AnalysisStarted:
		o.analyses.WithLabelValues(event.Source, "started").Inc()
	case AnalysisCompleted:
		o.analyses.WithLabelValues(event.Source, "completed").Inc()
		o.duration.WithLabelValues(event.Source).Observe(event.ProcessingTime.Seconds())
	case AnalysisFailed:
		o.analyses.WithLabelValues(event.Source, "failed").Inc()
		o.failures.WithLabelValues(event.ErrorKind).Inc()
	case ImageFetched:
		o.fetches.WithLabelValues("ok").Inc()
	case ImageFetchFailed:
		o.fetches.WithLabelValues("failed").Inc()
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

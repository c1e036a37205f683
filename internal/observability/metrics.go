package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// weather service.
type Metrics struct {
	// Upstream GeoMet metrics.
	UpstreamRequests        *prometheus.CounterVec   // labels: encoding={wcs,wms}, outcome={success,error,breaker_open}
	UpstreamRequestDuration *prometheus.HistogramVec // labels: encoding={wcs,wms}
	UpstreamUp              prometheus.Gauge

	// Resolver metrics.
	ResolveOutcomes  *prometheus.CounterVec // labels: variable, status={success,not_available,upstream_error,timeout}
	ResolveFallbacks *prometheus.CounterVec // labels: variable, path={alternate,derived}

	// Assessment metrics.
	AssessmentsTotal        *prometheus.CounterVec // labels: status={GREEN,YELLOW,RED}
	AssessmentsPublished    prometheus.Counter
	AssessmentPublishErrors prometheus.Counter

	// Probe metrics.
	ProbeDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrdps_weather",
			Name:      "upstream_requests_total",
			Help:      "GeoMet layer fetches by encoding and outcome.",
		}, []string{"encoding", "outcome"}),
		UpstreamRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hrdps_weather",
			Name:      "upstream_request_duration_seconds",
			Help:      "GeoMet request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"encoding"}),
		UpstreamUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hrdps_weather",
			Name:      "upstream_up",
			Help:      "1 when the last GeoMet probe succeeded, 0 otherwise.",
		}),
		ResolveOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrdps_weather",
			Name:      "resolve_outcomes_total",
			Help:      "Variable resolutions by variable and final status.",
		}, []string{"variable", "status"}),
		ResolveFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrdps_weather",
			Name:      "resolve_fallbacks_total",
			Help:      "Resolutions served by an alternate layer or derived from wind components.",
		}, []string{"variable", "path"}),
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrdps_weather",
			Name:      "assessments_total",
			Help:      "BVLOS assessments by resulting status.",
		}, []string{"status"}),
		AssessmentsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hrdps_weather",
			Name:      "assessments_published_total",
			Help:      "Assessment audit records written to Kafka.",
		}),
		AssessmentPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hrdps_weather",
			Name:      "assessment_publish_errors_total",
			Help:      "Assessment audit records that failed to publish.",
		}),
		ProbeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hrdps_weather",
			Name:      "probe_duration_seconds",
			Help:      "Duration of the upstream availability probe.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamRequestDuration,
		m.UpstreamUp,
		m.ResolveOutcomes,
		m.ResolveFallbacks,
		m.AssessmentsTotal,
		m.AssessmentsPublished,
		m.AssessmentPublishErrors,
		m.ProbeDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		UpstreamRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hrdps_weather", Name: "upstream_requests_total"}, []string{"encoding", "outcome"}),
		UpstreamRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "hrdps_weather", Name: "upstream_request_duration_seconds"}, []string{"encoding"}),
		UpstreamUp:              prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hrdps_weather", Name: "upstream_up"}),
		ResolveOutcomes:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hrdps_weather", Name: "resolve_outcomes_total"}, []string{"variable", "status"}),
		ResolveFallbacks:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hrdps_weather", Name: "resolve_fallbacks_total"}, []string{"variable", "path"}),
		AssessmentsTotal:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hrdps_weather", Name: "assessments_total"}, []string{"status"}),
		AssessmentsPublished:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hrdps_weather", Name: "assessments_published_total"}),
		AssessmentPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hrdps_weather", Name: "assessment_publish_errors_total"}),
		ProbeDuration:           prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hrdps_weather", Name: "probe_duration_seconds"}),
	}
}

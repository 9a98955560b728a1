package aiservice

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the Prometheus collectors the AI Service updates.
// Construction is side-effect-free; callers register them on a
// prometheus.Registerer themselves (see MustRegister) so tests can use
// their own registry.
type Metrics struct {
	LatencySeconds *prometheus.HistogramVec
	Requests       *prometheus.CounterVec
	CoolingEvents  *prometheus.CounterVec
}

// NewMetrics builds a fresh, unregistered Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		LatencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "govctl",
			Subsystem: "aiservice",
			Name:      "request_latency_seconds",
			Help:      "Completion latency by provider and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "outcome"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "govctl",
			Subsystem: "aiservice",
			Name:      "requests_total",
			Help:      "Completions attempted by provider and outcome.",
		}, []string{"provider", "outcome"}),
		CoolingEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "govctl",
			Subsystem: "aiservice",
			Name:      "provider_cooling_total",
			Help:      "Times a provider was placed into backoff cooling.",
		}, []string{"provider"}),
	}
}

// MustRegister registers every collector on reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.LatencySeconds, m.Requests, m.CoolingEvents)
}

package channelservice

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the channel service's self-reported counters and latency
// histograms, exposed at /metrics. The teacher queried an external
// Prometheus server for chaos-test signal; here the service is the one
// being scraped, so the same dependency is repointed to produce samples
// instead of querying them.
type Metrics struct {
	ComputeRequests *prometheus.CounterVec
	ComputeDuration  *prometheus.HistogramVec
	CacheSize        prometheus.GaugeFunc
}

// NewMetrics registers the channel service's collectors against reg.
func NewMetrics(reg prometheus.Registerer, state *State) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		ComputeRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wireless_emulator",
			Subsystem: "channelservice",
			Name:      "compute_requests_total",
			Help:      "Count of channel compute requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),

		ComputeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wireless_emulator",
			Subsystem: "channelservice",
			Name:      "compute_duration_seconds",
			Help:      "Latency of channel compute requests by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}

	m.CacheSize = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "wireless_emulator",
		Subsystem: "channelservice",
		Name:      "path_cache_size",
		Help:      "Number of directional links currently cached.",
	}, func() float64 { return float64(state.CacheSize()) })

	return m
}

// Observe records one request's outcome and duration for endpoint.
func (m *Metrics) Observe(endpoint, outcome string, start time.Time) {
	m.ComputeRequests.WithLabelValues(endpoint, outcome).Inc()
	m.ComputeDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

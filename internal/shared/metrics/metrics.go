// Package metrics exposes Prometheus collectors for the crawler.
// Every method is safe on a nil receiver so components can run without metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
)

type Metrics struct {
	registry *prometheus.Registry

	apiCalls      *prometheus.CounterVec
	quotaUsed     prometheus.Gauge
	quotaLeft     prometheus.Gauge
	rotations     prometheus.Counter
	cacheRequests *prometheus.CounterVec
	outcomes      *prometheus.CounterVec
	feedRequests  prometheus.Counter
}

// New creates the collectors on a private registry.
func New(appEnv string) *Metrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"env": appEnv}

	m := &Metrics{
		registry: registry,
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "census_api_calls_total",
			Help:        "Upstream API calls by operation and result.",
			ConstLabels: constLabels,
		}, []string{"operation", "result"}), // ok | quota | transient | error
		quotaUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "census_quota_used_units",
			Help:        "Quota units charged today across all credentials.",
			ConstLabels: constLabels,
		}),
		quotaLeft: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "census_quota_remaining_units",
			Help:        "Quota units left before the safety buffer.",
			ConstLabels: constLabels,
		}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "census_credential_rotations_total",
			Help:        "Credential rotations caused by upstream quota errors.",
			ConstLabels: constLabels,
		}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "census_cache_requests_total",
			Help:        "Response cache lookups by namespace and result.",
			ConstLabels: constLabels,
		}, []string{"namespace", "result"}), // hit | miss
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "census_channels_total",
			Help:        "Classified channels by outcome and reason.",
			ConstLabels: constLabels,
		}, []string{"outcome", "reason"}),
		feedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "census_feed_requests_total",
			Help:        "RSS feed renders served.",
			ConstLabels: constLabels,
		}),
	}

	registry.MustRegister(
		m.apiCalls,
		m.quotaUsed,
		m.quotaLeft,
		m.rotations,
		m.cacheRequests,
		m.outcomes,
		m.feedRequests,
	)
	return m
}

// Gatherer returns the registry for promhttp.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// WriteTextfile dumps the current values for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return oops.With("path", path).Wrap(err)
	}
	return nil
}

func (m *Metrics) IncAPICall(operation, result string) {
	if m == nil {
		return
	}
	m.apiCalls.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) SetQuota(used, remaining int) {
	if m == nil {
		return
	}
	m.quotaUsed.Set(float64(used))
	m.quotaLeft.Set(float64(remaining))
}

func (m *Metrics) IncRotation() {
	if m == nil {
		return
	}
	m.rotations.Inc()
}

func (m *Metrics) IncCache(namespace string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(namespace, result).Inc()
}

func (m *Metrics) IncOutcome(outcome, reason string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) IncFeedRequest() {
	if m == nil {
		return
	}
	m.feedRequests.Inc()
}

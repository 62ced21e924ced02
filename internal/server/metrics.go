package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/repowatch/repowatch/internal/types"
)

const metricsNamespace = "repowatch"

// metrics is registered on a per-server registry so tests can build several
// servers in one process.
type metrics struct {
	registry         *prometheus.Registry
	scansReceived    *prometheus.CounterVec
	findingsReceived *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{registry: prometheus.NewRegistry()}
	m.scansReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "scans_received_total",
			Help:      "Scan reports accepted by the archive",
		},
		[]string{"source"},
	)
	m.findingsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "findings_received_total",
			Help:      "Findings contained in accepted scan reports",
		},
		[]string{"severity"},
	)
	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Archive API request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	m.registry.MustRegister(m.scansReceived, m.findingsReceived, m.requestDuration)
	// Pre-create one series per severity so dashboards see zeros.
	for _, s := range types.Severities() {
		m.findingsReceived.WithLabelValues(string(s))
	}
	return m
}

func (m *metrics) observeReport(source types.SourceKind, counts map[types.Severity]int) {
	m.scansReceived.WithLabelValues(string(source)).Inc()
	for sev, n := range counts {
		m.findingsReceived.WithLabelValues(string(sev)).Add(float64(n))
	}
}

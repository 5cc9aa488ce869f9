package leave

import (
	"github.com/prometheus/client_golang/prometheus"
)

// cacheMetrics are the ConflictCache collectors. A cache built without a
// registerer still updates them; they are just not exported.
type cacheMetrics struct {
	refreshes   *prometheus.CounterVec
	duration    prometheus.Histogram
	conflicting prometheus.Gauge
}

func newCacheMetrics(reg prometheus.Registerer) *cacheMetrics {
	m := &cacheMetrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leave",
			Subsystem: "conflict_cache",
			Name:      "refreshes_total",
			Help:      "Full conflict cache rebuilds by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leave",
			Subsystem: "conflict_cache",
			Name:      "refresh_duration_seconds",
			Help:      "Time spent rebuilding the conflict cache.",
			Buckets:   prometheus.DefBuckets,
		}),
		conflicting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leave",
			Subsystem: "conflict_cache",
			Name:      "conflicting_records",
			Help:      "Leave records currently without an available substitute.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.refreshes, m.duration, m.conflicting)
	}
	return m
}

func (m *cacheMetrics) refreshed(err error, seconds float64) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.refreshes.WithLabelValues(result).Inc()
	m.duration.Observe(seconds)
}

package beancache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// cacheMetrics holds Prometheus collectors for one cache.
// A nil *cacheMetrics records nothing.
type cacheMetrics struct {
	created   prometheus.Counter
	removed   prometheus.Counter
	discarded *prometheus.CounterVec
	lookups   *prometheus.CounterVec
}

// newCacheMetrics creates the collectors and registers them, together with
// gauges reading the live bean counts.
func newCacheMetrics(reg prometheus.Registerer, name string, active, passive func() int) (*cacheMetrics, error) {
	labels := prometheus.Labels{"cache": name}
	m := &cacheMetrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "beancache",
			Subsystem:   "cache",
			Name:        "beans_created_total",
			ConstLabels: labels,
			Help:        "Total number of beans created",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "beancache",
			Subsystem:   "cache",
			Name:        "beans_removed_total",
			ConstLabels: labels,
			Help:        "Total number of beans removed or discarded",
		}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "beancache",
			Subsystem:   "cache",
			Name:        "batches_discarded_total",
			ConstLabels: labels,
			Help:        "Total number of batches discarded after a failure, by operation",
		}, []string{"op"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "beancache",
			Subsystem:   "cache",
			Name:        "lookups_total",
			ConstLabels: labels,
			Help:        "Total number of Get lookups, by result",
		}, []string{"result"}),
	}

	collectors := []prometheus.Collector{
		m.created,
		m.removed,
		m.discarded,
		m.lookups,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "beancache",
			Subsystem:   "cache",
			Name:        "active_beans",
			ConstLabels: labels,
			Help:        "Current number of beans held in memory",
		}, func() float64 { return float64(active()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "beancache",
			Subsystem:   "cache",
			Name:        "passivated_beans",
			ConstLabels: labels,
			Help:        "Current number of passivated beans",
		}, func() float64 { return float64(passive()) }),
	}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			for _, done := range collectors[:i] {
				reg.Unregister(done)
			}
			return nil, err
		}
	}
	return m, nil
}

func (m *cacheMetrics) recordCreate() {
	if m != nil {
		m.created.Inc()
	}
}

func (m *cacheMetrics) recordRemove() {
	if m != nil {
		m.removed.Inc()
	}
}

func (m *cacheMetrics) recordDiscard(op string) {
	if m != nil {
		m.discarded.WithLabelValues(op).Inc()
	}
}

func (m *cacheMetrics) recordLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.lookups.WithLabelValues("hit").Inc()
	} else {
		m.lookups.WithLabelValues("miss").Inc()
	}
}

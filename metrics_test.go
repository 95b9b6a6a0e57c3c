package beancache

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	active, passive := 3, 1
	m, err := newCacheMetrics(reg, "carts", func() int { return active }, func() int { return passive })
	require.NoError(t, err)

	m.recordCreate()
	m.recordCreate()
	m.recordRemove()
	m.recordDiscard("get")
	m.recordLookup(true)
	m.recordLookup(false)
	m.recordLookup(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.created))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.removed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.discarded.WithLabelValues("get")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.lookups.WithLabelValues("miss")))

	n, err := testutil.GatherAndCount(reg, "beancache_cache_active_beans", "beancache_cache_passivated_beans")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = newCacheMetrics(reg, "carts", func() int { return 0 }, func() int { return 0 })
	require.Error(t, err, "duplicate registration")
}

func TestFailedRegistrationLeavesNothingBehind(t *testing.T) {
	reg := prometheus.NewRegistry()
	blocker := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "beancache",
		Subsystem:   "cache",
		Name:        "passivated_beans",
		ConstLabels: prometheus.Labels{"cache": "carts"},
		Help:        "Current number of passivated beans",
	})
	require.NoError(t, reg.Register(blocker))
	zero := func() int { return 0 }

	_, err := newCacheMetrics(reg, "carts", zero, zero)
	require.Error(t, err)

	require.True(t, reg.Unregister(blocker))
	_, err = newCacheMetrics(reg, "carts", zero, zero)
	require.NoError(t, err, "collectors from the failed attempt were unregistered")
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *cacheMetrics
	m.recordCreate()
	m.recordRemove()
	m.recordDiscard("create")
	m.recordLookup(true)
}

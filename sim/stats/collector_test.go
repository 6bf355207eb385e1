package stats

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	return c
}

func TestCollector_CycleEmitted_CountsCyclesAndBytes(t *testing.T) {
	// GIVEN a fresh collector
	c := newTestCollector(t)

	// WHEN two cycles are recorded for the outer tier
	c.CycleEmitted("olt", 100, 700)
	c.CycleEmitted("olt", 50, 0)

	// THEN cycles and granted bytes accumulate per class
	assert.Equal(t, 2.0, testutil.ToFloat64(c.GrantCycles.WithLabelValues("olt")))
	assert.Equal(t, 150.0, testutil.ToFloat64(c.GrantedBytes.WithLabelValues("olt", "2")))
	assert.Equal(t, 700.0, testutil.ToFloat64(c.GrantedBytes.WithLabelValues("olt", "3")))
}

func TestCollector_Counters(t *testing.T) {
	c := newTestCollector(t)

	c.FrameDropped("mfu0")
	c.FragmentSent("olt", 3)
	c.FragmentSent("olt", 3)
	c.ReportAbsorbed("olt")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.FramesDropped.WithLabelValues("mfu0")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Fragments.WithLabelValues("olt", "3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StatusReports.WithLabelValues("olt")))
}

func TestCollector_ObserveLatency_OneSeriesPerTierAndKind(t *testing.T) {
	c := newTestCollector(t)

	c.ObserveLatency("olt", "xr", 1e-4)
	c.ObserveLatency("olt", "xr", 2e-4)
	c.ObserveLatency("olt", "background", 3e-4)

	assert.Equal(t, 2, testutil.CollectAndCount(c.FrameLatency))
}

func TestCollector_WriteText_EmitsExposition(t *testing.T) {
	// GIVEN a collector with one grant cycle recorded
	c := newTestCollector(t)
	c.CycleEmitted("olt", 1, 2)

	// WHEN the metrics are written as text
	var buf bytes.Buffer
	require.NoError(t, c.WriteText(&buf))

	// THEN the exposition names the metric with its labels
	assert.Contains(t, buf.String(), `pon_grant_cycles_total{tier="olt"} 1`)
	assert.Contains(t, buf.String(), "# TYPE pon_granted_bytes_total counter")
}

func TestCollector_NilIsNoOp(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.ObserveLatency("olt", "xr", 1)
		c.FrameDropped("olt")
		c.FragmentSent("olt", 2)
		c.CycleEmitted("olt", 1, 1)
		c.ReportAbsorbed("olt")
	})
	assert.NoError(t, c.WriteText(&bytes.Buffer{}))
}

func TestNewCollector_DuplicateRegistration_ReturnsError(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)

	assert.Error(t, err)
}

func TestNewCollector_PartialFailure_UnregistersEarlierMetrics(t *testing.T) {
	// GIVEN a registry that already holds a conflicting fragments metric
	reg := prometheus.NewRegistry()
	conflict := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pon_fragments_total",
		Help: "Conflicting metric with different labels.",
	}, []string{"station"})
	require.NoError(t, reg.Register(conflict))
	conflict.WithLabelValues("onu0").Inc()

	// WHEN the collector is created against it
	_, err := NewCollector(reg)

	// THEN the error names the conflict and nothing else stays registered
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pon_fragments_total")
	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "pon_fragments_total", families[0].GetName())

	// AND once the conflict is gone the full set registers cleanly
	require.True(t, reg.Unregister(conflict))
	_, err = NewCollector(reg)
	assert.NoError(t, err)
}

// Package stats exposes simulator statistics as Prometheus metrics.
// A nil *Collector is valid and records nothing, so components can be built
// without a registry in unit tests.
package stats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Collector bundles the DBA metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	FrameLatency  *prometheus.HistogramVec
	FramesDropped *prometheus.CounterVec
	Fragments     *prometheus.CounterVec
	GrantCycles   *prometheus.CounterVec
	GrantedBytes  *prometheus.CounterVec
	StatusReports *prometheus.CounterVec
}

// latencyBuckets spans one polling cycle (125 µs) up to tens of milliseconds.
var latencyBuckets = []float64{25e-6, 50e-6, 125e-6, 250e-6, 500e-6, 1e-3, 2.5e-3, 5e-3, 10e-3, 25e-3, 50e-3}

// NewCollector registers the DBA metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		FrameLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pon_frame_latency_seconds",
			Help:    "Latency from frame generation to arrival at a scheduler, labeled by tier and traffic kind.",
			Buckets: latencyBuckets,
		}, []string{"tier", "kind"}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pon_frames_dropped_total",
			Help: "Frames rejected at station admission because the buffer would overflow.",
		}, []string{"tier"}),
		Fragments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pon_fragments_total",
			Help: "Fragments sent because the remaining grant could not carry the head-of-queue frame.",
		}, []string{"tier", "class"}),
		GrantCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pon_grant_cycles_total",
			Help: "Grant maps emitted by schedulers.",
		}, []string{"tier"}),
		GrantedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pon_granted_bytes_total",
			Help: "Bytes granted across all subordinates, labeled by traffic class.",
		}, []string{"tier", "class"}),
		StatusReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pon_status_reports_total",
			Help: "Status reports absorbed by schedulers.",
		}, []string{"tier"}),
	}

	metrics := []struct {
		name string
		col  prometheus.Collector
	}{
		{"pon_frame_latency_seconds", c.FrameLatency},
		{"pon_frames_dropped_total", c.FramesDropped},
		{"pon_fragments_total", c.Fragments},
		{"pon_grant_cycles_total", c.GrantCycles},
		{"pon_granted_bytes_total", c.GrantedBytes},
		{"pon_status_reports_total", c.StatusReports},
	}
	for i, m := range metrics {
		if err := reg.Register(m.col); err != nil {
			// Leave the registry as it was before the call.
			for _, done := range metrics[:i] {
				reg.Unregister(done.col)
			}
			return nil, fmt.Errorf("register %s: %w", m.name, err)
		}
	}
	return c, nil
}

// ObserveLatency records one latency sample in seconds.
func (c *Collector) ObserveLatency(tier, kind string, seconds float64) {
	if c == nil {
		return
	}
	c.FrameLatency.WithLabelValues(tier, kind).Observe(seconds)
}

// FrameDropped counts one admission failure.
func (c *Collector) FrameDropped(tier string) {
	if c == nil {
		return
	}
	c.FramesDropped.WithLabelValues(tier).Inc()
}

// FragmentSent counts one fragment.
func (c *Collector) FragmentSent(tier string, class int) {
	if c == nil {
		return
	}
	c.Fragments.WithLabelValues(tier, strconv.Itoa(class)).Inc()
}

// CycleEmitted records one grant map and the bytes it grants per class.
func (c *Collector) CycleEmitted(tier string, granted2, granted3 float64) {
	if c == nil {
		return
	}
	c.GrantCycles.WithLabelValues(tier).Inc()
	c.GrantedBytes.WithLabelValues(tier, "2").Add(granted2)
	c.GrantedBytes.WithLabelValues(tier, "3").Add(granted3)
}

// ReportAbsorbed counts one status report.
func (c *Collector) ReportAbsorbed(tier string) {
	if c == nil {
		return
	}
	c.StatusReports.WithLabelValues(tier).Inc()
}

// WriteText writes every gathered metric family in the Prometheus text
// exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	if c == nil {
		return nil
	}
	families, err := c.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

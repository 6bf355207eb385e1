package dba

import (
	"github.com/pon-dba/pon-dba-sim/sim"
	"github.com/pon-dba/pon-dba-sim/sim/stats"
)

// LatencySummary accumulates end-to-end latency samples, in seconds.
type LatencySummary struct {
	Count   int
	Sum     float64
	Max     float64
	Samples []float64
}

func (l *LatencySummary) add(v float64) {
	l.Count++
	l.Sum += v
	l.Max = max(l.Max, v)
	l.Samples = append(l.Samples, v)
}

// Mean returns the average sample, or 0 when empty.
func (l LatencySummary) Mean() float64 {
	if l.Count == 0 {
		return 0
	}
	return l.Sum / float64(l.Count)
}

// Terminal is the sink at the outer scheduler: every frame reaching it has
// left the network, so its latency since generation is final.
type Terminal struct {
	Tier    string
	Stats   *stats.Collector
	Frames  int
	Bytes   float64
	Latency map[TrafficKind]*LatencySummary
}

// NewTerminal creates a terminal sink labelled with the tier name.
func NewTerminal(tier string, collector *stats.Collector) *Terminal {
	return &Terminal{Tier: tier, Stats: collector, Latency: make(map[TrafficKind]*LatencySummary)}
}

// Accept implements FrameSink.
func (t *Terminal) Accept(s *sim.Simulator, f Frame) {
	t.Frames++
	t.Bytes += f.Size
	lat := sim.TicksToSeconds(s.Now() - f.GeneratedAt)
	sum, ok := t.Latency[f.Kind]
	if !ok {
		sum = &LatencySummary{}
		t.Latency[f.Kind] = sum
	}
	sum.add(lat)
	t.Stats.ObserveLatency(t.Tier, f.Kind.String(), lat)
}

// Forwarder is the sink at an inner scheduler: frames leaving the inner
// domain are handed to the outer station hosting it, classified by kind.
type Forwarder struct {
	Tier      string
	Domain    int
	Host      *StationTransmitter
	Stats     *stats.Collector
	Forwarded int
	Dropped   int
}

// Accept implements FrameSink. A full host buffer drops the frame there.
func (fw *Forwarder) Accept(s *sim.Simulator, f Frame) {
	f.InnerDomain = fw.Domain
	fw.Stats.ObserveLatency(fw.Tier, f.Kind.String(), sim.TicksToSeconds(s.Now()-f.GeneratedAt))
	if fw.Host.Enqueue(s.Now(), ClassForKind(f.Kind), f) {
		fw.Forwarded++
	} else {
		fw.Dropped++
	}
}

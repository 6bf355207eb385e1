package network

import (
	"fmt"
	"io"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pon-dba/pon-dba-sim/sim"
	"github.com/pon-dba/pon-dba-sim/sim/dba"
	"github.com/pon-dba/pon-dba-sim/sim/trace"
)

// Result summarizes one run.
type Result struct {
	SimulatedSeconds float64
	Events           int
	Tiers            []TierResult
	Latency          []LatencyResult
	Stall            StallReport
	Trace            *trace.TraceSummary
}

// TierResult aggregates one domain's counters.
type TierResult struct {
	Name            string
	Kind            string
	RangingComplete bool
	Cycles          int
	Reports         int
	FramesReceived  int
	Accepted        int
	Dropped         int
	Fragments       int
	EnqueuedBytes   float64
	SentBytes       float64
	BacklogBytes    float64
	MaxGrant        float64
}

// LatencyResult is the end-to-end latency of one traffic kind at the outer
// scheduler, in seconds.
type LatencyResult struct {
	Kind  string
	Count int
	Mean  float64
	P50   float64
	P99   float64
	Max   float64
}

// StallReport lists what never started or silently starved. Lost pings and
// grant maps are not retried, so they only surface here.
type StallReport struct {
	// Unranged names schedulers whose ranging never completed.
	Unranged []string
	// MissingRTT maps an unranged scheduler to the stations that never answered.
	MissingRTT map[string][]dba.SubordinateID
	// MissedGrantMaps counts header slots that found no grant map, per station.
	MissedGrantMaps map[string]int
}

// Stalled reports whether anything was found.
func (r StallReport) Stalled() bool {
	return len(r.Unranged) > 0 || len(r.MissedGrantMaps) > 0
}

func (n *Network) summarize() *Result {
	res := &Result{
		SimulatedSeconds: sim.TicksToSeconds(n.Sim.Now()),
		Events:           n.Sim.Executed,
		Stall: StallReport{
			MissingRTT:      make(map[string][]dba.SubordinateID),
			MissedGrantMaps: make(map[string]int),
		},
	}
	for _, d := range n.Domains() {
		tr := TierResult{
			Name:            d.Tier.Name,
			Kind:            d.Tier.Kind.String(),
			RangingComplete: d.Scheduler.RangingComplete(),
			Cycles:          d.Scheduler.CyclesEmitted,
			Reports:         d.Scheduler.ReportsAbsorbed,
			FramesReceived:  d.Scheduler.FramesReceived,
			MaxGrant:        d.Scheduler.MaxGrant(),
		}
		for _, st := range d.Stations {
			tr.Accepted += st.Accepted
			tr.Dropped += st.Dropped
			tr.Fragments += st.Fragments
			tr.EnqueuedBytes += st.EnqueuedBytes
			tr.SentBytes += st.SentBytes
			tr.BacklogBytes += st.PendingTotal()
			if st.MissedGrantMaps > 0 {
				res.Stall.MissedGrantMaps[st.Name()] = st.MissedGrantMaps
			}
		}
		if !tr.RangingComplete {
			res.Stall.Unranged = append(res.Stall.Unranged, d.Tier.Name)
			res.Stall.MissingRTT[d.Tier.Name] = d.Scheduler.Ranging().Missing()
		}
		res.Tiers = append(res.Tiers, tr)
	}

	kinds := make([]dba.TrafficKind, 0, len(n.Terminal.Latency))
	for k := range n.Terminal.Latency {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		res.Latency = append(res.Latency, latencyResult(k, n.Terminal.Latency[k]))
	}
	if n.Trace != nil {
		res.Trace = trace.Summarize(n.Trace)
	}
	return res
}

func latencyResult(k dba.TrafficKind, l *dba.LatencySummary) LatencyResult {
	out := LatencyResult{Kind: k.String(), Count: l.Count, Max: l.Max}
	if l.Count == 0 {
		return out
	}
	sorted := slices.Clone(l.Samples)
	sort.Float64s(sorted)
	out.Mean = stat.Mean(sorted, nil)
	out.P50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	out.P99 = stat.Quantile(0.99, stat.Empirical, sorted, nil)
	return out
}

// Print writes a human-readable summary.
func (r *Result) Print(w io.Writer) {
	fmt.Fprintf(w, "=== Simulation Summary ===\n")
	fmt.Fprintf(w, "Simulated time : %.6f s\n", r.SimulatedSeconds)
	fmt.Fprintf(w, "Events         : %d\n", r.Events)
	for _, t := range r.Tiers {
		fmt.Fprintf(w, "\n--- %s tier %s ---\n", t.Kind, t.Name)
		fmt.Fprintf(w, "Ranged         : %v\n", t.RangingComplete)
		fmt.Fprintf(w, "Max grant      : %.0f B\n", t.MaxGrant)
		fmt.Fprintf(w, "Grant cycles   : %d\n", t.Cycles)
		fmt.Fprintf(w, "Reports        : %d\n", t.Reports)
		fmt.Fprintf(w, "Frames in/out  : %d accepted, %d dropped, %d received upstream\n", t.Accepted, t.Dropped, t.FramesReceived)
		fmt.Fprintf(w, "Fragments      : %d\n", t.Fragments)
		fmt.Fprintf(w, "Bytes          : %.0f enqueued, %.0f sent, %.0f backlog\n", t.EnqueuedBytes, t.SentBytes, t.BacklogBytes)
	}
	if len(r.Latency) > 0 {
		fmt.Fprintf(w, "\n--- End-to-end latency (ms) ---\n")
		for _, l := range r.Latency {
			fmt.Fprintf(w, "%-10s n=%-8d mean=%.3f p50=%.3f p99=%.3f max=%.3f\n",
				l.Kind, l.Count, l.Mean*1e3, l.P50*1e3, l.P99*1e3, l.Max*1e3)
		}
	}
	if r.Trace != nil {
		fmt.Fprintf(w, "\n--- Trace ---\n")
		fmt.Fprintf(w, "Cycles %d, reports %d, fragments %d (%.0f B), mean grant c2 %.1f B c3 %.1f B\n",
			r.Trace.TotalCycles, r.Trace.TotalReports, r.Trace.TotalFragments,
			r.Trace.FragmentedBytes, r.Trace.MeanGrant2, r.Trace.MeanGrant3)
	}
	if r.Stall.Stalled() {
		fmt.Fprintf(w, "\n--- Stalls ---\n")
		for _, name := range r.Stall.Unranged {
			fmt.Fprintf(w, "%s never ranged; missing %v\n", name, r.Stall.MissingRTT[name])
		}
		names := make([]string, 0, len(r.Stall.MissedGrantMaps))
		for name := range r.Stall.MissedGrantMaps {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "%s missed %d grant maps\n", name, r.Stall.MissedGrantMaps[name])
		}
	}
}

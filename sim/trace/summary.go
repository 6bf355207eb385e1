package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalCycles     int
	TotalReports    int
	TotalFragments  int
	MeanGrant2      float64 // mean bytes granted per subordinate per cycle, class 2
	MeanGrant3      float64
	FragmentedBytes float64
	CyclesPerSched  map[string]int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		CyclesPerSched: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalCycles = len(st.Cycles)
	summary.TotalReports = len(st.Reports)
	summary.TotalFragments = len(st.Fragments)

	entries := 0
	var g2, g3 float64
	for _, c := range st.Cycles {
		summary.CyclesPerSched[c.Scheduler]++
		for _, e := range c.Entries {
			g2 += e.Grant2
			g3 += e.Grant3
			entries++
		}
	}
	if entries > 0 {
		summary.MeanGrant2 = g2 / float64(entries)
		summary.MeanGrant3 = g3 / float64(entries)
	}

	for _, f := range st.Fragments {
		summary.FragmentedBytes += f.Sent
	}
	return summary
}

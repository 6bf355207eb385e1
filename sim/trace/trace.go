package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures grant maps, absorbed reports and fragments.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	// MaxCycles caps the number of cycle records kept (0 = unlimited).
	MaxCycles int
	// MaxRecords caps report and fragment records, each list on its own
	// (0 = unlimited).
	MaxRecords int
}

// SimulationTrace collects decision records during a run. A nil trace
// records nothing.
type SimulationTrace struct {
	Config    TraceConfig
	Cycles    []CycleRecord
	Reports   []ReportRecord
	Fragments []FragmentRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:    config,
		Cycles:    make([]CycleRecord, 0),
		Reports:   make([]ReportRecord, 0),
		Fragments: make([]FragmentRecord, 0),
	}
}

func (st *SimulationTrace) enabled() bool {
	return st != nil && st.Config.Level == TraceLevelDecisions
}

// RecordCycle appends a grant map record.
func (st *SimulationTrace) RecordCycle(record CycleRecord) {
	if !st.enabled() {
		return
	}
	if st.Config.MaxCycles > 0 && len(st.Cycles) >= st.Config.MaxCycles {
		return
	}
	st.Cycles = append(st.Cycles, record)
}

func (st *SimulationTrace) full(n int) bool {
	return st.Config.MaxRecords > 0 && n >= st.Config.MaxRecords
}

// RecordReport appends an absorbed status report.
func (st *SimulationTrace) RecordReport(record ReportRecord) {
	if !st.enabled() || st.full(len(st.Reports)) {
		return
	}
	st.Reports = append(st.Reports, record)
}

// RecordFragment appends a fragmentation event.
func (st *SimulationTrace) RecordFragment(record FragmentRecord) {
	if !st.enabled() || st.full(len(st.Fragments)) {
		return
	}
	st.Fragments = append(st.Fragments, record)
}

package trace

import (
	"testing"
)

func TestSimulationTrace_RecordCycle_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN a cycle record is recorded
	st.RecordCycle(CycleRecord{
		Scheduler: "olt",
		Seq:       1,
		Clock:     1000,
		MaxGrant:  200,
		Entries:   []GrantEntry{{Subordinate: 0, Grant3: 200}},
	})

	// THEN the trace contains one cycle record with correct data
	if len(st.Cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(st.Cycles))
	}
	if st.Cycles[0].Seq != 1 {
		t.Errorf("expected seq 1, got %d", st.Cycles[0].Seq)
	}
	if st.Cycles[0].Entries[0].Grant3 != 200 {
		t.Errorf("expected grant3 200, got %v", st.Cycles[0].Entries[0].Grant3)
	}
}

func TestSimulationTrace_LevelNone_RecordsNothing(t *testing.T) {
	// GIVEN a trace with tracing disabled
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelNone})

	// WHEN records are appended
	st.RecordCycle(CycleRecord{Scheduler: "olt", Seq: 1})
	st.RecordReport(ReportRecord{Scheduler: "olt"})
	st.RecordFragment(FragmentRecord{Station: "onu0"})

	// THEN nothing is kept
	if len(st.Cycles)+len(st.Reports)+len(st.Fragments) != 0 {
		t.Errorf("expected empty trace, got %d/%d/%d", len(st.Cycles), len(st.Reports), len(st.Fragments))
	}
}

func TestSimulationTrace_NilTrace_IsSafe(t *testing.T) {
	// GIVEN a nil trace
	var st *SimulationTrace

	// WHEN recording, THEN nothing panics
	st.RecordCycle(CycleRecord{})
	st.RecordReport(ReportRecord{})
	st.RecordFragment(FragmentRecord{})
}

func TestSimulationTrace_MaxCycles_CapsRecords(t *testing.T) {
	// GIVEN a trace capped at 2 cycles
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions, MaxCycles: 2})

	// WHEN 5 cycles are recorded
	for i := int64(1); i <= 5; i++ {
		st.RecordCycle(CycleRecord{Scheduler: "olt", Seq: i})
	}

	// THEN only the first 2 are kept
	if len(st.Cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(st.Cycles))
	}
	if st.Cycles[1].Seq != 2 {
		t.Errorf("expected second record seq 2, got %d", st.Cycles[1].Seq)
	}
}

func TestSimulationTrace_MaxRecords_CapsReportsAndFragments(t *testing.T) {
	// GIVEN a trace capped at 3 records per list and no cycle cap
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions, MaxRecords: 3})

	// WHEN many reports, fragments and cycles are recorded
	for i := 0; i < 10; i++ {
		st.RecordReport(ReportRecord{Scheduler: "olt", Subordinate: i})
		st.RecordFragment(FragmentRecord{Station: "onu0", FrameID: uint64(i)})
		st.RecordCycle(CycleRecord{Scheduler: "olt", Seq: int64(i)})
	}

	// THEN reports and fragments stop at the cap, oldest kept, cycles unaffected
	if len(st.Reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(st.Reports))
	}
	if len(st.Fragments) != 3 {
		t.Fatalf("expected 3 fragments, got %d", len(st.Fragments))
	}
	if st.Reports[2].Subordinate != 2 || st.Fragments[2].FrameID != 2 {
		t.Errorf("expected the first three records kept, got report %d fragment %d",
			st.Reports[2].Subordinate, st.Fragments[2].FrameID)
	}
	if len(st.Cycles) != 10 {
		t.Errorf("expected 10 cycles, got %d", len(st.Cycles))
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"", true},
		{"none", true},
		{"decisions", true},
		{"verbose", false},
	}
	for _, tt := range tests {
		if got := IsValidTraceLevel(tt.level); got != tt.valid {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
		}
	}
}

// Package trace provides decision-trace recording for grant scheduling analysis.
// This package has no dependencies on sim/ or sim/dba/; it stores plain data types.
package trace

// GrantEntry is one subordinate's slice of a grant map.
type GrantEntry struct {
	Subordinate int
	Occupancy2  float64
	Occupancy3  float64
	Grant2      float64
	Grant3      float64
	Start2      int64 // ticks from the cycle reference
	Start3      int64
}

// CycleRecord captures one emitted grant map.
type CycleRecord struct {
	Scheduler string
	Seq       int64
	Clock     int64
	MaxGrant  float64
	Entries   []GrantEntry
}

// ReportRecord captures one status report absorbed by a scheduler.
type ReportRecord struct {
	Scheduler   string
	Subordinate int
	Clock       int64
	Occupancy2  float64
	Occupancy3  float64
}

// FragmentRecord captures one fragmentation of a head-of-queue frame.
type FragmentRecord struct {
	Station   string
	FrameID   uint64
	Class     int
	Clock     int64
	Sent      float64 // bytes carried by the fragment
	Remainder float64 // bytes re-queued at the front
}

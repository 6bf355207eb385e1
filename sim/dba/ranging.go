package dba

import "fmt"

// RangingTable tracks one measured RTT per subordinate. RTTs are measured
// once at start-up and assumed stable for the rest of the run.
type RangingTable struct {
	rtt      []int64
	recorded []bool
	count    int
}

// NewRangingTable creates a table for n subordinates.
func NewRangingTable(n int) *RangingTable {
	if n <= 0 {
		panic(fmt.Sprintf("NewRangingTable: subordinate count must be positive, got %d", n))
	}
	return &RangingTable{
		rtt:      make([]int64, n),
		recorded: make([]bool, n),
	}
}

func (t *RangingTable) check(id SubordinateID) {
	if int(id) < 0 || int(id) >= len(t.rtt) {
		panic(fmt.Sprintf("ranging: subordinate id %d out of range [0,%d)", int(id), len(t.rtt)))
	}
}

// RecordRTT stores the RTT for id. A repeated response overwrites the value
// but counts once.
func (t *RangingTable) RecordRTT(id SubordinateID, rtt int64) {
	t.check(id)
	if rtt < 0 {
		panic(fmt.Sprintf("ranging: negative RTT %d for subordinate %d", rtt, int(id)))
	}
	t.rtt[id] = rtt
	if !t.recorded[id] {
		t.recorded[id] = true
		t.count++
	}
}

// AllRecorded reports whether at least expected distinct subordinates answered.
func (t *RangingTable) AllRecorded(expected int) bool {
	return t.count >= expected
}

// Recorded returns the number of distinct subordinates that answered.
func (t *RangingTable) Recorded() int { return t.count }

// Get returns the RTT recorded for id (0 if it has not answered).
func (t *RangingTable) Get(id SubordinateID) int64 {
	t.check(id)
	return t.rtt[id]
}

// Worst returns the largest recorded RTT.
func (t *RangingTable) Worst() int64 {
	var worst int64
	for _, r := range t.rtt {
		worst = max(worst, r)
	}
	return worst
}

// Missing returns the ids that have not answered, in id order.
func (t *RangingTable) Missing() []SubordinateID {
	var out []SubordinateID
	for i, ok := range t.recorded {
		if !ok {
			out = append(out, SubordinateID(i))
		}
	}
	return out
}

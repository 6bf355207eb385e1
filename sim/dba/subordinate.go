package dba

import "fmt"

// SubordinateID identifies a polled station within one scheduler's domain.
// Valid ids are 0..N-1 and double as arena indices.
type SubordinateID int

// TrafficClass is a T-CONT index. Class 1 is reserved and carries no traffic.
type TrafficClass int

const (
	Class1 TrafficClass = iota + 1
	Class2
	Class3
)

func (c TrafficClass) valid() bool { return c >= Class1 && c <= Class3 }

// index maps a class onto per-class array slots.
func (c TrafficClass) index() int {
	if !c.valid() {
		panic(fmt.Sprintf("traffic class %d out of range [1,3]", int(c)))
	}
	return int(c) - 1
}

// Subordinate is the scheduler's view of one polled station.
type Subordinate struct {
	ID         SubordinateID
	RTT        int64   // ticks
	Occupancy2 float64 // last reported class-2 backlog, bytes
	Occupancy3 float64
	Grant2     float64 // bytes granted in the current cycle
	Grant3     float64
	Start2     int64 // window offsets from the cycle reference, ticks
	Start3     int64
}

// subordinateArena owns every Subordinate of a domain, indexed by id.
type subordinateArena []Subordinate

func newSubordinateArena(n int) subordinateArena {
	a := make(subordinateArena, n)
	for i := range a {
		a[i].ID = SubordinateID(i)
	}
	return a
}

// at returns the subordinate for id. Out-of-range ids are programmer errors.
func (a subordinateArena) at(id SubordinateID) *Subordinate {
	if int(id) < 0 || int(id) >= len(a) {
		panic(fmt.Sprintf("subordinate id %d out of range [0,%d)", int(id), len(a)))
	}
	return &a[id]
}

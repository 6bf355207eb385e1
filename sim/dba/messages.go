package dba

import "fmt"

// Message is the closed set of things that travel over a link: *Ping,
// *GrantMap, *StatusReport and Frame. Consumers switch over all four and
// panic on anything else.
type Message interface {
	ByteLength() float64
	isMessage()
}

// Broadcast marks a grant map that is not addressed to a single port.
const Broadcast SubordinateID = -1

// Ping is the ranging probe. The scheduler broadcasts it once; each station
// echoes its own copy with Responder set.
type Ping struct {
	Responder SubordinateID
	Answered  bool
}

func (*Ping) ByteLength() float64 { return 0 }
func (*Ping) isMessage()          {}

// GrantMap is the downlink cycle header: the RTT snapshot plus, per
// subordinate, the window offset and granted bytes for classes 2 and 3.
// All slices have one entry per subordinate.
type GrantMap struct {
	Seq       int64
	Downlink  bool
	Tier      TierKind
	Scheduler string
	// Target is set by the relay on copies it had to queue for a busy port.
	Target SubordinateID
	RTT    []int64
	Start2 []int64
	Grant2 []float64
	Start3 []int64
	Grant3 []float64
	Size   float64
}

func newGrantMap(tier Tier, seq int64) *GrantMap {
	n := tier.Subordinates
	return &GrantMap{
		Seq:       seq,
		Downlink:  true,
		Tier:      tier.Kind,
		Scheduler: tier.Name,
		Target:    Broadcast,
		RTT:       make([]int64, n),
		Start2:    make([]int64, n),
		Grant2:    make([]float64, n),
		Start3:    make([]int64, n),
		Grant3:    make([]float64, n),
		Size:      tier.DownlinkHeaderBytes(),
	}
}

// Len returns the number of subordinates covered by the map.
func (g *GrantMap) Len() int { return len(g.RTT) }

// slot validates id against the map and returns its index.
func (g *GrantMap) slot(id SubordinateID) int {
	if int(id) < 0 || int(id) >= g.Len() {
		panic(fmt.Sprintf("grant map seq %d: subordinate id %d out of range [0,%d)", g.Seq, int(id), g.Len()))
	}
	return int(id)
}

// Clone returns a deep copy so per-port copies never share slices.
func (g *GrantMap) Clone() *GrantMap {
	c := *g
	c.RTT = append([]int64(nil), g.RTT...)
	c.Start2 = append([]int64(nil), g.Start2...)
	c.Grant2 = append([]float64(nil), g.Grant2...)
	c.Start3 = append([]int64(nil), g.Start3...)
	c.Grant3 = append([]float64(nil), g.Grant3...)
	return &c
}

func (g *GrantMap) ByteLength() float64 { return g.Size }
func (*GrantMap) isMessage()            {}

// StatusReport is the uplink header: a station's current backlog per class.
type StatusReport struct {
	From       SubordinateID
	Seq        int64 // grant map sequence the report answers
	Occupancy2 float64
	Occupancy3 float64
	Size       float64
}

func (r *StatusReport) ByteLength() float64 { return r.Size }
func (*StatusReport) isMessage()            {}

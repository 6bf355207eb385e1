package dba

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pon-dba/pon-dba-sim/sim"
	"github.com/pon-dba/pon-dba-sim/sim/stats"
	"github.com/pon-dba/pon-dba-sim/sim/trace"
)

// pendingEpsilon absorbs floating accumulation error in byte counters and
// grant budgets.
const pendingEpsilon = 1e-3

// StationState is the uplink state of a station within one cycle.
type StationState int

const (
	Idle StationState = iota
	AwaitingGrant
	SendingHeader
	DrainingClass2
	DrainingClass3
)

var stationStateNames = map[StationState]string{
	Idle:           "idle",
	AwaitingGrant:  "awaiting-grant",
	SendingHeader:  "sending-header",
	DrainingClass2: "draining-class2",
	DrainingClass3: "draining-class3",
}

func (s StationState) String() string {
	if name, ok := stationStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("StationState(%d)", int(s))
}

// StationOptions carries the optional collaborators of a StationTransmitter.
type StationOptions struct {
	Stats *stats.Collector
	Trace *trace.SimulationTrace
}

// StationTransmitter is one polled station: it answers ranging, turns each
// grant map into a status report plus a class-2 then class-3 drain of its
// queues, and fragments the head frame when the budget runs out.
type StationTransmitter struct {
	tier Tier
	id   SubordinateID
	name string

	queues  [3]FrameQueue
	pending [3]float64
	grant   [3]float64

	// maps holds grant maps received but not yet consumed by a header slot.
	maps       []*GrantMap
	drainTimer sim.Timer
	state      StationState
	uplink     *Link

	stats *stats.Collector
	trace *trace.SimulationTrace

	Accepted        int
	Dropped         int
	Fragments       int
	EnqueuedBytes   float64
	SentBytes       float64
	ReportsSent     int
	MissedGrantMaps int
	GrantBacklog    int
}

// NewStationTransmitter creates station id of the tier.
func NewStationTransmitter(tier Tier, id SubordinateID, opts StationOptions) *StationTransmitter {
	if int(id) < 0 || int(id) >= tier.Subordinates {
		panic(fmt.Sprintf("NewStationTransmitter: id %d out of range [0,%d)", int(id), tier.Subordinates))
	}
	return &StationTransmitter{
		tier:  tier,
		id:    id,
		name:  fmt.Sprintf("%s/%d", tier.Name, int(id)),
		stats: opts.Stats,
		trace: opts.Trace,
	}
}

// Attach sets the link toward the relay.
func (st *StationTransmitter) Attach(uplink *Link) { st.uplink = uplink }

func (st *StationTransmitter) ID() SubordinateID   { return st.id }
func (st *StationTransmitter) Name() string        { return st.name }
func (st *StationTransmitter) State() StationState { return st.state }

// Pending returns the queued bytes of class c.
func (st *StationTransmitter) Pending(c TrafficClass) float64 { return st.pending[c.index()] }

// PendingTotal returns the queued bytes across all classes.
func (st *StationTransmitter) PendingTotal() float64 {
	return st.pending[0] + st.pending[1] + st.pending[2]
}

// Queue returns the frame queue of class c.
func (st *StationTransmitter) Queue(c TrafficClass) *FrameQueue { return &st.queues[c.index()] }

// Grant returns the budget still unspent for class c in the current window.
func (st *StationTransmitter) Grant(c TrafficClass) float64 { return st.grant[c.index()] }

// PendingMaps returns the number of grant maps waiting for their header slot.
func (st *StationTransmitter) PendingMaps() int { return len(st.maps) }

// Enqueue admits f into the class queue. It returns false, counting a drop,
// when the frame would overflow the station buffer; there is no partial
// admission. Class 1 is reserved and must not carry traffic.
func (st *StationTransmitter) Enqueue(now int64, class TrafficClass, f Frame) bool {
	if class != Class2 && class != Class3 {
		panic(fmt.Sprintf("station %s: enqueue on class %d", st.name, int(class)))
	}
	if st.PendingTotal()+f.Size > st.tier.BufferCapacity {
		st.Dropped++
		st.stats.FrameDropped(st.tier.Name)
		logrus.Tracef("[%s] drop frame %d (%g bytes), pending %g", st.name, f.ID, f.Size, st.PendingTotal())
		return false
	}
	f.Class = class
	f.ArrivedAt = now
	switch st.tier.Kind {
	case OuterTier:
		f.OuterStation = int(st.id)
	case InnerTier:
		f.InnerStation = int(st.id)
	}
	i := class.index()
	st.queues[i].Enqueue(f)
	st.pending[i] += f.Size
	st.Accepted++
	st.EnqueuedBytes += f.Size
	return true
}

// Deliver implements Endpoint for messages arriving from the relay.
func (st *StationTransmitter) Deliver(s *sim.Simulator, msg Message) {
	switch m := msg.(type) {
	case *Ping:
		st.uplink.Propagate(s, &Ping{Responder: st.id, Answered: true})
	case *GrantMap:
		st.OnGrantMap(s, m)
	case *StatusReport:
		panic(fmt.Sprintf("station %s: received status report from %d on downlink", st.name, m.From))
	case Frame:
		panic(fmt.Sprintf("station %s: received data frame %d on downlink", st.name, m.ID))
	default:
		panic(fmt.Sprintf("station %s: unexpected message %T", st.name, msg))
	}
}

// OnGrantMap queues the map and schedules its header slot at
// arrival + compensation + start2 − rtt.
func (st *StationTransmitter) OnGrantMap(s *sim.Simulator, gm *GrantMap) {
	slot := gm.slot(st.id)
	at := s.Now() + st.tier.Compensation() + gm.Start2[slot] - gm.RTT[slot]
	if at < s.Now() {
		logrus.Warnf("[%s] header slot for seq %d lies %d ticks in the past; sending now", st.name, gm.Seq, s.Now()-at)
		at = s.Now()
	}
	if len(st.maps) > 0 {
		st.GrantBacklog++
	}
	st.maps = append(st.maps, gm)
	if st.state == Idle {
		st.state = AwaitingGrant
	}
	s.Schedule(&HeaderEvent{time: at, station: st})
}

// OnHeaderSlot consumes the oldest grant map, sends the status report and
// starts the class-2 drain once the report has been serialized. A header
// slot with no map stands for a lost grant map: both grants are taken as 0.
// A drain still running from the previous window is cut off here; its
// unused grant is discarded and its frames stay queued.
func (st *StationTransmitter) OnHeaderSlot(s *sim.Simulator) {
	st.drainTimer.Disarm(s)

	var seq int64
	st.grant = [3]float64{}
	if len(st.maps) == 0 {
		st.MissedGrantMaps++
		logrus.Warnf("[%s] header slot at %d without a grant map", st.name, s.Now())
	} else {
		gm := st.maps[0]
		st.maps = st.maps[1:]
		slot := gm.slot(st.id)
		seq = gm.Seq
		st.grant[Class2.index()] = gm.Grant2[slot]
		st.grant[Class3.index()] = gm.Grant3[slot]
		oh := st.tier.OverheadClass.index()
		st.grant[oh] = max(st.grant[oh]-st.tier.UplinkHeaderBytes, 0)
	}

	report := &StatusReport{
		From:       st.id,
		Seq:        seq,
		Occupancy2: st.pending[Class2.index()],
		Occupancy3: st.pending[Class3.index()],
		Size:       st.tier.UplinkHeaderBytes,
	}
	start, dur := st.uplink.Transmit(s, report)
	st.ReportsSent++
	st.state = SendingHeader
	st.drainTimer.Arm(s, &DrainEvent{time: start + dur, station: st, Class: Class2})
}

// OnDrain performs one drain step for class c. A whole head frame that
// fits the budget is sent and the next step is scheduled for the end of its
// serialization. A head frame larger than the budget is split: the fragment
// goes out now, the remainder returns to the front of the queue and the
// budget is exhausted. Finishing class 2 always starts class 3.
func (st *StationTransmitter) OnDrain(s *sim.Simulator, c TrafficClass) {
	if c == Class2 {
		st.state = DrainingClass2
	} else {
		st.state = DrainingClass3
	}
	i := c.index()
	q := &st.queues[i]

	if head, ok := q.Peek(); ok && st.grant[i] >= pendingEpsilon && st.pending[i] > 0 {
		if head.Size <= st.grant[i]+pendingEpsilon {
			q.Pop()
			start, dur := st.send(s, head)
			st.grant[i] = clampEpsilon(st.grant[i] - head.Size)
			st.consume(i, head.Size)
			if st.grant[i] > 0 && st.pending[i] > 0 && q.Len() > 0 {
				st.drainTimer.Arm(s, &DrainEvent{time: start + dur, station: st, Class: c})
				return
			}
		} else {
			st.fragment(s, c, head)
		}
	}
	st.finishClass(s, c)
}

func (st *StationTransmitter) fragment(s *sim.Simulator, c TrafficClass, head Frame) {
	i := c.index()
	q := &st.queues[i]
	frag, rest := head.Split(st.grant[i])
	q.Pop()
	q.PushFront(rest)
	st.send(s, frag)
	st.consume(i, frag.Size)
	st.grant[i] = 0
	st.Fragments++
	st.stats.FragmentSent(st.tier.Name, int(c))
	st.trace.RecordFragment(trace.FragmentRecord{
		Station:   st.name,
		FrameID:   head.ID,
		Class:     int(c),
		Clock:     s.Now(),
		Sent:      frag.Size,
		Remainder: rest.Size,
	})
	logrus.Tracef("[%s] fragment frame %d: sent %g, re-queued %g", st.name, head.ID, frag.Size, rest.Size)
}

func (st *StationTransmitter) finishClass(s *sim.Simulator, c TrafficClass) {
	if c == Class2 {
		st.drainTimer.Arm(s, &DrainEvent{time: st.uplink.FreeAt(s.Now()), station: st, Class: Class3})
		return
	}
	st.drainTimer.Disarm(s)
	if len(st.maps) > 0 {
		st.state = AwaitingGrant
	} else {
		st.state = Idle
	}
}

// send stamps the departure time and serializes f on the uplink.
func (st *StationTransmitter) send(s *sim.Simulator, f Frame) (start, duration int64) {
	f.DepartedAt = st.uplink.FreeAt(s.Now())
	st.SentBytes += f.Size
	return st.uplink.Transmit(s, f)
}

func (st *StationTransmitter) consume(i int, bytes float64) {
	st.pending[i] = clampEpsilon(st.pending[i] - bytes)
}

// clampEpsilon maps values below pendingEpsilon, including negative drift, to 0.
func clampEpsilon(v float64) float64 {
	if v < pendingEpsilon {
		return 0
	}
	return v
}

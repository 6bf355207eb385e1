package dba

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pon-dba/pon-dba-sim/sim"
	"github.com/pon-dba/pon-dba-sim/sim/stats"
	"github.com/pon-dba/pon-dba-sim/sim/trace"
)

// FrameSink consumes data frames that reach a scheduler.
type FrameSink interface {
	Accept(s *sim.Simulator, f Frame)
}

// SchedulerOptions carries the optional collaborators of a GrantScheduler.
type SchedulerOptions struct {
	Sink  FrameSink
	Stats *stats.Collector
	Trace *trace.SimulationTrace
}

// GrantScheduler ranges its subordinates once, then emits one grant map per
// polling cycle and absorbs status reports between cycles. It owns the
// occupancy table and the sequence counter; nothing else writes them.
type GrantScheduler struct {
	tier     Tier
	policy   GrantPolicy
	subs     subordinateArena
	ranging  *RangingTable
	maxGrant float64
	seq      int64

	pingSentAt  int64
	pinged      bool
	rangingDone bool
	cycleTimer  sim.Timer
	downlink    *Link

	sink  FrameSink
	stats *stats.Collector
	trace *trace.SimulationTrace

	CyclesEmitted   int
	ReportsAbsorbed int
	FramesReceived  int
}

// NewGrantScheduler creates a scheduler for the tier. The tier must be valid.
func NewGrantScheduler(tier Tier, policy GrantPolicy, opts SchedulerOptions) *GrantScheduler {
	if err := tier.Validate(); err != nil {
		panic(fmt.Sprintf("NewGrantScheduler: %v", err))
	}
	if policy == nil {
		panic("NewGrantScheduler: policy must not be nil")
	}
	return &GrantScheduler{
		tier:    tier,
		policy:  policy,
		subs:    newSubordinateArena(tier.Subordinates),
		ranging: NewRangingTable(tier.Subordinates),
		sink:    opts.Sink,
		stats:   opts.Stats,
		trace:   opts.Trace,
	}
}

// Attach sets the link toward the relay.
func (g *GrantScheduler) Attach(downlink *Link) { g.downlink = downlink }

// Tier returns the scheduler's tier parameters.
func (g *GrantScheduler) Tier() Tier { return g.tier }

// Ranging returns the RTT table.
func (g *GrantScheduler) Ranging() *RangingTable { return g.ranging }

// RangingComplete reports whether every subordinate has answered the ping.
func (g *GrantScheduler) RangingComplete() bool { return g.rangingDone }

// MaxGrant returns the per-subordinate ceiling; zero before ranging completes.
func (g *GrantScheduler) MaxGrant() float64 { return g.maxGrant }

// Seq returns the sequence number of the last emitted grant map.
func (g *GrantScheduler) Seq() int64 { return g.seq }

// Subordinate returns a copy of the scheduler's state for id.
func (g *GrantScheduler) Subordinate(id SubordinateID) Subordinate { return *g.subs.at(id) }

// Start broadcasts the ranging ping. There is no retry: a lost ping leaves
// ranging incomplete and the cycle never starts.
func (g *GrantScheduler) Start(s *sim.Simulator) {
	if g.downlink == nil {
		panic(fmt.Sprintf("scheduler %s: Start before Attach", g.tier.Name))
	}
	g.pingSentAt = s.Now()
	g.pinged = true
	logrus.Debugf("[%s] ranging ping sent at %d", g.tier.Name, s.Now())
	g.downlink.Propagate(s, &Ping{Responder: Broadcast})
}

// Deliver implements Endpoint for messages arriving from the relay.
func (g *GrantScheduler) Deliver(s *sim.Simulator, msg Message) {
	switch m := msg.(type) {
	case *Ping:
		g.onPingReply(s, m)
	case *StatusReport:
		g.OnStatusReport(s.Now(), m)
	case Frame:
		g.FramesReceived++
		if g.sink != nil {
			g.sink.Accept(s, m)
		}
	case *GrantMap:
		panic(fmt.Sprintf("scheduler %s: received grant map seq %d on uplink", g.tier.Name, m.Seq))
	default:
		panic(fmt.Sprintf("scheduler %s: unexpected message %T", g.tier.Name, msg))
	}
}

func (g *GrantScheduler) onPingReply(s *sim.Simulator, p *Ping) {
	if !p.Answered {
		panic(fmt.Sprintf("scheduler %s: unanswered ping returned", g.tier.Name))
	}
	g.ranging.RecordRTT(p.Responder, s.Now()-g.pingSentAt)
	logrus.Debugf("[%s] ranging reply from %d, rtt=%d", g.tier.Name, p.Responder, s.Now()-g.pingSentAt)
	if !g.rangingDone && g.ranging.AllRecorded(g.tier.Subordinates) {
		g.OnRangingComplete(s)
	}
}

// OnRangingComplete fixes the grant ceiling, seeds every subordinate as
// full on class 3 so the first cycle grants maximum headroom, and schedules
// the first cycle tick for now.
func (g *GrantScheduler) OnRangingComplete(s *sim.Simulator) {
	g.rangingDone = true
	g.maxGrant = g.tier.MaxGrant()
	for i := range g.subs {
		sub := &g.subs[i]
		sub.RTT = g.ranging.Get(sub.ID)
		sub.Occupancy3 = g.maxGrant
		sub.Grant3 = g.maxGrant
	}
	logrus.Infof("[%s] ranging complete at %d: worst rtt=%d, max grant=%g bytes",
		g.tier.Name, s.Now(), g.ranging.Worst(), g.maxGrant)
	g.cycleTimer.Arm(s, &CycleTickEvent{time: s.Now(), sched: g})
}

// OnStatusReport overwrites the stored backlog of the reporting subordinate.
func (g *GrantScheduler) OnStatusReport(now int64, r *StatusReport) {
	sub := g.subs.at(r.From)
	sub.Occupancy2 = nonNegative(r.Occupancy2)
	sub.Occupancy3 = nonNegative(r.Occupancy3)
	g.ReportsAbsorbed++
	g.stats.ReportAbsorbed(g.tier.Name)
	g.trace.RecordReport(trace.ReportRecord{
		Scheduler:   g.tier.Name,
		Subordinate: int(r.From),
		Clock:       now,
		Occupancy2:  sub.Occupancy2,
		Occupancy3:  sub.Occupancy3,
	})
	logrus.Debugf("[%s] report from %d: occ2=%g occ3=%g", g.tier.Name, r.From, sub.Occupancy2, sub.Occupancy3)
}

// OnCycleTick re-arms the next tick one cycle later, then computes and
// broadcasts this cycle's grant map.
func (g *GrantScheduler) OnCycleTick(s *sim.Simulator) *GrantMap {
	if !g.rangingDone {
		panic(fmt.Sprintf("scheduler %s: cycle tick before ranging completed", g.tier.Name))
	}
	g.cycleTimer.Arm(s, &CycleTickEvent{time: s.Now() + g.tier.Cycle, sched: g})

	gm := g.BuildGrantMap()
	g.CyclesEmitted++

	var total2, total3 float64
	entries := make([]trace.GrantEntry, len(g.subs))
	for i, sub := range g.subs {
		total2 += sub.Grant2
		total3 += sub.Grant3
		entries[i] = trace.GrantEntry{
			Subordinate: i,
			Occupancy2:  sub.Occupancy2,
			Occupancy3:  sub.Occupancy3,
			Grant2:      sub.Grant2,
			Grant3:      sub.Grant3,
			Start2:      sub.Start2,
			Start3:      sub.Start3,
		}
	}
	g.stats.CycleEmitted(g.tier.Name, total2, total3)
	g.trace.RecordCycle(trace.CycleRecord{
		Scheduler: g.tier.Name,
		Seq:       gm.Seq,
		Clock:     s.Now(),
		MaxGrant:  g.maxGrant,
		Entries:   entries,
	})
	logrus.Debugf("[%s] grant map seq=%d at %d: class2=%g class3=%g bytes", g.tier.Name, gm.Seq, s.Now(), total2, total3)

	if g.downlink != nil {
		g.downlink.Transmit(s, gm)
	}
	return gm
}

// BuildGrantMap runs the grant policy over every subordinate in id order
// and lays the windows out back to back: each subordinate's class-2 window
// opens one guard interval after the previous subordinate's class-3 window
// closes. The cursor advances by at least the transmit time of the combined
// grant so per-class rounding never pulls the next window earlier. The map
// is complete before it is returned.
func (g *GrantScheduler) BuildGrantMap() *GrantMap {
	g.seq++
	gm := newGrantMap(g.tier, g.seq)
	var cursor int64
	for i := range g.subs {
		sub := &g.subs[i]
		sub.Grant2, sub.Grant3 = g.policy.Allocate(sub.Occupancy2, sub.Occupancy3, g.maxGrant)
		tx2, tx3 := g.tier.TxTicks(sub.Grant2), g.tier.TxTicks(sub.Grant3)
		sub.Start2 = cursor + g.tier.Guard
		sub.Start3 = sub.Start2 + tx2
		cursor += g.tier.Guard + max(tx2+tx3, g.tier.TxTicks(sub.Grant2+sub.Grant3))

		gm.RTT[i] = sub.RTT
		gm.Start2[i], gm.Grant2[i] = sub.Start2, sub.Grant2
		gm.Start3[i], gm.Grant3[i] = sub.Start3, sub.Grant3
	}
	return gm
}

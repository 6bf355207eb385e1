package dba

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pon-dba/pon-dba-sim/sim"
	"github.com/pon-dba/pon-dba-sim/sim/trace"
)

func newRangedScheduler(t *testing.T, n int) (*GrantScheduler, *sim.Simulator) {
	t.Helper()
	s := sim.NewSimulator(sim.SecondsToTicks(1))
	g := NewGrantScheduler(testTier(n), LimitedService{}, SchedulerOptions{})
	g.OnRangingComplete(s)
	return g, s
}

func TestGrantScheduler_FirstCycle_GrantsBootstrapFillToClass3(t *testing.T) {
	// GIVEN two subordinates just after ranging
	g, s := newRangedScheduler(t, 2)
	maxGrant := g.MaxGrant()
	require.Greater(t, maxGrant, 0.0)

	// WHEN the first cycle ticks
	gm := g.OnCycleTick(s)

	// THEN every subordinate gets the full ceiling on class 3 and nothing on class 2
	assert.Equal(t, int64(1), gm.Seq)
	assert.Equal(t, 2, gm.Len())
	for i := 0; i < 2; i++ {
		assert.Equal(t, maxGrant, gm.Grant3[i], "grant3[%d]", i)
		assert.Equal(t, 0.0, gm.Grant2[i], "grant2[%d]", i)
	}
}

func TestGrantScheduler_MaxGrant_MatchesTierFormula(t *testing.T) {
	g, _ := newRangedScheduler(t, 4)

	// (125µs − 4·1µs) · (1e9/4) / 8 = 3781.25 → 3781
	assert.Equal(t, 3781.0, g.MaxGrant())
}

// assertWindowLayout checks that every window opens at least one guard after
// the previous subordinate's combined grant has been sent and that class 3
// closes before the next guard begins.
func assertWindowLayout(t *testing.T, tier Tier, gm *GrantMap) {
	t.Helper()
	for i := 0; i < gm.Len(); i++ {
		assert.Equal(t, gm.Start2[i]+tier.TxTicks(gm.Grant2[i]), gm.Start3[i], "start3[%d]", i)
		if i == 0 {
			assert.GreaterOrEqual(t, gm.Start2[0], tier.Guard, "start2[0]")
			continue
		}
		minStart := gm.Start2[i-1] + tier.Guard + tier.TxTicks(gm.Grant2[i-1]+gm.Grant3[i-1])
		assert.GreaterOrEqual(t, gm.Start2[i], minStart,
			"start2[%d] (grant2=%v grant3=%v)", i, gm.Grant2[i-1], gm.Grant3[i-1])
		prevEnd := gm.Start3[i-1] + tier.TxTicks(gm.Grant3[i-1])
		assert.LessOrEqual(t, prevEnd+tier.Guard, gm.Start2[i], "class-3 window %d overlaps the next guard", i-1)
	}
	last := gm.Len() - 1
	assert.LessOrEqual(t, gm.Start3[last]+tier.TxTicks(gm.Grant3[last]), tier.Cycle, "all windows fit in one cycle")
}

func TestGrantScheduler_Windows_AreGuardSeparatedInIDOrder(t *testing.T) {
	// GIVEN eight subordinates reporting fractional backlogs over many cycles
	g, s := newRangedScheduler(t, 8)
	rng := rand.New(rand.NewSource(11))
	for cycle := 0; cycle < 50; cycle++ {
		for i := 0; i < 8; i++ {
			g.OnStatusReport(s.Now(), &StatusReport{
				From:       SubordinateID(i),
				Occupancy2: rng.Float64() * 3000,
				Occupancy3: rng.Float64() * 3000,
			})
		}

		// WHEN the grant map is built
		gm := g.BuildGrantMap()

		// THEN windows follow id order with a full guard after each combined grant
		assertWindowLayout(t, g.Tier(), gm)
	}
}

func TestGrantScheduler_Windows_CombinedRoundingNeverOverlaps(t *testing.T) {
	// GIVEN a 50 Gb/s tier where each class grant rounds down on its own
	// but the combined grant rounds up
	tier := testTier(2)
	tier.LinkRate = 50e9
	s := sim.NewSimulator(sim.SecondsToTicks(1))
	g := NewGrantScheduler(tier, LimitedService{}, SchedulerOptions{})
	g.OnRangingComplete(s)

	for k := 0; k < 400; k++ {
		occ := 100 + float64(k)*0.0025
		for i := 0; i < 2; i++ {
			g.OnStatusReport(s.Now(), &StatusReport{From: SubordinateID(i), Occupancy2: occ, Occupancy3: occ})
		}

		// WHEN the grant map is built
		gm := g.BuildGrantMap()

		// THEN the second window never starts before the first combined grant ends
		require.Equal(t, occ, gm.Grant2[0], "backlog %d fits under the cap", k)
		assertWindowLayout(t, tier, gm)
	}
}

func TestGrantScheduler_NeverOverGrantsReportedBacklog(t *testing.T) {
	// GIVEN random reports over many cycles
	g, s := newRangedScheduler(t, 8)
	rng := rand.New(rand.NewSource(3))
	for cycle := 0; cycle < 50; cycle++ {
		for i := 0; i < 8; i++ {
			g.OnStatusReport(s.Now(), &StatusReport{
				From:       SubordinateID(i),
				Occupancy2: rng.Float64() * 4000,
				Occupancy3: rng.Float64() * 4000,
			})
		}

		// WHEN a grant map is built
		gm := g.BuildGrantMap()

		// THEN grants stay within each subordinate's backlog
		for i := 0; i < 8; i++ {
			sub := g.Subordinate(SubordinateID(i))
			assert.LessOrEqual(t, gm.Grant2[i], sub.Occupancy2)
			assert.LessOrEqual(t, gm.Grant3[i], sub.Occupancy3)
			assert.GreaterOrEqual(t, gm.Grant2[i], 0.0)
			assert.GreaterOrEqual(t, gm.Grant3[i], 0.0)
		}
	}
}

func TestGrantScheduler_StaleOccupancy_PersistsWithoutReport(t *testing.T) {
	// GIVEN one report from subordinate 0 and none from subordinate 1
	g, s := newRangedScheduler(t, 2)
	g.OnStatusReport(s.Now(), &StatusReport{From: 0, Occupancy2: 100, Occupancy3: 0})

	// WHEN two grant maps are built
	first := g.BuildGrantMap()
	second := g.BuildGrantMap()

	// THEN subordinate 1 keeps its bootstrap fill and subordinate 0 its last report
	assert.Equal(t, g.MaxGrant(), second.Grant3[1])
	assert.Equal(t, first.Grant2[0], second.Grant2[0])
	assert.Equal(t, 100.0, second.Grant2[0])
	assert.Equal(t, int64(2), second.Seq)
}

func TestGrantScheduler_CycleTick_BeforeRanging_Panics(t *testing.T) {
	s := sim.NewSimulator(100)
	g := NewGrantScheduler(testTier(2), LimitedService{}, SchedulerOptions{})

	assert.Panics(t, func() { g.OnCycleTick(s) })
}

func TestGrantScheduler_CycleTick_ReschedulesEveryCycle(t *testing.T) {
	// GIVEN a ranged scheduler and a horizon of 10 cycles
	tier := testTier(2)
	s := sim.NewSimulator(10 * tier.Cycle)
	g := NewGrantScheduler(tier, LimitedService{}, SchedulerOptions{})
	g.OnRangingComplete(s)

	// WHEN the simulation runs
	s.Run()

	// THEN one map is emitted at t=0 and one per cycle after, with increasing seq
	assert.Equal(t, 11, g.CyclesEmitted)
	assert.Equal(t, int64(11), g.Seq())
}

func TestGrantScheduler_Ranging_CompletesOnLastReplyThenTicks(t *testing.T) {
	// GIVEN a scheduler whose downlink reaches a recorder
	tier := testTier(3)
	s := sim.NewSimulator(tier.Cycle / 2)
	g := NewGrantScheduler(tier, LimitedService{}, SchedulerOptions{})
	rec := &recorder{}
	g.Attach(NewLink("down", tier.LinkRate, 1000, rec))
	g.Start(s)

	// WHEN replies arrive for 0 and 2, then 1
	for i, id := range []SubordinateID{0, 2, 1} {
		reply := &Ping{Responder: id, Answered: true}
		s.Schedule(&DeliveryEvent{time: int64(5000 * (i + 1)), dst: g, Msg: reply})
	}
	s.Run()

	// THEN ranging completes only after the third reply and the first map follows it
	require.True(t, g.RangingComplete())
	assert.Equal(t, int64(15000), g.Ranging().Worst())
	assert.Equal(t, int64(10000), g.Ranging().Get(2))
	maps := rec.grantMaps()
	require.Len(t, maps, 1)
	assert.Equal(t, int64(15000+1000), rec.got[len(rec.got)-1].at)
	assert.Equal(t, int64(5000), maps[0].RTT[0])
}

func TestGrantScheduler_Ranging_IncompleteNeverTicks(t *testing.T) {
	// GIVEN three subordinates of which only two answer
	tier := testTier(3)
	s := sim.NewSimulator(10 * tier.Cycle)
	g := NewGrantScheduler(tier, LimitedService{}, SchedulerOptions{})
	g.Attach(NewLink("down", tier.LinkRate, 0, &recorder{}))
	g.Start(s)
	g.Deliver(s, &Ping{Responder: 0, Answered: true})
	g.Deliver(s, &Ping{Responder: 1, Answered: true})

	// WHEN the simulation runs
	s.Run()

	// THEN no cycle is ever emitted
	assert.False(t, g.RangingComplete())
	assert.Equal(t, 0, g.CyclesEmitted)
	assert.Equal(t, []SubordinateID{2}, g.Ranging().Missing())
}

func TestGrantScheduler_Deliver_RoutesFramesToSink(t *testing.T) {
	sink := &frameSink{}
	g := NewGrantScheduler(testTier(1), LimitedService{}, SchedulerOptions{Sink: sink})
	s := sim.NewSimulator(100)

	g.Deliver(s, NewFrame(1, XR, 200, 0))

	assert.Equal(t, 1, g.FramesReceived)
	require.Len(t, sink.frames, 1)
	assert.Equal(t, uint64(1), sink.frames[0].ID)
}

func TestGrantScheduler_Deliver_GrantMapOnUplink_Panics(t *testing.T) {
	g := NewGrantScheduler(testTier(1), LimitedService{}, SchedulerOptions{})
	s := sim.NewSimulator(100)

	assert.Panics(t, func() { g.Deliver(s, newGrantMap(testTier(1), 1)) })
}

func TestGrantScheduler_OutOfRangeReport_Panics(t *testing.T) {
	g, s := newRangedScheduler(t, 2)

	assert.Panics(t, func() { g.OnStatusReport(s.Now(), &StatusReport{From: 2}) })
}

func TestGrantScheduler_Trace_RecordsCyclesAndReports(t *testing.T) {
	// GIVEN a scheduler with decision tracing
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	s := sim.NewSimulator(sim.SecondsToTicks(1))
	g := NewGrantScheduler(testTier(2), LimitedService{}, SchedulerOptions{Trace: st})
	g.OnRangingComplete(s)

	// WHEN a report is absorbed and a cycle emitted
	g.OnStatusReport(s.Now(), &StatusReport{From: 1, Occupancy2: 10, Occupancy3: 20})
	g.OnCycleTick(s)

	// THEN both decisions are traced
	require.Len(t, st.Reports, 1)
	require.Len(t, st.Cycles, 1)
	assert.Equal(t, "olt", st.Cycles[0].Scheduler)
	assert.Len(t, st.Cycles[0].Entries, 2)
	assert.Equal(t, 10.0, st.Cycles[0].Entries[1].Grant2)
}

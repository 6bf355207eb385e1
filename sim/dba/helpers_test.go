package dba

import (
	"github.com/pon-dba/pon-dba-sim/sim"
)

// testTier returns a 1 Gb/s outer tier with n subordinates, a 125 µs cycle
// and a 1 µs guard.
func testTier(n int) Tier {
	return Tier{
		Kind:               OuterTier,
		Name:               "olt",
		Subordinates:       n,
		LinkRate:           1e9,
		Cycle:              sim.SecondsToTicks(DefaultCycleSeconds),
		Guard:              sim.SecondsToTicks(1e-6),
		CompensationCycles: 2,
		BufferCapacity:     1e6,
		UplinkHeaderBytes:  DefaultUplinkHeaderBytes,
		OverheadClass:      Class3,
	}
}

type delivery struct {
	at  int64
	msg Message
}

// recorder is an Endpoint that keeps everything delivered to it.
type recorder struct {
	got []delivery
}

func (r *recorder) Deliver(s *sim.Simulator, msg Message) {
	r.got = append(r.got, delivery{at: s.Now(), msg: msg})
}

func (r *recorder) frames() []Frame {
	var out []Frame
	for _, d := range r.got {
		if f, ok := d.msg.(Frame); ok {
			out = append(out, f)
		}
	}
	return out
}

func (r *recorder) reports() []*StatusReport {
	var out []*StatusReport
	for _, d := range r.got {
		if rep, ok := d.msg.(*StatusReport); ok {
			out = append(out, rep)
		}
	}
	return out
}

func (r *recorder) grantMaps() []*GrantMap {
	var out []*GrantMap
	for _, d := range r.got {
		if gm, ok := d.msg.(*GrantMap); ok {
			out = append(out, gm)
		}
	}
	return out
}

// newTestStation returns station 0 of tier with its uplink into a recorder.
func newTestStation(tier Tier) (*StationTransmitter, *recorder) {
	rec := &recorder{}
	st := NewStationTransmitter(tier, 0, StationOptions{})
	st.Attach(NewLink("up", tier.LinkRate, 0, rec))
	return st, rec
}

// frameSink collects frames handed to a scheduler.
type frameSink struct {
	frames []Frame
}

func (f *frameSink) Accept(_ *sim.Simulator, fr Frame) { f.frames = append(f.frames, fr) }

package dba

import "github.com/pon-dba/pon-dba-sim/sim"

// DeliveryEvent hands a message to the endpoint at the end of a link.
type DeliveryEvent struct {
	time int64
	dst  Endpoint
	Msg  Message
}

func (e *DeliveryEvent) Timestamp() int64 { return e.time }

func (e *DeliveryEvent) Execute(s *sim.Simulator) { e.dst.Deliver(s, e.Msg) }

// CycleTickEvent triggers one grant computation.
type CycleTickEvent struct {
	time  int64
	sched *GrantScheduler
}

func (e *CycleTickEvent) Timestamp() int64 { return e.time }

func (e *CycleTickEvent) Execute(s *sim.Simulator) { e.sched.OnCycleTick(s) }

// HeaderEvent opens a station's uplink window with its status report.
type HeaderEvent struct {
	time    int64
	station *StationTransmitter
}

func (e *HeaderEvent) Timestamp() int64 { return e.time }

func (e *HeaderEvent) Execute(s *sim.Simulator) { e.station.OnHeaderSlot(s) }

// DrainEvent sends the next frame of one class against the remaining grant.
type DrainEvent struct {
	time    int64
	station *StationTransmitter
	Class   TrafficClass
}

func (e *DrainEvent) Timestamp() int64 { return e.time }

func (e *DrainEvent) Execute(s *sim.Simulator) { e.station.OnDrain(s, e.Class) }

// relayDirection selects which relay queue a release event drains.
type relayDirection int

const (
	towardStations relayDirection = iota
	towardScheduler
)

// RelayReleaseEvent forwards the oldest queued message for one port.
type RelayReleaseEvent struct {
	time  int64
	relay *ContentionRelay
	dir   relayDirection
	port  int
}

func (e *RelayReleaseEvent) Timestamp() int64 { return e.time }

func (e *RelayReleaseEvent) Execute(s *sim.Simulator) { e.relay.release(s, e.dir, e.port) }

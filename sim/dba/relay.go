package dba

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pon-dba/pon-dba-sim/sim"
)

// queuedMessage is a relay queue entry; port is the station index for
// downlink entries and unused on the uplink.
type queuedMessage struct {
	port int
	msg  Message
}

// relayQueue is a store-and-forward FIFO with its byte total.
type relayQueue struct {
	items []queuedMessage
	bytes float64
}

func (q *relayQueue) push(m queuedMessage) {
	q.items = append(q.items, m)
	q.bytes += m.msg.ByteLength()
}

// pop removes the oldest entry for port.
func (q *relayQueue) pop(port int) (queuedMessage, bool) {
	for i, m := range q.items {
		if m.port == port {
			q.items = append(q.items[:i], q.items[i+1:]...)
			q.bytes = clampEpsilon(q.bytes - m.msg.ByteLength())
			return m, true
		}
	}
	return queuedMessage{}, false
}

// ContentionRelay is the passive splitter between one scheduler and its
// stations. Traffic goes straight through when the outgoing channel is idle
// and nothing is queued ahead of it; otherwise it is queued and released
// after the channel frees plus the serialization time of everything already
// queued. Pings always pass unqueued.
type ContentionRelay struct {
	name       string
	upstream   *Link
	downstream []*Link
	down       relayQueue
	up         relayQueue

	Forwarded int
	Queued    int
}

// NewContentionRelay creates an unconnected relay.
func NewContentionRelay(name string) *ContentionRelay {
	return &ContentionRelay{name: name}
}

// Connect sets the link toward the scheduler and one link per station,
// indexed by subordinate id.
func (r *ContentionRelay) Connect(upstream *Link, downstream []*Link) {
	if upstream == nil || len(downstream) == 0 {
		panic(fmt.Sprintf("relay %s: Connect needs an upstream link and at least one station link", r.name))
	}
	r.upstream = upstream
	r.downstream = downstream
}

// SchedulerPort is the endpoint the scheduler's downlink delivers into.
func (r *ContentionRelay) SchedulerPort() Endpoint { return schedulerSide{r} }

// StationPort is the endpoint every station's uplink delivers into.
func (r *ContentionRelay) StationPort() Endpoint { return stationSide{r} }

// QueuedDown returns the number of downlink messages waiting for release.
func (r *ContentionRelay) QueuedDown() int { return len(r.down.items) }

// QueuedUp returns the number of uplink messages waiting for release.
func (r *ContentionRelay) QueuedUp() int { return len(r.up.items) }

type schedulerSide struct{ r *ContentionRelay }

func (p schedulerSide) Deliver(s *sim.Simulator, msg Message) { p.r.fromScheduler(s, msg) }

type stationSide struct{ r *ContentionRelay }

func (p stationSide) Deliver(s *sim.Simulator, msg Message) { p.r.fromStation(s, msg) }

func (r *ContentionRelay) fromScheduler(s *sim.Simulator, msg Message) {
	switch m := msg.(type) {
	case *Ping:
		for _, l := range r.downstream {
			l.Propagate(s, &Ping{Responder: m.Responder})
		}
	case *GrantMap:
		for port, l := range r.downstream {
			if !l.Busy(s.Now()) && len(r.down.items) == 0 {
				l.Transmit(s, m)
				r.Forwarded++
				continue
			}
			c := m.Clone()
			c.Target = SubordinateID(port)
			r.enqueue(s, &r.down, l, queuedMessage{port: port, msg: c}, towardStations)
		}
	case *StatusReport, Frame:
		panic(fmt.Sprintf("relay %s: %T arrived from the scheduler side", r.name, msg))
	default:
		panic(fmt.Sprintf("relay %s: unexpected message %T", r.name, msg))
	}
}

func (r *ContentionRelay) fromStation(s *sim.Simulator, msg Message) {
	switch msg.(type) {
	case *Ping:
		r.upstream.Propagate(s, msg)
	case *StatusReport, Frame:
		if !r.upstream.Busy(s.Now()) && len(r.up.items) == 0 {
			r.upstream.Transmit(s, msg)
			r.Forwarded++
			return
		}
		r.enqueue(s, &r.up, r.upstream, queuedMessage{msg: msg}, towardScheduler)
	case *GrantMap:
		panic(fmt.Sprintf("relay %s: grant map arrived from the station side", r.name))
	default:
		panic(fmt.Sprintf("relay %s: unexpected message %T", r.name, msg))
	}
}

// enqueue schedules the release at out's free time plus the serialization
// time of the bytes queued ahead of m.
func (r *ContentionRelay) enqueue(s *sim.Simulator, q *relayQueue, out *Link, m queuedMessage, dir relayDirection) {
	at := out.FreeAt(s.Now()) + sim.TxTicks(q.bytes, out.Rate)
	q.push(m)
	r.Queued++
	s.Schedule(&RelayReleaseEvent{time: at, relay: r, dir: dir, port: m.port})
	logrus.Tracef("[%s] queued %T, release at %d, %g bytes queued", r.name, m.msg, at, q.bytes)
}

// release forwards the oldest queued message for port. Every queued message
// has its own release event, so a port's messages leave in arrival order.
func (r *ContentionRelay) release(s *sim.Simulator, dir relayDirection, port int) {
	switch dir {
	case towardStations:
		m, ok := r.down.pop(port)
		if !ok {
			panic(fmt.Sprintf("relay %s: downlink release for port %d with nothing queued", r.name, port))
		}
		r.downstream[port].Transmit(s, m.msg)
	case towardScheduler:
		m, ok := r.up.pop(port)
		if !ok {
			panic(fmt.Sprintf("relay %s: uplink release with empty queue", r.name))
		}
		r.upstream.Transmit(s, m.msg)
	}
	r.Forwarded++
}

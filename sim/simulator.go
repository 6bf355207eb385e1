// sim/simulator.go
package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Simulator is the core object that holds simulation time and the event loop.
// It is single-threaded: every callback runs to completion before the next
// earliest event fires, so components need no locking.
type Simulator struct {
	Clock   int64
	Horizon int64
	// EventQueue holds every scheduled, not yet fired event, including
	// cancelled ones which are discarded when popped.
	EventQueue EventQueue
	// pending tracks events that are scheduled and not cancelled.
	pending  map[TimerID]struct{}
	nextID   TimerID
	nextSeq  uint64
	Executed int
}

// NewSimulator creates a simulator that stops once the clock would pass horizon.
func NewSimulator(horizon int64) *Simulator {
	if horizon < 0 {
		panic(fmt.Sprintf("NewSimulator: horizon must be non-negative, got %d", horizon))
	}
	return &Simulator{
		Horizon:    horizon,
		EventQueue: make(EventQueue, 0),
		pending:    make(map[TimerID]struct{}),
	}
}

// Now returns the current simulation time in ticks.
func (sim *Simulator) Now() int64 { return sim.Clock }

// Schedule pushes an event into the queue and returns its handle.
// Scheduling an event in the past is a programming error.
func (sim *Simulator) Schedule(ev Event) TimerID {
	if ev == nil {
		panic("Schedule: event must not be nil")
	}
	if ev.Timestamp() < sim.Clock {
		panic(fmt.Sprintf("Schedule: %T at %d is before clock %d", ev, ev.Timestamp(), sim.Clock))
	}
	sim.nextID++
	sim.nextSeq++
	id := sim.nextID
	sim.EventQueue.push(&scheduled{ev: ev, id: id, seq: sim.nextSeq})
	sim.pending[id] = struct{}{}
	return id
}

// ScheduleFunc schedules fn to run at the given time.
func (sim *Simulator) ScheduleFunc(at int64, name string, fn func(*Simulator)) TimerID {
	return sim.Schedule(&FuncEvent{At: at, Name: name, Fn: fn})
}

// Cancel withdraws a pending event. It reports whether the event was still
// pending; cancelling a fired or already-cancelled event is a no-op.
func (sim *Simulator) Cancel(id TimerID) bool {
	if _, ok := sim.pending[id]; !ok {
		return false
	}
	delete(sim.pending, id)
	return true
}

// IsPending reports whether the event is scheduled and not cancelled.
func (sim *Simulator) IsPending(id TimerID) bool {
	_, ok := sim.pending[id]
	return ok
}

// Pending returns the number of live events.
func (sim *Simulator) Pending() int { return len(sim.pending) }

// Step fires the next live event. It returns false when no live event remains
// or the next one lies beyond the horizon.
func (sim *Simulator) Step() bool {
	return sim.stepUntil(sim.Horizon)
}

func (sim *Simulator) stepUntil(limit int64) bool {
	for len(sim.EventQueue) > 0 {
		next := sim.EventQueue[0]
		if _, live := sim.pending[next.id]; !live {
			sim.EventQueue.pop()
			continue
		}
		if next.ev.Timestamp() > limit {
			return false
		}
		sim.EventQueue.pop()
		delete(sim.pending, next.id)
		if next.ev.Timestamp() < sim.Clock {
			panic(fmt.Sprintf("Clock went backwards: %d < %d", next.ev.Timestamp(), sim.Clock))
		}
		sim.Clock = next.ev.Timestamp()
		logrus.Tracef("[t=%d] Executing %T", sim.Clock, next.ev)
		next.ev.Execute(sim)
		sim.Executed++
		return true
	}
	return false
}

// Run drains the event queue up to the horizon.
func (sim *Simulator) Run() {
	for sim.Step() {
	}
	logrus.Debugf("[t=%d] Simulation ended after %d events", sim.Clock, sim.Executed)
}

// RunUntil fires events up to and including t, bounded by the horizon, then
// advances the clock to t so later scheduling is relative to it.
func (sim *Simulator) RunUntil(t int64) {
	limit := min(t, sim.Horizon)
	for sim.stepUntil(limit) {
	}
	sim.Clock = max(sim.Clock, limit)
}

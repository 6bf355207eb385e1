package sim

import "container/heap"

// Event defines the interface for all simulation events.
// Each event must have a Timestamp (in ticks) and an Execute method
// that advances simulation state when invoked.
type Event interface {
	Timestamp() int64
	Execute(*Simulator)
}

// TimerID identifies one scheduled event. IDs are never reused within a Simulator.
type TimerID uint64

// scheduled wraps an event with its handle and insertion sequence.
type scheduled struct {
	ev  Event
	id  TimerID
	seq uint64
}

// EventQueue implements heap.Interface with deterministic ordering.
// Ordering: timestamp → insertion sequence, so events due at the same
// instant fire in the order they were scheduled.
type EventQueue []*scheduled

func (eq EventQueue) Len() int { return len(eq) }

func (eq EventQueue) Less(i, j int) bool {
	ti, tj := eq[i].ev.Timestamp(), eq[j].ev.Timestamp()
	if ti != tj {
		return ti < tj
	}
	return eq[i].seq < eq[j].seq
}

func (eq EventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(*scheduled))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*eq = old[0 : n-1]
	return item
}

func (eq *EventQueue) push(s *scheduled) { heap.Push(eq, s) }

func (eq *EventQueue) pop() *scheduled { return heap.Pop(eq).(*scheduled) }

// FuncEvent adapts a plain callback to the Event interface.
// Name is used only for logging.
type FuncEvent struct {
	At   int64
	Name string
	Fn   func(*Simulator)
}

// Timestamp returns the scheduled time of the FuncEvent.
func (e *FuncEvent) Timestamp() int64 { return e.At }

// Execute runs the callback.
func (e *FuncEvent) Execute(s *Simulator) { e.Fn(s) }

func (e *FuncEvent) String() string { return e.Name }

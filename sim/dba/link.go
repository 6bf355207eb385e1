package dba

import (
	"github.com/pon-dba/pon-dba-sim/sim"
)

// Endpoint receives messages at the far end of a link.
type Endpoint interface {
	Deliver(s *sim.Simulator, msg Message)
}

// Link is one direction of a point-to-point fiber segment. Delivery happens
// when the first bit arrives (send start + propagation delay); the link stays
// busy for the serialization time of each message.
type Link struct {
	Name      string
	Rate      float64 // bits per second
	PropDelay int64   // ticks
	dst       Endpoint
	busyUntil int64
	Sent      int
}

// NewLink creates a link delivering into dst.
func NewLink(name string, rate float64, propDelay int64, dst Endpoint) *Link {
	if dst == nil {
		panic("NewLink: destination must not be nil")
	}
	if rate <= 0 || propDelay < 0 {
		panic("NewLink: rate must be positive and propagation delay non-negative")
	}
	return &Link{Name: name, Rate: rate, PropDelay: propDelay, dst: dst}
}

// Busy reports whether a transmission is still in progress at now.
func (l *Link) Busy(now int64) bool { return now < l.busyUntil }

// FreeAt returns the earliest tick at or after now when the link is idle.
func (l *Link) FreeAt(now int64) int64 { return max(now, l.busyUntil) }

// Transmit serializes msg starting as soon as the link is free and returns
// the send start and the serialization duration.
func (l *Link) Transmit(s *sim.Simulator, msg Message) (start, duration int64) {
	start = l.FreeAt(s.Now())
	duration = sim.TxTicks(msg.ByteLength(), l.Rate)
	l.busyUntil = start + duration
	l.Sent++
	s.Schedule(&DeliveryEvent{time: start + l.PropDelay, dst: l.dst, Msg: msg})
	return start, duration
}

// Propagate sends a zero-length control message that neither waits for nor
// occupies the link.
func (l *Link) Propagate(s *sim.Simulator, msg Message) {
	l.Sent++
	s.Schedule(&DeliveryEvent{time: s.Now() + l.PropDelay, dst: l.dst, Msg: msg})
}

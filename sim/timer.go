package sim

// Timer is a re-armable handle to at most one pending event. It replaces
// reusing one message object for "the next attempt": arming cancels whatever
// the timer previously held.
type Timer struct {
	id    TimerID
	armed bool
}

// Arm schedules ev, replacing any event the timer still holds.
func (t *Timer) Arm(s *Simulator, ev Event) {
	t.Disarm(s)
	t.id = s.Schedule(ev)
	t.armed = true
}

// Disarm cancels the held event, if any.
func (t *Timer) Disarm(s *Simulator) {
	if t.armed {
		s.Cancel(t.id)
		t.armed = false
	}
}

// Armed reports whether the timer holds an event that has not fired yet.
func (t *Timer) Armed(s *Simulator) bool {
	return t.armed && s.IsPending(t.id)
}

package event

// Sink accumulates values in push order.
//
// The zero value is ready to use.
type Sink[A any] struct {
	events []A
}

// Push appends a.
func (s *Sink[A]) Push(a A) {
	s.events = append(s.events, a)
}

// PushAll appends every value in order.
func (s *Sink[A]) PushAll(as ...A) {
	s.events = append(s.events, as...)
}

// PushIf appends a only when ok is true.
func (s *Sink[A]) PushIf(a A, ok bool) {
	if ok {
		s.Push(a)
	}
}

// Events returns the accumulated values. The slice aliases the sink's
// storage until the next Drain or Clear.
func (s *Sink[A]) Events() []A {
	return s.events
}

// Len returns the number of accumulated values.
func (s *Sink[A]) Len() int {
	return len(s.events)
}

// Drain returns the accumulated values and resets the sink.
func (s *Sink[A]) Drain() []A {
	out := s.events
	s.events = nil
	return out
}

// Clear discards the accumulated values, keeping capacity.
func (s *Sink[A]) Clear() {
	clear(s.events)
	s.events = s.events[:0]
}

// CombinedSink collects self events and routed events on two independent
// channels.
type CombinedSink[A, B any] struct {
	Self   Sink[A]
	Routed Sink[B]
}

// Clear resets both channels.
func (c *CombinedSink[A, B]) Clear() {
	c.Self.Clear()
	c.Routed.Clear()
}

package engine

import "sync"

// Mailbox is a bounded, thread-safe FIFO through which collaborators on
// other goroutines hand values to the tick loop.
//
// Producers never block: Offer fails when the mailbox is full or closed.
// The tick loop never blocks either: it drains whatever is queued once per
// frame. The signal channel lets a consumer that has nothing else to do
// wait with select alongside its context.
type Mailbox[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	closed   bool
	dropped  int
	signal   chan struct{} // buffered, size 1
}

// NewMailbox creates a mailbox holding at most capacity values. A
// non-positive capacity defaults to 256.
func NewMailbox[T any](capacity int) *Mailbox[T] {
	if capacity <= 0 {
		capacity = 256
	}
	return &Mailbox[T]{
		items:    make([]T, 0, min(capacity, 64)),
		capacity: capacity,
		signal:   make(chan struct{}, 1),
	}
}

// Offer appends v. Returns false, counting a drop, when the mailbox is
// full or closed. Safe from any goroutine.
func (m *Mailbox[T]) Offer(v T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || len(m.items) >= m.capacity {
		m.dropped++
		return false
	}
	m.items = append(m.items, v)

	// Non-blocking: a buffer of 1 coalesces signals.
	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

// Drain removes and returns every queued value in arrival order.
func (m *Mailbox[T]) Drain() []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return nil
	}
	out := m.items
	m.items = make([]T, 0, cap(out))
	return out
}

// Wait returns a channel signalled when values may be available. It is
// closed by Close.
func (m *Mailbox[T]) Wait() <-chan struct{} {
	return m.signal
}

// Len returns the number of queued values.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Dropped returns how many offers were rejected.
func (m *Mailbox[T]) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Close rejects further offers. Queued values can still be drained.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	close(m.signal)
}

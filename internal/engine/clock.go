package engine

import "sync/atomic"

// Allocator is the monotonic id seed counter consumed by spawn-id rewrites.
//
// The scheduler owns one Allocator and advances it exactly once for every
// spawn whose id the application rewrites. Seeds are never reused: the
// same inputs always hand out the same seeds in the same order.
//
// Thread-safety: reads are atomic so collaborators may observe Seed from
// other goroutines. Only the scheduler calls Consume.
type Allocator struct {
	next atomic.Uint64
}

// NewAllocator creates an allocator whose first seed is 1. Seed 0 is left
// free for applications that use it as a "fresh id please" marker.
func NewAllocator() *Allocator {
	return NewAllocatorAt(1)
}

// NewAllocatorAt creates an allocator whose first seed is start.
// Used for replay to resume from a known position.
func NewAllocatorAt(start uint64) *Allocator {
	a := &Allocator{}
	a.next.Store(start)
	return a
}

// Seed returns the value the next Consume will hand out.
func (a *Allocator) Seed() uint64 {
	return a.next.Load()
}

// Consume returns the current seed and advances the counter.
func (a *Allocator) Consume() uint64 {
	return a.next.Add(1) - 1
}

// reset rewinds the allocator. Used only to roll back an aborted tick.
func (a *Allocator) reset(seed uint64) {
	a.next.Store(seed)
}

package engine

// TickQuota bounds how many ticks a single frame may run.
//
// A stalled collaborator can hand the scheduler a frame delta worth many
// ticks. Without a bound, catching up can take longer than the stall that
// caused it and the loop never recovers. When the quota is reached the
// remaining time stays in the accumulator and is owed to later frames; it
// is never dropped, so the sequence of tables is unchanged and only the
// frame at which each tick runs moves.
//
// A zero limit means unlimited.
type TickQuota struct {
	limit   int
	current int
}

// NewTickQuota creates a quota allowing limit ticks per frame.
func NewTickQuota(limit int) *TickQuota {
	if limit < 0 {
		limit = 0
	}
	return &TickQuota{limit: limit}
}

// Allow reports whether another tick may run this frame and counts it.
func (q *TickQuota) Allow() bool {
	if q.limit == 0 {
		return true
	}
	if q.current >= q.limit {
		return false
	}
	q.current++
	return true
}

// Reset starts a new frame.
func (q *TickQuota) Reset() {
	q.current = 0
}

// Current returns the ticks counted this frame.
func (q *TickQuota) Current() int {
	return q.current
}

// Limit returns the per-frame limit (0 for unlimited).
func (q *TickQuota) Limit() int {
	return q.limit
}

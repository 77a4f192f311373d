package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of ManualTime.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// ManualTime is a controllable time source for tests.
//
// Now returns the current reading and then moves it forward by the step,
// so a frame loop that reads the clock once per frame sees a fixed frame
// delta. With a zero step the clock only moves on Advance.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualTime struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewManualTime creates a clock at Epoch that advances step per reading.
func NewManualTime(step time.Duration) *ManualTime {
	return &ManualTime{now: Epoch, step: step}
}

// Now returns the current time and applies the per-reading step.
func (m *ManualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.now
	m.now = m.now.Add(m.step)
	return t
}

// Peek returns the current time without stepping.
func (m *ManualTime) Peek() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *ManualTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// SetStep changes the per-reading step.
func (m *ManualTime) SetStep(step time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.step = step
}

// Reset rewinds the clock to Epoch. Used for test reuse.
func (m *ManualTime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = Epoch
}

package engine

import (
	"fmt"
	"time"
)

// MaxTickRate bounds the tick rate so that the scaled accumulator cannot
// overflow for any realistic frame delta.
const MaxTickRate = 100_000

// Config is the scheduler's runtime configuration.
type Config struct {
	// TickRate is the number of simulation ticks per second.
	TickRate uint64
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TickRate == 0 {
		return &RuntimeError{
			Code:    ErrCodeInvalidConfig,
			Message: "tick rate must be positive",
		}
	}
	if c.TickRate > MaxTickRate {
		return &RuntimeError{
			Code:    ErrCodeInvalidConfig,
			Message: fmt.Sprintf("tick rate %d exceeds maximum %d", c.TickRate, MaxTickRate),
		}
	}
	return nil
}

// Period returns the tick duration. Rates that do not divide a second
// evenly are truncated to the nanosecond; the scheduler itself keeps exact
// time and never accumulates this rounding.
func (c Config) Period() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Tick describes the tick being simulated. It is passed to every Simulate
// call of that tick.
type Tick struct {
	// Number counts the ticks completed before this one (0 for the first).
	Number uint64
	// Duration is the fixed tick length in seconds.
	Duration float64
	// Rate is the tick rate in ticks per second.
	Rate uint64
}

// Frame describes the presentation state handed outward once per frame.
type Frame struct {
	// Tick is the number of ticks completed so far.
	Tick uint64
	// Alpha is the fraction of the next, not yet simulated, tick that has
	// elapsed in wall time. Always in [0, 1).
	Alpha float64
	// Rate is the tick rate in ticks per second.
	Rate uint64
}

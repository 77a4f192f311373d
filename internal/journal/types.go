package journal

import "time"

// Run is the header of a recorded run.
type Run struct {
	ID       string
	App      string
	TickRate uint64
	// StartTick is the tick counter of the initial table.
	StartTick uint64
	// Seed is the allocator seed when recording started.
	Seed uint64
	// InitialState is the JSON array of table entries.
	InitialState  []byte
	InitialDigest string
	CreatedAt     time.Time
}

// Input is one recorded event.
type Input struct {
	RunID string
	// Tick is the number of ticks completed when the event was injected;
	// the event is reconciled at the start of tick Tick.
	Tick uint64
	// Seq orders inputs injected at the same tick.
	Seq     int
	Kind    string
	Payload []byte
}

// Checkpoint is the table digest after a committed tick.
type Checkpoint struct {
	RunID string
	// Tick is the number of ticks completed.
	Tick        uint64
	Digest      string
	EntityCount int
}

// Package counter is the reference application: integer counters driven by
// targeted increments, self steps and spawn rewriting. It exercises every
// scheduler feature with state small enough to check by hand, and backs
// the YAML scenario harness.
package counter

import (
	"cmp"
	"fmt"

	"github.com/roach88/lockstep/internal/engine"
	"github.com/roach88/lockstep/internal/event"
	"github.com/roach88/lockstep/internal/table"
)

// Name identifies the application in journals.
const Name = "counter"

// Entity is one counter.
type Entity struct {
	Count int64 `json:"count" yaml:"count"`
}

// Op names.
const (
	OpIncrement = "increment"
	OpAdd       = "add"
	OpReset     = "reset"
)

// Op is the payload folded into a counter.
type Op struct {
	Op string `json:"op" yaml:"op"`
	N  int64  `json:"n,omitempty" yaml:"n,omitempty"`
}

// Increment adds one.
func Increment() Op { return Op{Op: OpIncrement} }

// Add adds n.
func Add(n int64) Op { return Op{Op: OpAdd, N: n} }

// Reset sets the count to zero.
func Reset() Op { return Op{Op: OpReset} }

func (o Op) String() string {
	if o.Op == OpAdd {
		return fmt.Sprintf("add(%d)", o.N)
	}
	return o.Op
}

// Note is the broadcast type.
type Note string

// Type aliases for the counter instantiation of the generic core.
type (
	Event     = event.Event[int64, Entity, Op, Note]
	Table     = table.Table[int64, Entity]
	Scheduler = engine.Scheduler[int64, Entity, Op, Note]
)

// App is the counter transition logic. The zero value folds targeted ops
// and does nothing on its own.
type App struct {
	// Pulse makes every entity route Increment to PulseTarget each tick.
	Pulse       bool  `yaml:"pulse"`
	PulseTarget int64 `yaml:"pulse_target"`
	// SelfStep, when non-zero, is added to every counter each tick.
	SelfStep int64 `yaml:"self_step"`
	// Milestone, when positive, broadcasts a Note whenever a fold leaves a
	// count on a positive multiple of it.
	Milestone int64 `yaml:"milestone"`
	// FreshFrom, when non-zero, rewrites spawns requesting id 0 to
	// FreshFrom + seed.
	FreshFrom int64 `yaml:"fresh_from"`
}

// Fold applies one op.
func (a App) Fold(op Op, id int64, e *Entity, sink *event.Sink[Event]) error {
	switch op.Op {
	case OpIncrement:
		e.Count++
	case OpAdd:
		e.Count += op.N
	case OpReset:
		e.Count = 0
	default:
		return fmt.Errorf("counter %d: op %q: %w", id, op.Op, engine.ErrUnhandled)
	}

	if a.Milestone > 0 && e.Count > 0 && e.Count%a.Milestone == 0 {
		sink.Push(Emit(Note(fmt.Sprintf("counter %d reached %d", id, e.Count))))
	}
	return nil
}

// Simulate emits the configured self step and pulse.
func (a App) Simulate(_ engine.Tick, _ table.View[int64, Entity], _ int64, _ Entity, sink *event.CombinedSink[Op, Event]) {
	if a.SelfStep != 0 {
		sink.Self.Push(Add(a.SelfStep))
	}
	if a.Pulse {
		sink.Routed.Push(Target(a.PulseTarget, Increment()))
	}
}

// RewriteSpawnID maps id 0 to FreshFrom + seed when FreshFrom is set.
func (a App) RewriteSpawnID(requested int64, seed uint64) (int64, bool) {
	if a.FreshFrom == 0 || requested != 0 {
		return requested, false
	}
	return a.FreshFrom + int64(seed), true
}

// NewTable returns an empty counter table.
func NewTable() *Table {
	return table.NewOrdered[int64, Entity]()
}

// Compare orders counter ids.
func Compare(a, b int64) int {
	return cmp.Compare(a, b)
}

// New creates a scheduler running app over initial.
func New(cfg engine.Config, app App, initial *Table, opts ...engine.Option) (*Scheduler, error) {
	return engine.New[int64, Entity, Op, Note](cfg, app, initial, opts...)
}

// Event constructors.
var (
	Shutdown    = event.Shutdown[int64, Entity, Op, Note]
	Spawn       = event.Spawn[int64, Entity, Op, Note]
	Delete      = event.Delete[int64, Entity, Op, Note]
	DeleteRange = event.DeleteRange[int64, Entity, Op, Note]
	Target      = event.Target[int64, Entity, Op, Note]
	Emit        = event.Emit[int64, Entity, Op, Note]
)

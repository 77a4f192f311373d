package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/roach88/lockstep/internal/event"
	"github.com/roach88/lockstep/internal/table"
)

// nanosPerSecond is the accumulator threshold. The accumulator stores wall
// time in nanoseconds multiplied by the tick rate, so one tick is owed
// whenever it reaches a full second. Integer arithmetic keeps the tick
// count exact for every rate.
const nanosPerSecond = uint64(time.Second)

// TickReport summarises one committed tick.
type TickReport struct {
	Tick       Tick
	Entities   int // entities in the committed table
	Routed     int // events queued for the next tick
	Broadcasts int // broadcasts queued for the next frame
	Spawned    int
	Deleted    int
	Dangling   int // targeted events dropped for missing ids
	Halted     bool
}

// FrameResult is the outcome of one outer-loop iteration.
type FrameResult[Broadcast any] struct {
	Frame      Frame
	Ticks      int
	Broadcasts []Broadcast
	Halted     bool
}

// TickHook observes every committed tick with the new table.
type TickHook[Id comparable, Entity any] func(report TickReport, world table.View[Id, Entity]) error

// InjectHook observes every batch of events injected from outside the
// tick loop, tagged with the number of ticks completed at injection time.
type InjectHook[Id comparable, Entity, Payload, Broadcast any] func(tick uint64, events []event.Event[Id, Entity, Payload, Broadcast]) error

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	allocator *Allocator
	startTick uint64
	maxTicks  int
}

// WithLogger sets the scheduler's logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithAllocator sets the id seed allocator. Default: NewAllocator().
// Use NewAllocatorAt to resume a replay from a known seed.
func WithAllocator(a *Allocator) Option {
	return func(o *options) {
		o.allocator = a
	}
}

// WithStartTick sets the tick counter of the initial table.
func WithStartTick(n uint64) Option {
	return func(o *options) {
		o.startTick = n
	}
}

// WithMaxTicksPerFrame bounds the ticks Advance runs per call. Remaining
// time is carried to the next call. Default: 0 (unlimited).
func WithMaxTicksPerFrame(n int) Option {
	return func(o *options) {
		o.maxTicks = n
	}
}

// Scheduler is the single-writer fixed-timestep tick loop.
//
// CRITICAL: All mutations happen on the goroutine calling Inject, Step,
// Advance and Frame. The scheduler is not safe for concurrent use;
// collaborators on other goroutines feed it through a Mailbox.
//
// INVARIANTS:
//   - entities is replaced wholesale at tick commit, never edited mid-tick
//   - every Simulate call of a tick sees the same snapshot
//   - entities are visited in ascending id order
//   - routed events are reconciled in emission order
type Scheduler[Id comparable, Entity, Payload, Broadcast any] struct {
	cfg      Config
	app      App[Id, Entity, Payload, Broadcast]
	rewriter SpawnRewriter[Id]
	logger   *slog.Logger

	entities   *table.Table[Id, Entity]
	pending    []event.Event[Id, Entity, Payload, Broadcast]
	broadcasts []Broadcast
	alloc      *Allocator
	quota      *TickQuota

	tick    uint64
	acc     uint64 // nanoseconds * tick rate not yet converted into ticks
	halted  bool
	failure error

	tickHooks   []TickHook[Id, Entity]
	injectHooks []InjectHook[Id, Entity, Payload, Broadcast]
}

// New creates a Scheduler over a snapshot of initial.
//
// The initial table is cloned; later changes to it are not observed. The
// table's comparator defines the iteration order of every tick.
func New[Id comparable, Entity, Payload, Broadcast any](
	cfg Config,
	app App[Id, Entity, Payload, Broadcast],
	initial *table.Table[Id, Entity],
	opts ...Option,
) (*Scheduler[Id, Entity, Payload, Broadcast], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if app == nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidConfig, Message: "app is required"}
	}
	if initial == nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidConfig, Message: "initial table is required"}
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.allocator == nil {
		o.allocator = NewAllocator()
	}

	s := &Scheduler[Id, Entity, Payload, Broadcast]{
		cfg:      cfg,
		app:      app,
		logger:   o.logger,
		entities: initial.Clone(),
		alloc:    o.allocator,
		quota:    NewTickQuota(o.maxTicks),
		tick:     o.startTick,
	}
	if rw, ok := app.(SpawnRewriter[Id]); ok {
		s.rewriter = rw
	}

	return s, nil
}

// OnTick registers a hook called after every committed tick.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) OnTick(h TickHook[Id, Entity]) {
	s.tickHooks = append(s.tickHooks, h)
}

// OnInject registers a hook called for every injected batch.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) OnInject(h InjectHook[Id, Entity, Payload, Broadcast]) {
	s.injectHooks = append(s.injectHooks, h)
}

// Config returns the scheduler configuration.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) Config() Config {
	return s.cfg
}

// Entities returns a read-only view of the current table.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) Entities() table.View[Id, Entity] {
	return s.entities
}

// Snapshot returns an independent copy of the current table.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) Snapshot() *table.Table[Id, Entity] {
	return s.entities.Clone()
}

// TickNumber returns the number of ticks completed.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) TickNumber() uint64 {
	return s.tick
}

// Accumulated returns wall time owed but not yet simulated.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) Accumulated() time.Duration {
	return time.Duration(s.acc / s.cfg.TickRate)
}

// Allocator returns the id seed allocator.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) Allocator() *Allocator {
	return s.alloc
}

// Pending returns the number of routed events awaiting the next tick.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) Pending() int {
	return len(s.pending)
}

// Halted reports whether the scheduler stopped (Shutdown or fatal error).
func (s *Scheduler[Id, Entity, Payload, Broadcast]) Halted() bool {
	return s.halted
}

// Err returns the fatal error that halted the scheduler, if any.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) Err() error {
	return s.failure
}

// Presentation returns the current presentation descriptor.
//
// Time owed past a tick quota or a halt can leave more than one period in
// the accumulator; Alpha is clamped below 1 so interpolation never runs
// ahead of the next tick.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) Presentation() Frame {
	return Frame{
		Tick:  s.tick,
		Alpha: float64(min(s.acc, nanosPerSecond-1)) / float64(nanosPerSecond),
		Rate:  s.cfg.TickRate,
	}
}

// Inject queues events for reconciliation at the start of the next tick,
// after anything already pending.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) Inject(events ...event.Event[Id, Entity, Payload, Broadcast]) error {
	if len(events) == 0 {
		return nil
	}
	s.pending = append(s.pending, events...)

	var errs []error
	for _, h := range s.injectHooks {
		if err := h(s.tick, events); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return NewCollaboratorError("inject hook", s.tick, errors.Join(errs...))
	}
	return nil
}

// DrainBroadcasts returns broadcasts reconciled since the last drain, in
// emission order.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) DrainBroadcasts() []Broadcast {
	out := s.broadcasts
	s.broadcasts = nil
	return out
}

// Frame runs one outer-loop iteration: queue inputs, convert dt into
// ticks, drain broadcasts and report the presentation descriptor.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) Frame(dt time.Duration, inputs []event.Event[Id, Entity, Payload, Broadcast]) (FrameResult[Broadcast], error) {
	injectErr := s.Inject(inputs...)
	ticks, err := s.Advance(dt)

	res := FrameResult[Broadcast]{
		Frame:      s.Presentation(),
		Ticks:      ticks,
		Broadcasts: s.DrainBroadcasts(),
		Halted:     s.halted,
	}
	if err != nil {
		return res, err
	}
	return res, injectErr
}

// Advance adds dt to the accumulator and runs ticks while at least one
// full tick is owed. It returns the number of ticks run.
//
// A halted scheduler accumulates time but runs no ticks.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) Advance(dt time.Duration) (int, error) {
	if dt > 0 {
		s.acc += uint64(dt) * s.cfg.TickRate
	}

	s.quota.Reset()
	ticks := 0
	for !s.halted && s.acc >= nanosPerSecond {
		if !s.quota.Allow() {
			s.logger.Warn("tick quota reached, carrying time to next frame",
				"tick", s.tick,
				"limit", s.quota.Limit(),
				"owed", s.Accumulated(),
			)
			break
		}

		before := s.tick
		_, err := s.Step()
		if s.tick != before {
			s.acc -= nanosPerSecond
			ticks++
		}
		if err != nil {
			return ticks, err
		}
	}
	return ticks, nil
}

// Step runs exactly one tick regardless of the accumulator.
//
// On a transition panic the tick is discarded: table, pending events,
// broadcasts and allocator keep their pre-tick values, the scheduler halts
// and a TRANSITION_PANIC RuntimeError is returned. Hook failures are
// reported after the tick is committed.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) Step() (TickReport, error) {
	if s.halted {
		return TickReport{}, NewHaltedError(s.tick, s.failure)
	}

	report, err := s.runTick()
	if err != nil {
		s.halted = true
		s.failure = err
		s.logger.Error("tick aborted",
			"tick", s.tick,
			"error", err,
		)
		return report, err
	}

	var errs []error
	for _, h := range s.tickHooks {
		if err := h(report, s.entities); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return report, NewCollaboratorError("tick hook", report.Tick.Number, errors.Join(errs...))
	}
	return report, nil
}

// runTick executes steps a-d of the tick and commits the result. Nothing
// observable changes unless it returns a nil error.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) runTick() (report TickReport, err error) {
	tick := Tick{
		Number:   s.tick,
		Duration: 1 / float64(s.cfg.TickRate),
		Rate:     s.cfg.TickRate,
	}
	report.Tick = tick
	seedBefore := s.alloc.Seed()

	defer func() {
		if r := recover(); r != nil {
			s.alloc.reset(seedBefore)
			err = NewPanicError(tick.Number, r, debug.Stack())
		}
	}()

	// a. Snapshot.
	last := s.entities.Clone()

	// b. Pre-apply routed events in emission order.
	// Grouped under the table's comparator so ids that compare equal
	// address the same entity.
	targeted := table.New[Id, []Payload](s.entities.Compare)
	var broadcasts []Broadcast
	halt := false
	for _, ev := range s.pending {
		switch ev.Kind {
		case event.KindShutdown:
			halt = true
		case event.KindSpawn:
			id := ev.ID
			if s.rewriter != nil {
				if fresh, ok := s.rewriter.RewriteSpawnID(id, s.alloc.Seed()); ok {
					s.alloc.Consume()
					id = fresh
				}
			}
			last.Insert(id, ev.Entity)
			report.Spawned++
		case event.KindDelete:
			if _, ok := last.Remove(ev.ID); ok {
				report.Deleted++
			}
		case event.KindDeleteRange:
			for _, id := range last.RangeKeys(ev.ID, ev.To) {
				last.Remove(id)
				report.Deleted++
			}
		case event.KindTargeted:
			payloads, _ := targeted.Get(ev.ID)
			targeted.Insert(ev.ID, append(payloads, ev.Payload))
		case event.KindBroadcast:
			broadcasts = append(broadcasts, ev.Broadcast)
		default:
			s.logger.Warn("dropping event of unknown kind",
				"tick", tick.Number,
				"kind", ev.Kind.String(),
			)
		}
	}

	// c. Fold and simulate every entity against the snapshot.
	next := table.New[Id, Entity](s.entities.Compare)
	var routed event.Sink[event.Event[Id, Entity, Payload, Broadcast]]
	var combined event.CombinedSink[Payload, event.Event[Id, Entity, Payload, Broadcast]]

	for id, entity := range last.All() {
		working := entity

		if payloads, ok := targeted.Remove(id); ok {
			for _, p := range payloads {
				s.fold(tick, p, id, &working, &routed)
			}
		}

		combined.Clear()
		s.app.Simulate(tick, last, id, working, &combined)
		routed.PushAll(combined.Routed.Events()...)
		for _, p := range combined.Self.Events() {
			s.fold(tick, p, id, &working, &routed)
		}

		next.Insert(id, working)
	}

	for id, payloads := range targeted.All() {
		report.Dangling += len(payloads)
		s.logger.Debug("dropping targeted events for missing entity",
			"tick", tick.Number,
			"id", fmt.Sprint(id),
			"count", len(payloads),
		)
	}

	// d. Commit.
	s.entities = next
	s.pending = routed.Drain()
	s.broadcasts = append(s.broadcasts, broadcasts...)
	s.tick++
	if halt {
		s.halted = true
		s.logger.Info("shutdown reconciled", "tick", s.tick)
	}

	report.Entities = next.Len()
	report.Routed = len(s.pending)
	report.Broadcasts = len(broadcasts)
	report.Halted = halt

	s.logger.Debug("tick committed",
		"tick", tick.Number,
		"entities", report.Entities,
		"routed", report.Routed,
		"spawned", report.Spawned,
		"deleted", report.Deleted,
	)

	return report, nil
}

// fold applies one payload and logs soft failures.
func (s *Scheduler[Id, Entity, Payload, Broadcast]) fold(
	tick Tick,
	payload Payload,
	id Id,
	entity *Entity,
	sink *event.Sink[event.Event[Id, Entity, Payload, Broadcast]],
) {
	err := s.app.Fold(payload, id, entity, sink)
	if err == nil {
		return
	}
	if errors.Is(err, ErrUnhandled) {
		s.logger.Warn("unhandled event",
			"tick", tick.Number,
			"id", fmt.Sprint(id),
			"payload", fmt.Sprint(payload),
		)
		return
	}
	s.logger.Error("fold failed",
		"tick", tick.Number,
		"id", fmt.Sprint(id),
		"payload", fmt.Sprint(payload),
		"error", err,
	)
}

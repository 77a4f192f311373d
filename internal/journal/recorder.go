package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/lockstep/internal/digest"
	"github.com/roach88/lockstep/internal/engine"
	"github.com/roach88/lockstep/internal/event"
	"github.com/roach88/lockstep/internal/table"
)

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	// App names the application, for listings. Required.
	App string
	// IDs generates the run id. Default: UUIDv7Generator.
	IDs IDGenerator
	// Time stamps the run header. Default: engine.SystemTime.
	Time engine.TimeSource
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Recorder journals a scheduler run through the scheduler's hooks.
//
// Every injected batch is written before the tick that reconciles it, and
// every committed tick writes a checkpoint. A write failure surfaces from
// the scheduler call that triggered it as a COLLABORATOR_FAILED error.
type Recorder[Id comparable, Entity, Payload, Broadcast any] struct {
	ctx    context.Context
	store  *Store
	runID  string
	logger *slog.Logger

	seqTick uint64
	seq     int
	inputs  int
	ticks   int
}

// NewRecorder writes the run header for sched's current table and attaches
// to sched. Attach before the first Inject or Step so no input is missed.
func NewRecorder[Id comparable, Entity, Payload, Broadcast any](
	ctx context.Context,
	store *Store,
	sched *engine.Scheduler[Id, Entity, Payload, Broadcast],
	opts RecorderOptions,
) (*Recorder[Id, Entity, Payload, Broadcast], error) {
	if opts.App == "" {
		return nil, fmt.Errorf("new recorder: app name is required")
	}
	if opts.IDs == nil {
		opts.IDs = UUIDv7Generator{}
	}
	if opts.Time == nil {
		opts.Time = engine.SystemTime{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	initial := sched.Snapshot()
	state, err := EncodeEntries[Id, Entity](initial)
	if err != nil {
		return nil, fmt.Errorf("new recorder: %w", err)
	}
	initialDigest, err := digest.Table[Id, Entity](initial)
	if err != nil {
		return nil, fmt.Errorf("new recorder: %w", err)
	}

	run := Run{
		ID:            opts.IDs.Generate(),
		App:           opts.App,
		TickRate:      sched.Config().TickRate,
		StartTick:     sched.TickNumber(),
		Seed:          sched.Allocator().Seed(),
		InitialState:  state,
		InitialDigest: initialDigest,
		CreatedAt:     opts.Time.Now(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("new recorder: %w", err)
	}

	r := &Recorder[Id, Entity, Payload, Broadcast]{
		ctx:    ctx,
		store:  store,
		runID:  run.ID,
		logger: opts.Logger,
	}
	sched.OnInject(r.recordInputs)
	sched.OnTick(r.recordTick)

	opts.Logger.Info("recording run",
		"run_id", run.ID,
		"app", run.App,
		"tick_rate", run.TickRate,
		"entities", initial.Len(),
	)
	return r, nil
}

// RunID returns the id of the run being recorded.
func (r *Recorder[Id, Entity, Payload, Broadcast]) RunID() string {
	return r.runID
}

// Stats returns the number of inputs and ticks recorded so far.
func (r *Recorder[Id, Entity, Payload, Broadcast]) Stats() (inputs, ticks int) {
	return r.inputs, r.ticks
}

func (r *Recorder[Id, Entity, Payload, Broadcast]) recordInputs(tick uint64, events []event.Event[Id, Entity, Payload, Broadcast]) error {
	if tick != r.seqTick {
		r.seqTick = tick
		r.seq = 0
	}

	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode input %s: %w", ev.Kind, err)
		}
		in := Input{
			RunID:   r.runID,
			Tick:    tick,
			Seq:     r.seq,
			Kind:    ev.Kind.String(),
			Payload: payload,
		}
		if err := r.store.WriteInput(r.ctx, in); err != nil {
			return err
		}
		r.seq++
		r.inputs++
	}
	return nil
}

func (r *Recorder[Id, Entity, Payload, Broadcast]) recordTick(report engine.TickReport, world table.View[Id, Entity]) error {
	d, err := digest.Table(world)
	if err != nil {
		return err
	}
	cp := Checkpoint{
		RunID:       r.runID,
		Tick:        report.Tick.Number + 1,
		Digest:      d,
		EntityCount: world.Len(),
	}
	if err := r.store.WriteCheckpoint(r.ctx, cp); err != nil {
		return err
	}
	r.ticks++
	if report.Halted {
		r.logger.Info("recorded shutdown",
			"run_id", r.runID,
			"tick", cp.Tick,
		)
	}
	return nil
}

// EncodeEntries renders a table as a JSON array of {"id", "value"} entries.
func EncodeEntries[Id, Entity any](t *table.Table[Id, Entity]) ([]byte, error) {
	data, err := json.Marshal(t.Entries())
	if err != nil {
		return nil, fmt.Errorf("encode entries: %w", err)
	}
	return data, nil
}

// DecodeEntries rebuilds a table from EncodeEntries output.
func DecodeEntries[Id, Entity any](data []byte, compare func(a, b Id) int) (*table.Table[Id, Entity], error) {
	var entries []table.Entry[Id, Entity]
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return table.FromEntries(compare, entries...), nil
}

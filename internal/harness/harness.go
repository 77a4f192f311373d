package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/roach88/lockstep/internal/counter"
	"github.com/roach88/lockstep/internal/digest"
	"github.com/roach88/lockstep/internal/engine"
	"github.com/roach88/lockstep/internal/journal"
	"github.com/roach88/lockstep/internal/table"
	"github.com/roach88/lockstep/internal/testutil"
)

// Harness is the scenario execution state.
type Harness struct {
	sched  *counter.Scheduler
	logger *slog.Logger
	result *Result
	frame  int
}

// Run executes a scenario and returns the result.
//
// Each scenario records into a fresh in-memory journal for isolation.
//
// Execution flow:
// 1. Build the initial table and scheduler
// 2. Attach a journal recorder and the trace hook
// 3. Feed every frame
// 4. Replay the journal and compare checkpoints
// 5. Evaluate expectations
//
// The returned error is reserved for infrastructure failures; scenario
// failures are reported through Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	st, err := journal.Open(journal.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer st.Close()

	initial := counter.NewTable()
	for _, e := range scenario.Initial {
		initial.Insert(e.ID, counter.Entity{Count: e.Count})
	}

	sched, err := counter.New(
		engine.Config{TickRate: scenario.TickRate},
		scenario.App,
		initial,
		engine.WithLogger(logger),
		engine.WithMaxTicksPerFrame(scenario.MaxTicksPerFrame),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	rec, err := journal.NewRecorder(ctx, st, sched, journal.RecorderOptions{
		App:    counter.Name,
		IDs:    journal.NewFixedGenerator(testutil.RunIDs(1)...),
		Time:   testutil.NewManualTime(0),
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to attach recorder: %w", err)
	}

	h := &Harness{
		sched:  sched,
		logger: logger,
		result: NewResult(),
	}
	sched.OnTick(h.traceTick)

	for i, f := range scenario.Frames {
		h.frame = i
		if err := h.executeFrame(f); err != nil {
			h.result.AddError(fmt.Sprintf("frame %d: %v", i, err))
			break
		}
	}

	h.collectFinal()

	report, err := journal.Replay(ctx, st, rec.RunID(), journal.ReplayOptions[int64, counter.Entity, counter.Op, counter.Note]{
		App:     scenario.App,
		Compare: counter.Compare,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replay journal: %w", err)
	}
	h.result.Deterministic = report.Deterministic && report.FinalDigest == h.result.Digest
	if !h.result.Deterministic {
		h.result.AddError(fmt.Sprintf("replay diverged: %d mismatched checkpoints, final digest %s, want %s",
			len(report.Mismatches), report.FinalDigest, h.result.Digest))
	}

	for _, msg := range EvaluateExpect(h.result, scenario.Expect) {
		h.result.AddError(msg)
	}

	return h.result, nil
}

// executeFrame injects the frame's inputs and advances the scheduler.
func (h *Harness) executeFrame(f FrameStep) error {
	inputs := make([]counter.Event, len(f.Inputs))
	for i, in := range f.Inputs {
		inputs[i] = in.Event()
	}

	ev := TraceEvent{
		Type:   TraceFrame,
		Frame:  h.frame,
		Steps:  f.Steps,
		Inputs: len(inputs),
	}

	var broadcasts []counter.Note
	if f.Steps > 0 {
		if err := h.sched.Inject(inputs...); err != nil {
			return err
		}
		for range f.Steps {
			if h.sched.Halted() {
				break
			}
			before := h.sched.TickNumber()
			if _, err := h.sched.Step(); err != nil {
				return err
			}
			if h.sched.TickNumber() != before {
				ev.Ticks++
			}
		}
		broadcasts = h.sched.DrainBroadcasts()
	} else {
		ev.Elapsed = f.Elapsed.String()
		res, err := h.sched.Frame(f.Elapsed, inputs)
		if err != nil {
			return err
		}
		ev.Ticks = res.Ticks
		broadcasts = res.Broadcasts
	}

	frame := h.sched.Presentation()
	ev.Tick = frame.Tick
	ev.Alpha = strconv.FormatFloat(frame.Alpha, 'f', 3, 64)
	ev.Halted = h.sched.Halted()
	for _, b := range broadcasts {
		ev.Broadcasts = append(ev.Broadcasts, string(b))
		h.result.Broadcasts = append(h.result.Broadcasts, string(b))
	}
	h.result.Ticks += ev.Ticks
	h.result.Trace = append(h.result.Trace, ev)

	h.logger.Debug("frame completed",
		"frame", h.frame,
		"ticks", ev.Ticks,
		"tick", ev.Tick,
	)
	return nil
}

// traceTick records a committed tick.
func (h *Harness) traceTick(report engine.TickReport, world table.View[int64, counter.Entity]) error {
	h.result.Dangling += report.Dangling
	h.result.Trace = append(h.result.Trace, TraceEvent{
		Type:     TraceTick,
		Frame:    h.frame,
		Tick:     report.Tick.Number,
		Entities: listEntities(world),
		Routed:   report.Routed,
		Spawned:  report.Spawned,
		Deleted:  report.Deleted,
		Dangling: report.Dangling,
		Halted:   report.Halted,
	})
	return nil
}

func (h *Harness) collectFinal() {
	r := h.result
	frame := h.sched.Presentation()
	r.Final = listEntities(h.sched.Entities())
	r.Tick = frame.Tick
	r.Alpha = frame.Alpha
	r.Halted = h.sched.Halted()
	r.Seed = h.sched.Allocator().Seed()
	r.Digest = digest.MustTable(h.sched.Entities())
}

func listEntities(world table.View[int64, counter.Entity]) []EntityState {
	out := make([]EntityState, 0, world.Len())
	for id, e := range world.All() {
		out = append(out, EntityState{ID: id, Count: e.Count})
	}
	return out
}

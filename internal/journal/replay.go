package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/lockstep/internal/digest"
	"github.com/roach88/lockstep/internal/engine"
	"github.com/roach88/lockstep/internal/event"
)

// Mismatch records a tick whose replayed digest differs from the journal.
type Mismatch struct {
	Tick uint64 `json:"tick"`
	Want string `json:"want"`
	Got  string `json:"got"`
}

// ReplayReport summarises a replay.
type ReplayReport struct {
	RunID         string     `json:"run_id"`
	App           string     `json:"app"`
	Ticks         int        `json:"ticks"`
	Inputs        int        `json:"inputs"`
	Mismatches    []Mismatch `json:"mismatches"`
	Deterministic bool       `json:"deterministic"`
	FinalDigest   string     `json:"final_digest"`
	// Error describes a replay that could not finish (transition panic,
	// early halt).
	Error string `json:"error,omitempty"`
}

// ReplayOptions supplies what the journal cannot store: the transition
// logic and the id ordering.
type ReplayOptions[Id comparable, Entity, Payload, Broadcast any] struct {
	App     engine.App[Id, Entity, Payload, Broadcast]
	Compare func(a, b Id) int
	Logger  *slog.Logger
}

// Replay re-simulates a recorded run and compares every checkpoint.
//
// Inputs recorded at tick t are injected, in seq order, immediately
// before tick t is stepped, which reproduces the boundary at which they
// were originally injected. Wall time plays no part: replay steps tick by
// tick.
//
// A replay that diverges is reported, not returned as an error. Errors are
// reserved for journal and decode failures.
func Replay[Id comparable, Entity, Payload, Broadcast any](
	ctx context.Context,
	store *Store,
	runID string,
	opts ReplayOptions[Id, Entity, Payload, Broadcast],
) (ReplayReport, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	report := ReplayReport{RunID: runID, Mismatches: []Mismatch{}}

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return report, fmt.Errorf("replay: %w", err)
	}
	report.App = run.App

	initial, err := DecodeEntries[Id, Entity](run.InitialState, opts.Compare)
	if err != nil {
		return report, fmt.Errorf("replay %s: %w", runID, err)
	}
	if d, err := digest.Table[Id, Entity](initial); err != nil {
		return report, fmt.Errorf("replay %s: %w", runID, err)
	} else if d != run.InitialDigest {
		report.Mismatches = append(report.Mismatches, Mismatch{Tick: run.StartTick, Want: run.InitialDigest, Got: d})
	}

	inputs, err := store.ReadInputs(ctx, runID)
	if err != nil {
		return report, fmt.Errorf("replay %s: %w", runID, err)
	}
	checkpoints, err := store.ReadCheckpoints(ctx, runID)
	if err != nil {
		return report, fmt.Errorf("replay %s: %w", runID, err)
	}

	byTick := make(map[uint64][]event.Event[Id, Entity, Payload, Broadcast])
	for _, in := range inputs {
		var ev event.Event[Id, Entity, Payload, Broadcast]
		if err := json.Unmarshal(in.Payload, &ev); err != nil {
			return report, fmt.Errorf("replay %s: decode input tick=%d seq=%d: %w", runID, in.Tick, in.Seq, err)
		}
		byTick[in.Tick] = append(byTick[in.Tick], ev)
	}
	report.Inputs = len(inputs)

	sched, err := engine.New(
		engine.Config{TickRate: run.TickRate},
		opts.App,
		initial,
		engine.WithLogger(logger),
		engine.WithStartTick(run.StartTick),
		engine.WithAllocator(engine.NewAllocatorAt(run.Seed)),
	)
	if err != nil {
		return report, fmt.Errorf("replay %s: %w", runID, err)
	}

	for _, cp := range checkpoints {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		for sched.TickNumber() < cp.Tick {
			tick := sched.TickNumber()
			if err := sched.Inject(byTick[tick]...); err != nil {
				return report, fmt.Errorf("replay %s: %w", runID, err)
			}
			delete(byTick, tick)

			if _, err := sched.Step(); err != nil {
				report.Error = err.Error()
				report.FinalDigest = digest.MustTable(sched.Entities())
				logger.Warn("replay stopped early",
					"run_id", runID,
					"tick", tick,
					"error", err,
				)
				return report, nil
			}
			report.Ticks++
		}

		got, err := digest.Table(sched.Entities())
		if err != nil {
			return report, fmt.Errorf("replay %s: %w", runID, err)
		}
		if got != cp.Digest {
			report.Mismatches = append(report.Mismatches, Mismatch{Tick: cp.Tick, Want: cp.Digest, Got: got})
			logger.Debug("checkpoint mismatch",
				"run_id", runID,
				"tick", cp.Tick,
				"want", cp.Digest,
				"got", got,
			)
		}
	}

	report.FinalDigest, err = digest.Table(sched.Entities())
	if err != nil {
		return report, fmt.Errorf("replay %s: %w", runID, err)
	}
	report.Deterministic = len(report.Mismatches) == 0 && report.Error == ""

	logger.Info("replay finished",
		"run_id", runID,
		"ticks", report.Ticks,
		"inputs", report.Inputs,
		"mismatches", len(report.Mismatches),
	)
	return report, nil
}

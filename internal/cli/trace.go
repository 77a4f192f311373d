package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/lockstep/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kind     string // optional - filter inputs to one event kind
}

// RunInfo is one journaled run header.
type RunInfo struct {
	RunID         string    `json:"run_id"`
	App           string    `json:"app"`
	TickRate      uint64    `json:"tick_rate"`
	StartTick     uint64    `json:"start_tick"`
	Seed          uint64    `json:"seed"`
	InitialDigest string    `json:"initial_digest"`
	CreatedAt     time.Time `json:"created_at"`
}

// TraceEntry is one line of a run timeline: a checkpoint or an input.
type TraceEntry struct {
	Tick uint64 `json:"tick"`
	Type string `json:"type"` // "checkpoint" or "input"

	// Inputs.
	Seq     int             `json:"seq,omitempty"`
	Kind    string          `json:"kind,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// Checkpoints.
	Digest   string `json:"digest,omitempty"`
	Entities int    `json:"entities,omitempty"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	Inputs      int    `json:"inputs"`
	Checkpoints int    `json:"checkpoints"`
	LastTick    uint64 `json:"last_tick"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      RunInfo      `json:"run"`
	Timeline []TraceEntry `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect journaled runs",
		Long: `Inspect journaled runs.

Without --run, lists every run in the journal. With --run, prints the
run's timeline: the checkpoint digest after each tick and the inputs
reconciled at the start of each tick.

Examples:
  lockstep trace --db ./runs.db
  lockstep trace --db ./runs.db --run 0192f0c4-...
  lockstep trace --db ./runs.db --run 0192f0c4-... --kind targeted --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show inputs of this event kind")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := formatterFor(cmd, opts.RootOptions)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		infos := make([]RunInfo, 0, len(runs))
		for _, r := range runs {
			infos = append(infos, runInfo(r))
		}
		if out.JSON() {
			return out.Respond(infos, nil)
		}
		writeRunList(out, infos)
		return nil
	}

	run, err := st.GetRun(ctx, opts.RunID)
	if errors.Is(err, journal.ErrRunNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	inputs, err := st.ReadInputs(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read inputs", err)
	}
	checkpoints, err := st.ReadCheckpoints(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read checkpoints", err)
	}

	result := TraceResult{
		Run:      runInfo(run),
		Timeline: buildTimeline(inputs, checkpoints, opts.Kind),
		Stats: TraceStats{
			Inputs:      len(inputs),
			Checkpoints: len(checkpoints),
			LastTick:    run.StartTick,
		},
	}
	if n := len(checkpoints); n > 0 {
		result.Stats.LastTick = checkpoints[n-1].Tick
	}

	if out.JSON() {
		return out.Respond(result, nil)
	}
	writeTraceText(out, result)
	return nil
}

func runInfo(r journal.Run) RunInfo {
	return RunInfo{
		RunID:         r.ID,
		App:           r.App,
		TickRate:      r.TickRate,
		StartTick:     r.StartTick,
		Seed:          r.Seed,
		InitialDigest: r.InitialDigest,
		CreatedAt:     r.CreatedAt,
	}
}

// buildTimeline merges inputs and checkpoints in tick order. Inputs
// recorded at tick t are reconciled by tick t, so they follow the
// checkpoint that closed tick t-1.
func buildTimeline(inputs []journal.Input, checkpoints []journal.Checkpoint, kind string) []TraceEntry {
	timeline := make([]TraceEntry, 0, len(inputs)+len(checkpoints))

	i := 0
	appendInputsUpTo := func(tick uint64) {
		for ; i < len(inputs) && inputs[i].Tick < tick; i++ {
			in := inputs[i]
			if kind != "" && in.Kind != kind {
				continue
			}
			timeline = append(timeline, TraceEntry{
				Tick:    in.Tick,
				Type:    "input",
				Seq:     in.Seq,
				Kind:    in.Kind,
				Payload: json.RawMessage(in.Payload),
			})
		}
	}

	for _, cp := range checkpoints {
		appendInputsUpTo(cp.Tick)
		timeline = append(timeline, TraceEntry{
			Tick:     cp.Tick,
			Type:     "checkpoint",
			Digest:   cp.Digest,
			Entities: cp.EntityCount,
		})
	}
	appendInputsUpTo(math.MaxUint64)
	return timeline
}

func writeRunList(out *OutputFormatter, runs []RunInfo) {
	if len(runs) == 0 {
		out.Printf("No runs found in database.\n")
		return
	}
	out.Printf("%d run(s)\n\n", len(runs))
	for _, r := range runs {
		out.Printf("%s  %-8s  %3d Hz  seed %-4d  %s\n",
			r.RunID, r.App, r.TickRate, r.Seed, r.CreatedAt.UTC().Format(time.RFC3339))
	}
}

func writeTraceText(out *OutputFormatter, result TraceResult) {
	r := result.Run
	out.Printf("Run: %s (%s, %d Hz, start tick %d)\n", r.RunID, r.App, r.TickRate, r.StartTick)
	out.Printf("Initial: %s\n\n", shortDigest(r.InitialDigest, out.Verbose))

	for _, e := range result.Timeline {
		switch e.Type {
		case "checkpoint":
			out.Printf("[%6d] checkpoint  %s  (%d entities)\n", e.Tick, shortDigest(e.Digest, out.Verbose), e.Entities)
		default:
			out.Printf("[%6d] input #%d    %s %s\n", e.Tick, e.Seq, e.Kind, string(e.Payload))
		}
	}

	out.Printf("\nStats: %d inputs, %d checkpoints, last tick %d\n",
		result.Stats.Inputs, result.Stats.Checkpoints, result.Stats.LastTick)
}

// shortDigest truncates a digest for display unless verbose.
func shortDigest(d string, verbose bool) string {
	if verbose || len(d) <= 12 {
		return d
	}
	return d[:12] + "…"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

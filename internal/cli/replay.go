package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/lockstep/internal/astro"
	"github.com/roach88/lockstep/internal/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// SkippedRun is a journaled run this binary cannot re-simulate.
type SkippedRun struct {
	RunID  string `json:"run_id"`
	App    string `json:"app"`
	Reason string `json:"reason"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []journal.ReplayReport `json:"runs"`
	Skipped          []SkippedRun           `json:"skipped"`
	TotalRuns        int                    `json:"total_runs"`
	AllDeterministic bool                   `json:"all_deterministic"`
}

type replayFunc func(ctx context.Context, st *journal.Store, runID string, logger *slog.Logger) (journal.ReplayReport, error)

// replayers maps journaled app names to their transition logic.
var replayers = map[string]replayFunc{
	astro.Name: func(ctx context.Context, st *journal.Store, runID string, logger *slog.Logger) (journal.ReplayReport, error) {
		return journal.Replay(ctx, st, runID, journal.ReplayOptions[astro.ID, astro.Entity, astro.Op, astro.Sound]{
			App:     astro.App{},
			Compare: astro.CompareIDs,
			Logger:  logger,
		})
	},
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-simulate journaled runs and verify determinism",
		Long: `Re-simulate journaled runs and verify determinism.

Each run is rebuilt from its stored initial table, its inputs are
re-injected at the ticks they were recorded at, and every tick's table
digest is compared with the stored checkpoint.

Exit codes:
  0 - All runs are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  lockstep replay --db ./runs.db
  lockstep replay --db ./runs.db --run 0192f0c4-...
  lockstep replay --db ./runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay a specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.logger(cmd, cfg)
	out := formatterFor(cmd, opts.RootOptions)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []journal.Run
	if opts.RunID != "" {
		run, err := st.GetRun(ctx, opts.RunID)
		if errors.Is(err, journal.ErrRunNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		runs = []journal.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Runs:             make([]journal.ReplayReport, 0, len(runs)),
		Skipped:          []SkippedRun{},
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	for _, run := range runs {
		replay, ok := replayers[run.App]
		if !ok {
			result.Skipped = append(result.Skipped, SkippedRun{RunID: run.ID, App: run.App, Reason: "no transition logic for app"})
			out.VerboseLog("skipping run %s: unknown app %q", run.ID, run.App)
			continue
		}

		report, err := replay(ctx, st, run.ID, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}
		result.Runs = append(result.Runs, report)
		if !report.Deterministic {
			result.AllDeterministic = false
		}
	}

	if out.JSON() {
		var failure *CLIError
		if !result.AllDeterministic {
			failure = &CLIError{Code: ErrCodeDeterminism, Message: "determinism verification failed"}
		}
		if err := out.Respond(result, failure); err != nil {
			return err
		}
	} else {
		writeReplayText(out, result)
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// openExisting opens a journal that must already exist.
func openExisting(path string) (*journal.Store, error) {
	if !fileExists(path) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func writeReplayText(out *OutputFormatter, result ReplayResult) {
	if result.TotalRuns == 0 {
		out.Printf("No runs found in database.\n")
		return
	}

	out.Printf("Replay Summary: %d run(s)\n\n", result.TotalRuns)
	for _, r := range result.Runs {
		status := "✓"
		if !r.Deterministic {
			status = "✗"
		}
		out.Printf("%s Run: %s (%s)\n", status, r.RunID, r.App)
		out.Printf("  Ticks: %d, inputs: %d\n", r.Ticks, r.Inputs)
		if out.Verbose {
			out.Printf("  Final digest: %s\n", r.FinalDigest)
		}
		for _, m := range r.Mismatches {
			out.Printf("  Mismatch at tick %d: want %s, got %s\n", m.Tick, m.Want, m.Got)
		}
		if r.Error != "" {
			out.Printf("  Stopped early: %s\n", r.Error)
		}
		out.Printf("\n")
	}
	for _, s := range result.Skipped {
		out.Printf("- Run: %s (%s) skipped: %s\n", s.RunID, s.App, s.Reason)
	}

	if result.AllDeterministic {
		out.Printf("✓ All runs verified deterministic\n")
		return
	}
	out.Printf("✗ Determinism verification failed\n")
}

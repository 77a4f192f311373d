package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/roach88/lockstep/internal/astro"
	"github.com/roach88/lockstep/internal/audio"
	"github.com/roach88/lockstep/internal/config"
	"github.com/roach88/lockstep/internal/digest"
	"github.com/roach88/lockstep/internal/engine"
	"github.com/roach88/lockstep/internal/journal"
	"github.com/roach88/lockstep/internal/terminal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	Frames    int
	TickRate  uint64
	FrameRate uint64
	Seed      uint64
	Headless  bool
	NoAudio   bool
}

// RunSummary is the outcome of a run.
type RunSummary struct {
	RunID  string `json:"run_id,omitempty"`
	Frames int    `json:"frames"`
	Ticks  int    `json:"ticks"`
	Tick   uint64 `json:"tick"`
	Reason string `json:"reason"`
	Level  uint64 `json:"level"`
	Score  uint64 `json:"score"`
	Digest string `json:"digest"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play the astro demo",
		Long: `Play the astro demo in the terminal.

Controls: a/d or arrows turn, w or up thrusts, space fires,
q, Esc or Ctrl-C quits.

With --db every input and tick checkpoint is journaled so the run can be
verified later with 'lockstep replay'. --headless drives the ship with a
scripted autopilot and no screen, for smoke runs and CI.

Examples:
  lockstep run
  lockstep run --db ./runs.db
  lockstep run --headless --frames 600 --db ./runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGame(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal the run to this SQLite database")
	cmd.Flags().IntVar(&opts.Frames, "frames", 0, "stop after this many frames (0 = until quit)")
	cmd.Flags().Uint64Var(&opts.TickRate, "tick-rate", 0, "override the configured tick rate")
	cmd.Flags().Uint64Var(&opts.FrameRate, "frame-rate", 0, "override the configured frame rate")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "override the configured wave seed")
	cmd.Flags().BoolVar(&opts.Headless, "headless", false, "no terminal; scripted autopilot input")
	cmd.Flags().BoolVar(&opts.NoAudio, "no-audio", false, "disable sound")

	return cmd
}

func (o *RunOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("tick-rate") {
		cfg.TickRate = o.TickRate
	}
	if flags.Changed("frame-rate") {
		cfg.FrameRate = o.FrameRate
	}
	if flags.Changed("seed") {
		cfg.Seed = o.Seed
	}
	if flags.Changed("db") {
		cfg.Journal = o.Database
	}
	if o.NoAudio || o.Headless {
		cfg.Audio = false
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	return nil
}

func runGame(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if err := opts.apply(cmd, &cfg); err != nil {
		return err
	}
	logger := opts.logger(cmd, cfg)
	out := formatterFor(cmd, opts.RootOptions)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	world := astro.NewWorld(astro.Vec2{X: cfg.Arena.Width, Y: cfg.Arena.Height}, cfg.Seed)
	sched, err := astro.New(cfg.Engine(), world, append(cfg.EngineOptions(), engine.WithLogger(logger))...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create scheduler", err)
	}

	summary := RunSummary{}
	if cfg.Journal != "" {
		st, err := journal.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer st.Close()

		rec, err := journal.NewRecorder(ctx, st, sched, journal.RecorderOptions{
			App:    astro.Name,
			Logger: logger,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start recording", err)
		}
		summary.RunID = rec.RunID()
	}

	runner := &engine.Runner[astro.ID, astro.Entity, astro.Op, astro.Sound]{
		Scheduler:     sched,
		FrameInterval: cfg.FrameInterval(),
		MaxFrames:     opts.Frames,
		Logger:        logger,
	}

	if opts.Headless {
		runner.Input = autopilot{}
	} else {
		screen, err := terminal.NewScreen()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open terminal", err)
		}
		defer screen.Fini()

		input := terminal.NewInput(screen, terminal.InputOptions{Logger: logger})
		runner.Input = input
		runner.Presenter = terminal.NewPresenter(screen, input)
	}

	if cfg.Audio {
		if sink, closeAudio := openAudio(logger); sink != nil {
			defer closeAudio()
			runner.Sinks = append(runner.Sinks, sink)
		}
	}

	stats, runErr := runner.Run(ctx)
	summary.Frames = stats.Frames
	summary.Ticks = stats.Ticks
	summary.Tick = sched.TickNumber()
	summary.Reason = string(stats.Reason)
	status := astro.Summarize(sched.Entities())
	summary.Level = status.Level
	summary.Score = status.Score
	summary.Digest = digest.MustTable(sched.Entities())

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		if out.JSON() {
			_ = out.Respond(summary, &CLIError{Code: ErrCodeRunFailed, Message: runErr.Error()})
		}
		return WrapExitError(ExitFailure, "run failed", runErr)
	}

	if out.JSON() {
		return out.Respond(summary, nil)
	}
	out.Printf("Stopped: %s after %d frames, %d ticks\n", summary.Reason, summary.Frames, summary.Ticks)
	out.Printf("Level %d, score %d\n", summary.Level, summary.Score)
	if summary.RunID != "" {
		out.Printf("Recorded run %s (verify with: lockstep replay --db %s --run %s)\n", summary.RunID, cfg.Journal, summary.RunID)
	}
	out.VerboseLog("final digest %s", summary.Digest)
	return nil
}

// openAudio starts the speaker and sound sink. Audio is optional: on
// failure it logs and returns a nil sink.
func openAudio(logger *slog.Logger) (*audio.Sink, func()) {
	spk, err := audio.OpenSpeaker(audio.DefaultSampleRate)
	if err != nil {
		logger.Warn("audio disabled", "error", err)
		return nil, nil
	}
	sink := audio.NewSink(spk, audio.SinkOptions{Logger: logger})
	return sink, func() {
		sink.Close()
		spk.Close()
	}
}

// autopilot is the scripted input of headless runs: it keeps turning,
// fires continuously and pulses the thrust. The controls depend only on
// the tick, so two headless runs with the same frame timing are identical.
type autopilot struct{}

func (autopilot) PollInput(_ context.Context, frame engine.Frame, world astro.View) ([]astro.Event, error) {
	c := astro.Controls{
		RVel:   astro.PlayerTurnRate / 2,
		Thrust: (frame.Tick/30)%2 == 0,
		Fire:   true,
	}
	return astro.ControlsEvents(world, c), nil
}

var _ engine.InputSource[astro.ID, astro.Entity, astro.Op, astro.Sound] = autopilot{}

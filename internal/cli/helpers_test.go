package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockstep/internal/astro"
	"github.com/roach88/lockstep/internal/counter"
	"github.com/roach88/lockstep/internal/engine"
	"github.com/roach88/lockstep/internal/journal"
	"github.com/roach88/lockstep/internal/testutil"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRootOptions(format string) *RootOptions {
	return &RootOptions{Format: format, Logger: quiet()}
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

type response[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
}

func decodeResponse[T any](t *testing.T, out string) response[T] {
	t.Helper()
	var resp response[T]
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

// recordAstroRun journals ticks of a scripted astro session into the
// database at path.
func recordAstroRun(t *testing.T, path, runID string, ticks int) {
	t.Helper()
	ctx := context.Background()
	st, err := journal.Open(path)
	require.NoError(t, err)
	defer st.Close()

	sched, err := astro.New(engine.Config{TickRate: 30}, astro.NewWorld(astro.Vec2{X: 160, Y: 90}, 4), engine.WithLogger(quiet()))
	require.NoError(t, err)
	_, err = journal.NewRecorder(ctx, st, sched, journal.RecorderOptions{
		App:    astro.Name,
		IDs:    journal.NewFixedGenerator(runID),
		Time:   testutil.NewManualTime(0),
		Logger: quiet(),
	})
	require.NoError(t, err)

	for i := range ticks {
		c := astro.Controls{RVel: 1, Thrust: i%20 < 10, Fire: true}
		require.NoError(t, sched.Inject(astro.ControlsEvents(sched.Entities(), c)...))
		_, err := sched.Step()
		require.NoError(t, err)
	}
}

// recordCounterRun journals a counter run, which this binary cannot replay.
func recordCounterRun(t *testing.T, path, runID string) {
	t.Helper()
	ctx := context.Background()
	st, err := journal.Open(path)
	require.NoError(t, err)
	defer st.Close()

	sched, err := counter.New(engine.Config{TickRate: 10}, counter.App{}, counter.NewTable(), engine.WithLogger(quiet()))
	require.NoError(t, err)
	_, err = journal.NewRecorder(ctx, st, sched, journal.RecorderOptions{
		App:    counter.Name,
		IDs:    journal.NewFixedGenerator(runID),
		Time:   testutil.NewManualTime(0),
		Logger: quiet(),
	})
	require.NoError(t, err)
	_, err = sched.Step()
	require.NoError(t, err)
}

func tamperCheckpoint(t *testing.T, path, runID string, tick int) {
	t.Helper()
	st, err := journal.Open(path)
	require.NoError(t, err)
	defer st.Close()
	_, err = st.DB().Exec(`UPDATE checkpoints SET digest = 'tampered' WHERE run_id = ? AND tick = ?`, runID, tick)
	require.NoError(t, err)
}

func dbPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "runs.db")
}

package counter

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockstep/internal/engine"
	"github.com/roach88/lockstep/internal/event"
)

func newCounter(t *testing.T, app App, ids ...int64) *Scheduler {
	t.Helper()
	initial := NewTable()
	for _, id := range ids {
		initial.Insert(id, Entity{})
	}
	s, err := New(engine.Config{TickRate: 10}, app, initial,
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return s
}

func count(t *testing.T, s *Scheduler, id int64) int64 {
	t.Helper()
	e, ok := s.Entities().Get(id)
	require.True(t, ok)
	return e.Count
}

func TestFold(t *testing.T) {
	var sink event.Sink[Event]
	e := Entity{Count: 5}

	require.NoError(t, App{}.Fold(Increment(), 1, &e, &sink))
	assert.Equal(t, int64(6), e.Count)
	require.NoError(t, App{}.Fold(Add(-10), 1, &e, &sink))
	assert.Equal(t, int64(-4), e.Count)
	require.NoError(t, App{}.Fold(Reset(), 1, &e, &sink))
	assert.Equal(t, int64(0), e.Count)

	err := App{}.Fold(Op{Op: "explode"}, 1, &e, &sink)
	assert.ErrorIs(t, err, engine.ErrUnhandled)
	assert.Zero(t, sink.Len())
}

func TestFold_Milestone(t *testing.T) {
	var sink event.Sink[Event]
	e := Entity{Count: 8}
	app := App{Milestone: 10}

	require.NoError(t, app.Fold(Add(1), 3, &e, &sink))
	assert.Zero(t, sink.Len())
	require.NoError(t, app.Fold(Add(1), 3, &e, &sink))
	assert.Equal(t, []Event{Emit("counter 3 reached 10")}, sink.Events())
}

func TestPulse_EndToEnd(t *testing.T) {
	s := newCounter(t, App{Pulse: true, PulseTarget: 1}, 1)

	res, err := s.Frame(350*time.Millisecond, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Ticks)
	assert.InDelta(t, 0.5, res.Frame.Alpha, 1e-9)
	assert.Equal(t, int64(2), count(t, s, 1))

	res, err = s.Frame(100*time.Millisecond, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), res.Frame.Tick)
	assert.Equal(t, int64(3), count(t, s, 1))
}

func TestPulse_ManyEntitiesOneTarget(t *testing.T) {
	s := newCounter(t, App{Pulse: true, PulseTarget: 2}, 1, 2, 3)

	_, err := s.Advance(300 * time.Millisecond)
	require.NoError(t, err)

	// Three increments per tick land on entity 2, lagging one tick.
	assert.Equal(t, int64(6), count(t, s, 2))
	assert.Equal(t, int64(0), count(t, s, 1))
}

func TestSelfStep_IsImmediate(t *testing.T) {
	s := newCounter(t, App{SelfStep: 5}, 1, 2)

	_, err := s.Step()
	require.NoError(t, err)
	assert.Equal(t, int64(5), count(t, s, 1))
	assert.Equal(t, int64(5), count(t, s, 2))
}

func TestMilestone_BroadcastNextTick(t *testing.T) {
	s := newCounter(t, App{SelfStep: 1, Milestone: 2}, 1)

	res, err := s.Frame(200*time.Millisecond, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Broadcasts, "emitted by the second tick, reconciled by the third")

	res, err = s.Frame(100*time.Millisecond, nil)
	require.NoError(t, err)
	assert.Equal(t, []Note{"counter 1 reached 2"}, res.Broadcasts)
}

func TestRewriteSpawnID(t *testing.T) {
	app := App{FreshFrom: 1000}

	id, ok := app.RewriteSpawnID(0, 7)
	assert.True(t, ok)
	assert.Equal(t, int64(1007), id)

	id, ok = app.RewriteSpawnID(5, 7)
	assert.False(t, ok)
	assert.Equal(t, int64(5), id)

	_, ok = App{}.RewriteSpawnID(0, 7)
	assert.False(t, ok, "rewriting is off by default")
}

func TestSpawnFresh_ThroughScheduler(t *testing.T) {
	s := newCounter(t, App{FreshFrom: 100})

	require.NoError(t, s.Inject(Spawn(0, Entity{Count: 1}), Spawn(0, Entity{Count: 2})))
	_, err := s.Step()
	require.NoError(t, err)

	assert.Equal(t, []int64{101, 102}, s.Snapshot().Keys())
	assert.Equal(t, uint64(3), s.Allocator().Seed())
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "increment", Increment().String())
	assert.Equal(t, "add(-3)", Add(-3).String())
}

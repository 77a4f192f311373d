package astro

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockstep/internal/digest"
	"github.com/roach88/lockstep/internal/engine"
	"github.com/roach88/lockstep/internal/event"
	"github.com/roach88/lockstep/internal/journal"
	"github.com/roach88/lockstep/internal/testutil"
)

var arena = Vec2{X: 160, Y: 90}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGame(t *testing.T, initial *Table) *Scheduler {
	t.Helper()
	s, err := New(engine.Config{TickRate: 60}, initial, engine.WithLogger(quiet()))
	require.NoError(t, err)
	return s
}

func step(t *testing.T, s *Scheduler, n int) {
	t.Helper()
	for range n {
		_, err := s.Step()
		require.NoError(t, err)
	}
}

func actorAt(x, y, size float64) Entity {
	return Entity{Actor: Actor{Pos: Vec2{X: x, Y: y}, Size: size, Life: 1}}
}

func get(t *testing.T, s *Scheduler, id ID) Entity {
	t.Helper()
	e, ok := s.Entities().Get(id)
	require.True(t, ok, "missing %s", id)
	return e
}

func TestCompareIDs(t *testing.T) {
	ordered := []ID{GameID, PlayerID, Rock(0), Rock(9), Shot(0), Shot(1), Shot(math.MaxUint64)}
	for i := 1; i < len(ordered); i++ {
		assert.Negative(t, CompareIDs(ordered[i-1], ordered[i]), "%s < %s", ordered[i-1], ordered[i])
		assert.Positive(t, CompareIDs(ordered[i], ordered[i-1]))
	}
	assert.Zero(t, CompareIDs(Rock(3), Rock(3)))
	assert.Equal(t, "rock(3)", Rock(3).String())
	assert.Equal(t, "player", PlayerID.String())
}

func TestRewriteSpawnID(t *testing.T) {
	id, ok := App{}.RewriteSpawnID(Shot(0), 12)
	assert.True(t, ok)
	assert.Equal(t, Shot(12), id)

	id, ok = App{}.RewriteSpawnID(Rock(0), 12)
	assert.False(t, ok)
	assert.Equal(t, Rock(0), id)

	_, ok = App{}.RewriteSpawnID(Shot(4), 12)
	assert.False(t, ok)
}

func TestFold(t *testing.T) {
	var sink event.Sink[Event]

	game := Entity{Game: Game{Arena: arena}}
	require.NoError(t, App{}.Fold(Op{Op: OpLevelUp}, GameID, &game, &sink))
	require.NoError(t, App{}.Fold(Op{Op: OpScore}, GameID, &game, &sink))
	require.NoError(t, App{}.Fold(Op{Op: OpScore}, GameID, &game, &sink))
	assert.Equal(t, uint64(1), game.Game.Level)
	assert.Equal(t, uint64(2), game.Game.Score)

	player := actorAt(1, 1, PlayerSize)
	require.NoError(t, App{}.Fold(Controls{RVel: -PlayerTurnRate, Thrust: true, Fire: true}.Op(), PlayerID, &player, &sink))
	assert.Equal(t, -PlayerTurnRate, player.Actor.RVel)
	assert.True(t, player.Actor.Thrust)
	assert.True(t, player.Actor.Fire)

	rock := actorAt(1, 1, RockSize)
	assert.ErrorIs(t, App{}.Fold(Controls{}.Op(), Rock(1), &rock, &sink), engine.ErrUnhandled)
	assert.ErrorIs(t, App{}.Fold(Op{Op: OpPhysics}, GameID, &game, &sink), engine.ErrUnhandled)
	assert.Zero(t, sink.Len())
}

func TestPhysics(t *testing.T) {
	t.Run("clamps velocity", func(t *testing.T) {
		op := Physics(Actor{Pos: Vec2{10, 10}, Velocity: Vec2{100, 0}, RVel: 1}, 0.1, arena)
		assert.InDelta(t, 16.25, op.Position.X, 1e-9)
		assert.InDelta(t, 10, op.Position.Y, 1e-9)
		assert.InDelta(t, MaxVel, op.Velocity.X, 1e-9)
		assert.InDelta(t, 0.1, op.Facing, 1e-9)
	})

	t.Run("wraps at the edge", func(t *testing.T) {
		op := Physics(Actor{Pos: Vec2{159, 1}, Velocity: Vec2{20, -20}}, 0.1, arena)
		assert.InDelta(t, 1, op.Position.X, 1e-9)
		assert.InDelta(t, 89, op.Position.Y, 1e-9)
	})

	t.Run("wrap stays below the arena size", func(t *testing.T) {
		for _, x := range []float64{-1e-17, -1e-300, -160, 160, 320} {
			w := Vec2{x, x}.Wrap(arena.X, arena.Y)
			assert.GreaterOrEqual(t, w.X, 0.0, "x=%g", x)
			assert.Less(t, w.X, arena.X, "x=%g", x)
			assert.GreaterOrEqual(t, w.Y, 0.0, "x=%g", x)
			assert.Less(t, w.Y, arena.Y, "x=%g", x)
		}
	})

	t.Run("thrusts along facing", func(t *testing.T) {
		op := Physics(Actor{Pos: Vec2{50, 50}, Thrust: true}, 0.1, arena)
		assert.InDelta(t, 0, op.Velocity.X, 1e-9)
		assert.InDelta(t, -PlayerThrust*0.1, op.Velocity.Y, 1e-9)

		op = Physics(Actor{Pos: Vec2{50, 50}, Thrust: true, Facing: math.Pi / 2}, 0.1, arena)
		assert.InDelta(t, PlayerThrust*0.1, op.Velocity.X, 1e-9)
		assert.InDelta(t, 0, op.Velocity.Y, 1e-9)
	})
}

func TestOverlaps_AcrossEdge(t *testing.T) {
	a := Actor{Pos: Vec2{0.5, 10}, Size: 3}
	b := Actor{Pos: Vec2{159.5, 10}, Size: 3}
	assert.True(t, Overlaps(a, b, arena))

	b.Pos = Vec2{80, 10}
	assert.False(t, Overlaps(a, b, arena))
}

func TestWave(t *testing.T) {
	g := Game{Level: 2, Arena: arena, Seed: 42}
	center := Vec2{80, 45}

	wave := Wave(g, 10, center)
	require.Len(t, wave, 8)
	assert.Equal(t, wave, Wave(g, 10, center), "same inputs, same wave")
	assert.NotEqual(t, wave, Wave(g, 11, center), "tick feeds the generator")

	short := math.Min(arena.X, arena.Y)
	for i, rock := range wave {
		assert.Equal(t, Rock(uint64(i)), rock.ID)
		a := rock.Value.Actor
		assert.GreaterOrEqual(t, a.Pos.X, 0.0)
		assert.Less(t, a.Pos.X, arena.X)
		assert.LessOrEqual(t, a.Velocity.Len(), MaxRockVel+1e-9)

		d := WrappedDelta(center, a.Pos, arena.X, arena.Y).Len()
		assert.Greater(t, d, (PlayerSize+RockSize)/2, "rock %d spawned on the player", i)
		assert.LessOrEqual(t, d, short*WaveMaxRadius+1e-9)
	}
}

func TestGame_SpawnsPlayerThenWave(t *testing.T) {
	s := newGame(t, NewWorld(arena, 3))

	step(t, s, 1)
	_, ok := s.Entities().Get(PlayerID)
	assert.False(t, ok, "spawn lands one tick later")

	step(t, s, 1)
	player := get(t, s, PlayerID)
	assert.Equal(t, arena.Scale(0.5), player.Actor.Pos)
	assert.Equal(t, uint64(1), get(t, s, GameID).Game.Level, "level-up is a self event")
	assert.Equal(t, 0, Summarize(s.Entities()).Rocks)

	step(t, s, 1)
	st := Summarize(s.Entities())
	assert.Equal(t, WaveBase, st.Rocks)
	assert.True(t, st.Player)
	assert.Equal(t, []Sound{{Kind: SoundLevel}}, s.DrainBroadcasts())
}

func TestPlayer_FiresFreshShots(t *testing.T) {
	initial := NewWorld(arena, 1)
	player := actorAt(80, 45, PlayerSize)
	player.Actor.Fire = true
	initial.Insert(PlayerID, player)
	initial.Insert(Rock(7), actorAt(10, 10, RockSize))
	s := newGame(t, initial)

	step(t, s, 1)
	assert.InDelta(t, PlayerShotTime, get(t, s, PlayerID).Actor.Cooldown, 1e-9)

	step(t, s, 1)
	shot := get(t, s, Shot(1))
	assert.Less(t, shot.Actor.Pos.Y, 45.0, "shot travels up")
	assert.Equal(t, uint64(2), s.Allocator().Seed())
	assert.Equal(t, []Sound{{Kind: SoundFire}}, s.DrainBroadcasts())
	assert.InDelta(t, PlayerShotTime-1.0/60, get(t, s, PlayerID).Actor.Cooldown, 1e-9)
	assert.Equal(t, 1, Summarize(s.Entities()).Shots, "cooldown blocks the next shot")
}

func TestShot_Expires(t *testing.T) {
	initial := NewWorld(arena, 1)
	initial.Insert(PlayerID, actorAt(80, 45, PlayerSize))
	initial.Insert(Rock(7), actorAt(10, 10, RockSize))
	shot := actorAt(120, 70, ShotSize)
	shot.Actor.Life = 1.5 / 60
	initial.Insert(Shot(4), shot)
	s := newGame(t, initial)

	step(t, s, 1)
	assert.InDelta(t, 0.5/60, get(t, s, Shot(4)).Actor.Life, 1e-9)

	step(t, s, 2)
	_, ok := s.Entities().Get(Shot(4))
	assert.False(t, ok)
}

func TestShot_DestroysRock(t *testing.T) {
	initial := NewWorld(arena, 1)
	initial.Insert(PlayerID, actorAt(80, 45, PlayerSize))
	initial.Insert(Rock(7), actorAt(20, 20, RockSize))
	initial.Insert(Shot(5), actorAt(20, 20, ShotSize))
	s := newGame(t, initial)

	step(t, s, 2)
	_, rock := s.Entities().Get(Rock(7))
	_, shot := s.Entities().Get(Shot(5))
	assert.False(t, rock)
	assert.False(t, shot)
	assert.Equal(t, uint64(1), get(t, s, GameID).Game.Score)
	assert.Equal(t, []Sound{{Kind: SoundExplode}}, s.DrainBroadcasts())

	step(t, s, 1)
	assert.Equal(t, WaveBase, Summarize(s.Entities()).Rocks, "cleared field brings the next wave")
}

func TestRock_KillsPlayer(t *testing.T) {
	initial := NewWorld(arena, 1)
	initial.Insert(PlayerID, actorAt(20, 20, PlayerSize))
	initial.Insert(Rock(7), actorAt(21, 20, RockSize))
	initial.Insert(Shot(3), actorAt(100, 80, ShotSize))
	initial.Insert(Shot(9), actorAt(140, 80, ShotSize))
	s := newGame(t, initial)

	step(t, s, 2)
	st := Summarize(s.Entities())
	assert.False(t, st.Player)
	assert.Zero(t, st.Shots)
	assert.Equal(t, []Sound{{Kind: SoundDeath}}, s.DrainBroadcasts())

	step(t, s, 1)
	assert.Equal(t, arena.Scale(0.5), get(t, s, PlayerID).Actor.Pos, "respawned at the centre")
}

func TestControlsEvents(t *testing.T) {
	world := NewWorld(arena, 1)
	assert.Empty(t, ControlsEvents(world, Controls{Fire: true}))

	world.Insert(PlayerID, actorAt(1, 1, PlayerSize))
	evs := ControlsEvents(world, Controls{Fire: true})
	require.Len(t, evs, 1)
	assert.Equal(t, event.KindTargeted, evs[0].Kind)
	assert.Equal(t, PlayerID, evs[0].ID)
	assert.True(t, evs[0].Payload.Fire)
}

func TestInterpolate(t *testing.T) {
	a := Actor{Pos: Vec2{159, 10}, Velocity: Vec2{60, 0}}
	p := Interpolate(a, 0.5, 0.1, arena)
	assert.InDelta(t, 2, p.X, 1e-9)
	assert.InDelta(t, 10, p.Y, 1e-9)
}

// play runs a scripted session: rotate, thrust and fire continuously.
func play(t *testing.T, s *Scheduler, ticks int) {
	t.Helper()
	c := Controls{RVel: PlayerTurnRate / 3, Thrust: true, Fire: true}
	for i := range ticks {
		if i%90 == 45 {
			c.Thrust = !c.Thrust
		}
		require.NoError(t, s.Inject(ControlsEvents(s.Entities(), c)...))
		step(t, s, 1)
		s.DrainBroadcasts()
	}
}

func TestDeterministic(t *testing.T) {
	a := newGame(t, NewWorld(arena, 9))
	b := newGame(t, NewWorld(arena, 9))

	play(t, a, 300)
	play(t, b, 300)

	assert.Equal(t, digest.MustTable(a.Entities()), digest.MustTable(b.Entities()))
	assert.GreaterOrEqual(t, Summarize(a.Entities()).Level, uint64(1))
}

func TestJournalReplay(t *testing.T) {
	ctx := context.Background()
	store, err := journal.Open(journal.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s := newGame(t, NewWorld(arena, 5))
	_, err = journal.NewRecorder(ctx, store, s, journal.RecorderOptions{
		App:    Name,
		IDs:    journal.NewFixedGenerator("astro-1"),
		Time:   testutil.NewManualTime(0),
		Logger: quiet(),
	})
	require.NoError(t, err)

	play(t, s, 120)

	report, err := journal.Replay(ctx, store, "astro-1", journal.ReplayOptions[ID, Entity, Op, Sound]{
		App:     App{},
		Compare: CompareIDs,
		Logger:  quiet(),
	})
	require.NoError(t, err)
	assert.True(t, report.Deterministic, "mismatches: %v", report.Mismatches)
	assert.Equal(t, 120, report.Ticks)
	assert.Equal(t, digest.MustTable(s.Entities()), report.FinalDigest)
}

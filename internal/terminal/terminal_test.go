package terminal

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockstep/internal/astro"
	"github.com/roach88/lockstep/internal/engine"
	"github.com/roach88/lockstep/internal/testutil"
)

var arena = astro.Vec2{X: 160, Y: 90}

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func newInput(t *testing.T, screen tcell.Screen) (*Input, *testutil.ManualTime) {
	t.Helper()
	clock := testutil.NewManualTime(0)
	in := NewInput(screen, InputOptions{
		Time:   clock,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return in, clock
}

func worldWithPlayer() *astro.Table {
	w := astro.NewWorld(arena, 1)
	w.Insert(astro.PlayerID, astro.NewPlayer(arena))
	return w
}

func rowText(s tcell.SimulationScreen, y int) string {
	w, _ := s.Size()
	var b strings.Builder
	for x := range w {
		r, _, _, _ := s.GetContent(x, y)
		b.WriteRune(r)
	}
	return b.String()
}

func TestPresenter_DrawsActorsAndStatus(t *testing.T) {
	screen := newScreen(t, 40, 11)
	world := astro.NewWorld(arena, 1)
	world.Insert(astro.PlayerID, astro.NewPlayer(arena))
	world.Insert(astro.Rock(0), astro.Entity{Actor: astro.Actor{Size: astro.RockSize}})
	world.Insert(astro.Shot(1), astro.Entity{Actor: astro.Actor{Pos: astro.Vec2{X: 159, Y: 89}, Size: astro.ShotSize}})

	closed, err := NewPresenter(screen, nil).Present(context.Background(), engine.Frame{Tick: 12, Rate: 60}, world)
	require.NoError(t, err)
	assert.False(t, closed)

	r, _, _, _ := screen.GetContent(20, 5)
	assert.Equal(t, '^', r, "player at the centre facing up")
	r, _, _, _ = screen.GetContent(0, 0)
	assert.Equal(t, 'O', r)
	r, _, _, _ = screen.GetContent(39, 9)
	assert.Equal(t, '*', r)

	status := rowText(screen, 10)
	assert.Contains(t, status, "tick 12")
	assert.Contains(t, status, "alpha 0.00")
	assert.Contains(t, status, "rocks 1")
	assert.NotContains(t, status, "respawning")
}

func TestPresenter_InterpolatesByAlpha(t *testing.T) {
	screen := newScreen(t, 40, 11)
	world := astro.NewWorld(arena, 1)
	player := astro.NewPlayer(arena)
	player.Actor.Velocity = astro.Vec2{X: 60}
	player.Actor.Facing = 1.6
	world.Insert(astro.PlayerID, player)

	_, err := NewPresenter(screen, nil).Present(context.Background(), engine.Frame{Rate: 1, Alpha: 0.5}, world)
	require.NoError(t, err)

	r, _, _, _ := screen.GetContent(27, 5)
	assert.Equal(t, '>', r)
	r, _, _, _ = screen.GetContent(20, 5)
	assert.Equal(t, ' ', r)
}

func TestPresenter_RespawningStatus(t *testing.T) {
	screen := newScreen(t, 60, 5)
	_, err := NewPresenter(screen, nil).Present(context.Background(), engine.Frame{Rate: 60}, astro.NewWorld(arena, 1))
	require.NoError(t, err)
	assert.Contains(t, rowText(screen, 4), "respawning")
}

func TestInput_LatchesKeyForHold(t *testing.T) {
	screen := newScreen(t, 20, 5)
	in, clock := newInput(t, screen)
	world := worldWithPlayer()

	screen.InjectKey(tcell.KeyRune, 'w', tcell.ModNone)

	var got []astro.Event
	require.Eventually(t, func() bool {
		evs, err := in.PollInput(context.Background(), engine.Frame{}, world)
		got = evs
		return err == nil && len(evs) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, astro.PlayerID, got[0].ID)
	assert.True(t, got[0].Payload.Thrust)
	assert.False(t, got[0].Payload.Fire)

	clock.Advance(DefaultHold - time.Millisecond)
	evs, err := in.PollInput(context.Background(), engine.Frame{}, world)
	require.NoError(t, err)
	require.Len(t, evs, 1, "still held")

	clock.Advance(time.Millisecond)
	evs, err = in.PollInput(context.Background(), engine.Frame{}, world)
	require.NoError(t, err)
	assert.Empty(t, evs, "released controls match the player's")
}

func TestInput_QuitClosesPresenter(t *testing.T) {
	screen := newScreen(t, 20, 5)
	in, _ := newInput(t, screen)
	p := NewPresenter(screen, in)

	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	require.Eventually(t, func() bool {
		_, err := in.PollInput(context.Background(), engine.Frame{}, astro.NewWorld(arena, 1))
		return err == nil && in.QuitRequested()
	}, time.Second, 5*time.Millisecond)

	closed, err := p.Present(context.Background(), engine.Frame{Rate: 60}, astro.NewWorld(arena, 1))
	require.NoError(t, err)
	assert.True(t, closed)
}

func TestInput_NoPlayerNoEvents(t *testing.T) {
	screen := newScreen(t, 20, 5)
	in, _ := newInput(t, screen)
	in.until[actionFire] = in.time.Now().Add(time.Second)

	evs, err := in.PollInput(context.Background(), engine.Frame{}, astro.NewWorld(arena, 1))
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestControls(t *testing.T) {
	screen := newScreen(t, 20, 5)
	in, clock := newInput(t, screen)
	now := clock.Peek()
	later := now.Add(time.Second)

	assert.Equal(t, astro.Controls{}, in.controls(now))

	in.until[actionLeft] = later
	assert.Equal(t, -astro.PlayerTurnRate, in.controls(now).RVel)

	in.until[actionRight] = later
	assert.Zero(t, in.controls(now).RVel, "opposite turns cancel")

	in.until[actionLeft] = now
	assert.Equal(t, astro.PlayerTurnRate, in.controls(now).RVel)

	in.until[actionFire] = later
	in.until[actionThrust] = later
	c := in.controls(now)
	assert.True(t, c.Fire)
	assert.True(t, c.Thrust)
}

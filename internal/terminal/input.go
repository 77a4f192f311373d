package terminal

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/roach88/lockstep/internal/astro"
	"github.com/roach88/lockstep/internal/engine"
)

// DefaultHold is how long a key press keeps its action active.
const DefaultHold = 150 * time.Millisecond

// eventBuffer bounds the events queued between frames.
const eventBuffer = 64

type action int

const (
	actionLeft action = iota
	actionRight
	actionThrust
	actionFire
	numActions
)

// InputOptions configures an Input.
type InputOptions struct {
	// Hold defaults to DefaultHold.
	Hold time.Duration
	// Time defaults to engine.SystemTime.
	Time   engine.TimeSource
	Logger *slog.Logger
}

// Input is an engine.InputSource reading the keyboard.
//
// A goroutine pumps PollEvent into a bounded channel; PollInput drains it
// without blocking. Events arriving while the channel is full are dropped.
type Input struct {
	screen tcell.Screen
	events chan tcell.Event
	hold   time.Duration
	time   engine.TimeSource
	logger *slog.Logger

	until   [numActions]time.Time
	quit    atomic.Bool
	dropped atomic.Int64
}

var _ engine.InputSource[astro.ID, astro.Entity, astro.Op, astro.Sound] = (*Input)(nil)

// NewInput creates an Input for screen and starts its event pump. The
// pump exits when the screen is finalized.
func NewInput(screen tcell.Screen, opts InputOptions) *Input {
	if opts.Hold <= 0 {
		opts.Hold = DefaultHold
	}
	if opts.Time == nil {
		opts.Time = engine.SystemTime{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	in := &Input{
		screen: screen,
		events: make(chan tcell.Event, eventBuffer),
		hold:   opts.Hold,
		time:   opts.Time,
		logger: opts.Logger,
	}
	go in.pump()
	return in
}

func (in *Input) pump() {
	for {
		ev := in.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case in.events <- ev:
		default:
			in.dropped.Add(1)
		}
	}
}

// QuitRequested reports whether q, Esc or Ctrl-C was pressed.
func (in *Input) QuitRequested() bool {
	return in.quit.Load()
}

// Dropped counts events lost to a full buffer.
func (in *Input) Dropped() int64 {
	return in.dropped.Load()
}

// PollInput drains pending key events and routes the resulting controls
// to the player when they differ from what the player already has.
func (in *Input) PollInput(_ context.Context, _ engine.Frame, world astro.View) ([]astro.Event, error) {
	now := in.time.Now()

drain:
	for {
		select {
		case ev := <-in.events:
			in.handle(ev, now)
		default:
			break drain
		}
	}

	c := in.controls(now)
	if p, ok := world.Get(astro.PlayerID); ok && sameControls(p.Actor, c) {
		return nil, nil
	}
	return astro.ControlsEvents(world, c), nil
}

func sameControls(a astro.Actor, c astro.Controls) bool {
	return a.RVel == c.RVel && a.Thrust == c.Thrust && a.Fire == c.Fire
}

func (in *Input) handle(ev tcell.Event, now time.Time) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		a, ok := in.keyAction(ev)
		if !ok {
			return
		}
		in.until[a] = now.Add(in.hold)
	case *tcell.EventResize:
		in.screen.Sync()
	}
}

func (in *Input) keyAction(ev *tcell.EventKey) (action, bool) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		in.requestQuit()
		return 0, false
	case tcell.KeyLeft:
		return actionLeft, true
	case tcell.KeyRight:
		return actionRight, true
	case tcell.KeyUp:
		return actionThrust, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			in.requestQuit()
		case 'a':
			return actionLeft, true
		case 'd':
			return actionRight, true
		case 'w':
			return actionThrust, true
		case ' ':
			return actionFire, true
		}
	}
	return 0, false
}

func (in *Input) requestQuit() {
	if !in.quit.Swap(true) {
		in.logger.Info("quit requested")
	}
}

func (in *Input) active(a action, now time.Time) bool {
	return now.Before(in.until[a])
}

func (in *Input) controls(now time.Time) astro.Controls {
	var c astro.Controls
	left, right := in.active(actionLeft, now), in.active(actionRight, now)
	switch {
	case left && !right:
		c.RVel = -astro.PlayerTurnRate
	case right && !left:
		c.RVel = astro.PlayerTurnRate
	}
	c.Thrust = in.active(actionThrust, now)
	c.Fire = in.active(actionFire, now)
	return c
}

package astro

import (
	"github.com/roach88/lockstep/internal/engine"
	"github.com/roach88/lockstep/internal/table"
)

// NewTable returns an empty astro table.
func NewTable() *Table {
	return table.New[ID, Entity](CompareIDs)
}

// NewWorld returns the initial table: a level 0 game and nothing else.
// The player appears on the first tick and the first wave on the second.
func NewWorld(arena Vec2, seed uint64) *Table {
	t := NewTable()
	t.Insert(GameID, Entity{Game: Game{Arena: arena, Seed: seed}})
	return t
}

// New creates a scheduler running the game over initial.
func New(cfg engine.Config, initial *Table, opts ...engine.Option) (*Scheduler, error) {
	return engine.New[ID, Entity, Op, Sound](cfg, App{}, initial, opts...)
}

// ControlsEvents routes c to the player when one exists.
func ControlsEvents(world View, c Controls) []Event {
	if _, ok := world.Get(PlayerID); !ok {
		return nil
	}
	return []Event{Target(PlayerID, c.Op())}
}

// Interpolate predicts where a is alpha ticks after the last committed
// tick of length dt seconds.
func Interpolate(a Actor, alpha, dt float64, arena Vec2) Vec2 {
	return a.Pos.Add(a.Velocity.Clamp(MaxVel).Scale(alpha * dt)).Wrap(arena.X, arena.Y)
}

// Status is the presentation summary of a world.
type Status struct {
	Level  uint64
	Score  uint64
	Rocks  int
	Shots  int
	Player bool
	Arena  Vec2
}

// Summarize reads the status out of world.
func Summarize(world View) Status {
	g, _ := world.Get(GameID)
	_, player := world.Get(PlayerID)
	return Status{
		Level:  g.Game.Level,
		Score:  g.Game.Score,
		Rocks:  countRange(world, AllRocks),
		Shots:  countRange(world, AllShots),
		Player: player,
		Arena:  g.Game.Arena,
	}
}

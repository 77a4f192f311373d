package astro

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/roach88/lockstep/internal/engine"
	"github.com/roach88/lockstep/internal/event"
	"github.com/roach88/lockstep/internal/table"
)

// Tuning, in world units and seconds.
const (
	PlayerSize = 3.0
	RockSize   = 4.0
	ShotSize   = 1.5

	PlayerLife = 1.0
	RockLife   = 1.0
	ShotLife   = 2.0

	PlayerThrust   = 25.0
	PlayerTurnRate = 3.05
	PlayerShotTime = 0.5

	ShotSpeed  = 50.0
	ShotRVel   = 0.1
	MaxRockVel = 12.5
	MaxVel     = 62.5

	// Rocks of a new wave appear in a ring around the player, as fractions
	// of the shorter arena side.
	WaveMinRadius = 0.25
	WaveMaxRadius = 0.5

	// WaveBase is the rock count of level 0.
	WaveBase = 6
)

// App is the asteroids transition logic. It is stateless: everything it
// needs lives in the table.
type App struct{}

var _ engine.App[ID, Entity, Op, Sound] = App{}

// Fold applies one op to one entity.
func (App) Fold(op Op, id ID, e *Entity, _ *event.Sink[Event]) error {
	if id.Kind == KindGame {
		switch op.Op {
		case OpLevelUp:
			e.Game.Level++
		case OpScore:
			e.Game.Score++
		default:
			return fmt.Errorf("%s: op %q: %w", id, op.Op, engine.ErrUnhandled)
		}
		return nil
	}

	a := &e.Actor
	switch op.Op {
	case OpControls:
		if id.Kind != KindPlayer {
			return fmt.Errorf("%s: op %q: %w", id, op.Op, engine.ErrUnhandled)
		}
		a.RVel = op.RVel
		a.Thrust = op.Thrust
		a.Fire = op.Fire
	case OpPhysics:
		a.Velocity = op.Velocity
		a.Facing = op.Facing
		a.Pos = op.Position
	case OpLife:
		a.Life = op.Value
	case OpCooldown:
		a.Cooldown = op.Value
	default:
		return fmt.Errorf("%s: op %q: %w", id, op.Op, engine.ErrUnhandled)
	}
	return nil
}

// Simulate computes one entity's events for the tick.
func (App) Simulate(tick engine.Tick, world table.View[ID, Entity], id ID, e Entity, sink *event.CombinedSink[Op, Event]) {
	if id.Kind == KindGame {
		simulateGame(tick, world, e.Game, sink)
		return
	}

	game, _ := world.Get(GameID)
	arena := game.Game.Arena
	a := e.Actor

	sink.Self.Push(Physics(a, tick.Duration, arena))

	switch id.Kind {
	case KindPlayer:
		simulatePlayer(tick, world, a, arena, sink)
	case KindShot:
		simulateShot(tick, world, id, a, arena, sink)
	}
}

// RewriteSpawnID gives Shot(0) spawns the fresh id Shot(seed).
func (App) RewriteSpawnID(requested ID, seed uint64) (ID, bool) {
	if requested != Shot(0) {
		return requested, false
	}
	return Shot(seed), true
}

func simulateGame(tick engine.Tick, world table.View[ID, Entity], g Game, sink *event.CombinedSink[Op, Event]) {
	player, ok := world.Get(PlayerID)
	if !ok {
		sink.Routed.Push(Spawn(PlayerID, NewPlayer(g.Arena)))
		return
	}

	if countRange(world, AllRocks) > 0 {
		return
	}

	for _, rock := range Wave(g, tick.Number, player.Actor.Pos) {
		sink.Routed.Push(Spawn(rock.ID, rock.Value))
	}
	sink.Self.Push(Op{Op: OpLevelUp})
	sink.Routed.Push(Emit(Sound{Kind: SoundLevel}))
}

func simulatePlayer(tick engine.Tick, world table.View[ID, Entity], a Actor, arena Vec2, sink *event.CombinedSink[Op, Event]) {
	if _, hit := firstOverlap(world, AllRocks, a, arena); hit {
		sink.Routed.Push(Delete(PlayerID))
		sink.Routed.Push(DeleteRange(AllShots[0], AllShots[1]))
		sink.Routed.Push(Emit(Sound{Kind: SoundDeath}))
		return
	}

	switch {
	case a.Fire && a.Cooldown <= 0:
		sink.Routed.Push(Spawn(Shot(0), NewShot(a)))
		sink.Routed.Push(Emit(Sound{Kind: SoundFire}))
		sink.Self.Push(Op{Op: OpCooldown, Value: PlayerShotTime})
	case a.Cooldown > 0:
		sink.Self.Push(Op{Op: OpCooldown, Value: math.Max(0, a.Cooldown-tick.Duration)})
	}
}

func simulateShot(tick engine.Tick, world table.View[ID, Entity], id ID, a Actor, arena Vec2, sink *event.CombinedSink[Op, Event]) {
	if rock, hit := firstOverlap(world, AllRocks, a, arena); hit {
		sink.Routed.Push(Delete(id))
		sink.Routed.Push(Delete(rock))
		sink.Routed.Push(Target(GameID, Op{Op: OpScore}))
		sink.Routed.Push(Emit(Sound{Kind: SoundExplode}))
		return
	}

	life := a.Life - tick.Duration
	if life <= 0 {
		sink.Routed.Push(Delete(id))
		return
	}
	sink.Self.Push(Op{Op: OpLife, Value: life})
}

// Physics integrates one actor over dt seconds: velocity is clamped,
// thrust accelerates along the facing, position wraps at the arena edge.
func Physics(a Actor, dt float64, arena Vec2) Op {
	vel := a.Velocity.Clamp(MaxVel)
	var accel Vec2
	if a.Thrust {
		accel = Heading(a.Facing).Scale(PlayerThrust)
	}
	return Op{
		Op:       OpPhysics,
		Velocity: vel.Add(accel.Scale(dt)),
		Facing:   a.Facing + a.RVel*dt,
		Position: a.Pos.Add(vel.Scale(dt)).Wrap(arena.X, arena.Y),
	}
}

// Overlaps reports whether two actors' bounding circles intersect,
// measured across the arena edges.
func Overlaps(a, b Actor, arena Vec2) bool {
	d := WrappedDelta(a.Pos, b.Pos, arena.X, arena.Y)
	return d.Len() < (a.Size+b.Size)/2
}

func firstOverlap(world table.View[ID, Entity], r [2]ID, a Actor, arena Vec2) (ID, bool) {
	for id, other := range world.Range(r[0], r[1]) {
		if Overlaps(a, other.Actor, arena) {
			return id, true
		}
	}
	return ID{}, false
}

func countRange(world table.View[ID, Entity], r [2]ID) int {
	n := 0
	for range world.Range(r[0], r[1]) {
		n++
	}
	return n
}

// NewPlayer returns a player at the centre of the arena, facing up.
func NewPlayer(arena Vec2) Entity {
	return Entity{Actor: Actor{
		Pos:  arena.Scale(0.5),
		Size: PlayerSize,
		Life: PlayerLife,
	}}
}

// NewShot returns a shot fired by player along its facing.
func NewShot(player Actor) Entity {
	dir := Heading(player.Facing)
	return Entity{Actor: Actor{
		Pos:      player.Pos.Add(dir.Scale(player.Size / 2)),
		Velocity: player.Velocity.Add(dir.Scale(ShotSpeed)),
		Facing:   player.Facing,
		RVel:     ShotRVel,
		Size:     ShotSize,
		Life:     ShotLife,
	}}
}

// Wave returns the rocks of the wave that follows g.Level, placed in a
// ring around center. The same game, tick and centre always produce the
// same wave.
func Wave(g Game, tick uint64, center Vec2) []table.Entry[ID, Entity] {
	rng := rand.New(rand.NewPCG(g.Seed, tick<<16^g.Level))

	short := math.Min(g.Arena.X, g.Arena.Y)
	minR, maxR := short*WaveMinRadius, short*WaveMaxRadius

	n := g.Level + WaveBase
	rocks := make([]table.Entry[ID, Entity], 0, n)
	for i := range n {
		angle := rng.Float64() * 2 * math.Pi
		dist := minR + rng.Float64()*(maxR-minR)
		heading := rng.Float64() * 2 * math.Pi
		speed := rng.Float64() * MaxRockVel

		rocks = append(rocks, table.Entry[ID, Entity]{
			ID: Rock(i),
			Value: Entity{Actor: Actor{
				Pos:      center.Add(Heading(angle).Scale(dist)).Wrap(g.Arena.X, g.Arena.Y),
				Velocity: Heading(heading).Scale(speed),
				Size:     RockSize,
				Life:     RockLife,
			}},
		})
	}
	return rocks
}

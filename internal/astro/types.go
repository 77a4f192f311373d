package astro

import (
	"fmt"

	"github.com/roach88/lockstep/internal/engine"
	"github.com/roach88/lockstep/internal/event"
	"github.com/roach88/lockstep/internal/table"
)

// Name identifies the application in journals.
const Name = "astro"

// Game is the singleton bookkeeping entity. It carries the arena size and
// wave seed so a recorded run replays without outside configuration.
type Game struct {
	Level uint64 `json:"level"`
	Score uint64 `json:"score"`
	Arena Vec2   `json:"arena"`
	Seed  uint64 `json:"seed"`
}

// Actor is a player, rock or shot.
type Actor struct {
	Pos      Vec2    `json:"pos"`
	Velocity Vec2    `json:"velocity"`
	Facing   float64 `json:"facing"`
	RVel     float64 `json:"rvel"`
	Size     float64 `json:"size"`
	// Life is seconds left for shots and hit points otherwise.
	Life     float64 `json:"life"`
	Thrust   bool    `json:"thrust,omitempty"`
	Fire     bool    `json:"fire,omitempty"`
	Cooldown float64 `json:"cooldown,omitempty"`
}

// Entity holds a Game for GameID and an Actor for every other id.
type Entity struct {
	Game  Game  `json:"game,omitzero"`
	Actor Actor `json:"actor,omitzero"`
}

// Op names.
const (
	OpControls = "controls"
	OpPhysics  = "physics"
	OpLife     = "life"
	OpCooldown = "cooldown"
	OpLevelUp  = "level_up"
	OpScore    = "score"
)

// Op is the payload folded into an entity. Only the fields relevant to
// Op are set.
type Op struct {
	Op string `json:"op"`

	RVel   float64 `json:"rvel,omitempty"`
	Thrust bool    `json:"thrust,omitempty"`
	Fire   bool    `json:"fire,omitempty"`

	Velocity Vec2    `json:"velocity,omitzero"`
	Facing   float64 `json:"facing,omitempty"`
	Position Vec2    `json:"position,omitzero"`

	Value float64 `json:"value,omitempty"`
}

func (o Op) String() string {
	switch o.Op {
	case OpControls:
		return fmt.Sprintf("controls(rvel=%g thrust=%t fire=%t)", o.RVel, o.Thrust, o.Fire)
	case OpLife, OpCooldown:
		return fmt.Sprintf("%s(%g)", o.Op, o.Value)
	default:
		return o.Op
	}
}

// Controls is the player's input state for one frame.
type Controls struct {
	RVel   float64
	Thrust bool
	Fire   bool
}

// Op converts c to its payload.
func (c Controls) Op() Op {
	return Op{Op: OpControls, RVel: c.RVel, Thrust: c.Thrust, Fire: c.Fire}
}

// SoundKind names a sound effect.
type SoundKind string

const (
	SoundFire    SoundKind = "fire"
	SoundExplode SoundKind = "explode"
	SoundDeath   SoundKind = "death"
	SoundLevel   SoundKind = "level"
)

// Sound is the broadcast type: an effect for the audio collaborator.
type Sound struct {
	Kind SoundKind `json:"kind"`
}

// Type aliases for the astro instantiation of the generic core.
type (
	Event     = event.Event[ID, Entity, Op, Sound]
	Table     = table.Table[ID, Entity]
	View      = table.View[ID, Entity]
	Scheduler = engine.Scheduler[ID, Entity, Op, Sound]
)

// Event constructors.
var (
	Shutdown    = event.Shutdown[ID, Entity, Op, Sound]
	Spawn       = event.Spawn[ID, Entity, Op, Sound]
	Delete      = event.Delete[ID, Entity, Op, Sound]
	DeleteRange = event.DeleteRange[ID, Entity, Op, Sound]
	Target      = event.Target[ID, Entity, Op, Sound]
	Emit        = event.Emit[ID, Entity, Op, Sound]
)

package event

import "fmt"

// Kind tags the variant carried by an Event.
type Kind int

const (
	// KindShutdown stops the scheduler once the current tick is reconciled.
	KindShutdown Kind = iota + 1
	// KindSpawn inserts an entity (possibly at a rewritten id).
	KindSpawn
	// KindDelete removes the entity at an id, if present.
	KindDelete
	// KindDeleteRange removes every entity with From <= id <= To.
	KindDeleteRange
	// KindTargeted delivers a payload to one entity through the fold.
	KindTargeted
	// KindBroadcast carries an opaque value to presentation collaborators.
	KindBroadcast
)

var kindNames = map[Kind]string{
	KindShutdown:    "shutdown",
	KindSpawn:       "spawn",
	KindDelete:      "delete",
	KindDeleteRange: "delete_range",
	KindTargeted:    "targeted",
	KindBroadcast:   "broadcast",
}

// String returns the stable lower-case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown event kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Event is one directive emitted by a transition or an input collaborator.
//
// Only the fields relevant to Kind are meaningful:
//
//	Shutdown             -
//	Spawn(ID, Entity)    ID, Entity
//	Delete(ID)           ID
//	DeleteRange(ID, To)  ID is the lower bound, To the upper (both inclusive)
//	Targeted(ID, ...)    ID, Payload
//	Broadcast(...)       Broadcast
type Event[Id, Entity, Payload, Broadcast any] struct {
	Kind      Kind      `json:"kind"`
	ID        Id        `json:"id"`
	To        Id        `json:"to"`
	Entity    Entity    `json:"entity"`
	Payload   Payload   `json:"payload"`
	Broadcast Broadcast `json:"broadcast"`
}

// String renders the event for logs.
func (e Event[Id, Entity, Payload, Broadcast]) String() string {
	switch e.Kind {
	case KindShutdown:
		return "shutdown"
	case KindSpawn:
		return fmt.Sprintf("spawn(%v)", e.ID)
	case KindDelete:
		return fmt.Sprintf("delete(%v)", e.ID)
	case KindDeleteRange:
		return fmt.Sprintf("delete_range(%v..%v)", e.ID, e.To)
	case KindTargeted:
		return fmt.Sprintf("targeted(%v, %v)", e.ID, e.Payload)
	case KindBroadcast:
		return fmt.Sprintf("broadcast(%v)", e.Broadcast)
	default:
		return e.Kind.String()
	}
}

// Shutdown builds a shutdown directive.
func Shutdown[Id, Entity, Payload, Broadcast any]() Event[Id, Entity, Payload, Broadcast] {
	return Event[Id, Entity, Payload, Broadcast]{Kind: KindShutdown}
}

// Spawn builds a spawn directive for entity at id.
func Spawn[Id, Entity, Payload, Broadcast any](id Id, entity Entity) Event[Id, Entity, Payload, Broadcast] {
	return Event[Id, Entity, Payload, Broadcast]{Kind: KindSpawn, ID: id, Entity: entity}
}

// Delete builds a delete directive.
func Delete[Id, Entity, Payload, Broadcast any](id Id) Event[Id, Entity, Payload, Broadcast] {
	return Event[Id, Entity, Payload, Broadcast]{Kind: KindDelete, ID: id}
}

// DeleteRange builds a closed-range delete directive.
func DeleteRange[Id, Entity, Payload, Broadcast any](from, to Id) Event[Id, Entity, Payload, Broadcast] {
	return Event[Id, Entity, Payload, Broadcast]{Kind: KindDeleteRange, ID: from, To: to}
}

// Target builds a targeted directive delivering payload to id.
func Target[Id, Entity, Payload, Broadcast any](id Id, payload Payload) Event[Id, Entity, Payload, Broadcast] {
	return Event[Id, Entity, Payload, Broadcast]{Kind: KindTargeted, ID: id, Payload: payload}
}

// Emit builds a broadcast directive.
func Emit[Id, Entity, Payload, Broadcast any](b Broadcast) Event[Id, Entity, Payload, Broadcast] {
	return Event[Id, Entity, Payload, Broadcast]{Kind: KindBroadcast, Broadcast: b}
}

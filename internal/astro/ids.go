package astro

import (
	"cmp"
	"fmt"
	"math"
)

// IDKind orders ids by kind before number.
type IDKind uint8

const (
	KindGame IDKind = iota
	KindPlayer
	KindRock
	KindShot
)

var idKindNames = [...]string{"game", "player", "rock", "shot"}

func (k IDKind) String() string {
	if int(k) < len(idKindNames) {
		return idKindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ID identifies an entity. Ordering is Game < Player < Rock(n) < Shot(n).
type ID struct {
	Kind IDKind `json:"kind"`
	N    uint64 `json:"n"`
}

var (
	GameID   = ID{Kind: KindGame}
	PlayerID = ID{Kind: KindPlayer}
)

// Rock returns the id of rock n.
func Rock(n uint64) ID { return ID{Kind: KindRock, N: n} }

// Shot returns the id of shot n. Shot(0) requests a fresh id on spawn.
func Shot(n uint64) ID { return ID{Kind: KindShot, N: n} }

// Id ranges, both bounds inclusive.
var (
	AllRocks = [2]ID{Rock(0), Rock(math.MaxUint64)}
	AllShots = [2]ID{Shot(0), Shot(math.MaxUint64)}
)

// CompareIDs orders ids by kind, then number.
func CompareIDs(a, b ID) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.N, b.N)
}

func (id ID) String() string {
	switch id.Kind {
	case KindGame, KindPlayer:
		return id.Kind.String()
	default:
		return fmt.Sprintf("%s(%d)", id.Kind, id.N)
	}
}

package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/lockstep/internal/table"
)

// Domain prefixes. The version suffix allows the canonical form to change
// without old and new digests ever colliding.
const (
	DomainTable = "lockstep/table/v1"
	DomainInput = "lockstep/input/v1"
)

// Sum computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null separator prevents domain/data boundary ambiguity.
func Sum(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Table hashes the table's entries in iteration order, rendered as
// [[id, entity], ...].
func Table[K, V any](view table.View[K, V]) (string, error) {
	pairs := make([]any, 0, view.Len())
	for id, entity := range view.All() {
		pairs = append(pairs, [2]any{id, entity})
	}

	canonical, err := MarshalCanonical(pairs)
	if err != nil {
		return "", fmt.Errorf("digest table: %w", err)
	}
	return Sum(DomainTable, canonical), nil
}

// Events hashes an ordered input batch.
func Events[E any](events []E) (string, error) {
	if events == nil {
		events = []E{}
	}
	canonical, err := MarshalCanonical(events)
	if err != nil {
		return "", fmt.Errorf("digest events: %w", err)
	}
	return Sum(DomainInput, canonical), nil
}

// MustTable is like Table but panics on error.
// Use only in tests or when entities are known to encode.
func MustTable[K, V any](view table.View[K, V]) string {
	d, err := Table(view)
	if err != nil {
		panic(err)
	}
	return d
}

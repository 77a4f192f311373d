// Package table provides the ordered entity table the scheduler advances.
//
// Entities are keyed by an application-defined identifier ordered by a
// comparator. Iteration is always in ascending id order so that two runs
// with the same inputs visit entities identically.
package table

import (
	"cmp"
	"iter"

	"github.com/google/btree"
)

// degree is the btree node fan-out. Tables hold hundreds to low thousands
// of entities; 32 keeps nodes cache friendly.
const degree = 32

// Entry is one (id, entity) pair.
type Entry[K, V any] struct {
	ID    K `json:"id"`
	Value V `json:"value"`
}

// View is read-only access to a table. Transitions and collaborators only
// ever receive a View.
type View[K, V any] interface {
	Get(id K) (V, bool)
	Range(from, to K) iter.Seq2[K, V]
	All() iter.Seq2[K, V]
	Len() int
}

// Table is an ordered mapping from id to entity.
//
// Not safe for concurrent mutation. Clone returns an independent snapshot
// that shares structure copy-on-write with the original.
type Table[K, V any] struct {
	tree    *btree.BTreeG[Entry[K, V]]
	compare func(a, b K) int
}

// New creates an empty table ordered by compare. Ids for which compare
// returns 0 name the same entity.
func New[K, V any](compare func(a, b K) int) *Table[K, V] {
	less := func(a, b Entry[K, V]) bool {
		return compare(a.ID, b.ID) < 0
	}
	return &Table[K, V]{
		tree:    btree.NewG[Entry[K, V]](degree, less),
		compare: compare,
	}
}

// NewOrdered creates an empty table for naturally ordered keys.
func NewOrdered[K cmp.Ordered, V any]() *Table[K, V] {
	return New[K, V](cmp.Compare[K])
}

// FromEntries creates a table ordered by compare holding entries. Later
// entries overwrite earlier ones with the same id.
func FromEntries[K, V any](compare func(a, b K) int, entries ...Entry[K, V]) *Table[K, V] {
	t := New[K, V](compare)
	for _, e := range entries {
		t.Insert(e.ID, e.Value)
	}
	return t
}

// Compare exposes the table's key ordering.
func (t *Table[K, V]) Compare(a, b K) int {
	return t.compare(a, b)
}

// Get returns the entity at id.
func (t *Table[K, V]) Get(id K) (V, bool) {
	e, ok := t.tree.Get(Entry[K, V]{ID: id})
	return e.Value, ok
}

// Insert stores v at id, overwriting any previous entity. It returns the
// previous entity and whether one existed.
func (t *Table[K, V]) Insert(id K, v V) (V, bool) {
	prev, replaced := t.tree.ReplaceOrInsert(Entry[K, V]{ID: id, Value: v})
	return prev.Value, replaced
}

// Remove deletes the entity at id and returns it.
func (t *Table[K, V]) Remove(id K) (V, bool) {
	e, ok := t.tree.Delete(Entry[K, V]{ID: id})
	return e.Value, ok
}

// Len returns the number of entities.
func (t *Table[K, V]) Len() int {
	return t.tree.Len()
}

// All yields every entry in ascending id order.
func (t *Table[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		t.tree.Ascend(func(e Entry[K, V]) bool {
			return yield(e.ID, e.Value)
		})
	}
}

// Range yields entries with from <= id <= to in ascending order. An
// inverted range yields nothing.
func (t *Table[K, V]) Range(from, to K) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if t.compare(from, to) > 0 {
			return
		}
		t.tree.AscendGreaterOrEqual(Entry[K, V]{ID: from}, func(e Entry[K, V]) bool {
			if t.compare(e.ID, to) > 0 {
				return false
			}
			return yield(e.ID, e.Value)
		})
	}
}

// RangeKeys materialises the ids in [from, to]. Callers that delete a range
// collect keys first and remove afterwards.
func (t *Table[K, V]) RangeKeys(from, to K) []K {
	var keys []K
	for id := range t.Range(from, to) {
		keys = append(keys, id)
	}
	return keys
}

// Keys returns every id in ascending order.
func (t *Table[K, V]) Keys() []K {
	keys := make([]K, 0, t.Len())
	for id := range t.All() {
		keys = append(keys, id)
	}
	return keys
}

// Entries returns every entry in ascending order.
func (t *Table[K, V]) Entries() []Entry[K, V] {
	out := make([]Entry[K, V], 0, t.Len())
	for id, v := range t.All() {
		out = append(out, Entry[K, V]{ID: id, Value: v})
	}
	return out
}

// Clone returns a snapshot. Subsequent writes to either table are not
// visible in the other. Entities themselves are copied by value, so entity
// types holding pointers, maps or slices share that substructure.
func (t *Table[K, V]) Clone() *Table[K, V] {
	return &Table[K, V]{
		tree:    t.tree.Clone(),
		compare: t.compare,
	}
}

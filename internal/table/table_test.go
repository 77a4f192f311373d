package table

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableOfTen() *Table[int, string] {
	t := NewOrdered[int, string]()
	for i := 10; i >= 1; i-- {
		t.Insert(i, strings.Repeat("x", i))
	}
	return t
}

func TestTable_InsertGetRemove(t *testing.T) {
	tbl := NewOrdered[int, string]()

	_, replaced := tbl.Insert(1, "a")
	assert.False(t, replaced)

	prev, replaced := tbl.Insert(1, "b")
	assert.True(t, replaced)
	assert.Equal(t, "a", prev)

	v, ok := tbl.Get(1)
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = tbl.Get(2)
	assert.False(t, ok)

	removed, ok := tbl.Remove(1)
	assert.True(t, ok)
	assert.Equal(t, "b", removed)
	assert.Equal(t, 0, tbl.Len())

	_, ok = tbl.Remove(1)
	assert.False(t, ok, "removing a missing id is a no-op")
}

func TestTable_AllIsOrdered(t *testing.T) {
	tbl := tableOfTen()
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, tbl.Keys())
	assert.Equal(t, 10, tbl.Len())
}

func TestTable_RangeInclusive(t *testing.T) {
	tbl := tableOfTen()

	var got []int
	for id := range tbl.Range(3, 7) {
		got = append(got, id)
	}
	assert.Equal(t, []int{3, 4, 5, 6, 7}, got)

	assert.Equal(t, []int{10}, tbl.RangeKeys(10, 20))
	assert.Empty(t, tbl.RangeKeys(11, 20))
	assert.Empty(t, tbl.RangeKeys(7, 3), "inverted range is empty")
	assert.Equal(t, []int{5}, tbl.RangeKeys(5, 5))
}

func TestTable_RangeStopsEarly(t *testing.T) {
	tbl := tableOfTen()

	var got []int
	for id := range tbl.Range(1, 10) {
		got = append(got, id)
		if id == 4 {
			break
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4}, got)
}

func TestTable_TwoPhaseRangeDelete(t *testing.T) {
	tbl := tableOfTen()

	for _, id := range tbl.RangeKeys(3, 7) {
		tbl.Remove(id)
	}
	assert.Equal(t, []int{1, 2, 8, 9, 10}, tbl.Keys())
}

func TestTable_CloneIsolation(t *testing.T) {
	orig := tableOfTen()
	snap := orig.Clone()

	orig.Remove(1)
	orig.Insert(11, "new")
	snap.Insert(2, "changed")

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, snap.Keys())
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, orig.Keys())

	v, _ := orig.Get(2)
	assert.Equal(t, "xx", v)
	v, _ = snap.Get(2)
	assert.Equal(t, "changed", v)
}

func TestTable_CustomComparator(t *testing.T) {
	type id struct {
		kind int
		n    int
	}
	compare := func(a, b id) int {
		if a.kind != b.kind {
			return a.kind - b.kind
		}
		return a.n - b.n
	}

	tbl := FromEntries(compare,
		Entry[id, string]{ID: id{2, 1}, Value: "shot"},
		Entry[id, string]{ID: id{1, 5}, Value: "rock5"},
		Entry[id, string]{ID: id{1, 2}, Value: "rock2"},
		Entry[id, string]{ID: id{0, 0}, Value: "game"},
	)

	var values []string
	for _, v := range tbl.Range(id{1, 0}, id{1, 100}) {
		values = append(values, v)
	}
	assert.Equal(t, []string{"rock2", "rock5"}, values)

	entries := tbl.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, "game", entries[0].Value)
	assert.Equal(t, "shot", entries[3].Value)
}

func TestTable_ImplementsView(t *testing.T) {
	var v View[int, string] = tableOfTen()
	assert.Equal(t, 10, v.Len())
}

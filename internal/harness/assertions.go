package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// defaultAlphaTolerance absorbs float formatting of the alpha factor only;
// tick counts are exact.
const defaultAlphaTolerance = 1e-9

// EvaluateExpect checks the result against every set expectation and
// returns one message per failure.
func EvaluateExpect(r *Result, e Expect) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if e.Ticks != nil && r.Ticks != *e.Ticks {
		fail("ticks: expected %d, actual %d", *e.Ticks, r.Ticks)
	}
	if e.Tick != nil && r.Tick != *e.Tick {
		fail("tick: expected %d, actual %d", *e.Tick, r.Tick)
	}
	if e.Alpha != nil {
		tol := e.AlphaTolerance
		if tol == 0 {
			tol = defaultAlphaTolerance
		}
		if math.Abs(r.Alpha-*e.Alpha) > tol {
			fail("alpha: expected %g (±%g), actual %g", *e.Alpha, tol, r.Alpha)
		}
	}
	if e.Halted != nil && r.Halted != *e.Halted {
		fail("halted: expected %t, actual %t", *e.Halted, r.Halted)
	}
	if e.Entities != nil && !slices.Equal(r.Final, e.Entities) {
		fail("entities: expected %s, actual %s", formatEntities(e.Entities), formatEntities(r.Final))
	}
	if e.Broadcasts != nil && !slices.Equal(r.Broadcasts, e.Broadcasts) {
		fail("broadcasts: expected %q, actual %q", e.Broadcasts, r.Broadcasts)
	}
	if e.Dangling != nil && r.Dangling != *e.Dangling {
		fail("dangling: expected %d, actual %d", *e.Dangling, r.Dangling)
	}
	if e.Seed != nil && r.Seed != *e.Seed {
		fail("seed: expected %d, actual %d", *e.Seed, r.Seed)
	}

	return errs
}

func formatEntities(es []EntityState) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = fmt.Sprintf("%d:%d", e.ID, e.Count)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

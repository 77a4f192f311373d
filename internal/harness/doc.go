// Package harness runs YAML conformance scenarios against the counter
// application.
//
// A scenario fixes the tick rate, the counter knobs and the initial table,
// then feeds a sequence of frames: either a wall-clock delta (converted
// into ticks by the accumulator) or an exact number of forced steps, each
// with the inputs injected before it. Expectations are checked against the
// final scheduler state.
//
// Every scenario is also recorded into an in-memory journal and replayed;
// a replay that does not reproduce every checkpoint digest fails the
// scenario. This checks the determinism law on every scenario for free.
//
// # Golden traces
//
// RunWithGolden renders the per-frame and per-tick trace as canonical JSON
// lines and compares it with testdata/golden/<name>.golden. To regenerate:
//
//	go test ./internal/harness -update
package harness

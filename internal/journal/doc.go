// Package journal provides SQLite-backed recording and replay of scheduler
// runs.
//
// A journal holds, per run:
//   - Runs: the initial table, tick rate and allocator seed
//   - Inputs: every externally injected event, tagged with the number of
//     ticks completed when it was injected
//   - Checkpoints: the digest of the table after every committed tick
//
// # Determinism
//
// Replaying a run rebuilds the scheduler from the stored initial table,
// injects each recorded input at the same tick boundary and compares every
// resulting digest with the stored checkpoint. Wall time is never stored
// for ordering: all queries order by (tick, seq).
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait up to 5s for locks
//   - foreign_keys=ON: inputs and checkpoints reference their run
package journal

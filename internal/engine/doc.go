// Package engine implements the fixed-timestep scheduler at the heart of
// lockstep.
//
// The scheduler owns an ordered entity table and advances it one tick at a
// time by calling an application's transitions. Transitions never mutate
// the table: they read an immutable snapshot and declare effects through
// sinks. The scheduler is the only writer.
//
// ARCHITECTURE:
//
// Two time domains:
// Wall-clock time feeds an accumulator once per frame. Simulation time
// advances in whole ticks of 1/tick_rate seconds while the accumulator
// holds at least one tick. Transitions only ever see the fixed tick
// duration, never the frame delta, so the sequence of tables depends on
// inputs and tick boundaries alone.
//
// Tick Processing Flow:
//  1. Snapshot the table (copy-on-write clone)
//  2. Pre-apply last tick's routed events to the snapshot in emission order:
//     shutdown, spawn, delete, delete_range, broadcast; targeted events are
//     grouped per id
//  3. For each entity in ascending id order: fold its targeted events,
//     simulate against the unmodified snapshot, fold its self events, and
//     insert the result into the next table
//  4. Swap the next table in and advance the tick counter
//
// Routed events produced during tick N are reconciled at the start of tick
// N+1. Self events take effect within the same tick.
//
// Failure model:
// A fold that returns an error is logged and dropped. A transition panic
// aborts the tick: the table, pending events and id allocator are left as
// they were before the tick and the scheduler halts with a RuntimeError.
// Shutdown is observed only at tick boundaries.
//
// The Runner drives the outer frame loop against external collaborators
// (input, broadcast sinks, presenter). Collaborators may run their own
// goroutines; they talk to the core through bounded mailboxes drained once
// per frame.
package engine

package engine

import (
	"github.com/roach88/lockstep/internal/event"
	"github.com/roach88/lockstep/internal/table"
)

// App is the transition contract an embedding application implements.
//
// Both methods must be pure, non-blocking computations over their inputs.
// Neither receives a mutable handle to the table: every cross-entity
// effect goes through the sinks.
type App[Id comparable, Entity, Payload, Broadcast any] interface {
	// Fold applies one payload to one entity in place. It may push further
	// routed events to sink. Returning an error (ErrUnhandled for unknown
	// combinations) is a soft failure: it is logged and the tick goes on.
	Fold(payload Payload, id Id, entity *Entity, sink *event.Sink[event.Event[Id, Entity, Payload, Broadcast]]) error

	// Simulate computes one entity's self events and routed events for the
	// tick, given read-only access to the whole snapshot.
	Simulate(tick Tick, world table.View[Id, Entity], id Id, entity Entity, sink *event.CombinedSink[Payload, event.Event[Id, Entity, Payload, Broadcast]])
}

// SpawnRewriter is implemented by apps that want spawns to receive fresh
// ids. RewriteSpawnID returns the id to use and true to consume seed, or
// false to keep the requested id (the seed is not consumed).
type SpawnRewriter[Id any] interface {
	RewriteSpawnID(requested Id, seed uint64) (Id, bool)
}

// AppFuncs adapts plain functions to App. Handy for tests and small apps.
type AppFuncs[Id comparable, Entity, Payload, Broadcast any] struct {
	FoldFunc     func(payload Payload, id Id, entity *Entity, sink *event.Sink[event.Event[Id, Entity, Payload, Broadcast]]) error
	SimulateFunc func(tick Tick, world table.View[Id, Entity], id Id, entity Entity, sink *event.CombinedSink[Payload, event.Event[Id, Entity, Payload, Broadcast]])
}

// Fold calls FoldFunc, reporting ErrUnhandled when it is nil.
func (a AppFuncs[Id, Entity, Payload, Broadcast]) Fold(payload Payload, id Id, entity *Entity, sink *event.Sink[event.Event[Id, Entity, Payload, Broadcast]]) error {
	if a.FoldFunc == nil {
		return ErrUnhandled
	}
	return a.FoldFunc(payload, id, entity, sink)
}

// Simulate calls SimulateFunc when set.
func (a AppFuncs[Id, Entity, Payload, Broadcast]) Simulate(tick Tick, world table.View[Id, Entity], id Id, entity Entity, sink *event.CombinedSink[Payload, event.Event[Id, Entity, Payload, Broadcast]]) {
	if a.SimulateFunc != nil {
		a.SimulateFunc(tick, world, id, entity, sink)
	}
}

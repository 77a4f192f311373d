// Package event defines the closed set of directives a transition may emit
// and the sinks used to collect them.
//
// Events are split by destination. Self events are payloads an entity
// applies to itself within the same tick; routed events go through the
// scheduler's global queue and are reconciled at the next tick boundary.
//
// Sinks never filter or deduplicate. Push order is emission order, and the
// scheduler relies on it: two events targeting the same entity are folded
// in the order they were pushed.
package event

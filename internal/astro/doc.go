// Package astro is an asteroids game written as lockstep transitions.
//
// Every entity is either the Game bookkeeping singleton or an Actor
// (player, rock or shot). Actors integrate their own physics through self
// events; cross-entity effects (spawning waves and shots, collisions,
// scoring) are routed events and land one tick later. Sounds are
// broadcasts for the audio collaborator.
package astro

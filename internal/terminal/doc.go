// Package terminal connects the astro demo to a tcell screen: Input turns
// key presses into player controls and Presenter draws the arena.
//
// Terminals report key presses but not releases, so Input latches each
// action for a short hold window after its last press. Holding a key
// triggers the terminal's auto-repeat, which keeps the latch alive.
package terminal

// Package engine implements the scene-stack interpreter that drives a
// story run: it evaluates steps against a player-facing handler, applies
// scene transitions, and keeps the entire run resumable through encoded
// status snapshots.
//
// The engine never renders anything and never inspects the game's world
// state. It owns three things: the script ledger, the scene stack, and
// the contract through which it suspends for player input.
package engine

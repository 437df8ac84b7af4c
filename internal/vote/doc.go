// Package vote implements the two-option ballot: reading both counters,
// validating a submitted value and applying a vote or a reset.
//
// Increment atomicity is left to the store. The service holds no locks and
// no per-request state, so a single Service is shared by all handlers.
package vote

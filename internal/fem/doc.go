// Package fem holds the format-neutral finite-element model shared by the
// deck reader, the deck emitter and the result readers.
//
// This package contains type definitions and small invariant checks only.
// Every other internal package imports fem; fem imports nothing internal.
//
// Key design constraints:
//   - Optional material and property fields are pointers; nil means the deck
//     never defined them, which is distinct from zero
//   - Maps are keyed by id; emission order comes from the sorted id accessors
//   - Canonical JSON renders floats as shortest round-trip strings so that
//     fingerprints are bit exact
//   - Errors carry a Code and enough position context to diagnose the input
package fem

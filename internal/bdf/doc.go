// Package bdf reads Nastran bulk data decks into the canonical model.
//
// The reader understands a fixed set of cards (grids, the common line,
// shell and solid elements, MAT1/MAT8 materials, the matching properties)
// and tallies load, constraint and coordinate cards without modelling them.
// Any other card is skipped and counted in Result.Skipped.
//
// # Deck layout
//
//	SOL 101          executive control (optional)
//	CEND
//	...              case control (ignored)
//	BEGIN BULK
//	GRID,1,,0.,0.,0.
//	ENDDATA
//
// A deck without BEGIN BULK is read as bulk data only and its solution is
// unknown.
//
// # Field formats
//
// Free field (comma separated), small field (8 columns) and large field
// (16 columns, card name ending in '*') are accepted. Continuation lines
// start with '+', '*' or a blank first field. '$' starts a comment.
// Free-field lines longer than eight data fields continue inline.
package bdf

// Package testutil provides fixtures shared by package tests: sample decks,
// solver stress listings and an OP2 archive builder.
//
// Nothing here is used outside tests.
package testutil

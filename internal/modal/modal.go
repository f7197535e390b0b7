// Package modal converts eigenvalues to natural frequencies.
package modal

import (
	"math"

	"github.com/roach88/deckbridge/internal/op2"
)

// Frequencies returns the natural frequency in Hz of each eigenvalue,
// f = sqrt(lambda) / (2 pi). Eigenvalues at or below zero, usually noise
// around rigid body modes, map to exactly 0. Output is positional.
func Frequencies(eigs []float64) []float64 {
	out := make([]float64, len(eigs))
	for i, lam := range eigs {
		if lam > 0 {
			out[i] = math.Sqrt(lam) / (2 * math.Pi)
		}
	}
	return out
}

// Mode is one row of a frequency table.
type Mode struct {
	Mode       int     `json:"mode"`
	Eigenvalue float64 `json:"eigenvalue"`
	Frequency  float64 `json:"frequency_hz"`
}

// FromResults builds the frequency table of an archive's eigenvalues,
// numbering modes from 1.
func FromResults(res *op2.Results) []Mode {
	freqs := Frequencies(res.Modal.Eigenvalues)
	modes := make([]Mode, len(freqs))
	for i, f := range freqs {
		modes[i] = Mode{Mode: i + 1, Eigenvalue: res.Modal.Eigenvalues[i], Frequency: f}
	}
	return modes
}

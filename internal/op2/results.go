package op2

import (
	"sort"

	"github.com/roach88/deckbridge/internal/fem"
)

// Category is a kind of result an archive may carry.
type Category string

const (
	Displacements Category = "displacements"
	Eigenvalues   Category = "eigenvalues"
	Eigenvectors  Category = "eigenvectors"
	Stresses      Category = "stresses"
)

// Categories lists every category in report order.
var Categories = []Category{Displacements, Eigenvalues, Eigenvectors, Stresses}

// ParseCategory maps a category name to a Category.
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// Results holds the first-subcase contents of an archive. Absent
// categories are empty collections.
type Results struct {
	Displacements []fem.DisplacementRecord
	Modal         fem.ModalResult
	Stresses      []fem.StressSample

	// Subcases records the subcase kept for each table read.
	Subcases map[string]int

	// IgnoredSubcases lists, per table, subcases that were skipped.
	IgnoredSubcases map[string][]int

	// SkippedTables lists tables the reader does not interpret, in file order.
	SkippedTables []string

	// UnsupportedElementTypes lists element type codes whose stress
	// entries were skipped, in file order.
	UnsupportedElementTypes []int
}

func newResults() *Results {
	return &Results{
		Modal:           fem.ModalResult{Eigenvalues: []float64{}, Eigenvectors: map[int][]float64{}},
		Displacements:   []fem.DisplacementRecord{},
		Stresses:        []fem.StressSample{},
		Subcases:        make(map[string]int),
		IgnoredSubcases: make(map[string][]int),
	}
}

// Stats is the result-read statistics payload.
type Stats struct {
	NumDisplacements int `json:"num_displacements"`
	NumStresses      int `json:"num_stresses"`
	NumEigenvalues   int `json:"num_eigenvalues"`
	NumEigenvectors  int `json:"num_eigenvectors"`
}

// Stats returns record counts.
func (r *Results) Stats() Stats {
	return Stats{
		NumDisplacements: len(r.Displacements),
		NumStresses:      len(r.Stresses),
		NumEigenvalues:   len(r.Modal.Eigenvalues),
		NumEigenvectors:  len(r.Modal.Eigenvectors),
	}
}

// Has reports whether the archive carried any record of category c.
func (r *Results) Has(c Category) bool {
	switch c {
	case Displacements:
		return len(r.Displacements) > 0
	case Eigenvalues:
		return len(r.Modal.Eigenvalues) > 0
	case Eigenvectors:
		return len(r.Modal.Eigenvectors) > 0
	case Stresses:
		return len(r.Stresses) > 0
	}
	return false
}

// Require returns a DECODE error naming the first category in cats that
// the archive does not carry. Absent categories are only an error when a
// caller asks for them.
func (r *Results) Require(cats ...Category) error {
	for _, c := range cats {
		if !r.Has(c) {
			return fem.DecodeFailure(string(c), -1, "required result category %q is missing", c)
		}
	}
	return nil
}

// Modes returns the mode numbers that carry an eigenvector, ascending.
func (r *Results) Modes() []int {
	modes := make([]int, 0, len(r.Modal.Eigenvectors))
	for m := range r.Modal.Eigenvectors {
		modes = append(modes, m)
	}
	sort.Ints(modes)
	return modes
}

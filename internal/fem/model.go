package fem

import (
	"fmt"
	"slices"
	"sort"
)

// Node is a grid point. Ids are caller assigned and need not be contiguous.
type Node struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}

// Element is a finite element in the source dialect.
//
// Nodes keeps the deck order; it defines the local node numbering used by the
// analysis code and must never be reordered.
type Element struct {
	ID         int    `json:"id"`
	Type       string `json:"elem_type"`
	Nodes      []int  `json:"nodes"`
	PropertyID int    `json:"property_id"` // 0 when the card has no property

	// Inline holds section data for cards that carry it directly (CONROD).
	Inline *Property `json:"inline,omitempty"`
}

// Material is an isotropic or orthotropic material card.
type Material struct {
	ID      int      `json:"id"`
	Card    string   `json:"card"`
	Modulus *float64 `json:"elastic_modulus"`
	Shear   *float64 `json:"shear_modulus,omitempty"`
	Poisson *float64 `json:"poissons_ratio"`
	Density *float64 `json:"density"`
}

// Name is the target-dialect material name.
func (m Material) Name() string {
	return fmt.Sprintf("MAT%d", m.ID)
}

// Property is a section property card.
type Property struct {
	ID         int      `json:"id"`
	Type       string   `json:"property_type"`
	MaterialID *int     `json:"material_id"`
	Thickness  *float64 `json:"thickness"`
	Area       *float64 `json:"area"`
}

// Solution is the analysis solution code declared by the deck.
// Known is false when the deck declared none; the code is never guessed.
type Solution struct {
	Code  int  `json:"code"`
	Known bool `json:"known"`
}

// UnknownSolution is the solution of a deck without a SOL statement.
var UnknownSolution = Solution{}

// KnownSolution returns a declared solution code.
func KnownSolution(code int) Solution {
	return Solution{Code: code, Known: true}
}

func (s Solution) String() string {
	if !s.Known {
		return "unknown"
	}
	return fmt.Sprintf("%d", s.Code)
}

// Model is the canonical model built by a single parse pass.
type Model struct {
	Solution   Solution
	Nodes      map[int]Node
	Elements   map[int]Element
	Materials  map[int]Material
	Properties map[int]Property

	// Card tallies that are reported but not modelled.
	Loads   int
	SPCSets int
	MPCSets int
	Coords  int
}

// NewModel returns an empty model with an unknown solution.
func NewModel() *Model {
	return &Model{
		Solution:   UnknownSolution,
		Nodes:      make(map[int]Node),
		Elements:   make(map[int]Element),
		Materials:  make(map[int]Material),
		Properties: make(map[int]Property),
	}
}

// NodeIDs returns node ids in ascending order.
func (m *Model) NodeIDs() []int { return sortedKeys(m.Nodes) }

// ElementIDs returns element ids in ascending order.
func (m *Model) ElementIDs() []int { return sortedKeys(m.Elements) }

// MaterialIDs returns material ids in ascending order.
func (m *Model) MaterialIDs() []int { return sortedKeys(m.Materials) }

// PropertyIDs returns property ids in ascending order.
func (m *Model) PropertyIDs() []int { return sortedKeys(m.Properties) }

// ElementTypeCounts returns the number of elements per source type tag,
// sorted lexicographically by tag.
func (m *Model) ElementTypeCounts() []TypeCount {
	counts := make(map[string]int)
	for _, e := range m.Elements {
		counts[e.Type]++
	}
	out := make([]TypeCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TypeCount{Type: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// TypeCount is one row of an element type census.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Validate checks the referential invariants of the model.
// An element that references a missing node is a modelling error.
func (m *Model) Validate() error {
	for _, id := range m.ElementIDs() {
		e := m.Elements[id]
		for _, nid := range e.Nodes {
			if _, ok := m.Nodes[nid]; !ok {
				return &Error{
					Code:    ErrCodeParse,
					Card:    e.Type,
					Message: fmt.Sprintf("element %d references undefined node %d", e.ID, nid),
				}
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

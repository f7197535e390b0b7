package fem

// DisplacementRecord is the displacement of one node.
//
// Rotations stay zero when the source record carries fewer than six
// components; that is the lenient decode policy, not data loss.
type DisplacementRecord struct {
	NodeID int        `json:"node_id"`
	T      [3]float64 `json:"translation"`
	R      [3]float64 `json:"rotation"`
}

// ModalResult holds eigenvalues and mode shapes.
//
// Eigenvalues[i] is mode i+1. Eigenvectors is keyed by 1-based mode number
// and holds the flattened displacement components of the mode shape.
type ModalResult struct {
	Eigenvalues  []float64         `json:"eigenvalues"`
	Eigenvectors map[int][]float64 `json:"eigenvectors"`
}

// Component indexes a symmetric stress tensor in xx, yy, zz, xy, xz, yz order.
type Component int

const (
	XX Component = iota
	YY
	ZZ
	XY
	XZ
	YZ
)

// Components lists the tensor components in their fixed order.
var Components = [6]Component{XX, YY, ZZ, XY, XZ, YZ}

var componentNames = [6]string{"sxx", "syy", "szz", "sxy", "sxz", "syz"}

func (c Component) String() string {
	if c < 0 || int(c) >= len(componentNames) {
		return "s??"
	}
	return componentNames[c]
}

// ParseComponent maps "sxx".."syz" to a Component.
func ParseComponent(name string) (Component, bool) {
	for i, n := range componentNames {
		if n == name {
			return Component(i), true
		}
	}
	return 0, false
}

// StressSample is the stress tensor at one integration point of an element.
type StressSample struct {
	ElementID  int        `json:"element_id"`
	Point      int        `json:"point"`
	Components [6]float64 `json:"components"`
}

// Key identifies the sample location.
func (s StressSample) Key() SampleKey {
	return SampleKey{ElementID: s.ElementID, Point: s.Point}
}

// SampleKey is an (element, integration point) pair.
type SampleKey struct {
	ElementID int
	Point     int
}

package stress

import (
	"gonum.org/v1/gonum/mat"
)

// Symmetric expands xx, yy, zz, xy, xz, yz components into a 3x3 tensor.
func Symmetric(c [6]float64) *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		c[0], c[3], c[4],
		c[3], c[1], c[5],
		c[4], c[5], c[2],
	})
}

// Components packs a 3x3 tensor back into xx, yy, zz, xy, xz, yz order.
// Off-diagonal terms are averaged so round-off asymmetry does not leak.
func Components(s mat.Matrix) [6]float64 {
	return [6]float64{
		s.At(0, 0),
		s.At(1, 1),
		s.At(2, 2),
		(s.At(0, 1) + s.At(1, 0)) / 2,
		(s.At(0, 2) + s.At(2, 0)) / 2,
		(s.At(1, 2) + s.At(2, 1)) / 2,
	}
}

// ToGlobal rotates a local tensor into the global frame: R S R^T.
func ToGlobal(r mat.Matrix, local [6]float64) [6]float64 {
	var out mat.Dense
	out.Product(r, Symmetric(local), r.T())
	return Components(&out)
}

// ToLocal rotates a global tensor into the local frame: R^T S R.
func ToLocal(r mat.Matrix, global [6]float64) [6]float64 {
	var out mat.Dense
	out.Product(r.T(), Symmetric(global), r)
	return Components(&out)
}

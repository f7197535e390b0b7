package stress

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ParallelThreshold is the |ex . z| above which the axis counts as nearly
// parallel to global Z and the supplied normal fixes ey.
const ParallelThreshold = 0.9

// minLength is the shortest vector treated as non-zero.
const minLength = 1e-12

var globalZ = r3.Vec{Z: 1}

// ErrDegenerateFrame is returned when the inputs cannot span a frame.
var ErrDegenerateFrame = errors.New("degenerate frame")

// Frame is an orthonormal right-handed basis.
type Frame struct {
	X, Y, Z r3.Vec
}

// GlobalFrame is the identity basis.
var GlobalFrame = Frame{X: r3.Vec{X: 1}, Y: r3.Vec{Y: 1}, Z: globalZ}

// NewFrame builds the local frame of an element axis running from p1 to
// p2.
//
// ex is the unit axis. When the axis is nearly parallel to global Z, ey is
// the supplied normal with its ex component removed; otherwise ey is
// unit(ex x Z). ez is unit(ex x ey).
func NewFrame(p1, p2, normal r3.Vec) (Frame, error) {
	axis := r3.Sub(p2, p1)
	if r3.Norm(axis) < minLength {
		return Frame{}, errors.Join(ErrDegenerateFrame, errors.New("axis points coincide"))
	}
	ex := r3.Unit(axis)

	var ey r3.Vec
	if math.Abs(r3.Dot(ex, globalZ)) > ParallelThreshold {
		ortho := r3.Sub(normal, r3.Scale(r3.Dot(normal, ex), ex))
		if r3.Norm(ortho) < minLength {
			return Frame{}, errors.Join(ErrDegenerateFrame, errors.New("normal is zero or parallel to the axis"))
		}
		ey = r3.Unit(ortho)
	} else {
		ey = r3.Unit(r3.Cross(ex, globalZ))
	}
	ez := r3.Unit(r3.Cross(ex, ey))
	return Frame{X: ex, Y: ey, Z: ez}, nil
}

// Matrix returns R = [ex|ey|ez] with the basis vectors as columns.
func (f Frame) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		f.X.X, f.Y.X, f.Z.X,
		f.X.Y, f.Y.Y, f.Z.Y,
		f.X.Z, f.Y.Z, f.Z.Z,
	})
}

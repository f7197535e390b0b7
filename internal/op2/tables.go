package op2

import (
	"math"

	"github.com/roach88/deckbridge/internal/fem"
)

// identWords is the minimum IDENT record length, in words.
const identWords = 10

// ident holds the IDENT words the reader interprets.
type ident struct {
	Approach  int // approach code; the device code is stripped
	TableCode int
	ElemType  int
	Subcase   int
	Mode      int
	NumWide   int
}

func (d *decoder) ident(rec record) (ident, error) {
	if len(rec.payload) < identWords*4 {
		return ident{}, d.fail(rec.offset, "IDENT record has %d bytes, need at least %d", len(rec.payload), identWords*4)
	}
	w := func(i int) int { return d.word(rec.payload, i) }
	return ident{
		Approach:  w(0) / 10,
		TableCode: w(1),
		ElemType:  w(2),
		Subcase:   w(3),
		Mode:      w(4),
		NumWide:   w(9),
	}, nil
}

func (d *decoder) word(p []byte, i int) int {
	return int(int32(d.order.Uint32(p[4*i:])))
}

func (d *decoder) real(p []byte, i int) float64 {
	return float64(math.Float32frombits(d.order.Uint32(p[4*i:])))
}

type tableDecoder func(d *decoder, id ident, data record) error

var tableDecoders = map[string]tableDecoder{
	"OUGV1":  (*decoder).displacements,
	"BOUGV1": (*decoder).eigenvector,
	"LAMA":   (*decoder).eigenvalues,
	"OES1X":  (*decoder).stresses,
}

// entries checks that data splits into whole entries of width words and
// returns the entry count.
func (d *decoder) entries(data record, width int) (int, error) {
	size := width * 4
	if len(data.payload)%size != 0 {
		return 0, d.fail(data.offset, "DATA record of %d bytes is not a multiple of %d-word entries", len(data.payload), width)
	}
	return len(data.payload) / size, nil
}

// vectors decodes grid point vector entries: id*10+device, grid type, then
// up to six components. Missing components stay zero.
func (d *decoder) vectors(id ident, data record) ([]fem.DisplacementRecord, error) {
	if id.NumWide < 5 {
		return nil, d.fail(data.offset, "num_wide %d is too small for a translation vector", id.NumWide)
	}
	n, err := d.entries(data, id.NumWide)
	if err != nil {
		return nil, err
	}
	values := min(id.NumWide-2, 6)
	out := make([]fem.DisplacementRecord, n)
	for i := range out {
		entry := data.payload[i*id.NumWide*4:]
		rec := fem.DisplacementRecord{NodeID: d.word(entry, 0) / 10}
		for c := 0; c < values; c++ {
			v := d.real(entry, 2+c)
			if c < 3 {
				rec.T[c] = v
			} else {
				rec.R[c-3] = v
			}
		}
		out[i] = rec
	}
	return out, nil
}

func (d *decoder) displacements(id ident, data record) error {
	recs, err := d.vectors(id, data)
	if err != nil {
		return err
	}
	d.res.Displacements = append(d.res.Displacements, recs...)
	return nil
}

// eigenvector appends one mode shape. The IDENT mode word numbers it; a
// zero word falls back to one above the highest mode seen.
func (d *decoder) eigenvector(id ident, data record) error {
	recs, err := d.vectors(id, data)
	if err != nil {
		return err
	}
	mode := id.Mode
	if mode <= 0 {
		mode = 1
		for m := range d.res.Modal.Eigenvectors {
			mode = max(mode, m+1)
		}
	}
	flat := d.res.Modal.Eigenvectors[mode]
	for _, r := range recs {
		flat = append(flat, r.T[0], r.T[1], r.T[2], r.R[0], r.R[1], r.R[2])
	}
	d.res.Modal.Eigenvectors[mode] = flat
	return nil
}

// lamaWords is the entry width of the real eigenvalue table: mode,
// extraction order, eigenvalue, radians, cycles, generalized mass,
// generalized stiffness.
const lamaWords = 7

func (d *decoder) eigenvalues(_ ident, data record) error {
	n, err := d.entries(data, lamaWords)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		entry := data.payload[i*lamaWords*4:]
		d.res.Modal.Eigenvalues = append(d.res.Modal.Eigenvalues, d.real(entry, 2))
	}
	return nil
}

// solidNodes maps solid element type codes to the stress points written
// per element: the centroid followed by the corner grids.
var solidNodes = map[int]int{
	39:  5, // CTETRA
	67:  9, // CHEXA
	68:  7, // CPENTA
	255: 6, // CPYRAM
}

// Shell element types with two fibre points of plane stress.
var shellTypes = map[int]bool{
	33: true, // CQUAD4
	74: true, // CTRIA3
}

const (
	solidHeadWords = 4
	solidNodeWords = 21
	shellWords     = 17
	shellFibre     = 8
)

func (d *decoder) stresses(id ident, data record) error {
	if nodes, ok := solidNodes[id.ElemType]; ok {
		return d.solidStresses(id, nodes, data)
	}
	if shellTypes[id.ElemType] {
		return d.shellStresses(id, data)
	}
	for _, t := range d.res.UnsupportedElementTypes {
		if t == id.ElemType {
			return nil
		}
	}
	d.res.UnsupportedElementTypes = append(d.res.UnsupportedElementTypes, id.ElemType)
	return nil
}

// solidStresses decodes entries of id*10+device, coordinate system,
// "GRID", node count, then per point: grid id, sxx, sxy, principal and
// cosines, pressure, von Mises, syy, syz, principal and cosines, szz,
// sxz, principal and cosines. The centroid has grid id 0.
func (d *decoder) solidStresses(id ident, nodes int, data record) error {
	width := solidHeadWords + solidNodeWords*nodes
	if id.NumWide != width {
		return d.fail(data.offset, "element type %d: num_wide %d, want %d", id.ElemType, id.NumWide, width)
	}
	n, err := d.entries(data, width)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		entry := data.payload[i*width*4:]
		eid := d.word(entry, 0) / 10
		for k := 0; k < nodes; k++ {
			at := func(j int) float64 { return d.real(entry, solidHeadWords+solidNodeWords*k+j) }
			s := fem.StressSample{
				ElementID: eid,
				Point:     d.word(entry, solidHeadWords+solidNodeWords*k),
			}
			s.Components[fem.XX] = at(1)
			s.Components[fem.XY] = at(2)
			s.Components[fem.YY] = at(9)
			s.Components[fem.YZ] = at(10)
			s.Components[fem.ZZ] = at(15)
			s.Components[fem.XZ] = at(16)
			d.res.Stresses = append(d.res.Stresses, s)
		}
	}
	return nil
}

// shellStresses decodes entries of id*10+device then two fibres of
// distance, sxx, syy, sxy, angle, major, minor, von Mises. Fibres are
// points 1 and 2; out-of-plane components are zero.
func (d *decoder) shellStresses(id ident, data record) error {
	if id.NumWide != shellWords {
		return d.fail(data.offset, "element type %d: num_wide %d, want %d", id.ElemType, id.NumWide, shellWords)
	}
	n, err := d.entries(data, shellWords)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		entry := data.payload[i*shellWords*4:]
		eid := d.word(entry, 0) / 10
		for f := 0; f < 2; f++ {
			base := 1 + f*shellFibre
			s := fem.StressSample{ElementID: eid, Point: f + 1}
			s.Components[fem.XX] = d.real(entry, base+1)
			s.Components[fem.YY] = d.real(entry, base+2)
			s.Components[fem.XY] = d.real(entry, base+3)
			d.res.Stresses = append(d.res.Stresses, s)
		}
	}
	return nil
}

package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/roach88/deckbridge/internal/fem"
)

// IdentWords is the IDENT record length written by OP2Builder.
const IdentWords = 146

// OP2Builder assembles result archives in OUTPUT2 layout.
//
// Every data record is announced by a key record holding its word count.
// Tables open with their name, a -1 key, a 7-word trailer and a header
// subtable, and close with a 0 key after the last subtable:
//
//	b := testutil.NewOP2Builder(binary.LittleEndian).Header("NX8.5")
//	b.BeginTable("OUGV1").Displacements(1, recs...).EndTable()
//	data := b.End().Bytes()
type OP2Builder struct {
	order binary.ByteOrder
	buf   bytes.Buffer
	sub   int32
}

// NewOP2Builder returns a builder writing in the given byte order.
func NewOP2Builder(order binary.ByteOrder) *OP2Builder {
	return &OP2Builder{order: order}
}

// Record appends one Fortran record around payload.
func (b *OP2Builder) Record(payload []byte) *OP2Builder {
	b.marker(len(payload))
	b.buf.Write(payload)
	b.marker(len(payload))
	return b
}

// Raw appends bytes without record markers.
func (b *OP2Builder) Raw(p []byte) *OP2Builder {
	b.buf.Write(p)
	return b
}

// Key appends one-word key records.
func (b *OP2Builder) Key(values ...int32) *OP2Builder {
	for _, v := range values {
		b.Record(b.words(v))
	}
	return b
}

// Block appends a word count key and the data record it announces.
func (b *OP2Builder) Block(payload []byte) *OP2Builder {
	b.Key(int32(len(payload) / 4))
	return b.Record(payload)
}

// Header appends the date, tape id and label records that precede the
// first table.
func (b *OP2Builder) Header(label string) *OP2Builder {
	b.Block(b.words(10, 17, 26))
	b.Block([]byte("NASTRAN FORT TAPE ID CODE - "))
	b.Block(pad8(label))
	return b.Key(-1, 0)
}

// BeginTable appends a table name, its trailer and header subtable.
func (b *OP2Builder) BeginTable(name string) *OP2Builder {
	b.Block(pad8(name))
	b.Key(-1)
	b.Block(b.words(101, 0, 0, 0, 0, 0, 0))
	b.Key(-2, 1, 0)
	b.Block(append(pad8(name), b.words(0, 0, 0)...))
	b.sub = -3
	return b
}

// Data appends one subtable record.
func (b *OP2Builder) Data(payload []byte) *OP2Builder {
	return b.Split(payload)
}

// Split appends one subtable record written as consecutive blocks, one
// per part.
func (b *OP2Builder) Split(parts ...[]byte) *OP2Builder {
	b.Key(b.sub, 1, 0)
	b.sub--
	for _, p := range parts {
		b.Block(p)
	}
	return b
}

// Ident appends an IDENT subtable.
func (b *OP2Builder) Ident(approach, tableCode, elemType, subcase, mode, numWide int32) *OP2Builder {
	words := make([]int32, IdentWords)
	words[0] = approach*10 + 1
	words[1] = tableCode
	words[2] = elemType
	words[3] = subcase
	words[4] = mode
	words[8] = 1
	words[9] = numWide
	return b.Data(b.words(words...))
}

// Displacements appends an IDENT and DATA pair for a static displacement
// table.
func (b *OP2Builder) Displacements(subcase int32, recs ...fem.DisplacementRecord) *OP2Builder {
	b.Ident(1, 1, 0, subcase, 0, 8)
	return b.Data(b.vectorData(recs))
}

// Eigenvector appends an IDENT and DATA pair for one mode shape.
func (b *OP2Builder) Eigenvector(subcase, mode int32, recs ...fem.DisplacementRecord) *OP2Builder {
	b.Ident(2, 7, 0, subcase, mode, 8)
	return b.Data(b.vectorData(recs))
}

// Eigenvalues appends an IDENT and DATA pair for a real eigenvalue table.
// Modes are numbered from 1 in the order given.
func (b *OP2Builder) Eigenvalues(eigs ...float64) *OP2Builder {
	b.Ident(2, 7, 0, 1, 0, 7)
	var data bytes.Buffer
	for i, lam := range eigs {
		radians := math.Sqrt(math.Abs(lam))
		data.Write(b.words(int32(i+1), int32(i+1)))
		data.Write(b.floats(lam, radians, radians/(2*math.Pi), 1, lam))
	}
	return b.Data(data.Bytes())
}

// SolidStresses appends an IDENT and DATA pair of solid element stresses.
// Samples are grouped by consecutive element id and every element must
// carry the same number of points. Each Point is written as the grid id.
func (b *OP2Builder) SolidStresses(subcase, elemType int32, samples ...fem.StressSample) *OP2Builder {
	groups := groupByElement(samples)
	nodes := len(groups[0])
	b.Ident(1, 5, elemType, subcase, 0, int32(4+21*nodes))
	var data bytes.Buffer
	for _, g := range groups {
		if len(g) != nodes {
			panic(fmt.Sprintf("element %d has %d points, want %d", g[0].ElementID, len(g), nodes))
		}
		data.Write(b.words(int32(g[0].ElementID*10+1), 0))
		data.WriteString("GRID")
		data.Write(b.words(int32(nodes - 1)))
		for _, s := range g {
			c := s.Components
			data.Write(b.words(int32(s.Point)))
			data.Write(b.floats(
				c[fem.XX], c[fem.XY], 0, 0, 0, 0, 0, 0,
				c[fem.YY], c[fem.YZ], 0, 0, 0, 0,
				c[fem.ZZ], c[fem.XZ], 0, 0, 0, 0,
			))
		}
	}
	return b.Data(data.Bytes())
}

// ShellStresses appends an IDENT and DATA pair of shell stresses. Samples
// come in fibre pairs per element; only xx, yy and xy are written.
func (b *OP2Builder) ShellStresses(subcase, elemType int32, samples ...fem.StressSample) *OP2Builder {
	b.Ident(1, 5, elemType, subcase, 0, 17)
	var data bytes.Buffer
	for _, g := range groupByElement(samples) {
		if len(g) != 2 {
			panic(fmt.Sprintf("element %d has %d fibres, want 2", g[0].ElementID, len(g)))
		}
		data.Write(b.words(int32(g[0].ElementID*10 + 1)))
		for f, s := range g {
			c := s.Components
			z := 0.5 - float64(f)
			data.Write(b.floats(z, c[fem.XX], c[fem.YY], c[fem.XY], 0, 0, 0, 0))
		}
	}
	return b.Data(data.Bytes())
}

// EndTable closes the current table.
func (b *OP2Builder) EndTable() *OP2Builder {
	return b.Key(b.sub, 1, 0, 0)
}

// End appends the end-of-file key.
func (b *OP2Builder) End() *OP2Builder {
	return b.Key(0)
}

// Bytes returns the archive built so far.
func (b *OP2Builder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// Len returns the number of bytes written so far.
func (b *OP2Builder) Len() int {
	return b.buf.Len()
}

// Words encodes int32 values in the builder's byte order.
func (b *OP2Builder) Words(vals ...int32) []byte {
	return b.words(vals...)
}

// Floats encodes float32 values in the builder's byte order.
func (b *OP2Builder) Floats(vals ...float64) []byte {
	return b.floats(vals...)
}

func (b *OP2Builder) vectorData(recs []fem.DisplacementRecord) []byte {
	var data bytes.Buffer
	for _, r := range recs {
		data.Write(b.words(int32(r.NodeID*10+1), 1))
		data.Write(b.floats(r.T[0], r.T[1], r.T[2], r.R[0], r.R[1], r.R[2]))
	}
	return data.Bytes()
}

func groupByElement(samples []fem.StressSample) [][]fem.StressSample {
	var groups [][]fem.StressSample
	for i, s := range samples {
		if i == 0 || s.ElementID != samples[i-1].ElementID {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], s)
	}
	return groups
}

func pad8(s string) []byte {
	out := []byte("        ")
	copy(out, s)
	return out
}

func (b *OP2Builder) marker(n int) {
	var word [4]byte
	b.order.PutUint32(word[:], uint32(n))
	b.buf.Write(word[:])
}

func (b *OP2Builder) words(vals ...int32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		b.order.PutUint32(out[4*i:], uint32(v))
	}
	return out
}

func (b *OP2Builder) floats(vals ...float64) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		b.order.PutUint32(out[4*i:], math.Float32bits(float32(v)))
	}
	return out
}

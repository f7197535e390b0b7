package op2

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deckbridge/internal/fem"
	"github.com/roach88/deckbridge/internal/testutil"
)

var (
	tipDisplacements = []fem.DisplacementRecord{
		{NodeID: 1},
		{NodeID: 3, T: [3]float64{0.5, -0.25, 0.125}, R: [3]float64{0, 0, 0.0625}},
	}
	modeOne = []fem.DisplacementRecord{
		{NodeID: 1, T: [3]float64{0, 0, 1}},
		{NodeID: 2, T: [3]float64{0, 0, 0.5}},
	}
	tetraStresses = []fem.StressSample{
		{ElementID: 7, Point: 0, Components: [6]float64{100, 20, 0.5, -44.75, 3, 12}},
		{ElementID: 7, Point: 11, Components: [6]float64{120, -15, 0, 30, -2, 8}},
		{ElementID: 7, Point: 12, Components: [6]float64{1, 2, 3, 4, 5, 6}},
		{ElementID: 7, Point: 13, Components: [6]float64{-1, -2, -3, -4, -5, -6}},
		{ElementID: 7, Point: 14, Components: [6]float64{0.25, 0, 0, 0, 0, 0.75}},
	}
	quadStresses = []fem.StressSample{
		{ElementID: 20, Point: 1, Components: [6]float64{fem.XX: 10, fem.YY: -4, fem.XY: 2.5}},
		{ElementID: 20, Point: 2, Components: [6]float64{fem.XX: -10, fem.YY: 4, fem.XY: -2.5}},
	}
)

func fullArchive(order binary.ByteOrder) []byte {
	b := testutil.NewOP2Builder(order).Header("NX2019.2")
	b.BeginTable("OUGV1").Displacements(1, tipDisplacements...).EndTable()
	b.BeginTable("LAMA").Eigenvalues(-0.0001, 400).EndTable()
	b.BeginTable("BOUGV1").
		Eigenvector(1, 1, modeOne...).
		Eigenvector(1, 2, modeOne[:1]...).
		EndTable()
	b.BeginTable("OES1X").
		SolidStresses(1, 39, tetraStresses...).
		ShellStresses(1, 33, quadStresses...).
		EndTable()
	return b.End().Bytes()
}

func TestRead_AllCategories(t *testing.T) {
	res, err := NewReader().Read(bytes.NewReader(fullArchive(binary.LittleEndian)))
	require.NoError(t, err)

	if diff := cmp.Diff(tipDisplacements, res.Displacements); diff != "" {
		t.Errorf("displacements mismatch (-want +got):\n%s", diff)
	}
	want := append(append([]fem.StressSample{}, tetraStresses...), quadStresses...)
	if diff := cmp.Diff(want, res.Stresses); diff != "" {
		t.Errorf("stresses mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, res.Modal.Eigenvalues, 2)
	assert.InDelta(t, -0.0001, res.Modal.Eigenvalues[0], 1e-9)
	assert.Equal(t, 400.0, res.Modal.Eigenvalues[1])

	assert.Equal(t, []int{1, 2}, res.Modes())
	assert.Equal(t, []float64{0, 0, 1, 0, 0, 0, 0, 0, 0.5, 0, 0, 0}, res.Modal.Eigenvectors[1])
	assert.Len(t, res.Modal.Eigenvectors[2], 6)

	assert.Equal(t, Stats{NumDisplacements: 2, NumStresses: 7, NumEigenvalues: 2, NumEigenvectors: 2}, res.Stats())
	assert.NoError(t, res.Require(Categories...))
	assert.Empty(t, res.SkippedTables)
	assert.Empty(t, res.UnsupportedElementTypes)
}

// rawArchive writes little-endian Fortran records directly, so the layout
// below is spelled out record by record.
type rawArchive struct{ bytes.Buffer }

func (a *rawArchive) record(payload []byte) {
	_ = binary.Write(a, binary.LittleEndian, int32(len(payload)))
	a.Write(payload)
	_ = binary.Write(a, binary.LittleEndian, int32(len(payload)))
}

func (a *rawArchive) keys(vals ...int32) {
	for _, v := range vals {
		a.record(leWords(v))
	}
}

func leWords(vals ...any) []byte {
	var buf bytes.Buffer
	for _, v := range vals {
		switch v := v.(type) {
		case int32:
			_ = binary.Write(&buf, binary.LittleEndian, v)
		case float32:
			_ = binary.Write(&buf, binary.LittleEndian, v)
		}
	}
	return buf.Bytes()
}

func identRecord(approachCode, tableCode, subcase, mode, numWide int32) []byte {
	words := make([]int32, 146)
	words[0], words[1], words[3], words[4], words[8], words[9] = approachCode, tableCode, subcase, mode, 1, numWide
	return leWords(anySlice(words)...)
}

func anySlice(words []int32) []any {
	out := make([]any, len(words))
	for i, w := range words {
		out[i] = w
	}
	return out
}

// solverArchive mirrors the framing of an archive written by the solver
// with PARAM,POST,-1: header, OUGV1 with one node, LAMA with two modes and
// BOUGV1 with one shape per mode.
func solverArchive(label string) []byte {
	var a rawArchive
	a.keys(3)
	a.record(leWords(int32(10), int32(17), int32(26)))
	a.keys(7)
	a.record([]byte("NASTRAN FORT TAPE ID CODE - "))
	a.keys(2)
	a.record([]byte(label))
	a.keys(-1, 0)

	a.keys(2)
	a.record([]byte("OUGV1   "))
	a.keys(-1, 7)
	a.record(leWords(int32(101), int32(3), int32(0), int32(8), int32(0), int32(0), int32(0)))
	a.keys(-2, 1, 0, 2)
	a.record([]byte("OUGV1   "))
	a.keys(-3, 1, 0, 146)
	a.record(identRecord(11, 1, 1, 0, 8))
	a.keys(-4, 1, 0, 8)
	a.record(leWords(int32(31), int32(1), float32(0.5), float32(0), float32(-0.25), float32(0), float32(0), float32(0.125)))
	a.keys(-5, 1, 0, 0)

	a.keys(2)
	a.record([]byte("LAMA    "))
	a.keys(-1, 7)
	a.record(leWords(int32(101), int32(2), int32(0), int32(0), int32(0), int32(0), int32(0)))
	a.keys(-2, 1, 0, 2)
	a.record([]byte("LAMA    "))
	a.keys(-3, 1, 0, 146)
	a.record(identRecord(21, 7, 1, 0, 7))
	a.keys(-4, 1, 0, 14)
	a.record(leWords(
		int32(1), int32(1), float32(3947.8418), float32(62.83185), float32(10), float32(1), float32(3947.8418),
		int32(2), int32(2), float32(15791.367), float32(125.6637), float32(20), float32(1), float32(15791.367),
	))
	a.keys(-5, 1, 0, 0)

	a.keys(2)
	a.record([]byte("BOUGV1  "))
	a.keys(-1, 7)
	a.record(leWords(int32(101), int32(3), int32(0), int32(8), int32(0), int32(0), int32(0)))
	a.keys(-2, 1, 0, 2)
	a.record([]byte("BOUGV1  "))
	for i, mode := range []int32{1, 2} {
		n := int32(-3 - 2*i)
		a.keys(n, 1, 0, 146)
		a.record(identRecord(21, 7, 1, mode, 8))
		a.keys(n-1, 1, 0, 8)
		a.record(leWords(int32(31), int32(1), float32(0), float32(0), float32(mode), float32(0), float32(0), float32(0)))
	}
	a.keys(-7, 1, 0, 0)

	a.keys(0)
	return a.Bytes()
}

func TestRead_SolverFraming(t *testing.T) {
	for _, label := range []string{"NX8.5   ", "XXXXXXXX"} {
		t.Run(label, func(t *testing.T) {
			res, err := NewReader().Read(bytes.NewReader(solverArchive(label)))
			require.NoError(t, err)

			assert.Equal(t, []fem.DisplacementRecord{
				{NodeID: 3, T: [3]float64{0.5, 0, -0.25}, R: [3]float64{0, 0, 0.125}},
			}, res.Displacements)

			require.Len(t, res.Modal.Eigenvalues, 2)
			assert.InDelta(t, 3947.8418, res.Modal.Eigenvalues[0], 1e-3)
			assert.InDelta(t, 15791.367, res.Modal.Eigenvalues[1], 1e-2)

			assert.Equal(t, []int{1, 2}, res.Modes())
			assert.Equal(t, []float64{0, 0, 1, 0, 0, 0}, res.Modal.Eigenvectors[1])
			assert.Equal(t, []float64{0, 0, 2, 0, 0, 0}, res.Modal.Eigenvectors[2])
			assert.Equal(t, map[string]int{"OUGV1": 1, "LAMA": 1, "BOUGV1": 1}, res.Subcases)
		})
	}
}

func TestRead_HeaderlessArchive(t *testing.T) {
	b := testutil.NewOP2Builder(binary.LittleEndian)
	b.BeginTable("OUGV1").Displacements(1, tipDisplacements...).EndTable()

	res, err := NewReader().Read(bytes.NewReader(b.End().Bytes()))
	require.NoError(t, err)
	assert.Len(t, res.Displacements, 2)
}

func TestRead_RecordSplitAcrossBlocks(t *testing.T) {
	b := testutil.NewOP2Builder(binary.LittleEndian).Header("NX2019.2")
	b.BeginTable("LAMA").Ident(2, 7, 0, 1, 0, 7).Split(
		append(b.Words(1, 1), b.Floats(100, 10, 1.6, 1, 100)...),
		append(b.Words(2, 2), b.Floats(400, 20, 3.2, 1, 400)...),
	).EndTable()

	res, err := NewReader().Read(bytes.NewReader(b.End().Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 400}, res.Modal.Eigenvalues)
}

func TestRead_ModeFallbackSkipsUsedNumbers(t *testing.T) {
	b := testutil.NewOP2Builder(binary.LittleEndian).Header("NX2019.2")
	b.BeginTable("BOUGV1").
		Eigenvector(1, 2, modeOne[:1]...).
		Eigenvector(1, 0, modeOne[1:]...).
		EndTable()

	res, err := NewReader().Read(bytes.NewReader(b.End().Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, res.Modes())
	assert.Len(t, res.Modal.Eigenvectors[2], 6)
	assert.Equal(t, []float64{0, 0, 0.5, 0, 0, 0}, res.Modal.Eigenvectors[3])
}

func TestRead_UnsupportedStressElementsReported(t *testing.T) {
	b := testutil.NewOP2Builder(binary.LittleEndian).Header("NX2019.2")
	b.BeginTable("OES1X").
		Ident(1, 5, 34, 1, 0, 16).Data(make([]byte, 64)).
		ShellStresses(1, 74, quadStresses...).
		Ident(1, 5, 34, 1, 0, 16).Data(make([]byte, 64)).
		EndTable()

	res, err := NewReader().Read(bytes.NewReader(b.End().Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []int{34}, res.UnsupportedElementTypes)
	assert.Equal(t, quadStresses, res.Stresses)
}

func TestRead_CorruptLengthDoesNotPreallocate(t *testing.T) {
	data := fullArchive(binary.LittleEndian)[:8]
	binary.LittleEndian.PutUint32(data, 1<<27)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := NewReader(WithByteOrder(binary.LittleEndian)).Read(bytes.NewReader(data))
	runtime.ReadMemStats(&after)

	require.Error(t, err)
	assert.True(t, fem.IsDecode(err), "got %v", err)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
}

func TestRead_BigEndianDetected(t *testing.T) {
	res, err := NewReader().Read(bytes.NewReader(fullArchive(binary.BigEndian)))
	require.NoError(t, err)
	assert.Len(t, res.Displacements, 2)
	assert.Equal(t, 0.125, res.Displacements[1].T[2])
}

func TestRead_FixedByteOrderMismatch(t *testing.T) {
	_, err := NewReader(WithByteOrder(binary.BigEndian)).Read(bytes.NewReader(fullArchive(binary.LittleEndian)))
	require.Error(t, err)
	assert.True(t, fem.IsDecode(err), "got %v", err)
}

func TestRead_MissingCategoriesAreEmpty(t *testing.T) {
	b := testutil.NewOP2Builder(binary.LittleEndian).Header("NX2019.2")
	b.BeginTable("LAMA").Eigenvalues(100).EndTable()

	res, err := NewReader().Read(bytes.NewReader(b.End().Bytes()))
	require.NoError(t, err)

	assert.NotNil(t, res.Displacements)
	assert.Empty(t, res.Displacements)
	assert.Empty(t, res.Stresses)
	assert.Empty(t, res.Modal.Eigenvectors)
	assert.Equal(t, []float64{100}, res.Modal.Eigenvalues)

	assert.NoError(t, res.Require(Eigenvalues))
	err = res.Require(Eigenvalues, Displacements)
	require.Error(t, err)
	var fe *fem.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fem.ErrCodeDecode, fe.Code)
	assert.Equal(t, "displacements", fe.Section)
}

func TestRead_EmptyArchive(t *testing.T) {
	res, err := NewReader().Read(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, Stats{}, res.Stats())
}

func TestRead_EndsAtEOFWithoutEndRecord(t *testing.T) {
	b := testutil.NewOP2Builder(binary.LittleEndian).Header("NX2019.2")
	b.BeginTable("OUGV1").Displacements(1, tipDisplacements...).EndTable()

	res, err := NewReader().Read(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	assert.Len(t, res.Displacements, 2)
}

func TestRead_FirstSubcaseOnly(t *testing.T) {
	b := testutil.NewOP2Builder(binary.LittleEndian).Header("NX2019.2")
	b.BeginTable("OUGV1").
		Displacements(2, tipDisplacements[:1]...).
		Displacements(5, tipDisplacements...).
		Displacements(2, tipDisplacements[1:]...).
		Displacements(5, tipDisplacements...).
		EndTable()

	res, err := NewReader().Read(bytes.NewReader(b.End().Bytes()))
	require.NoError(t, err)
	assert.Equal(t, tipDisplacements, res.Displacements)
	assert.Equal(t, map[string]int{"OUGV1": 2}, res.Subcases)
	assert.Equal(t, map[string][]int{"OUGV1": {5}}, res.IgnoredSubcases)
}

func TestRead_UnknownTableSkipped(t *testing.T) {
	b := testutil.NewOP2Builder(binary.LittleEndian).Header("NX2019.2")
	b.BeginTable("GEOM1S").Ident(0, 0, 0, 0, 0, 3).Data(b.Words(1, 2, 3)).EndTable()
	b.BeginTable("OUGV1").Displacements(1, tipDisplacements...).EndTable()

	res, err := NewReader().Read(bytes.NewReader(b.End().Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{"GEOM1S"}, res.SkippedTables)
	assert.Len(t, res.Displacements, 2)
}

func TestRead_ShortDisplacementEntriesLeaveRotationsZero(t *testing.T) {
	le := binary.LittleEndian
	entry := make([]byte, 5*4)
	le.PutUint32(entry[0:], 41)
	le.PutUint32(entry[4:], 1)
	for i, v := range []float32{1, 2, 3} {
		le.PutUint32(entry[8+4*i:], math.Float32bits(v))
	}
	b := testutil.NewOP2Builder(le).Header("NX2019.2")
	b.BeginTable("OUGV1").Ident(1, 1, 0, 1, 0, 5).Data(entry).EndTable()

	res, err := NewReader().Read(bytes.NewReader(b.End().Bytes()))
	require.NoError(t, err)
	require.Len(t, res.Displacements, 1)
	assert.Equal(t, fem.DisplacementRecord{NodeID: 4, T: [3]float64{1, 2, 3}}, res.Displacements[0])
}

func TestRead_DecodeErrors(t *testing.T) {
	le := binary.LittleEndian
	valid := fullArchive(le)

	tests := []struct {
		name    string
		data    func() []byte
		section string
	}{
		{
			name:    "truncated inside a table",
			data:    func() []byte { return valid[:len(valid)-30] },
			section: "OES1X",
		},
		{
			name: "trailing marker mismatch",
			data: func() []byte {
				b := testutil.NewOP2Builder(le).Header("NX2019.2").BeginTable("OUGV1")
				b.Raw([]byte{8, 0, 0, 0}).Raw(make([]byte, 8)).Raw([]byte{9, 0, 0, 0})
				return b.Bytes()
			},
			section: "OUGV1",
		},
		{
			name: "ident too short",
			data: func() []byte {
				b := testutil.NewOP2Builder(le).Header("NX2019.2").BeginTable("OUGV1")
				return b.Data(b.Words(1, 2, 3)).Data(make([]byte, 32)).EndTable().Bytes()
			},
			section: "OUGV1",
		},
		{
			name: "ragged data record",
			data: func() []byte {
				b := testutil.NewOP2Builder(le).Header("NX2019.2").BeginTable("OUGV1")
				return b.Ident(1, 1, 0, 1, 0, 8).Data(make([]byte, 36)).EndTable().End().Bytes()
			},
			section: "OUGV1",
		},
		{
			name: "num_wide too small",
			data: func() []byte {
				b := testutil.NewOP2Builder(le).Header("NX2019.2").BeginTable("OUGV1")
				return b.Ident(1, 1, 0, 1, 0, 4).Data(make([]byte, 16)).EndTable().End().Bytes()
			},
			section: "OUGV1",
		},
		{
			name: "shell num_wide mismatch",
			data: func() []byte {
				b := testutil.NewOP2Builder(le).Header("NX2019.2").BeginTable("OES1X")
				return b.Ident(1, 5, 33, 1, 0, 18).Data(make([]byte, 72)).EndTable().End().Bytes()
			},
			section: "OES1X",
		},
		{
			name: "solid num_wide mismatch",
			data: func() []byte {
				b := testutil.NewOP2Builder(le).Header("NX2019.2").BeginTable("OES1X")
				return b.Ident(1, 5, 67, 1, 0, 109).Data(make([]byte, 109*4)).EndTable().End().Bytes()
			},
			section: "OES1X",
		},
		{
			name: "missing trailer",
			data: func() []byte {
				b := testutil.NewOP2Builder(le).Header("NX2019.2")
				return b.Block([]byte("OUGV1   ")).Key(0).Bytes()
			},
			section: "OUGV1",
		},
		{
			name: "ident without data",
			data: func() []byte {
				b := testutil.NewOP2Builder(le).Header("NX2019.2").BeginTable("OUGV1")
				return b.Ident(1, 1, 0, 1, 0, 8).EndTable().End().Bytes()
			},
			section: "OUGV1",
		},
		{
			name: "block shorter than its key",
			data: func() []byte {
				b := testutil.NewOP2Builder(le).Header("NX2019.2").BeginTable("OUGV1")
				return b.Key(-3, 1, 0, 146).Record(make([]byte, 8)).Bytes()
			},
			section: "OUGV1",
		},
		{
			name: "garbage between tables",
			data: func() []byte {
				b := testutil.NewOP2Builder(le).Header("NX2019.2")
				b.BeginTable("OUGV1").Displacements(1, tipDisplacements...).EndTable()
				return b.Key(7).Bytes()
			},
			section: "table list",
		},
		{
			name:    "unreadable first marker",
			data:    func() []byte { return []byte{0xff, 0xff, 0xff, 0xff, 0, 0} },
			section: "header",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader().Read(bytes.NewReader(tt.data()))
			require.Error(t, err)
			var fe *fem.Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, fem.ErrCodeDecode, fe.Code)
			assert.Equal(t, tt.section, fe.Section)
			assert.GreaterOrEqual(t, fe.Offset, int64(0))
			assert.Contains(t, fe.Error(), "offset=")
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modes.op2")
	require.NoError(t, os.WriteFile(path, fullArchive(binary.LittleEndian), 0o644))

	res, err := NewReader().ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats().NumEigenvalues)

	_, err = NewReader().ReadFile(filepath.Join(dir, "absent.op2"))
	assert.True(t, fem.IsNotFound(err))

	broken := filepath.Join(dir, "broken.op2")
	data := fullArchive(binary.LittleEndian)
	require.NoError(t, os.WriteFile(broken, data[:len(data)/2], 0o644))
	_, err = NewReader().ReadFile(broken)
	var fe *fem.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fem.ErrCodeDecode, fe.Code)
	assert.Equal(t, broken, fe.Path)
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("eigenvectors")
	assert.True(t, ok)
	assert.Equal(t, Eigenvectors, c)

	_, ok = ParseCategory("strains")
	assert.False(t, ok)
}

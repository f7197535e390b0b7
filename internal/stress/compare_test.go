package stress

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/roach88/deckbridge/internal/fem"
	"github.com/roach88/deckbridge/internal/testutil"
)

func fixtureSamples(t *testing.T) (ref, got []fem.StressSample) {
	t.Helper()
	ref, err := ParseDAT(strings.NewReader(testutil.ReferenceStressDAT))
	require.NoError(t, err)
	got, err = ParseDAT(strings.NewReader(testutil.ComputedStressDAT))
	require.NoError(t, err)
	return ref, got
}

func TestCompare_Pairing(t *testing.T) {
	ref, got := fixtureSamples(t)
	rep := Compare(ref, got, Options{})

	assert.Equal(t, 4, rep.ReferenceCount)
	assert.Equal(t, 4, rep.ComputedCount)
	assert.Equal(t, 3, rep.Matched)
	assert.Equal(t, 1, rep.MissingComputed)
	assert.Equal(t, 1, rep.ExtraComputed)
	assert.Equal(t, DefaultHead, rep.Head)
	require.Len(t, rep.Points, 3)
	assert.Equal(t, 2, rep.Points[2].ElementID)
}

func TestCompare_ZeroMismatch(t *testing.T) {
	ref := []fem.StressSample{{ElementID: 1, Point: 1, Components: [6]float64{0, 0, 0, -44.81, 0, 0}}}
	got := []fem.StressSample{{ElementID: 1, Point: 1, Components: [6]float64{0, 0, 0, 0.0002, 0, 0}}}

	rep := Compare(ref, got, Options{})
	d := rep.Points[0].Components[fem.XY]
	assert.True(t, d.ZeroMismatch)
	assert.False(t, d.SignMismatch, "0.0002 is below the sign floor")
	assert.Equal(t, 1, rep.Stats(fem.XY).ZeroMismatches)
	assert.Equal(t, 1, rep.ZeroMismatches())
	assert.Zero(t, rep.SignMismatches())
}

func TestCompare_SignMismatch(t *testing.T) {
	ref, got := fixtureSamples(t)
	rep := Compare(ref, got, Options{})

	assert.True(t, rep.Points[1].Components[fem.XX].SignMismatch)
	assert.Equal(t, 1, rep.Stats(fem.XX).SignMismatches)
	assert.Equal(t, 1, rep.SignMismatches())
	assert.Equal(t, 1, rep.ZeroMismatches())
}

func TestCompare_Ratios(t *testing.T) {
	ref, got := fixtureSamples(t)
	rep := Compare(ref, got, Options{})

	xx := rep.Stats(fem.XX)
	assert.Equal(t, "sxx", xx.Name)
	assert.Equal(t, 3, xx.RatioCount)
	assert.InDelta(t, -118.0/120.0, xx.MinRatio, 1e-12)
	assert.InDelta(t, 1.0, xx.MaxRatio, 1e-12)
	assert.InDelta(t, (0.95-118.0/120.0+1)/3, xx.MeanRatio, 1e-12)
	assert.Equal(t, -80.0, xx.ReferenceMin)
	assert.Equal(t, 120.0, xx.ReferenceMax)
	assert.Equal(t, -118.0, xx.ComputedMin)
	assert.Equal(t, 95.0, xx.ComputedMax)

	zz := rep.Stats(fem.ZZ)
	assert.False(t, zz.HasRatios(), "no szz reference exceeds the inclusion floor")

	// A ratio is still reported per point above the ratio floor.
	d := rep.Points[0].Components[fem.ZZ]
	require.NotNil(t, d.Ratio)
	assert.InDelta(t, 0.8, *d.Ratio, 1e-12)
	assert.Nil(t, rep.Points[1].Components[fem.ZZ].Ratio)
}

func TestCompare_Head(t *testing.T) {
	ref, got := fixtureSamples(t)
	assert.Len(t, Compare(ref, got, Options{Head: 2}).Detail(), 2)
	assert.Len(t, Compare(ref, got, Options{Head: -1}).Detail(), 3)
	assert.Len(t, Compare(ref, got, Options{Head: 50}).Detail(), 3)
}

func TestReportJSONCarriesDetailOnly(t *testing.T) {
	ref, got := fixtureSamples(t)
	report := Compare(ref, got, Options{Head: 2})

	data, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded struct {
		Matched int               `json:"matched"`
		Points  []json.RawMessage `json:"points"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 3, decoded.Matched)
	assert.Len(t, decoded.Points, 2)
	assert.Len(t, report.Points, 3)
}

func TestCompare_FrameRotatesComputed(t *testing.T) {
	f, err := NewFrame(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 0.2}, r3.Vec{})
	require.NoError(t, err)

	local := [6]float64{150, -40, 12, 33, -8, 21}
	ref := []fem.StressSample{{ElementID: 4, Point: 1, Components: ToGlobal(f.Matrix(), local)}}
	got := []fem.StressSample{{ElementID: 4, Point: 1, Components: local}}

	rep := Compare(ref, got, Options{Frame: &f})
	for _, d := range rep.Points[0].Components {
		assert.InDelta(t, 0, d.Diff, 1e-9, d.Name)
	}

	unrotated := Compare(ref, got, Options{})
	assert.Greater(t, abs(unrotated.Points[0].Components[fem.XX].Diff), 1.0)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestCompare_Empty(t *testing.T) {
	rep := Compare(nil, nil, Options{})
	assert.Zero(t, rep.Matched)
	assert.NotNil(t, rep.Points)
	for _, st := range rep.Components {
		assert.False(t, st.HasRatios())
	}
}

func TestReportWriteText(t *testing.T) {
	ref, got := fixtureSamples(t)
	rep := Compare(ref, got, Options{Head: 2})

	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "report", buf.Bytes())
}

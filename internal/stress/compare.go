package stress

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/roach88/deckbridge/internal/fem"
)

// Comparison policy values.
const (
	// RatioFloor is the smallest |reference| a ratio is computed for.
	RatioFloor = 1e-10

	// InclusionFloor is the smallest |reference| whose ratio enters the
	// aggregate statistics.
	InclusionFloor = 1.0

	// ZeroComputed is the |computed| below which a significant reference
	// value counts as collapsed to zero.
	ZeroComputed = 0.01

	// SignFloor is the magnitude both values must exceed for a sign
	// mismatch to count.
	SignFloor = 10.0

	// DefaultHead is the default number of points in the detail table.
	DefaultHead = 10
)

// Options controls a comparison.
type Options struct {
	// Head limits the per-point detail table. Zero means DefaultHead and a
	// negative value means every point.
	Head int

	// Frame, when set, rotates computed samples from this local frame to
	// the global frame before comparing.
	Frame *Frame
}

// ComponentDiff compares one tensor component at one point.
type ComponentDiff struct {
	Component    fem.Component `json:"-"`
	Name         string        `json:"component"`
	Reference    float64       `json:"reference"`
	Computed     float64       `json:"computed"`
	Diff         float64       `json:"diff"`
	Ratio        *float64      `json:"ratio,omitempty"`
	ZeroMismatch bool          `json:"zero_mismatch,omitempty"`
	SignMismatch bool          `json:"sign_mismatch,omitempty"`
}

// PointDiff compares every component at one integration point.
type PointDiff struct {
	ElementID  int              `json:"element_id"`
	Point      int              `json:"point"`
	Components [6]ComponentDiff `json:"components"`
}

// ComponentStats aggregates one component over every matched point.
type ComponentStats struct {
	Component      fem.Component `json:"-"`
	Name           string        `json:"component"`
	RatioCount     int           `json:"ratio_count"`
	MinRatio       float64       `json:"min_ratio"`
	MeanRatio      float64       `json:"mean_ratio"`
	MaxRatio       float64       `json:"max_ratio"`
	ReferenceMin   float64       `json:"reference_min"`
	ReferenceMax   float64       `json:"reference_max"`
	ComputedMin    float64       `json:"computed_min"`
	ComputedMax    float64       `json:"computed_max"`
	ZeroMismatches int           `json:"zero_mismatches"`
	SignMismatches int           `json:"sign_mismatches"`
}

// HasRatios reports whether any reference value was large enough to enter
// the ratio statistics.
func (s ComponentStats) HasRatios() bool {
	return s.RatioCount > 0
}

// Report is the outcome of a comparison. It is diagnostic; turning it into
// pass or fail is up to the caller.
type Report struct {
	ReferenceCount  int               `json:"reference_count"`
	ComputedCount   int               `json:"computed_count"`
	Matched         int               `json:"matched"`
	MissingComputed int               `json:"missing_computed"`
	ExtraComputed   int               `json:"extra_computed"`
	Head            int               `json:"head"`
	Points          []PointDiff       `json:"points"` // every point; JSON carries Detail only
	Components      [6]ComponentStats `json:"components"`
}

// Detail returns the points shown in the detail table.
func (r *Report) Detail() []PointDiff {
	if r.Head < 0 || r.Head >= len(r.Points) {
		return r.Points
	}
	return r.Points[:r.Head]
}

// MarshalJSON writes the report with points limited to the detail table.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	out := plain(r)
	out.Points = r.Detail()
	return json.Marshal(out)
}

// ZeroMismatches returns the zero mismatch count over all components.
func (r *Report) ZeroMismatches() int {
	n := 0
	for _, c := range r.Components {
		n += c.ZeroMismatches
	}
	return n
}

// SignMismatches returns the sign mismatch count over all components.
func (r *Report) SignMismatches() int {
	n := 0
	for _, c := range r.Components {
		n += c.SignMismatches
	}
	return n
}

// Stats returns the aggregate for component c.
func (r *Report) Stats(c fem.Component) ComponentStats {
	return r.Components[c]
}

// Compare pairs reference and computed samples by (element, point) and
// compares them component by component, walking the reference order.
func Compare(ref, got []fem.StressSample, opts Options) *Report {
	head := opts.Head
	if head == 0 {
		head = DefaultHead
	}
	rep := &Report{
		ReferenceCount: len(ref),
		ComputedCount:  len(got),
		Head:           head,
		Points:         []PointDiff{},
	}

	var rotation *mat.Dense
	if opts.Frame != nil {
		rotation = opts.Frame.Matrix()
	}

	computed := make(map[fem.SampleKey]fem.StressSample, len(got))
	for _, s := range got {
		if _, dup := computed[s.Key()]; !dup {
			computed[s.Key()] = s
		}
	}

	var refVals, gotVals, ratios [6][]float64
	used := make(map[fem.SampleKey]bool, len(got))
	for _, r := range ref {
		g, ok := computed[r.Key()]
		if !ok {
			rep.MissingComputed++
			continue
		}
		used[r.Key()] = true
		rep.Matched++

		values := g.Components
		if opts.Frame != nil {
			values = ToGlobal(rotation, values)
		}

		pd := PointDiff{ElementID: r.ElementID, Point: r.Point}
		for _, c := range fem.Components {
			d := compareComponent(c, r.Components[c], values[c])
			pd.Components[c] = d
			refVals[c] = append(refVals[c], d.Reference)
			gotVals[c] = append(gotVals[c], d.Computed)
			if math.Abs(d.Reference) > InclusionFloor && d.Ratio != nil {
				ratios[c] = append(ratios[c], *d.Ratio)
			}
			if d.ZeroMismatch {
				rep.Components[c].ZeroMismatches++
			}
			if d.SignMismatch {
				rep.Components[c].SignMismatches++
			}
		}
		rep.Points = append(rep.Points, pd)
	}
	for key := range computed {
		if !used[key] {
			rep.ExtraComputed++
		}
	}

	for _, c := range fem.Components {
		st := &rep.Components[c]
		st.Component = c
		st.Name = c.String()
		if len(refVals[c]) > 0 {
			st.ReferenceMin, st.ReferenceMax = floats.Min(refVals[c]), floats.Max(refVals[c])
			st.ComputedMin, st.ComputedMax = floats.Min(gotVals[c]), floats.Max(gotVals[c])
		}
		if n := len(ratios[c]); n > 0 {
			st.RatioCount = n
			st.MinRatio = floats.Min(ratios[c])
			st.MaxRatio = floats.Max(ratios[c])
			st.MeanRatio = stat.Mean(ratios[c], nil)
		}
	}
	return rep
}

func compareComponent(c fem.Component, ref, got float64) ComponentDiff {
	d := ComponentDiff{
		Component: c,
		Name:      c.String(),
		Reference: ref,
		Computed:  got,
		Diff:      got - ref,
	}
	if math.Abs(ref) > RatioFloor {
		ratio := got / ref
		d.Ratio = &ratio
	}
	d.ZeroMismatch = math.Abs(ref) > InclusionFloor && math.Abs(got) < ZeroComputed
	d.SignMismatch = math.Abs(ref) > SignFloor && math.Abs(got) > SignFloor && ref*got < 0
	return d
}

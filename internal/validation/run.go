package validation

import (
	"fmt"
	"math"
	"sync"

	"github.com/roach88/deckbridge/internal/bdf"
	"github.com/roach88/deckbridge/internal/fem"
	"github.com/roach88/deckbridge/internal/modal"
	"github.com/roach88/deckbridge/internal/op2"
	"github.com/roach88/deckbridge/internal/stress"
)

// Loader supplies the inputs a plan refers to.
type Loader interface {
	Deck(path string) (*fem.Model, error)
	Results(path string) (*op2.Results, error)
	Stresses(path string) ([]fem.StressSample, error)
}

// FileLoader reads inputs from disk, each path at most once.
type FileLoader struct {
	reader *op2.Reader

	mu       sync.Mutex
	decks    map[string]*fem.Model
	results  map[string]*op2.Results
	stresses map[string][]fem.StressSample
}

// NewFileLoader returns a loader reading archives with reader, or with a
// default reader when reader is nil.
func NewFileLoader(reader *op2.Reader) *FileLoader {
	if reader == nil {
		reader = op2.NewReader()
	}
	return &FileLoader{
		reader:   reader,
		decks:    make(map[string]*fem.Model),
		results:  make(map[string]*op2.Results),
		stresses: make(map[string][]fem.StressSample),
	}
}

// Deck implements Loader.
func (l *FileLoader) Deck(path string) (*fem.Model, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.decks[path]; ok {
		return m, nil
	}
	res, err := bdf.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l.decks[path] = res.Model
	return res.Model, nil
}

// Results implements Loader.
func (l *FileLoader) Results(path string) (*op2.Results, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.results[path]; ok {
		return r, nil
	}
	r, err := l.reader.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l.results[path] = r
	return r, nil
}

// Stresses implements Loader.
func (l *FileLoader) Stresses(path string) ([]fem.StressSample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.stresses[path]; ok {
		return s, nil
	}
	s, err := stress.ReadDAT(path)
	if err != nil {
		return nil, err
	}
	l.stresses[path] = s
	return s, nil
}

// Run evaluates every check of plan in order. A check whose input is missing
// or unreadable aborts the run; a check that merely misses its tolerance
// yields a failed record.
func Run(plan *Plan, loader Loader) ([]Record, error) {
	records := make([]Record, 0, len(plan.Checks))
	for i, check := range plan.Checks {
		computed, err := compute(plan, check, loader)
		if err != nil {
			return nil, fmt.Errorf("check %d (%s): %w", i+1, check.MetricName(), err)
		}
		tolerance := plan.Tolerance
		if check.Tolerance != nil {
			tolerance = *check.Tolerance
		}
		reference := check.Reference
		if reference == nil && check.Kind == KindStressRatio {
			one := 1.0
			reference = &one
		}
		records = append(records, Evaluate(check.MetricName(), computed, reference, tolerance))
	}
	return records, nil
}

func compute(plan *Plan, check Check, loader Loader) (float64, error) {
	switch check.Kind {
	case KindNodeCount, KindElementCount:
		if plan.Deck == "" {
			return 0, fmt.Errorf("%w: plan has no deck", ErrInvalidPlan)
		}
		m, err := loader.Deck(plan.Deck)
		if err != nil {
			return 0, err
		}
		if check.Kind == KindNodeCount {
			return float64(len(m.Nodes)), nil
		}
		return float64(len(m.Elements)), nil

	case KindFrequency, KindEigenvalueCount, KindMaxDisplacement:
		if plan.Archive == "" {
			return 0, fmt.Errorf("%w: plan has no archive", ErrInvalidPlan)
		}
		res, err := loader.Results(plan.Archive)
		if err != nil {
			return 0, err
		}
		return fromResults(res, check)

	case KindStressRatio:
		if plan.ReferenceStress == "" || plan.ComputedStress == "" {
			return 0, fmt.Errorf("%w: plan needs reference_stress and computed_stress", ErrInvalidPlan)
		}
		return meanRatio(plan, check, loader)
	}
	return 0, fmt.Errorf("%w: unknown check kind %q", ErrInvalidPlan, check.Kind)
}

func fromResults(res *op2.Results, check Check) (float64, error) {
	switch check.Kind {
	case KindEigenvalueCount:
		return float64(len(res.Modal.Eigenvalues)), nil
	case KindFrequency:
		if err := res.Require(op2.Eigenvalues); err != nil {
			return 0, err
		}
		freqs := modal.Frequencies(res.Modal.Eigenvalues)
		if check.Mode < 1 || check.Mode > len(freqs) {
			return 0, fmt.Errorf("mode %d not in archive (%d modes)", check.Mode, len(freqs))
		}
		return freqs[check.Mode-1], nil
	}
	if err := res.Require(op2.Displacements); err != nil {
		return 0, err
	}
	return MaxTranslation(res.Displacements), nil
}

// MaxTranslation returns the largest translational displacement magnitude.
func MaxTranslation(recs []fem.DisplacementRecord) float64 {
	var peak float64
	for _, r := range recs {
		peak = math.Max(peak, math.Sqrt(r.T[0]*r.T[0]+r.T[1]*r.T[1]+r.T[2]*r.T[2]))
	}
	return peak
}

func meanRatio(plan *Plan, check Check, loader Loader) (float64, error) {
	c, ok := fem.ParseComponent(check.Component)
	if !ok {
		return 0, fmt.Errorf("%w: unknown component %q", ErrInvalidPlan, check.Component)
	}
	ref, err := loader.Stresses(plan.ReferenceStress)
	if err != nil {
		return 0, err
	}
	got, err := loader.Stresses(plan.ComputedStress)
	if err != nil {
		return 0, err
	}
	st := stress.Compare(ref, got, stress.Options{}).Stats(c)
	if !st.HasRatios() {
		return 0, fmt.Errorf("no %s samples above %g to form a ratio", c, stress.InclusionFloor)
	}
	return st.MeanRatio, nil
}

// Package validation turns computed results into pass/fail records and
// evaluates validation plans against conversion and solver output.
package validation

import "math"

// ReferenceFloor is the |reference| below which the absolute error stands
// in for the relative error.
const ReferenceFloor = 1e-10

// Record is the outcome of one metric check.
//
// A record without a reference is informational: it always passes and has
// no relative error.
type Record struct {
	Metric        string   `json:"metric"`
	Computed      float64  `json:"computed"`
	Reference     *float64 `json:"reference"`
	RelativeError *float64 `json:"relative_error"`
	Passed        bool     `json:"passed"`
	Tolerance     *float64 `json:"tolerance"`
}

// Evaluate compares computed against reference. The error is
// |computed-reference| / |reference|, or the absolute difference when the
// reference is within ReferenceFloor of zero. The record passes when the
// error does not exceed tolerance.
func Evaluate(metric string, computed float64, reference *float64, tolerance float64) Record {
	rec := Record{Metric: metric, Computed: computed}
	if reference == nil {
		rec.Passed = true
		return rec
	}
	ref := *reference
	tol := tolerance
	rec.Reference = &ref
	rec.Tolerance = &tol

	errVal := math.Abs(computed - ref)
	if math.Abs(ref) >= ReferenceFloor {
		errVal /= math.Abs(ref)
	}
	rec.RelativeError = &errVal
	rec.Passed = errVal <= tol
	return rec
}

// AllPassed reports whether every record passed. An empty slice has not
// passed.
func AllPassed(records []Record) bool {
	if len(records) == 0 {
		return false
	}
	for _, r := range records {
		if !r.Passed {
			return false
		}
	}
	return true
}

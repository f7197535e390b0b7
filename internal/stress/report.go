package stress

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const rule = 80

// WriteText renders the report as plain text tables.
func (r *Report) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) { fmt.Fprintf(bw, format, args...) }
	banner := func(title string) {
		p("%s\n%s\n%s\n", strings.Repeat("=", rule), title, strings.Repeat("=", rule))
	}

	banner("STRESS COMPARISON")
	p("Integration points: reference=%d computed=%d matched=%d\n", r.ReferenceCount, r.ComputedCount, r.Matched)
	if r.MissingComputed > 0 || r.ExtraComputed > 0 {
		p("Unmatched: missing computed=%d extra computed=%d\n", r.MissingComputed, r.ExtraComputed)
	}

	detail := r.Detail()
	p("\n")
	banner(fmt.Sprintf("DETAILED COMPARISON (first %d points)", len(detail)))
	for _, pt := range detail {
		p("\n--- Element %d, integration point %d ---\n", pt.ElementID, pt.Point)
		p("%-8s %12s %12s %8s %12s\n", "Component", "Reference", "Computed", "Ratio", "Diff")
		p("%s\n", strings.Repeat("-", 60))
		for _, d := range pt.Components {
			ratio := "N/A"
			if d.Ratio != nil {
				ratio = fmt.Sprintf("%.2fx", *d.Ratio)
			}
			flag := ""
			switch {
			case d.ZeroMismatch:
				flag = "  zero"
			case d.SignMismatch:
				flag = "  sign"
			}
			p("%-8s %12.2f %12.2f %8s %12.2f%s\n", d.Name, d.Reference, d.Computed, ratio, d.Diff, flag)
		}
	}

	p("\n")
	banner(fmt.Sprintf("STATISTICS (%d points)", r.Matched))
	for _, st := range r.Components {
		p("\n%s:\n", st.Name)
		if !st.HasRatios() {
			p("  All reference values near zero\n")
			continue
		}
		p("  Reference range: [%.1f, %.1f]\n", st.ReferenceMin, st.ReferenceMax)
		p("  Computed range:  [%.1f, %.1f]\n", st.ComputedMin, st.ComputedMax)
		p("  Ratio: mean=%.3fx, min=%.3fx, max=%.3fx (n=%d)\n", st.MeanRatio, st.MinRatio, st.MaxRatio, st.RatioCount)
	}

	p("\n")
	banner("MISMATCHES")
	p("\nZero values where the reference is non-zero:\n")
	for _, st := range r.Components {
		if st.ZeroMismatches > 0 {
			p("  %s: %d/%d points\n", st.Name, st.ZeroMismatches, r.Matched)
		}
	}
	p("\nOpposite signs:\n")
	for _, st := range r.Components {
		if st.SignMismatches > 0 {
			p("  %s: %d/%d points\n", st.Name, st.SignMismatches, r.Matched)
		}
	}
	return bw.Flush()
}

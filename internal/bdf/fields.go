package bdf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// parseNastranReal parses Nastran real notation: 1.5, 1.5E3, 1.5+3,
// 1.5-3, -.5D-2. Integer text is accepted as a real.
func parseNastranReal(s string) (float64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "D", "E")
	if !strings.Contains(s, "E") {
		// An exponent sign after the mantissa implies E.
		if i := strings.LastIndexAny(s, "+-"); i > 0 {
			s = s[:i] + "E" + s[i:]
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("non-finite real %q", s)
	}
	return v, nil
}

// parseNastranInt parses an integer field.
func parseNastranInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

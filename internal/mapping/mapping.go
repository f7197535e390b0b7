// Package mapping translates Nastran element type tags to CalculiX element
// types.
//
// The table is a versioned constant. Changing an entry changes conversion
// output and must bump TableVersion.
package mapping

import "sort"

// TableVersion identifies the current contents of the mapping table.
const TableVersion = "1"

var table = map[string]string{
	"CROD":    "T3D2",
	"CONROD":  "T3D2",
	"CBAR":    "B31",
	"CBEAM":   "B31",
	"CQUAD4":  "S4",
	"CTRIA3":  "S3",
	"CHEXA":   "C3D8",
	"CHEXA8":  "C3D8",
	"CTETRA":  "C3D4",
	"CTETRA4": "C3D4",
	"CPENTA":  "C3D6",
	"CPENTA6": "C3D6",
}

// nodeCounts is the connectivity length of each target type.
var nodeCounts = map[string]int{
	"T3D2": 2,
	"B31":  2,
	"S3":   3,
	"S4":   4,
	"C3D4": 4,
	"C3D6": 6,
	"C3D8": 8,
}

// Lookup returns the target type for a source tag.
// ok is false when the tag has no mapping; that is a gap, not an error.
func Lookup(tag string) (target string, ok bool) {
	target, ok = table[tag]
	return target, ok
}

// NodeCount returns the number of nodes a target element type takes.
// Source cards with mid-side nodes list their corners first, so the
// leading NodeCount ids are the corners.
func NodeCount(target string) int {
	return nodeCounts[target]
}

// Tags returns every mapped source tag in lexicographic order.
func Tags() []string {
	tags := make([]string, 0, len(table))
	for tag := range table {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Table returns a copy of the mapping table.
func Table() map[string]string {
	out := make(map[string]string, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}

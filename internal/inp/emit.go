package inp

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/deckbridge/internal/fem"
	"github.com/roach88/deckbridge/internal/mapping"
)

// MaxIDsPerLine bounds set data lines; the solver truncates longer lines.
const MaxIDsPerLine = 16

// Stats describes one conversion.
type Stats struct {
	NumNodes        int            `json:"num_nodes"`
	NumElements     int            `json:"num_elements"`
	NumMaterials    int            `json:"num_materials"`
	NumProperties   int            `json:"num_properties"`
	SkippedElements int            `json:"skipped_elements"`
	MappingGaps     map[string]int `json:"mapping_gaps"`
}

// GapTags returns the unmapped source tags in lexicographic order.
func (s Stats) GapTags() []string {
	tags := make([]string, 0, len(s.MappingGaps))
	for tag := range s.MappingGaps {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

type block struct {
	target   string
	elements []fem.Element
}

// Emit writes m to w in the target dialect.
func Emit(w io.Writer, m *fem.Model) (Stats, error) {
	stats := Stats{
		NumNodes:      len(m.Nodes),
		NumMaterials:  len(m.Materials),
		NumProperties: len(m.Properties),
		MappingGaps:   make(map[string]int),
	}

	var blocks []*block
	byTarget := make(map[string]*block)
	var retained []int
	for _, id := range m.ElementIDs() {
		e := m.Elements[id]
		target, ok := mapping.Lookup(e.Type)
		if !ok {
			stats.SkippedElements++
			stats.MappingGaps[e.Type]++
			continue
		}
		b, seen := byTarget[target]
		if !seen {
			b = &block{target: target}
			byTarget[target] = b
			blocks = append(blocks, b)
		}
		b.elements = append(b.elements, e)
		retained = append(retained, id)
	}
	stats.NumElements = len(retained)

	bw := bufio.NewWriter(w)
	ew := &errWriter{w: bw}

	ew.line("** CalculiX Input File")
	ew.line("** Converted from Nastran BDF")
	ew.line("**")
	ew.line("")

	ew.line("*NODE")
	for _, id := range m.NodeIDs() {
		n := m.Nodes[id]
		ew.line(fmt.Sprintf("%d, %.6e, %.6e, %.6e", n.ID, n.X, n.Y, n.Z))
	}
	ew.line("")

	for _, b := range blocks {
		ew.line("*ELEMENT, TYPE=" + b.target)
		count := mapping.NodeCount(b.target)
		for _, e := range b.elements {
			nodes := e.Nodes
			if count > 0 && len(nodes) > count {
				nodes = nodes[:count]
			}
			ew.line(joinInts(append([]int{e.ID}, nodes...)))
		}
		ew.line("")
	}

	for _, id := range m.MaterialIDs() {
		mat := m.Materials[id]
		ew.line("*MATERIAL, NAME=" + mat.Name())
		if mat.Modulus != nil && mat.Poisson != nil {
			ew.line("*ELASTIC")
			ew.line(fmt.Sprintf("%.6e, %.6e", *mat.Modulus, *mat.Poisson))
		}
		if mat.Density != nil {
			ew.line("*DENSITY")
			ew.line(fmt.Sprintf("%.6e", *mat.Density))
		}
		ew.line("")
	}

	ew.set("*ELSET, ELSET=ALL", retained)
	ew.set("*NSET, NSET=ALL", m.NodeIDs())

	if ew.err != nil {
		return Stats{}, fmt.Errorf("emit: %w", ew.err)
	}
	if err := bw.Flush(); err != nil {
		return Stats{}, fmt.Errorf("emit: %w", err)
	}
	return stats, nil
}

// errWriter keeps the first write error so the section code above stays
// linear.
type errWriter struct {
	w   *bufio.Writer
	err error
}

func (ew *errWriter) line(s string) {
	if ew.err != nil {
		return
	}
	if _, err := ew.w.WriteString(s); err != nil {
		ew.err = err
		return
	}
	ew.err = ew.w.WriteByte('\n')
}

// set writes a set header and its ids, MaxIDsPerLine per line. Every line
// but the last ends with a comma.
func (ew *errWriter) set(header string, ids []int) {
	ew.line(header)
	for start := 0; start < len(ids); start += MaxIDsPerLine {
		end := min(start+MaxIDsPerLine, len(ids))
		text := joinInts(ids[start:end])
		if end < len(ids) {
			text += ","
		}
		ew.line(text)
	}
	ew.line("")
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}

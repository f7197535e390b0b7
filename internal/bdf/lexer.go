package bdf

import (
	"strings"
)

const (
	smallWidth = 8
	largeWidth = 16
	fixedEnd   = 72
)

// card is one logical bulk data entry after continuation lines are joined.
//
// fields holds the data fields after the card name. Each physical line
// contributes eight slots (four for large-field lines) so that a field's
// index is the same whatever the input format.
type card struct {
	name   string
	line   int
	fields []string
}

// physical is one non-comment input line split into its first field and
// data fields.
type physical struct {
	first string
	data  []string
	large bool
}

func (p physical) continuation() bool {
	return p.first == "" || strings.HasPrefix(p.first, "+") || strings.HasPrefix(p.first, "*")
}

// stripComment removes a '$' comment and trailing whitespace.
func stripComment(text string) string {
	if i := strings.IndexByte(text, '$'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimRight(text, " \t\r\n")
}

// expandTabs replaces tabs with spaces up to the next 8-column stop.
func expandTabs(text string) string {
	if !strings.Contains(text, "\t") {
		return text
	}
	var b strings.Builder
	col := 0
	for _, r := range text {
		if r == '\t' {
			n := smallWidth - col%smallWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}

// split breaks a line into fields in free, small or large field format.
func split(text string) physical {
	if strings.Contains(text, ",") {
		return splitFree(text)
	}
	return splitFixed(expandTabs(text))
}

func splitFree(text string) physical {
	parts := strings.Split(text, ",")
	p := physical{first: strings.TrimSpace(parts[0])}
	p.large = strings.HasSuffix(p.first, "*") || strings.HasPrefix(p.first, "*")
	width := 8
	if p.large {
		width = 4
	}
	data := parts[1:]
	// A tenth field is the continuation marker when nothing follows it.
	if len(data) == width+1 {
		last := strings.TrimSpace(data[width])
		if last == "" || strings.HasPrefix(last, "+") || strings.HasPrefix(last, "*") {
			data = data[:width]
		}
	}
	p.data = pad(trimAll(data), width)
	return p
}

func splitFixed(text string) physical {
	p := physical{first: strings.TrimSpace(column(text, 0, smallWidth))}
	p.large = strings.HasSuffix(p.first, "*") || strings.HasPrefix(p.first, "*")
	width, n := smallWidth, 8
	if p.large {
		width, n = largeWidth, 4
	}
	p.data = make([]string, n)
	for i := 0; i < n; i++ {
		start := smallWidth + i*width
		p.data[i] = strings.TrimSpace(column(text, start, min(start+width, fixedEnd)))
	}
	return p
}

func column(text string, start, end int) string {
	if start >= len(text) {
		return ""
	}
	if end > len(text) {
		end = len(text)
	}
	return text[start:end]
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

// pad extends fields to a multiple of width.
func pad(fields []string, width int) []string {
	if rem := len(fields) % width; rem != 0 || len(fields) == 0 {
		fields = append(fields, make([]string, width-rem)...)
	}
	return fields
}

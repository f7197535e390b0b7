package fem

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 style canonical JSON.
// It is the only serialization used for fingerprints.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. Floats are encoded as strings in shortest round-trip form
//  5. null is rejected; optional values are omitted by the caller
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		writeCanonicalString(buf, val)
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("non-finite float in canonical JSON: %v", val)
		}
		writeCanonicalString(buf, strconv.FormatFloat(val, 'g', -1, 64))
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		buf.WriteByte('{')
		for i, k := range sortedUTF16Keys(val) {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString escapes only quote, backslash and control characters.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	const hex = "0123456789abcdef"
	buf.WriteByte('"')
	for _, r := range norm.NFC.String(s) {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hex[r>>4])
				buf.WriteByte(hex[r&0xf])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

// sortedUTF16Keys orders keys by UTF-16 code units as RFC 8785 requires.
func sortedUTF16Keys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
	})
	return keys
}

// canonicalMap converts the model into the value tree used for hashing.
// Optional fields are omitted when absent.
func (m *Model) canonicalMap() map[string]any {
	nodes := make([]any, 0, len(m.Nodes))
	for _, id := range m.NodeIDs() {
		n := m.Nodes[id]
		nodes = append(nodes, map[string]any{"id": n.ID, "x": n.X, "y": n.Y, "z": n.Z})
	}

	elements := make([]any, 0, len(m.Elements))
	for _, id := range m.ElementIDs() {
		e := m.Elements[id]
		conn := make([]any, len(e.Nodes))
		for i, nid := range e.Nodes {
			conn[i] = nid
		}
		obj := map[string]any{"id": e.ID, "type": e.Type, "nodes": conn, "pid": e.PropertyID}
		if e.Inline != nil {
			obj["inline"] = e.Inline.canonicalMap()
		}
		elements = append(elements, obj)
	}

	materials := make([]any, 0, len(m.Materials))
	for _, id := range m.MaterialIDs() {
		mat := m.Materials[id]
		obj := map[string]any{"id": mat.ID, "card": mat.Card}
		putFloat(obj, "e", mat.Modulus)
		putFloat(obj, "g", mat.Shear)
		putFloat(obj, "nu", mat.Poisson)
		putFloat(obj, "rho", mat.Density)
		materials = append(materials, obj)
	}

	properties := make([]any, 0, len(m.Properties))
	for _, id := range m.PropertyIDs() {
		p := m.Properties[id]
		properties = append(properties, p.canonicalMap())
	}

	sol := map[string]any{"known": m.Solution.Known}
	if m.Solution.Known {
		sol["code"] = m.Solution.Code
	}

	return map[string]any{
		"version":    ModelVersion,
		"solution":   sol,
		"nodes":      nodes,
		"elements":   elements,
		"materials":  materials,
		"properties": properties,
		"tallies": map[string]any{
			"loads":    m.Loads,
			"spc_sets": m.SPCSets,
			"mpc_sets": m.MPCSets,
			"coords":   m.Coords,
		},
	}
}

func (p Property) canonicalMap() map[string]any {
	obj := map[string]any{"id": p.ID, "type": p.Type}
	if p.MaterialID != nil {
		obj["mid"] = *p.MaterialID
	}
	putFloat(obj, "t", p.Thickness)
	putFloat(obj, "a", p.Area)
	return obj
}

func putFloat(obj map[string]any, key string, v *float64) {
	if v != nil {
		obj[key] = *v
	}
}

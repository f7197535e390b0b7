package bdf

import (
	"fmt"

	"github.com/roach88/deckbridge/internal/fem"
)

func (c *card) field(i int) string {
	if i < 0 || i >= len(c.fields) {
		return ""
	}
	return c.fields[i]
}

func (p *parser) fail(c *card, format string, args ...any) error {
	return fem.ParseFailure(p.path, c.line, c.name, format, args...)
}

func (p *parser) requireInt(c *card, i int, label string) (int, error) {
	v, err := p.optionalInt(c, i, label)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, p.fail(c, "missing %s (field %d)", label, i+2)
	}
	return *v, nil
}

func (p *parser) optionalInt(c *card, i int, label string) (*int, error) {
	s := c.field(i)
	if s == "" {
		return nil, nil
	}
	v, err := parseNastranInt(s)
	if err != nil {
		return nil, p.fail(c, "invalid integer %s %q (field %d)", label, s, i+2)
	}
	return &v, nil
}

func (p *parser) optionalReal(c *card, i int, label string) (*float64, error) {
	s := c.field(i)
	if s == "" {
		return nil, nil
	}
	v, err := parseNastranReal(s)
	if err != nil {
		return nil, p.fail(c, "invalid real %s %q (field %d)", label, s, i+2)
	}
	return &v, nil
}

// String is used in debugging output.
func (c *card) String() string {
	return fmt.Sprintf("%s@%d%v", c.name, c.line, c.fields)
}

package validation

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/deckbridge/internal/fem"
)

//go:embed schema.cue
var schemaSource string

// ErrInvalidPlan marks plans that do not satisfy the schema.
var ErrInvalidPlan = errors.New("invalid plan")

// Check kinds.
const (
	KindFrequency       = "frequency"
	KindMaxDisplacement = "max_displacement"
	KindEigenvalueCount = "eigenvalue_count"
	KindStressRatio     = "stress_ratio"
	KindNodeCount       = "node_count"
	KindElementCount    = "element_count"
)

// Plan names a validation case, the files it reads and the checks to run.
// File paths are relative to the plan file.
type Plan struct {
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	Deck            string  `json:"deck,omitempty"`
	Archive         string  `json:"archive,omitempty"`
	ReferenceStress string  `json:"reference_stress,omitempty"`
	ComputedStress  string  `json:"computed_stress,omitempty"`
	Tolerance       float64 `json:"tolerance"`
	Checks          []Check `json:"checks"`
}

// Check is one metric to compute and, when Reference is set, judge.
type Check struct {
	Kind      string   `json:"kind"`
	Metric    string   `json:"metric,omitempty"`
	Mode      int      `json:"mode,omitempty"`
	Component string   `json:"component,omitempty"`
	Reference *float64 `json:"reference,omitempty"`
	Tolerance *float64 `json:"tolerance,omitempty"`
}

// MetricName returns the metric label of the check.
func (c Check) MetricName() string {
	if c.Metric != "" {
		return c.Metric
	}
	switch c.Kind {
	case KindFrequency:
		return fmt.Sprintf("frequency_mode_%d", c.Mode)
	case KindStressRatio:
		return "stress_ratio_" + c.Component
	}
	return c.Kind
}

// LoadPlan reads a .yaml, .yml or .cue plan, checks it against the schema
// and resolves its file paths against the plan's directory.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fem.NotFound(path, err)
		}
		return nil, fmt.Errorf("read plan: %w", err)
	}

	ctx := cuecontext.New()
	var value cue.Value
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %s: parse YAML: %v", ErrInvalidPlan, path, err)
		}
		value = ctx.Encode(raw)
	case ".cue":
		value = ctx.CompileBytes(data, cue.Filename(path))
	default:
		return nil, fem.Unsupported(path, "unsupported plan extension %q; expected .yaml, .yml or .cue", filepath.Ext(path))
	}
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPlan, path, err)
	}

	plan, err := decodePlan(ctx, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPlan, path, err)
	}
	plan.resolve(filepath.Dir(path))
	return plan, nil
}

// decodePlan unifies value with the embedded schema and decodes the result.
func decodePlan(ctx *cue.Context, value cue.Value) (*Plan, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Plan")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, err
	}
	var plan Plan
	if err := unified.Decode(&plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (p *Plan) resolve(dir string) {
	for _, field := range []*string{&p.Deck, &p.Archive, &p.ReferenceStress, &p.ComputedStress} {
		if *field != "" && !filepath.IsAbs(*field) {
			*field = filepath.Join(dir, *field)
		}
	}
}

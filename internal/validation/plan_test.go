package validation

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deckbridge/internal/fem"
	"github.com/roach88/deckbridge/internal/testutil"
)

const yamlPlan = `name: cantilever
description: tip load on a plate
deck: model.bdf
archive: results/model.op2
tolerance: 0.02
checks:
  - kind: frequency
    mode: 1
    reference: 10
  - kind: eigenvalue_count
    reference: 1
    tolerance: 0.001
  - kind: stress_ratio
    component: syy
  - kind: node_count
    metric: grid_points
`

const cuePlan = `
name:    "cue-plan"
archive: "/abs/modes.op2"
checks: [{kind: "max_displacement"}]
`

func TestLoadPlan_YAML(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "plan.yaml", yamlPlan)

	plan, err := LoadPlan(path)
	require.NoError(t, err)

	assert.Equal(t, "cantilever", plan.Name)
	assert.Equal(t, "tip load on a plate", plan.Description)
	assert.Equal(t, filepath.Join(dir, "model.bdf"), plan.Deck)
	assert.Equal(t, filepath.Join(dir, "results", "model.op2"), plan.Archive)
	assert.Empty(t, plan.ReferenceStress)
	assert.Equal(t, 0.02, plan.Tolerance)

	require.Len(t, plan.Checks, 4)
	assert.Equal(t, Check{Kind: KindFrequency, Mode: 1, Reference: ptr(10)}, plan.Checks[0])
	assert.Equal(t, ptr(0.001), plan.Checks[1].Tolerance)
	assert.Equal(t, "syy", plan.Checks[2].Component)
	assert.Equal(t, "grid_points", plan.Checks[3].MetricName())
}

func TestLoadPlan_CUEAppliesDefaults(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "plan.cue", cuePlan)

	plan, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, 0.05, plan.Tolerance)
	assert.Equal(t, "/abs/modes.op2", plan.Archive)
	assert.Equal(t, []Check{{Kind: KindMaxDisplacement}}, plan.Checks)
}

func TestLoadPlan_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing name", content: "checks:\n  - kind: node_count\n"},
		{name: "no checks", content: "name: x\nchecks: []\n"},
		{name: "unknown kind", content: "name: x\nchecks:\n  - kind: strain_energy\n"},
		{name: "unknown field", content: "name: x\nsolver: ccx\nchecks:\n  - kind: node_count\n"},
		{name: "frequency without mode", content: "name: x\nchecks:\n  - kind: frequency\n"},
		{name: "stress ratio without component", content: "name: x\nchecks:\n  - kind: stress_ratio\n"},
		{name: "bad component", content: "name: x\nchecks:\n  - kind: stress_ratio\n    component: sxz2\n"},
		{name: "zero mode", content: "name: x\nchecks:\n  - kind: frequency\n    mode: 0\n"},
		{name: "negative tolerance", content: "name: x\ntolerance: -1\nchecks:\n  - kind: node_count\n"},
		{name: "malformed yaml", content: "name: [x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, t.TempDir(), "plan.yml", tt.content)
			_, err := LoadPlan(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPlan), "got %v", err)
		})
	}
}

func TestLoadPlan_FileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadPlan(filepath.Join(dir, "absent.yaml"))
	assert.True(t, fem.IsNotFound(err), "got %v", err)

	path := testutil.WriteFile(t, dir, "plan.json", `{"name":"x"}`)
	_, err = LoadPlan(path)
	assert.True(t, fem.IsFormat(err), "got %v", err)
}

func TestCheckMetricName(t *testing.T) {
	assert.Equal(t, "frequency_mode_3", Check{Kind: KindFrequency, Mode: 3}.MetricName())
	assert.Equal(t, "stress_ratio_sxy", Check{Kind: KindStressRatio, Component: "sxy"}.MetricName())
	assert.Equal(t, "max_displacement", Check{Kind: KindMaxDisplacement}.MetricName())
	assert.Equal(t, "custom", Check{Kind: KindNodeCount, Metric: "custom"}.MetricName())
}

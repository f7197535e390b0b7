package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deckbridge/internal/validation"
)

func TestListValidations_RoundTripsRecords(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestExample(t, s, "plate")

	want := sampleRecords()
	run := NewRun("plate", fixedDate, "deadbeef")
	require.NoError(t, s.WriteValidation(ctx, run, want))

	rows, err := s.ListValidations(ctx, "plate")
	require.NoError(t, err)

	got := make([]validation.Record, len(rows))
	for i, r := range rows {
		got[i] = r.Record
		assert.Equal(t, run.ID, r.RunID)
		assert.Equal(t, "plate", r.Example)
		assert.True(t, fixedDate.Equal(r.RunDate))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestListValidations_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)
	rows, err := s.ListValidations(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestListValidations_FiltersByExample(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestExample(t, s, "plate")
	createTestExample(t, s, "beam")

	require.NoError(t, s.WriteValidation(ctx, NewRun("plate", fixedDate, ""), sampleRecords()))
	require.NoError(t, s.WriteValidation(ctx, NewRun("beam", fixedDate, ""), sampleRecords()[:1]))

	rows, err := s.ListValidations(ctx, "beam")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(4), rows[0].Seq)
}

func TestLatestRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestExample(t, s, "plate")

	_, err := s.LatestRun(ctx, "plate")
	assert.True(t, errors.Is(err, ErrNoRuns))

	first := NewRun("plate", fixedDate, "")
	// A later run with an earlier wall clock still wins by seq.
	second := NewRun("plate", fixedDate.Add(-time.Hour), "")
	require.NoError(t, s.WriteValidation(ctx, first, sampleRecords()))
	require.NoError(t, s.WriteValidation(ctx, second, sampleRecords()[1:]))

	rows, err := s.LatestRun(ctx, "plate")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, second.ID, r.RunID)
	}
	assert.Equal(t, "max_displacement", rows[0].Metric)
}

func TestStats(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestExample(t, s, "plate")

	empty, err := s.Stats(ctx, "plate")
	require.NoError(t, err)
	assert.Equal(t, ExampleStats{Example: "plate"}, empty)

	later := fixedDate.Add(24 * time.Hour)
	require.NoError(t, s.WriteValidation(ctx, NewRun("plate", fixedDate, ""), sampleRecords()))
	require.NoError(t, s.WriteValidation(ctx, NewRun("plate", later, ""), sampleRecords()[:1]))

	st, err := s.Stats(ctx, "plate")
	require.NoError(t, err)
	assert.Equal(t, 4, st.NumValidations)
	assert.False(t, st.AllPassed)
	assert.InDelta(t, 20.0, st.MaxErrorPercent, 1e-9)
	assert.InDelta(t, (1+20+1)/4.0, st.AvgErrorPercent, 1e-9)
	require.NotNil(t, st.LastRun)
	assert.True(t, later.Equal(*st.LastRun))
}

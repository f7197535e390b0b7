package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/roach88/deckbridge/internal/validation"
)

// ErrNoRuns is returned by LatestRun for an example without results.
var ErrNoRuns = errors.New("no validation runs")

// ValidationRow is one stored record with its run metadata.
type ValidationRow struct {
	Seq       int64     `json:"seq"`
	RunID     string    `json:"run_id"`
	Example   string    `json:"example"`
	RunDate   time.Time `json:"run_date"`
	GitCommit string    `json:"git_commit,omitempty"`
	validation.Record
}

// ExampleStats summarises an example's validation history.
type ExampleStats struct {
	Example         string     `json:"example"`
	NumValidations  int        `json:"num_validations"`
	AllPassed       bool       `json:"all_passed"`
	MaxErrorPercent float64    `json:"max_error_percent"`
	AvgErrorPercent float64    `json:"avg_error_percent"`
	LastRun         *time.Time `json:"last_run"`
}

const selectRows = `
	SELECT r.seq, r.run_id, e.name, r.run_date, r.metric_name, r.computed_value,
	       r.analytical_value, r.relative_error, r.passed, r.tolerance, r.git_commit
	FROM validation_results r
	JOIN examples e ON r.example_id = e.id
`

// ListExamples returns every example ordered by name.
func (s *Store) ListExamples(ctx context.Context) ([]Example, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, input_file_path, element_type,
		       num_nodes, num_elements, num_dofs, created_at
		FROM examples
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query examples: %w", err)
	}
	defer rows.Close()

	examples := []Example{}
	for rows.Next() {
		var ex Example
		var created string
		if err := rows.Scan(&ex.ID, &ex.Name, &ex.Description, &ex.InputFilePath, &ex.ElementType,
			&ex.NumNodes, &ex.NumElements, &ex.NumDOFs, &created); err != nil {
			return nil, fmt.Errorf("scan example: %w", err)
		}
		if ex.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at of %q: %w", ex.Name, err)
		}
		examples = append(examples, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate examples: %w", err)
	}
	return examples, nil
}

// ListValidations returns every record of example ordered by seq.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListValidations(ctx context.Context, example string) ([]ValidationRow, error) {
	return s.queryRows(ctx, selectRows+`
		WHERE e.name = ?
		ORDER BY r.seq ASC
	`, example)
}

// LatestRun returns the records of example's most recent run, by seq.
func (s *Store) LatestRun(ctx context.Context, example string) ([]ValidationRow, error) {
	var runID string
	err := s.db.QueryRowContext(ctx, `
		SELECT r.run_id
		FROM validation_results r
		JOIN examples e ON r.example_id = e.id
		WHERE e.name = ?
		ORDER BY r.seq DESC
		LIMIT 1
	`, example).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for %q", ErrNoRuns, example)
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}

	return s.queryRows(ctx, selectRows+`
		WHERE r.run_id = ?
		ORDER BY r.seq ASC
	`, runID)
}

// Stats summarises example's history. Error percentages are over records
// with a relative error; the average divides by every record, so
// informational records pull it down. An example with no records has not
// passed.
func (s *Store) Stats(ctx context.Context, example string) (ExampleStats, error) {
	st := ExampleStats{Example: example}
	rows, err := s.ListValidations(ctx, example)
	if err != nil {
		return st, err
	}
	st.NumValidations = len(rows)
	if len(rows) == 0 {
		return st, nil
	}

	st.AllPassed = true
	var sum float64
	for _, r := range rows {
		st.AllPassed = st.AllPassed && r.Passed
		if r.RelativeError != nil {
			pct := math.Abs(*r.RelativeError) * 100
			st.MaxErrorPercent = math.Max(st.MaxErrorPercent, pct)
			sum += pct
		}
		if st.LastRun == nil || r.RunDate.After(*st.LastRun) {
			date := r.RunDate
			st.LastRun = &date
		}
	}
	st.AvgErrorPercent = sum / float64(len(rows))
	return st, nil
}

func (s *Store) queryRows(ctx context.Context, query string, args ...any) ([]ValidationRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query validations: %w", err)
	}
	defer rows.Close()

	out := []ValidationRow{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validations: %w", err)
	}
	return out, nil
}

func scanRow(rows *sql.Rows) (ValidationRow, error) {
	var (
		row                      ValidationRow
		date                     string
		reference, relErr, toler sql.NullFloat64
	)
	err := rows.Scan(&row.Seq, &row.RunID, &row.Example, &date, &row.Metric, &row.Computed,
		&reference, &relErr, &row.Passed, &toler, &row.GitCommit)
	if err != nil {
		return row, fmt.Errorf("scan validation: %w", err)
	}
	if row.RunDate, err = time.Parse(timeLayout, date); err != nil {
		return row, fmt.Errorf("parse run_date of seq %d: %w", row.Seq, err)
	}
	row.Reference = floatPtr(reference)
	row.RelativeError = floatPtr(relErr)
	row.Tolerance = floatPtr(toler)
	return row, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

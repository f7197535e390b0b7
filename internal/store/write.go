package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/deckbridge/internal/validation"
)

// ErrUnknownExample is returned when a run names an example that was never
// registered.
var ErrUnknownExample = errors.New("unknown example")

// timeLayout is the stored form of every timestamp.
const timeLayout = time.RFC3339Nano

// Example describes one validation case.
type Example struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	InputFilePath string    `json:"input_file_path"`
	ElementType   string    `json:"element_type"`
	NumNodes      int       `json:"num_nodes"`
	NumElements   int       `json:"num_elements"`
	NumDOFs       int       `json:"num_dofs"`
	CreatedAt     time.Time `json:"created_at"`
}

// Run identifies one batch of validation records.
type Run struct {
	ID        string
	Example   string
	Date      time.Time
	GitCommit string
}

// NewRun returns a run for example with a fresh id.
func NewRun(example string, date time.Time, gitCommit string) Run {
	return Run{ID: uuid.NewString(), Example: example, Date: date, GitCommit: gitCommit}
}

// UpsertExample inserts ex or, when an example of the same name exists,
// updates its descriptive columns. created_at is kept from the first insert.
// It returns the example's row id.
func (s *Store) UpsertExample(ctx context.Context, ex Example) (int64, error) {
	if ex.Name == "" {
		return 0, fmt.Errorf("upsert example: empty name")
	}
	created := ex.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO examples
		(name, description, input_file_path, element_type, num_nodes, num_elements, num_dofs, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			input_file_path = excluded.input_file_path,
			element_type = excluded.element_type,
			num_nodes = excluded.num_nodes,
			num_elements = excluded.num_elements,
			num_dofs = excluded.num_dofs
	`,
		ex.Name,
		ex.Description,
		ex.InputFilePath,
		ex.ElementType,
		ex.NumNodes,
		ex.NumElements,
		ex.NumDOFs,
		created.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("upsert example: %w", err)
	}

	id, err := s.exampleID(ctx, s.db, ex.Name)
	if err != nil {
		return 0, fmt.Errorf("upsert example: %w", err)
	}
	return id, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) exampleID(ctx context.Context, q queryRower, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM examples WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownExample, name)
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// WriteValidation stores records under run in one transaction, assigning
// consecutive seq values in slice order.
func (s *Store) WriteValidation(ctx context.Context, run Run, records []validation.Record) error {
	if run.ID == "" {
		return fmt.Errorf("write validation: empty run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write validation: %w", err)
	}
	defer tx.Rollback()

	exampleID, err := s.exampleID(ctx, tx, run.Example)
	if err != nil {
		return fmt.Errorf("write validation: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM validation_results`).Scan(&seq); err != nil {
		return fmt.Errorf("write validation: next seq: %w", err)
	}

	date := run.Date.UTC().Format(timeLayout)
	for _, rec := range records {
		seq++
		_, err := tx.ExecContext(ctx, `
			INSERT INTO validation_results
			(seq, run_id, example_id, run_date, metric_name, computed_value,
			 analytical_value, relative_error, passed, tolerance, git_commit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			seq,
			run.ID,
			exampleID,
			date,
			rec.Metric,
			rec.Computed,
			nullFloat(rec.Reference),
			nullFloat(rec.RelativeError),
			rec.Passed,
			nullFloat(rec.Tolerance),
			run.GitCommit,
		)
		if err != nil {
			return fmt.Errorf("write validation %s: %w", rec.Metric, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write validation: commit: %w", err)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

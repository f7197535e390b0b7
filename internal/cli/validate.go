package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/deckbridge/internal/bdf"
	"github.com/roach88/deckbridge/internal/store"
	"github.com/roach88/deckbridge/internal/validation"
)

// ValidateOutput is the validate command payload.
type ValidateOutput struct {
	Plan    string              `json:"plan"`
	Passed  bool                `json:"passed"`
	RunID   string              `json:"run_id,omitempty"`
	Records []validation.Record `json:"records"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var commit string

	cmd := &cobra.Command{
		Use:   "validate <plan>",
		Short: "Evaluate a validation plan",
		Long: `Loads a validation plan (.yaml, .yml or .cue), checks it against the
plan schema and evaluates every check. With --db the records are stored as
one run of the plan's example.

Exit codes: 0 all checks passed, 1 a check failed, 2 command error.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], commit, cmd)
		},
	}

	cmd.Flags().StringVar(&commit, "commit", "", "source revision recorded with the run")
	return cmd
}

func runValidate(opts *RootOptions, planPath, commit string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.log()

	plan, err := validation.LoadPlan(planPath)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Loaded plan %s with %d check(s)", plan.Name, len(plan.Checks))

	records, err := validation.Run(plan, validation.NewFileLoader(nil))
	if err != nil {
		return formatter.Fail(err)
	}
	out := ValidateOutput{Plan: plan.Name, Passed: validation.AllPassed(records), Records: records}

	if opts.DB != "" {
		runID, err := persistRun(cmd, opts.DB, plan, records, commit)
		if err != nil {
			log.Debug("store run failed", zap.String("db", opts.DB), zap.Error(err))
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeStore, err)
		}
		out.RunID = runID
		log.Debug("stored run", zap.String("db", opts.DB), zap.String("run_id", runID))
	}

	if formatter.JSON() {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		writeRecordsText(formatter, out)
	}

	if !out.Passed {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: plan %s failed", ErrCodeChecksFail, plan.Name))
	}
	return nil
}

func persistRun(cmd *cobra.Command, dbPath string, plan *validation.Plan, records []validation.Record, commit string) (string, error) {
	ctx := cmd.Context()
	s, err := store.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer s.Close()

	ex := store.Example{Name: plan.Name, Description: plan.Description, InputFilePath: plan.Deck}
	if plan.Deck != "" {
		if res, err := bdf.ReadFile(plan.Deck); err == nil {
			ex.NumNodes = len(res.Model.Nodes)
			ex.NumElements = len(res.Model.Elements)
			ex.NumDOFs = 6 * ex.NumNodes
			if counts := res.Model.ElementTypeCounts(); len(counts) == 1 {
				ex.ElementType = counts[0].Type
			} else if len(counts) > 1 {
				ex.ElementType = "mixed"
			}
		}
	}
	if _, err := s.UpsertExample(ctx, ex); err != nil {
		return "", err
	}

	run := store.NewRun(plan.Name, time.Now(), commit)
	if err := s.WriteValidation(ctx, run, records); err != nil {
		return "", err
	}
	return run.ID, nil
}

func writeRecordsText(formatter *OutputFormatter, out ValidateOutput) {
	w := formatter.Writer
	fmt.Fprintf(w, "Plan: %s\n", out.Plan)
	for _, r := range out.Records {
		mark := "✓"
		if !r.Passed {
			mark = "✗"
		}
		switch {
		case r.Reference == nil:
			fmt.Fprintf(w, "%s %-28s %14.6g\n", mark, r.Metric, r.Computed)
		default:
			fmt.Fprintf(w, "%s %-28s %14.6g  ref %14.6g  err %8.3f%%  tol %6.2f%%\n",
				mark, r.Metric, r.Computed, *r.Reference, *r.RelativeError*100, *r.Tolerance*100)
		}
	}
	if out.RunID != "" {
		fmt.Fprintf(w, "Stored run %s\n", out.RunID)
	}
	if out.Passed {
		fmt.Fprintln(w, "✓ All checks passed")
	} else {
		fmt.Fprintln(w, "✗ Validation failed")
	}
}

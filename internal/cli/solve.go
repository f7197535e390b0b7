package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/deckbridge/internal/solver"
)

// SolveOutput is the solve command payload.
type SolveOutput struct {
	Deck    string         `json:"deck"`
	Solver  string         `json:"solver"`
	Outputs solver.Outputs `json:"outputs"`
}

// NewSolveCommand creates the solve command.
func NewSolveCommand(rootOpts *RootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "solve <deck.inp>",
		Short: "Run the CalculiX solver on a converted deck",
		Long: `Runs the solver found on PATH at startup in the deck's directory.
The listing (.dat) and results (.frd) are written next to the deck.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			runner, err := solver.NewExecRunner(rootOpts.Caps)
			if err != nil {
				_ = formatter.Error(ErrCodeSolver, err.Error(), nil)
				return WrapExitError(ExitCommandError, ErrCodeSolver, err)
			}
			runner.Timeout = timeout
			return runSolve(rootOpts, runner, rootOpts.Caps.SolverPath, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", solver.DefaultTimeout, "abort the solver after this long")
	return cmd
}

func runSolve(opts *RootOptions, runner solver.Runner, solverPath, deck string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts.log().Debug("running solver", zap.String("solver", solverPath), zap.String("deck", deck))
	if err := runner.Run(ctx, deck); err != nil {
		code := ErrCodeSolver
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("solver timed out: %w", err)
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, code, err)
	}

	out := SolveOutput{Deck: deck, Solver: solverPath, Outputs: solver.OutputsFor(deck)}
	if formatter.JSON() {
		return formatter.Success(out)
	}
	fmt.Fprintf(formatter.Writer, "✓ Solved %s\n  listing: %s\n  results: %s\n", deck, out.Outputs.Listing, out.Outputs.Results)
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/deckbridge/internal/inp"
)

// BatchResult is the outcome of converting one deck in a batch.
type BatchResult struct {
	Deck   string     `json:"deck"`
	Output string     `json:"output"`
	Stats  *inp.Stats `json:"stats,omitempty"`
	Error  string     `json:"error,omitempty"`
	Code   string     `json:"code,omitempty"`
}

// OK reports whether the conversion succeeded.
func (r BatchResult) OK() bool {
	return r.Error == ""
}

// BatchOutput is the batch command payload.
type BatchOutput struct {
	Converted int           `json:"converted"`
	Failed    int           `json:"failed"`
	Results   []BatchResult `json:"results"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		outDir string
		jobs   int
	)

	cmd := &cobra.Command{
		Use:   "batch <deck>...",
		Short: "Convert several decks in parallel",
		Long: `Converts each deck independently into --out-dir. A failing deck does
not stop the others; the command exits 1 when any deck failed.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(rootOpts, args, outDir, jobs, cmd)
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for converted decks (required)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "number of parallel conversions")
	_ = cmd.MarkFlagRequired("out-dir")
	return cmd
}

func runBatch(opts *RootOptions, decks []string, outDir string, jobs int, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if jobs < 1 {
		_ = formatter.Error(ErrCodeUsage, fmt.Sprintf("--jobs must be at least 1, got %d", jobs), nil)
		return NewExitError(ExitCommandError, ErrCodeUsage)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
	}
	if err := checkDistinctOutputs(decks); err != nil {
		_ = formatter.Error(ErrCodeUsage, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeUsage, err)
	}

	results, err := ConvertBatch(cmd.Context(), opts.log(), decks, outDir, jobs)
	if err != nil {
		return formatter.Fail(err)
	}

	out := BatchOutput{Results: results}
	for _, r := range results {
		if r.OK() {
			out.Converted++
		} else {
			out.Failed++
		}
	}

	if formatter.JSON() {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.OK() {
				fmt.Fprintf(formatter.Writer, "✓ %s -> %s (%d elements, %d skipped)\n",
					r.Deck, r.Output, r.Stats.NumElements, r.Stats.SkippedElements)
			} else {
				fmt.Fprintf(formatter.Writer, "✗ %s [%s]: %s\n", r.Deck, r.Code, r.Error)
			}
		}
		fmt.Fprintf(formatter.Writer, "\n%d converted, %d failed\n", out.Converted, out.Failed)
	}

	if out.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d of %d conversions failed", ErrCodeBatchFailed, out.Failed, len(decks)))
	}
	return nil
}

// checkDistinctOutputs rejects batches where two decks would write the same
// output file.
func checkDistinctOutputs(decks []string) error {
	seen := make(map[string]string, len(decks))
	for _, deck := range decks {
		name := filepath.Base(defaultOutput(deck))
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%s and %s both convert to %s", prev, deck, name)
		}
		seen[name] = deck
	}
	return nil
}

// ConvertBatch converts decks into outDir with at most jobs conversions in
// flight. Each conversion owns its model; results are positional. A
// cancelled context stops decks that have not started.
func ConvertBatch(ctx context.Context, log *zap.Logger, decks []string, outDir string, jobs int) ([]BatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]BatchResult, len(decks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, deck := range decks {
		i, deck := i, deck
		output := filepath.Join(outDir, filepath.Base(defaultOutput(deck)))
		results[i] = BatchResult{Deck: deck, Output: output}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats, err := inp.ConvertFile(deck, output)
			if err != nil {
				log.Debug("batch deck failed", zap.String("deck", deck), zap.Error(err))
				results[i].Error = err.Error()
				results[i].Code = ErrorCode(err)
				return nil
			}
			log.Debug("batch deck converted",
				zap.String("deck", deck),
				zap.String("output", output),
				zap.Int("elements", stats.NumElements),
			)
			results[i].Stats = &stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch cancelled: %w", err)
	}
	return results, nil
}

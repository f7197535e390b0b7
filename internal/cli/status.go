package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/deckbridge/internal/bdf"
	"github.com/roach88/deckbridge/internal/fem"
	"github.com/roach88/deckbridge/internal/mapping"
	"github.com/roach88/deckbridge/internal/store"
)

// StatusOutput is the status command payload.
type StatusOutput struct {
	Version        string               `json:"version"`
	DeckReader     bool                 `json:"deck_reader"`
	ArchiveReader  bool                 `json:"archive_reader"`
	DeckExtensions []string             `json:"deck_extensions"`
	MappingVersion string               `json:"mapping_version"`
	MappedTags     []string             `json:"mapped_tags"`
	SolverName     string               `json:"solver_name"`
	SolverPath     string               `json:"solver_path,omitempty"`
	SolverFound    bool                 `json:"solver_found"`
	Examples       []store.ExampleStats `json:"examples,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report capabilities and validation history",
		Long: `Reports which readers are built in, the element mapping table, whether
the solver was found on PATH, and with --db the validation history of every
stored example.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	out := StatusOutput{
		Version:        fem.ToolVersion,
		DeckReader:     true,
		ArchiveReader:  true,
		DeckExtensions: bdf.SupportedExtensions,
		MappingVersion: mapping.TableVersion,
		MappedTags:     mapping.Tags(),
		SolverName:     opts.Caps.SolverName,
		SolverPath:     opts.Caps.SolverPath,
		SolverFound:    opts.Caps.SolverFound,
	}

	if opts.DB != "" {
		stats, err := historyStats(cmd, opts.DB)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeStore, err)
		}
		out.Examples = stats
	}

	if formatter.JSON() {
		return formatter.Success(out)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "deckbridge %s\n", out.Version)
	fmt.Fprintf(w, "Deck reader:    available %v\n", out.DeckExtensions)
	fmt.Fprintln(w, "Archive reader: available")
	fmt.Fprintf(w, "Mapping table:  v%s (%d source tags)\n", out.MappingVersion, len(out.MappedTags))
	if out.SolverFound {
		fmt.Fprintf(w, "Solver:         %s\n", out.SolverPath)
	} else {
		fmt.Fprintf(w, "Solver:         %s not found on PATH\n", out.SolverName)
	}
	if opts.DB != "" {
		fmt.Fprintf(w, "\nValidation history (%s):\n", opts.DB)
		if len(out.Examples) == 0 {
			fmt.Fprintln(w, "  no examples")
		}
		for _, ex := range out.Examples {
			mark := "✓"
			if !ex.AllPassed {
				mark = "✗"
			}
			last := "never"
			if ex.LastRun != nil {
				last = ex.LastRun.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "  %s %-24s %4d checks  max %7.3f%%  avg %7.3f%%  last %s\n",
				mark, ex.Example, ex.NumValidations, ex.MaxErrorPercent, ex.AvgErrorPercent, last)
		}
	}
	return nil
}

func historyStats(cmd *cobra.Command, dbPath string) ([]store.ExampleStats, error) {
	ctx := cmd.Context()
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	examples, err := s.ListExamples(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]store.ExampleStats, 0, len(examples))
	for _, ex := range examples {
		st, err := s.Stats(ctx, ex.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/deckbridge/internal/bdf"
)

// SummaryOutput is the summary command payload.
type SummaryOutput struct {
	bdf.Summary
	SkippedCards  map[string]int `json:"skipped_cards"`
	NonBasicGrids int            `json:"non_basic_grids"`
	Fingerprint   string         `json:"fingerprint"`
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <deck>",
		Short: "Print the census of a Nastran deck",
		Long: `Reads a Nastran bulk data deck (.bdf, .dat, .nas) and prints its
solution type, entity counts and element type census.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(rootOpts, args[0], cmd)
		},
	}
}

func runSummary(opts *RootOptions, deckPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.log()

	res, err := bdf.ReadFile(deckPath)
	if err != nil {
		log.Debug("read deck failed", zap.String("deck", deckPath), zap.Error(err))
		return formatter.Fail(err)
	}
	log.Debug("read deck", zap.String("deck", deckPath), zap.Int("nodes", len(res.Model.Nodes)))

	fingerprint, err := res.Model.Fingerprint()
	if err != nil {
		return formatter.Fail(err)
	}
	out := SummaryOutput{
		Summary:       res.Summary(),
		SkippedCards:  res.Skipped,
		NonBasicGrids: res.NonBasicGrids,
		Fingerprint:   fingerprint,
	}
	if formatter.JSON() {
		return formatter.Success(out)
	}
	writeSummaryText(formatter.Writer, res, out)
	return nil
}

func writeSummaryText(w io.Writer, res *bdf.Result, out SummaryOutput) {
	fmt.Fprintf(w, "Deck: %s\n", out.Path)
	fmt.Fprintf(w, "Fingerprint: %s\n", out.Fingerprint)
	if out.Sol != nil {
		fmt.Fprintf(w, "SOL: %d (%s)\n", *out.Sol, res.Model.Solution)
	} else {
		fmt.Fprintln(w, "SOL: none")
	}
	fmt.Fprintf(w, "Nodes: %d\n", out.NumNodes)
	fmt.Fprintf(w, "Elements: %d\n", out.NumElements)
	fmt.Fprintf(w, "Properties: %d\n", out.NumProperties)
	fmt.Fprintf(w, "Materials: %d\n", out.NumMaterials)
	fmt.Fprintf(w, "Loads: %d  SPC sets: %d  MPC sets: %d  Coords: %d\n",
		out.NumLoads, out.NumSPCSets, out.NumMPCSets, out.NumCoords)
	if len(out.ElementTypeCounts) > 0 {
		fmt.Fprintln(w, "Element types:")
		for _, tc := range out.ElementTypeCounts {
			fmt.Fprintf(w, "  %-10s %d\n", tc.Type, tc.Count)
		}
	}
	if names := res.SkippedCards(); len(names) > 0 {
		fmt.Fprintln(w, "Skipped cards:")
		for _, name := range names {
			fmt.Fprintf(w, "  %-10s %d\n", name, out.SkippedCards[name])
		}
	}
	if out.NonBasicGrids > 0 {
		fmt.Fprintf(w, "Warning: %d grid(s) use a non-basic coordinate system; coordinates kept as written\n", out.NonBasicGrids)
	}
}

package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/deckbridge/internal/inp"
)

// ConvertOutput is the convert command payload.
type ConvertOutput struct {
	Deck   string    `json:"deck"`
	Output string    `json:"output"`
	Stats  inp.Stats `json:"stats"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "convert <deck>",
		Short: "Convert a Nastran deck to a CalculiX input deck",
		Long: `Reads a Nastran bulk data deck and writes the equivalent CalculiX
input deck. The output defaults to the deck name with an .inp extension.
Element types without a CalculiX equivalent are skipped and reported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(rootOpts, args[0], output, cmd)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output .inp path (default: <deck>.inp)")
	return cmd
}

// defaultOutput returns deckPath with its extension replaced by .inp.
func defaultOutput(deckPath string) string {
	return strings.TrimSuffix(deckPath, filepath.Ext(deckPath)) + ".inp"
}

func runConvert(opts *RootOptions, deckPath, output string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if output == "" {
		output = defaultOutput(deckPath)
	}

	stats, err := inp.ConvertFile(deckPath, output)
	if err != nil {
		opts.log().Debug("convert failed", zap.String("deck", deckPath), zap.Error(err))
		return formatter.Fail(err)
	}
	opts.log().Debug("converted deck",
		zap.String("deck", deckPath),
		zap.String("output", output),
		zap.Int("elements", stats.NumElements),
		zap.Int("skipped", stats.SkippedElements),
	)

	out := ConvertOutput{Deck: deckPath, Output: output, Stats: stats}
	if formatter.JSON() {
		return formatter.Success(out)
	}
	fmt.Fprintf(formatter.Writer, "✓ Converted %s -> %s\n", deckPath, output)
	writeStatsText(formatter.Writer, stats)
	return nil
}

func writeStatsText(w io.Writer, stats inp.Stats) {
	fmt.Fprintf(w, "  nodes: %d  elements: %d  materials: %d  properties: %d\n",
		stats.NumNodes, stats.NumElements, stats.NumMaterials, stats.NumProperties)
	if stats.SkippedElements > 0 {
		fmt.Fprintf(w, "  skipped %d element(s) without a mapping:\n", stats.SkippedElements)
		for _, tag := range stats.GapTags() {
			fmt.Fprintf(w, "    %-10s %d\n", tag, stats.MappingGaps[tag])
		}
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/deckbridge/internal/modal"
	"github.com/roach88/deckbridge/internal/op2"
)

// NewFrequenciesCommand creates the frequencies command.
func NewFrequenciesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "frequencies <archive>",
		Short: "Print natural frequencies from an archive's eigenvalues",
		Long: `Converts each eigenvalue of an OP2 archive to a natural frequency,
f = sqrt(lambda) / (2 pi). Non-positive eigenvalues report 0 Hz.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			res, err := readArchive(rootOpts, args[0], formatter, op2.Eigenvalues)
			if err != nil {
				return err
			}

			modes := modal.FromResults(res)
			if formatter.JSON() {
				return formatter.Success(modes)
			}
			fmt.Fprintf(formatter.Writer, "%-6s %16s %14s\n", "Mode", "Eigenvalue", "Frequency (Hz)")
			for _, m := range modes {
				fmt.Fprintf(formatter.Writer, "%-6d %16.6e %14.6f\n", m.Mode, m.Eigenvalue, m.Frequency)
			}
			return nil
		},
	}
}

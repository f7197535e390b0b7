package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/roach88/deckbridge/internal/stress"
)

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		head   int
		axis   string
		normal string
	)

	cmd := &cobra.Command{
		Use:   "compare <reference.dat> <computed.dat>",
		Short: "Compare two solver stress listings",
		Long: `Pairs stress samples of two solver listings by element and
integration point and reports per-component differences, ratios, zero and
sign mismatches. --axis x1,y1,z1,x2,y2,z2 (with --normal nx,ny,nz when the
axis is nearly vertical) rotates computed stresses from that local frame
to the global frame first.

The report is diagnostic: the command succeeds whatever it finds.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(rootOpts, args[0], args[1], head, axis, normal, cmd)
		},
	}

	cmd.Flags().IntVar(&head, "head", stress.DefaultHead, "points in the detail table (negative for all)")
	cmd.Flags().StringVar(&axis, "axis", "", "local frame axis as x1,y1,z1,x2,y2,z2")
	cmd.Flags().StringVar(&normal, "normal", "", "reference normal nx,ny,nz for nearly vertical axes")
	return cmd
}

// parseVector parses n comma separated floats.
func parseVector(flag, value string, n int) ([]float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("--%s needs %d comma separated values, got %d", flag, n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("--%s value %d: %w", flag, i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseFrame builds the optional local frame from the --axis and --normal
// flags. Both empty means no rotation.
func parseFrame(axis, normal string) (*stress.Frame, error) {
	if axis == "" {
		if normal != "" {
			return nil, fmt.Errorf("--normal requires --axis")
		}
		return nil, nil
	}
	a, err := parseVector("axis", axis, 6)
	if err != nil {
		return nil, err
	}
	var n r3.Vec
	if normal != "" {
		v, err := parseVector("normal", normal, 3)
		if err != nil {
			return nil, err
		}
		n = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	}
	frame, err := stress.NewFrame(r3.Vec{X: a[0], Y: a[1], Z: a[2]}, r3.Vec{X: a[3], Y: a[4], Z: a[5]}, n)
	if err != nil {
		return nil, err
	}
	return &frame, nil
}

func runCompare(opts *RootOptions, refPath, gotPath string, head int, axis, normal string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	frame, err := parseFrame(axis, normal)
	if err != nil {
		_ = formatter.Error(ErrCodeUsage, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeUsage, err)
	}
	if head == 0 {
		head = stress.DefaultHead
	}

	ref, err := stress.ReadDAT(refPath)
	if err != nil {
		return formatter.Fail(err)
	}
	got, err := stress.ReadDAT(gotPath)
	if err != nil {
		return formatter.Fail(err)
	}
	opts.log().Debug("read stress listings",
		zap.String("reference", refPath), zap.Int("reference_samples", len(ref)),
		zap.String("computed", gotPath), zap.Int("computed_samples", len(got)),
	)

	report := stress.Compare(ref, got, stress.Options{Head: head, Frame: frame})
	if formatter.JSON() {
		return formatter.Success(report)
	}
	return report.WriteText(formatter.Writer)
}

package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/deckbridge/internal/op2"
)

// ResultsOutput is the results command payload.
type ResultsOutput struct {
	Archive                 string           `json:"archive"`
	Stats                   op2.Stats        `json:"stats"`
	Subcases                map[string]int   `json:"subcases"`
	IgnoredSubcases         map[string][]int `json:"ignored_subcases,omitempty"`
	SkippedTables           []string         `json:"skipped_tables,omitempty"`
	UnsupportedElementTypes []int            `json:"unsupported_element_types,omitempty"`
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	var require []string

	cmd := &cobra.Command{
		Use:   "results <archive>",
		Short: "Read an OP2 result archive and print its statistics",
		Long: `Reads displacements, eigenvalues, eigenvectors and element stresses
from an OP2 archive. Only the first subcase of each table is kept.
--require makes a missing category an error.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResults(rootOpts, args[0], require, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&require, "require", nil,
		"categories that must be present (displacements,eigenvalues,eigenvectors,stresses)")
	return cmd
}

// parseCategories maps category names to op2 categories.
func parseCategories(names []string) ([]op2.Category, error) {
	cats := make([]op2.Category, 0, len(names))
	for _, name := range names {
		c, ok := op2.ParseCategory(strings.TrimSpace(strings.ToLower(name)))
		if !ok {
			return nil, fmt.Errorf("unknown result category %q", name)
		}
		cats = append(cats, c)
	}
	return cats, nil
}

func readArchive(opts *RootOptions, path string, formatter *OutputFormatter, require ...op2.Category) (*op2.Results, error) {
	res, err := op2.NewReader().ReadFile(path)
	if err == nil {
		err = res.Require(require...)
	}
	if err != nil {
		opts.log().Debug("read archive failed", zap.String("archive", path), zap.Error(err))
		return nil, formatter.Fail(err)
	}
	opts.log().Debug("read archive", zap.String("archive", path), zap.Any("stats", res.Stats()))
	return res, nil
}

func runResults(opts *RootOptions, archive string, require []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cats, err := parseCategories(require)
	if err != nil {
		_ = formatter.Error(ErrCodeUsage, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeUsage, err)
	}

	res, err := readArchive(opts, archive, formatter, cats...)
	if err != nil {
		return err
	}

	out := ResultsOutput{
		Archive:                 archive,
		Stats:                   res.Stats(),
		Subcases:                res.Subcases,
		IgnoredSubcases:         res.IgnoredSubcases,
		SkippedTables:           res.SkippedTables,
		UnsupportedElementTypes: res.UnsupportedElementTypes,
	}
	if formatter.JSON() {
		return formatter.Success(out)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Archive: %s\n", archive)
	fmt.Fprintf(w, "Displacements: %d\n", out.Stats.NumDisplacements)
	fmt.Fprintf(w, "Eigenvalues: %d\n", out.Stats.NumEigenvalues)
	fmt.Fprintf(w, "Eigenvectors: %d\n", out.Stats.NumEigenvectors)
	fmt.Fprintf(w, "Stresses: %d\n", out.Stats.NumStresses)

	tables := make([]string, 0, len(out.Subcases))
	for name := range out.Subcases {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	for _, name := range tables {
		fmt.Fprintf(w, "  %-8s subcase %d", name, out.Subcases[name])
		if ignored := out.IgnoredSubcases[name]; len(ignored) > 0 {
			fmt.Fprintf(w, " (ignored %v)", ignored)
		}
		fmt.Fprintln(w)
	}
	if len(out.SkippedTables) > 0 {
		fmt.Fprintf(w, "Skipped tables: %s\n", strings.Join(out.SkippedTables, ", "))
	}
	if len(out.UnsupportedElementTypes) > 0 {
		fmt.Fprintf(w, "Stress entries skipped for element types: %v\n", out.UnsupportedElementTypes)
	}
	return nil
}

// Command deckbridge converts Nastran decks to CalculiX, reads OP2 result
// archives and validates solver output.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/deckbridge/internal/cli"
	"github.com/roach88/deckbridge/internal/solver"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	caps := solver.Probe(solver.DefaultBinary)
	err := cli.NewRootCommand(caps).ExecuteContext(ctx)
	if err == nil {
		return cli.ExitSuccess
	}

	// Commands report their own errors; anything else is a flag or
	// argument error from cobra.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCommandError
	}
	return exitErr.Code
}

// Package solver locates and runs the external finite element solver.
//
// Capabilities are probed once at process start and passed to whoever
// needs them; nothing in this package caches global state.
package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBinary is the solver executable looked up on PATH.
const DefaultBinary = "ccx"

// DefaultTimeout bounds one solver run.
const DefaultTimeout = 30 * time.Minute

// waitDelay bounds how long a killed solver may hold its output pipes.
const waitDelay = 5 * time.Second

// ErrNotAvailable is returned when the solver binary was not found.
var ErrNotAvailable = errors.New("solver not available")

// Capabilities reports what the process can do besides conversion.
type Capabilities struct {
	SolverName  string `json:"solver_name"`
	SolverPath  string `json:"solver_path,omitempty"`
	SolverFound bool   `json:"solver_found"`
}

// lookPath wraps exec.LookPath for testability.
var lookPath = exec.LookPath

// Probe looks name up on PATH.
func Probe(name string) Capabilities {
	caps := Capabilities{SolverName: name}
	path, err := lookPath(name)
	if err != nil {
		return caps
	}
	caps.SolverPath = path
	caps.SolverFound = true
	return caps
}

// Runner runs the solver on a target deck.
type Runner interface {
	Run(ctx context.Context, deckPath string) error
}

// ExecRunner runs the solver binary as a child process in the deck's
// directory, passing the job name (the deck name without .inp).
type ExecRunner struct {
	Path    string
	Timeout time.Duration
}

// NewExecRunner returns a runner for caps, or ErrNotAvailable.
func NewExecRunner(caps Capabilities) (*ExecRunner, error) {
	if !caps.SolverFound {
		return nil, fmt.Errorf("%w: %s not found in PATH", ErrNotAvailable, caps.SolverName)
	}
	return &ExecRunner{Path: caps.SolverPath, Timeout: DefaultTimeout}, nil
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, deckPath string) error {
	job, err := JobName(deckPath)
	if err != nil {
		return err
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Path, "-i", job)
	cmd.Dir = filepath.Dir(deckPath)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("solver %s: %w", job, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("solver %s: %w: %s", job, err, msg)
		}
		return fmt.Errorf("solver %s: %w", job, err)
	}
	return nil
}

// JobName returns the solver job name of an .inp deck.
func JobName(deckPath string) (string, error) {
	base := filepath.Base(deckPath)
	ext := filepath.Ext(base)
	if !strings.EqualFold(ext, ".inp") {
		return "", fmt.Errorf("solver deck %q: expected .inp extension", deckPath)
	}
	return strings.TrimSuffix(base, ext), nil
}

// Outputs are the files a solver run leaves next to its deck.
type Outputs struct {
	Listing string `json:"listing"`
	Results string `json:"results"`
}

// OutputsFor returns the listing (.dat) and results (.frd) paths of deck.
func OutputsFor(deckPath string) Outputs {
	stem := strings.TrimSuffix(deckPath, filepath.Ext(deckPath))
	return Outputs{Listing: stem + ".dat", Results: stem + ".frd"}
}

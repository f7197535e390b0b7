package cli

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/deckbridge/internal/fem"
	"github.com/roach88/deckbridge/internal/solver"
	"github.com/roach88/deckbridge/internal/testutil"
)

// tenHertz is the eigenvalue of a 10 Hz mode.
var tenHertz = math.Pow(2*math.Pi*10, 2)

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, caps solver.Capabilities, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand(caps)
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeData unmarshals the data member of a JSON response into v.
func decodeData(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if v != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, v))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

// writeArchive writes a small OP2 archive with displacements and two modes.
func writeArchive(t *testing.T, dir string) string {
	t.Helper()
	b := testutil.NewOP2Builder(binary.LittleEndian).Header("NX2019.2")
	b.BeginTable("OUGV1").Displacements(1,
		fem.DisplacementRecord{NodeID: 1},
		fem.DisplacementRecord{NodeID: 3, T: [3]float64{0, 3, 4}},
	).EndTable()
	b.BeginTable("LAMA").Eigenvalues(-1e-6, tenHertz).EndTable()
	path := filepath.Join(dir, "plate.op2")
	require.NoError(t, os.WriteFile(path, b.End().Bytes(), 0o644))
	return path
}

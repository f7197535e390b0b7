package inp

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/deckbridge/internal/bdf"
	"github.com/roach88/deckbridge/internal/fem"
)

// WriteFile emits m to path atomically.
//
// The deck is written to a temporary file in the target directory, synced,
// closed and renamed over path. On failure the temporary file is removed
// and any existing file at path is left untouched.
func WriteFile(path string, m *fem.Model) (Stats, error) {
	var buf bytes.Buffer
	stats, err := Emit(&buf, m)
	if err != nil {
		return Stats{}, err
	}
	if err := writeFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return Stats{}, fmt.Errorf("write %s: %w", path, err)
	}
	return stats, nil
}

// ConvertFile reads the source deck at deckPath and writes the converted
// deck to inpPath.
func ConvertFile(deckPath, inpPath string) (Stats, error) {
	res, err := bdf.ReadFile(deckPath)
	if err != nil {
		return Stats{}, err
	}
	return WriteFile(inpPath, res.Model)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}

package stress

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/deckbridge/internal/fem"
)

// blockHeader opens a stress listing block in solver text output.
const blockHeader = "stresses (elem, integ.pnt."

// ReadDAT reads the first stress block of a solver text output file.
func ReadDAT(path string) ([]fem.StressSample, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fem.NotFound(path, err)
		}
		return nil, fmt.Errorf("open listing: %w", err)
	}
	defer f.Close()
	return ParseDAT(f)
}

// ParseDAT reads the first stress block from r.
//
// The block ends at a line mentioning "volume", at the next block header
// or at EOF. Blank lines and lines that are not eight numeric columns are
// skipped.
func ParseDAT(r io.Reader) ([]fem.StressSample, error) {
	samples := []fem.StressSample{}
	scanner := bufio.NewScanner(r)
	inBlock := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, blockHeader) {
			if inBlock {
				break
			}
			inBlock = true
			continue
		}
		if !inBlock {
			continue
		}
		if strings.Contains(strings.ToLower(line), "volume") {
			break
		}
		if s, ok := parseStressLine(line); ok {
			samples = append(samples, s)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}
	return samples, nil
}

func parseStressLine(line string) (fem.StressSample, bool) {
	parts := strings.Fields(line)
	if len(parts) < 8 {
		return fem.StressSample{}, false
	}
	eid, err := strconv.Atoi(parts[0])
	if err != nil {
		return fem.StressSample{}, false
	}
	point, err := strconv.Atoi(parts[1])
	if err != nil {
		return fem.StressSample{}, false
	}
	s := fem.StressSample{ElementID: eid, Point: point}
	for i := range s.Components {
		v, err := strconv.ParseFloat(parts[2+i], 64)
		if err != nil {
			return fem.StressSample{}, false
		}
		s.Components[i] = v
	}
	return s, true
}

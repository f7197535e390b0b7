package bdf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/deckbridge/internal/fem"
)

// SupportedExtensions lists the accepted deck extensions.
var SupportedExtensions = []string{".bdf", ".dat", ".nas"}

// namedSolutions maps solution names to their numeric codes.
var namedSolutions = map[string]int{
	"SESTATIC": 101,
	"SEMODES":  103,
	"SEBUCKL":  105,
	"NLSTATIC": 106,
	"SEDCEIG":  107,
	"SEDFREQ":  108,
	"SEDTRAN":  109,
	"SEMCEIG":  110,
	"SEMFREQ":  111,
	"SEMTRAN":  112,
}

// Result is the outcome of reading one deck.
type Result struct {
	Path  string
	Model *fem.Model

	// Skipped counts bulk cards outside the known set, by card name.
	Skipped map[string]int

	// NonBasicGrids counts GRID cards with a non-zero CP. Their
	// coordinates are kept as written.
	NonBasicGrids int
}

// Summary is the census of a deck.
type Summary struct {
	Path              string          `json:"path"`
	Sol               *int            `json:"sol"`
	NumNodes          int             `json:"nnodes"`
	NumElements       int             `json:"nelements"`
	NumProperties     int             `json:"nproperties"`
	NumMaterials      int             `json:"nmaterials"`
	NumLoads          int             `json:"nloads"`
	NumSPCSets        int             `json:"nspc_sets"`
	NumMPCSets        int             `json:"nmpc_sets"`
	NumCoords         int             `json:"ncoords"`
	ElementTypeCounts []fem.TypeCount `json:"element_type_counts"`
}

// Summary returns the deck census with element types sorted by tag.
func (r *Result) Summary() Summary {
	m := r.Model
	s := Summary{
		Path:              r.Path,
		NumNodes:          len(m.Nodes),
		NumElements:       len(m.Elements),
		NumProperties:     len(m.Properties),
		NumMaterials:      len(m.Materials),
		NumLoads:          m.Loads,
		NumSPCSets:        m.SPCSets,
		NumMPCSets:        m.MPCSets,
		NumCoords:         m.Coords,
		ElementTypeCounts: m.ElementTypeCounts(),
	}
	if m.Solution.Known {
		code := m.Solution.Code
		s.Sol = &code
	}
	return s
}

// TypeCountMap returns the census as a map, for callers that look up tags.
func (s Summary) TypeCountMap() map[string]int {
	out := make(map[string]int, len(s.ElementTypeCounts))
	for _, tc := range s.ElementTypeCounts {
		out[tc.Type] = tc.Count
	}
	return out
}

// SkippedCards returns skipped card names in lexicographic order.
func (r *Result) SkippedCards() []string {
	names := make([]string, 0, len(r.Skipped))
	for name := range r.Skipped {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckExtension returns a FORMAT error unless path has a supported extension.
func CheckExtension(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return nil
		}
	}
	return fem.Unsupported(path, "unsupported file extension %q; expected one of %v", ext, SupportedExtensions)
}

// ReadFile reads a deck from disk.
//
// The extension is checked before the file is opened, so an unsupported
// extension is a FORMAT error even when the file does not exist.
func ReadFile(path string) (*Result, error) {
	if err := CheckExtension(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fem.NotFound(path, err)
		}
		return nil, fmt.Errorf("open deck: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err == nil && info.IsDir() {
		return nil, fem.NotFound(path, fmt.Errorf("is a directory"))
	}
	return Read(f, path)
}

// Read parses a deck from r. name is used in error messages.
func Read(r io.Reader, name string) (*Result, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("read deck %s: %w", name, err)
	}

	p := &parser{
		path:    name,
		model:   fem.NewModel(),
		skipped: make(map[string]int),
		loads:   make(map[int]bool),
		spcs:    make(map[int]bool),
		mpcs:    make(map[int]bool),
		coords:  map[int]bool{0: true},
	}

	bulkStart, controlEnd := locateSections(lines)
	if err := p.parseControl(lines[:bulkStart], controlEnd); err != nil {
		return nil, err
	}
	if err := p.parseBulk(lines[bulkStart:]); err != nil {
		return nil, err
	}
	p.model.Loads = len(p.loads)
	p.model.SPCSets = len(p.spcs)
	p.model.MPCSets = len(p.mpcs)
	p.model.Coords = len(p.coords)

	if err := p.model.Validate(); err != nil {
		var fe *fem.Error
		if errors.As(err, &fe) {
			fe.Path = name
		}
		return nil, err
	}

	return &Result{
		Path:          name,
		Model:         p.model,
		Skipped:       p.skipped,
		NonBasicGrids: p.nonBasic,
	}, nil
}

type sourceLine struct {
	num  int
	text string
}

func readLines(r io.Reader) ([]sourceLine, error) {
	var lines []sourceLine
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		lines = append(lines, sourceLine{num: n, text: scanner.Text()})
	}
	return lines, scanner.Err()
}

// locateSections returns the index of the first bulk line and the end of
// the executive control section.
func locateSections(lines []sourceLine) (bulkStart, controlEnd int) {
	cend := -1
	for i, l := range lines {
		upper := strings.ToUpper(strings.TrimSpace(stripComment(l.text)))
		if cend < 0 && upper == "CEND" {
			cend = i
		}
		if strings.HasPrefix(upper, "BEGIN") && strings.Contains(upper, "BULK") {
			if cend < 0 {
				return i + 1, i
			}
			return i + 1, cend
		}
	}
	if cend >= 0 {
		return cend + 1, cend
	}
	return 0, 0
}

type parser struct {
	path     string
	model    *fem.Model
	skipped  map[string]int
	nonBasic int

	loads  map[int]bool
	spcs   map[int]bool
	mpcs   map[int]bool
	coords map[int]bool
}

// parseControl rejects INCLUDE anywhere before the bulk data and reads the
// SOL statement from the first controlEnd lines, the executive control.
func (p *parser) parseControl(lines []sourceLine, controlEnd int) error {
	for i, l := range lines {
		text := strings.ToUpper(strings.TrimSpace(stripComment(l.text)))
		words := strings.Fields(strings.ReplaceAll(text, ",", " "))
		if len(words) == 0 {
			continue
		}
		switch words[0] {
		case "INCLUDE":
			return p.unsupportedInclude(l.num)
		case "SOL":
			if i >= controlEnd {
				continue
			}
			if len(words) < 2 {
				return fem.ParseFailure(p.path, l.num, "SOL", "missing solution code")
			}
			if code, err := strconv.Atoi(words[1]); err == nil {
				p.model.Solution = fem.KnownSolution(code)
				continue
			}
			code, ok := namedSolutions[words[1]]
			if !ok {
				return fem.ParseFailure(p.path, l.num, "SOL", "unknown solution %q", words[1])
			}
			p.model.Solution = fem.KnownSolution(code)
		}
	}
	return nil
}

func (p *parser) unsupportedInclude(line int) error {
	e := fem.Unsupported(p.path, "INCLUDE statements are not supported")
	e.Line = line
	return e
}

// parseBulk joins continuation lines into cards and applies them.
func (p *parser) parseBulk(lines []sourceLine) error {
	var pending *card
	flush := func() error {
		if pending == nil {
			return nil
		}
		c := pending
		pending = nil
		return p.apply(c)
	}

	for _, l := range lines {
		text := stripComment(l.text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		upper := strings.ToUpper(strings.TrimSpace(text))
		if upper == "ENDDATA" {
			break
		}
		if strings.HasPrefix(upper, "INCLUDE") {
			return p.unsupportedInclude(l.num)
		}

		ph := split(text)
		if ph.continuation() {
			if pending == nil {
				return fem.ParseFailure(p.path, l.num, "", "continuation line without a parent card")
			}
			pending.fields = append(pending.fields, ph.data...)
			continue
		}

		if err := flush(); err != nil {
			return err
		}
		name := strings.ToUpper(strings.TrimSuffix(ph.first, "*"))
		pending = &card{name: name, line: l.num, fields: ph.data}
	}
	return flush()
}

package op2

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/roach88/deckbridge/internal/fem"
)

// DefaultMaxRecordLen bounds a single record payload. Larger length
// markers are treated as corruption.
const DefaultMaxRecordLen = 1 << 28

// Reader decodes archives. The zero value is not usable; use NewReader.
type Reader struct {
	order        binary.ByteOrder
	maxRecordLen int
}

// Option configures a Reader.
type Option func(*Reader)

// WithByteOrder fixes the byte order instead of detecting it from the
// first record marker.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(r *Reader) { r.order = order }
}

// WithMaxRecordLen overrides DefaultMaxRecordLen.
func WithMaxRecordLen(n int) Option {
	return func(r *Reader) { r.maxRecordLen = n }
}

// NewReader returns a Reader configured by opts.
func NewReader(opts ...Option) *Reader {
	r := &Reader{maxRecordLen: DefaultMaxRecordLen}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadFile decodes the archive at path.
func (rd *Reader) ReadFile(path string) (*Results, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fem.NotFound(path, err)
		}
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.IsDir() {
		return nil, fem.NotFound(path, fmt.Errorf("is a directory"))
	}

	res, err := rd.Read(f)
	if err != nil {
		var fe *fem.Error
		if errors.As(err, &fe) {
			fe.Path = path
		}
		return nil, err
	}
	return res, nil
}

// Read decodes an archive from r.
func (rd *Reader) Read(r io.Reader) (*Results, error) {
	br := bufio.NewReader(r)
	order := rd.order
	if order == nil {
		var err error
		if order, err = detectOrder(br); err != nil {
			return nil, err
		}
	}
	d := &decoder{
		r:       br,
		order:   order,
		maxLen:  rd.maxRecordLen,
		section: "header",
		res:     newResults(),
	}
	if err := d.run(); err != nil {
		return nil, err
	}
	return d.res, nil
}

// detectOrder picks the byte order from the first record marker, which
// always frames a one-word key record.
func detectOrder(br *bufio.Reader) (binary.ByteOrder, error) {
	head, err := br.Peek(4)
	if err != nil {
		if len(head) == 0 && errors.Is(err, io.EOF) {
			return binary.LittleEndian, nil
		}
		return nil, fem.DecodeFailure("header", 0, "archive too short for a record marker")
	}
	switch {
	case binary.LittleEndian.Uint32(head) == 4:
		return binary.LittleEndian, nil
	case binary.BigEndian.Uint32(head) == 4:
		return binary.BigEndian, nil
	}
	return nil, fem.DecodeFailure("header", 0, "cannot detect byte order from marker % x", head)
}

// record is one framed payload and the archive offset of its first byte.
type record struct {
	offset  int64
	payload []byte
}

// key is a one-word record. Positive keys give the word count of the
// block that follows; zero and negative keys delimit tables and subtables.
type key struct {
	offset int64
	value  int
}

type decoder struct {
	r       *bufio.Reader
	order   binary.ByteOrder
	maxLen  int
	offset  int64
	section string
	res     *Results
	pending *key
}

func (d *decoder) fail(offset int64, format string, args ...any) error {
	return fem.DecodeFailure(d.section, offset, format, args...)
}

// next reads one Fortran record. It returns io.EOF only at a clean record
// boundary.
func (d *decoder) next() (record, error) {
	start := d.offset
	var marker [4]byte
	n, err := io.ReadFull(d.r, marker[:])
	d.offset += int64(n)
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return record{}, io.EOF
		}
		return record{}, d.fail(start, "truncated record marker")
	}
	length := int64(int32(d.order.Uint32(marker[:])))
	if length < 0 || length > int64(d.maxLen) {
		return record{}, d.fail(start, "invalid record length %d", length)
	}

	// The buffer grows with the bytes actually read, so a corrupt length
	// cannot force a large allocation.
	var payload bytes.Buffer
	got, _ := io.CopyN(&payload, d.r, length)
	d.offset += got
	if got != length {
		return record{}, d.fail(start, "truncated record: want %d payload bytes, got %d", length, got)
	}

	n, err = io.ReadFull(d.r, marker[:])
	d.offset += int64(n)
	if err != nil {
		return record{}, d.fail(d.offset-int64(n), "truncated trailing marker")
	}
	if trail := int64(int32(d.order.Uint32(marker[:]))); trail != length {
		return record{}, d.fail(d.offset-4, "record marker mismatch: leading %d, trailing %d", length, trail)
	}
	return record{offset: start + 4, payload: payload.Bytes()}, nil
}

// key reads the next key record, or returns the one peek left behind.
func (d *decoder) key() (key, error) {
	if k := d.pending; k != nil {
		d.pending = nil
		return *k, nil
	}
	rec, err := d.next()
	if err != nil {
		return key{}, err
	}
	if len(rec.payload) != 4 {
		return key{}, d.fail(rec.offset, "expected a key record, got %d bytes", len(rec.payload))
	}
	return key{offset: rec.offset, value: d.word(rec.payload, 0)}, nil
}

func (d *decoder) peek() (key, error) {
	k, err := d.key()
	if err != nil {
		return key{}, err
	}
	d.pending = &k
	return k, nil
}

// expect reads keys and checks their values in order.
func (d *decoder) expect(values ...int) error {
	for _, want := range values {
		k, err := d.key()
		if err != nil {
			return d.inside(err)
		}
		if k.value != want {
			return d.fail(k.offset, "expected key %d, got %d", want, k.value)
		}
	}
	return nil
}

// inside turns a clean end of archive into a truncation error.
func (d *decoder) inside(err error) error {
	if errors.Is(err, io.EOF) {
		return d.fail(d.offset, "unexpected end of archive")
	}
	return err
}

// block reads the data record announced by a positive key.
func (d *decoder) block(k key) (record, error) {
	if k.value <= 0 {
		return record{}, d.fail(k.offset, "expected a word count key, got %d", k.value)
	}
	rec, err := d.next()
	if err != nil {
		return record{}, d.inside(err)
	}
	if len(rec.payload) != 4*k.value {
		return record{}, d.fail(rec.offset, "record has %d bytes, key announced %d words", len(rec.payload), k.value)
	}
	return rec, nil
}

// logical reads one subtable record. Long records are split into blocks,
// each announced by its own positive key.
func (d *decoder) logical() (record, error) {
	k, err := d.key()
	if err != nil {
		return record{}, d.inside(err)
	}
	rec, err := d.block(k)
	if err != nil {
		return record{}, err
	}
	for {
		k, err := d.peek()
		if err != nil {
			return record{}, d.inside(err)
		}
		if k.value <= 0 {
			return rec, nil
		}
		d.pending = nil
		part, err := d.block(k)
		if err != nil {
			return record{}, err
		}
		rec.payload = append(rec.payload, part.payload...)
	}
}

func (d *decoder) run() error {
	name, err := d.header()
	if err != nil || name == "" {
		return err
	}
	for {
		d.section = name
		if err := d.table(name); err != nil {
			return err
		}
		d.section = "table list"
		if name, err = d.tableName(); err != nil || name == "" {
			return err
		}
	}
}

// header skips the label records and returns the first table name. A
// headerless archive starts directly with a table name.
func (d *decoder) header() (string, error) {
	k, err := d.peek()
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if k.value == 2 {
		d.section = "table list"
		return d.tableName()
	}
	if k.value != 3 {
		return "", d.fail(k.offset, "expected a date key, got %d", k.value)
	}
	for _, words := range []int{3, 7, 2} {
		if err := d.expectBlock(words); err != nil {
			return "", err
		}
	}
	if err := d.expect(-1, 0); err != nil {
		return "", err
	}
	d.section = "table list"
	return d.tableName()
}

func (d *decoder) expectBlock(words int) error {
	k, err := d.key()
	if err != nil {
		return d.inside(err)
	}
	if k.value != words {
		return d.fail(k.offset, "expected a %d-word key, got %d", words, k.value)
	}
	_, err = d.block(k)
	return err
}

// tableName reads the name that opens a table. A zero key or the end of
// the archive returns "".
func (d *decoder) tableName() (string, error) {
	k, err := d.key()
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if k.value == 0 {
		return "", nil
	}
	if k.value != 2 {
		return "", d.fail(k.offset, "expected a table name key, got %d", k.value)
	}
	rec, err := d.block(k)
	if err != nil {
		return "", err
	}
	name := strings.TrimRight(string(rec.payload), " ")
	if name == "" {
		return "", d.fail(rec.offset, "blank table name")
	}
	return name, nil
}

// table reads the trailer and header records of a table, then its
// subtables up to the end-of-table key. Result tables alternate IDENT and
// DATA subtables.
func (d *decoder) table(name string) error {
	if err := d.expect(-1); err != nil {
		return err
	}
	if err := d.expectBlock(7); err != nil {
		return err
	}
	if err := d.expect(-2, 1, 0); err != nil {
		return err
	}
	if _, err := d.logical(); err != nil {
		return err
	}

	decode, known := tableDecoders[name]
	if !known {
		d.res.SkippedTables = append(d.res.SkippedTables, name)
	}
	var id *ident
	for n := -3; ; n-- {
		if err := d.expect(n, 1, 0); err != nil {
			return err
		}
		k, err := d.peek()
		if err != nil {
			return d.inside(err)
		}
		if k.value == 0 {
			d.pending = nil
			if id != nil {
				return d.fail(k.offset, "IDENT record without DATA")
			}
			return nil
		}
		rec, err := d.logical()
		if err != nil {
			return err
		}
		if !known {
			continue
		}
		if id == nil {
			parsed, err := d.ident(rec)
			if err != nil {
				return err
			}
			id = &parsed
			continue
		}
		cur := *id
		id = nil
		if !d.keepSubcase(name, cur.Subcase) {
			continue
		}
		if err := decode(d, cur, rec); err != nil {
			return err
		}
	}
}

// keepSubcase applies the first-subcase-only policy for table name.
func (d *decoder) keepSubcase(name string, subcase int) bool {
	first, seen := d.res.Subcases[name]
	if !seen {
		d.res.Subcases[name] = subcase
		return true
	}
	if subcase == first {
		return true
	}
	ignored := d.res.IgnoredSubcases[name]
	for _, s := range ignored {
		if s == subcase {
			return false
		}
	}
	d.res.IgnoredSubcases[name] = append(ignored, subcase)
	return false
}

// Package csvimport reads header-first CSV files into rows keyed by column
// name and reports the rows an import had to skip.
package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const sniffSize = 4096

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Option adjusts the underlying csv.Reader.
type Option func(*csv.Reader)

// WithDelimiter switches the field separator from a comma.
func WithDelimiter(d rune) Option {
	return func(r *csv.Reader) { r.Comma = d }
}

// Parser walks a CSV stream one record at a time.
type Parser struct {
	src     *csv.Reader
	columns []string
	index   map[string]int
}

// NewParser sniffs the start of r and prepares a reader over it.
// A leading byte order mark is dropped. Blank input is ErrEmptyFile and
// input that does not start as UTF-8 is ErrInvalidEncoding.
func NewParser(r io.Reader, opts ...Option) (*Parser, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	if err := sniff(br); err != nil {
		return nil, err
	}

	src := csv.NewReader(br)
	src.TrimLeadingSpace = true
	src.FieldsPerRecord = -1
	src.ReuseRecord = true
	for _, opt := range opts {
		opt(src)
	}
	return &Parser{src: src, index: make(map[string]int)}, nil
}

func sniff(br *bufio.Reader) error {
	head, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(bytes.TrimSpace(head)) == 0 {
		return ErrEmptyFile
	}
	// The window may end inside a multi-byte rune.
	if len(head) == sniffSize {
		for cut := 0; cut < utf8.UTFMax && !utf8.Valid(head); cut++ {
			head = head[:len(head)-1]
		}
	}
	if !utf8.Valid(head) {
		return ErrInvalidEncoding
	}
	return nil
}

// ReadHeader consumes the first record as the column names.
func (p *Parser) ReadHeader() error {
	record, err := p.src.Read()
	switch {
	case errors.Is(err, io.EOF):
		return ErrMissingHeader
	case err != nil:
		return fmt.Errorf("failed to read header: %w", err)
	}
	p.columns = make([]string, len(record))
	for i, name := range record {
		name = strings.TrimSpace(name)
		p.columns[i] = name
		p.index[name] = i
	}
	return nil
}

func (p *Parser) Columns() []string { return p.columns }

func (p *Parser) Has(column string) bool {
	_, ok := p.index[column]
	return ok
}

// Absent lists the names in required that the header lacks.
func (p *Parser) Absent(required []string) []string {
	var absent []string
	for _, name := range required {
		if !p.Has(name) {
			absent = append(absent, name)
		}
	}
	return absent
}

// Next returns the following record. A record the CSV grammar rejects is
// returned as a *csv.ParseError and reading may continue afterwards; io.EOF
// ends the stream.
func (p *Parser) Next() (*Row, error) {
	record, err := p.src.Read()
	if err != nil {
		return nil, err
	}
	line, _ := p.src.FieldPos(0)
	row := &Row{Line: line, values: make(map[string]string, len(p.columns))}
	for i, name := range p.columns {
		if i < len(record) {
			row.values[name] = strings.TrimSpace(record[i])
		}
	}
	return row, nil
}

// Row is one record addressed by column name. Line is where the record
// starts in the file, the header being line 1.
type Row struct {
	Line   int
	values map[string]string
}

// Get returns the trimmed value of column, "" when the record is short.
func (r *Row) Get(column string) string { return r.values[column] }

// Or returns the value of column, or fallback when it is blank.
func (r *Row) Or(column, fallback string) string {
	if v := r.values[column]; v != "" {
		return v
	}
	return fallback
}

func (r *Row) IsEmpty() bool {
	for _, v := range r.values {
		if v != "" {
			return false
		}
	}
	return true
}

// Blank returns the columns among names that hold no value.
func (r *Row) Blank(names []string) []string {
	var blank []string
	for _, name := range names {
		if r.values[name] == "" {
			blank = append(blank, name)
		}
	}
	return blank
}

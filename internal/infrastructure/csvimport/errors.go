package csvimport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	ErrCodeRequiredField = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeInvalidFormat = "ERR_IMPORT_INVALID_FORMAT"
	ErrCodeMalformedRow  = "ERR_IMPORT_MALFORMED_ROW"
)

// DefaultReportLimit caps how many skipped rows a Report describes.
const DefaultReportLimit = 100

var (
	ErrEmptyFile       = errors.New("CSV file is empty")
	ErrInvalidEncoding = errors.New("invalid file encoding")
	ErrMissingHeader   = errors.New("CSV file missing header row")
)

// RowError explains why one input line was not imported.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	var b strings.Builder
	b.WriteString("row ")
	b.WriteString(strconv.Itoa(e.Row))
	if e.Column != "" {
		fmt.Fprintf(&b, ", column '%s'", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// Report accumulates row errors for one import. Only the first limit
// entries are kept; Total still counts every skipped row.
type Report struct {
	kept  []RowError
	limit int
	total int
}

// NewReport returns a Report keeping at most limit entries. A non-positive
// limit selects DefaultReportLimit.
func NewReport(limit int) *Report {
	if limit <= 0 {
		limit = DefaultReportLimit
	}
	return &Report{limit: limit}
}

func (r *Report) record(e RowError) {
	r.total++
	if len(r.kept) < r.limit {
		r.kept = append(r.kept, e)
	}
}

// Missing notes a required column left blank.
func (r *Report) Missing(row int, column string) {
	r.record(RowError{
		Row:     row,
		Column:  column,
		Code:    ErrCodeRequiredField,
		Message: fmt.Sprintf("field '%s' is required", column),
	})
}

// Unparsable notes a value that does not read as the wanted kind.
func (r *Report) Unparsable(row int, column, want, got string) {
	r.record(RowError{
		Row:     row,
		Column:  column,
		Code:    ErrCodeInvalidFormat,
		Message: "invalid format, expected " + want,
		Value:   got,
	})
}

// Malformed notes a line the CSV reader itself rejected.
func (r *Report) Malformed(row int, err error) {
	r.record(RowError{Row: row, Code: ErrCodeMalformedRow, Message: err.Error()})
}

func (r *Report) Kept() []RowError { return r.kept }

func (r *Report) Total() int { return r.total }

func (r *Report) Truncated() bool { return r.total > len(r.kept) }

package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the only accepted textual form of a Date
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day or zone.
// Comparisons never look at timestamps, only at year, month and day.
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate creates a Date, normalizing out-of-range values the way time.Date does
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

// DateOf returns the calendar date of t in loc
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Date{year: y, month: m, day: d}
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(DateLayout) {
		return Date{}, fmt.Errorf("date %q is not in YYYY-MM-DD format", s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("date %q is not in YYYY-MM-DD format", s)
	}
	return DateOf(t, time.UTC), nil
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d.year == 0 && d.month == 0 && d.day == 0
}

// Time returns midnight UTC of the date
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later (earlier for negative n)
func (d Date) AddDays(n int) Date {
	return NewDate(d.year, d.month, d.day+n)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after other
func (d Date) Compare(other Date) int {
	switch {
	case d.year != other.year:
		return cmp(d.year, other.year)
	case d.month != other.month:
		return cmp(int(d.month), int(other.month))
	default:
		return cmp(d.day, other.day)
	}
}

// Before reports whether d is strictly before other
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d is strictly after other
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// Equal reports whether both dates name the same day
func (d Date) Equal(other Date) bool { return d.Compare(other) == 0 }

// String returns the YYYY-MM-DD form, or "" for the zero date
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(DateLayout)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	// Accept full timestamps as well; only the date part is kept.
	if len(*s) > len(DateLayout) {
		*s = (*s)[:len(DateLayout)]
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer for database storage
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time(), nil
}

// Scan implements sql.Scanner for database retrieval
func (d *Date) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = DateOf(v, time.UTC)
	case string:
		parsed, err := ParseDate(firstN(v, len(DateLayout)))
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		parsed, err := ParseDate(firstN(string(v), len(DateLayout)))
		if err != nil {
			return err
		}
		*d = parsed
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
	return nil
}

func firstN(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func cmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

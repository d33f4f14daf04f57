package date

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Range represents a range of dates.
type Range struct{ From, To Date }

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return (!date.Before(r.From) && !date.After(r.To)) }

var quarterRegex = regexp.MustCompile(`^(\d{4})Q([1-4])$`)

// Quarter identifies a calendar quarter, the reporting period of a 13F filing.
//
// Its canonical representation is "YYYYQn", e.g. "2025Q2". The zero value is
// not a valid quarter.
type Quarter struct {
	year int
	q    int
}

// NewQuarter returns the quarter q (1-4) of year.
func NewQuarter(year, q int) (Quarter, error) {
	if q < 1 || q > 4 {
		return Quarter{}, fmt.Errorf("invalid quarter %d: must be between 1 and 4", q)
	}
	return Quarter{year, q}, nil
}

// QuarterOf returns the quarter that contains d.
func QuarterOf(d Date) Quarter {
	return Quarter{d.Year(), int(d.Month()-1)/3 + 1}
}

// ParseQuarter parses a "YYYYQn" string.
func ParseQuarter(s string) (Quarter, error) {
	m := quarterRegex.FindStringSubmatch(s)
	if m == nil {
		return Quarter{}, fmt.Errorf("invalid quarter %q: want format YYYYQn", s)
	}
	y, _ := strconv.Atoi(m[1])
	q, _ := strconv.Atoi(m[2])
	return Quarter{y, q}, nil
}

// MustParseQuarter is like ParseQuarter but panics on error.
func MustParseQuarter(s string) Quarter {
	q, err := ParseQuarter(s)
	if err != nil {
		panic(err.Error())
	}
	return q
}

func (q Quarter) Year() int    { return q.year }
func (q Quarter) Number() int  { return q.q }
func (q Quarter) IsZero() bool { return q == Quarter{} }

// Start returns the first day of the quarter.
func (q Quarter) Start() Date { return New(q.year, time.Month(3*(q.q-1)+1), 1) }

// End returns the last day of the quarter, the "as of" date of a 13F report.
func (q Quarter) End() Date { return q.Next().Start().Add(-1) }

// Range returns the days covered by the quarter.
func (q Quarter) Range() Range { return Range{From: q.Start(), To: q.End()} }

// Next returns the following quarter.
func (q Quarter) Next() Quarter {
	if q.q == 4 {
		return Quarter{q.year + 1, 1}
	}
	return Quarter{q.year, q.q + 1}
}

// Prev returns the preceding quarter.
func (q Quarter) Prev() Quarter {
	if q.q == 1 {
		return Quarter{q.year - 1, 4}
	}
	return Quarter{q.year, q.q - 1}
}

// Before reports whether q is before p.
func (q Quarter) Before(p Quarter) bool {
	return q.year < p.year || (q.year == p.year && q.q < p.q)
}

func (q Quarter) String() string {
	if q.IsZero() {
		return ""
	}
	return fmt.Sprintf("%dQ%d", q.year, q.q)
}

// MarshalText implements encoding.TextMarshaler, so quarters work as JSON and YAML values.
func (q Quarter) MarshalText() ([]byte, error) { return []byte(q.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *Quarter) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*q = Quarter{}
		return nil
	}
	p, err := ParseQuarter(string(b))
	if err != nil {
		return err
	}
	*q = p
	return nil
}

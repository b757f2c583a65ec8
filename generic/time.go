/*
Package generic provides the domain-agnostic building blocks of the export.

PURPOSE:
  Calendar dates, trailing windows, the best-row-per-group ranking operator,
  run bookkeeping and the error taxonomy shared by the eligibility engine and
  the segment builder. Nothing in here knows what a benefit plan is.

KEY CONCEPTS IN THIS FILE (time.go):
  - Date: a calendar day (UTC midnight). All eligibility math is day-based.
  - NullDate: a Date that may be absent (open-ended coverage, unknown DOB).
  - MonthDay: month*100+day, the year-less comparison key used by the
    age-out window.

DESIGN PRINCIPLES:
  1. No ambient clock: callers pass "as of" explicitly. Today() exists only
     for the CLI default.
  2. Dates are values; comparisons ignore time-of-day.

SEE ALSO:
  - period.go: trailing windows
  - rank.go: comparators built on Date/NullDate
*/
package generic

import (
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar day
// =============================================================================

type Date struct {
	Time time.Time
}

// ISODate is the layout used in extract files and logs.
const ISODate = "2006-01-02"

// acceptedLayouts are tried in order by ParseDate.
var acceptedLayouts = []string{
	ISODate,
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a calendar date in any of the accepted layouts.
// Blank input is an error; use ParseNullDate for optional fields.
func ParseDate(field, s string) (Date, error) {
	v := strings.TrimSpace(s)
	if v != "" {
		for _, layout := range acceptedLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return DateOf(t), nil
			}
		}
	}
	return Date{}, &DateParseError{Field: field, Value: s}
}

// MustDate parses an ISO date and panics on failure. Test fixtures only.
func MustDate(s string) Date {
	d, err := ParseDate("fixture", s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(o Date) bool        { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool         { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool         { return d.Time.Equal(o.Time) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }
func (d Date) Compare(o Date) int        { return d.Time.Compare(o.Time) }

// Arithmetic
func (d Date) AddDays(n int) Date  { return Date{Time: d.Time.AddDate(0, 0, n)} }

// AddYears keeps the month and day, clamping Feb 29 to Feb 28 in
// non-leap target years.
func (d Date) AddYears(n int) Date {
	year, month, day := d.Time.Date()
	if last := EndOfMonth(year+n, month).Day(); day > last {
		day = last
	}
	return NewDate(year+n, month, day)
}

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

// MonthDay returns month*100+day, e.g. 1231 for December 31.
func (d Date) MonthDay() int { return int(d.Month())*100 + d.Day() }

// EndOfMonth returns the last day of d's month.
func (d Date) EndOfMonth() Date { return EndOfMonth(d.Year(), d.Month()) }

func (d Date) Format(layout string) string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(layout)
}

func (d Date) String() string { return d.Format(ISODate) }

// =============================================================================
// NULL DATE - Optional calendar day
// =============================================================================

// NullDate is a Date that may be absent. For coverage end dates an absent
// value means open-ended.
type NullDate struct {
	Date  Date
	Valid bool
}

func Some(d Date) NullDate { return NullDate{Date: d, Valid: true} }

// ParseNullDate is ParseDate for optional fields: blank input yields an
// invalid NullDate, anything else must parse.
func ParseNullDate(field, s string) (NullDate, error) {
	if strings.TrimSpace(s) == "" {
		return NullDate{}, nil
	}
	d, err := ParseDate(field, s)
	if err != nil {
		return NullDate{}, err
	}
	return Some(d), nil
}

// Or returns n if valid, otherwise other.
func (n NullDate) Or(other NullDate) NullDate {
	if n.Valid {
		return n
	}
	return other
}

func (n NullDate) Format(layout string) string {
	if !n.Valid {
		return ""
	}
	return n.Date.Format(layout)
}

func (n NullDate) String() string { return n.Format(ISODate) }

// =============================================================================
// TIME UTILITIES
// =============================================================================

func EndOfMonth(year int, month time.Month) Date {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return Date{Time: t}
}

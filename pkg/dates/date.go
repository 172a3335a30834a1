// Package dates provides the canonical calendar-date type used across the
// SGS client, parsing of the two accepted input formats, and partitioning
// of arbitrary ranges into upstream-sized windows.
package dates

import (
	"time"

	"github.com/bacendata/sgs-client/pkg/apierr"
)

const (
	// ISOFormat is the ISO input format accepted from callers.
	ISOFormat = "2006-01-02"

	// BCBFormat is the day-first format the SGS API speaks, both in query
	// parameters and in response payloads.
	BCBFormat = "02/01/2006"
)

// Date is a calendar date with no time-of-day component. The zero value
// means "no date" and is used for optional boundaries.
type Date struct {
	t time.Time
}

// New builds a Date from year, month and day.
func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates a timestamp to its calendar date.
func FromTime(t time.Time) Date {
	return New(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar date.
func Today() Date {
	return FromTime(time.Now())
}

// Parse converts a string to a Date. Exactly two formats are accepted,
// tried in order: ISO (YYYY-MM-DD), then day-first (DD/MM/YYYY). Anything
// else fails with an InvalidParamsError.
func Parse(s string) (Date, error) {
	for _, layout := range []string{ISOFormat, BCBFormat} {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
	}
	return Date{}, apierr.InvalidParamsf("invalid date %q: use YYYY-MM-DD or DD/MM/YYYY", s)
}

// ParseBCB converts a day-first DD/MM/YYYY string, the only format the
// upstream emits, to a Date.
func ParseBCB(s string) (Date, error) {
	t, err := time.Parse(BCBFormat, s)
	if err != nil {
		return Date{}, apierr.InvalidParamsf("invalid upstream date %q: expected DD/MM/YYYY", s)
	}
	return FromTime(t), nil
}

// Normalize coerces a heterogeneous boundary value into a Date. It accepts
// nil (no value), Date, time.Time and string; anything else fails with an
// InvalidParamsError. The second return value reports whether a value was
// present.
func Normalize(v any) (Date, bool, error) {
	switch val := v.(type) {
	case nil:
		return Date{}, false, nil
	case Date:
		return val, !val.IsZero(), nil
	case time.Time:
		return FromTime(val), true, nil
	case string:
		d, err := Parse(val)
		if err != nil {
			return Date{}, false, err
		}
		return d, true, nil
	default:
		return Date{}, false, apierr.InvalidParamsf("unsupported date value of type %T", v)
	}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns the date as a UTC midnight timestamp.
func (d Date) Time() time.Time { return d.t }

// Year returns the calendar year.
func (d Date) Year() int { return d.t.Year() }

// Month returns the calendar month.
func (d Date) Month() time.Month { return d.t.Month() }

// Day returns the day of month.
func (d Date) Day() int { return d.t.Day() }

// Equal reports whether two dates are the same calendar day.
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After reports whether d is later than o.
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// AddYears returns the date n calendar years later. Day-of-month overflow
// follows time.AddDate normalization (Feb 29 + 1y = Mar 1).
func (d Date) AddYears(n int) Date { return Date{t: d.t.AddDate(n, 0, 0)} }

// ISO formats the date as YYYY-MM-DD.
func (d Date) ISO() string { return d.t.Format(ISOFormat) }

// BCB formats the date as DD/MM/YYYY, the upstream's own format.
func (d Date) BCB() string { return d.t.Format(BCBFormat) }

// String implements fmt.Stringer using the ISO format.
func (d Date) String() string { return d.ISO() }

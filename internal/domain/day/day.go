// Package day models the calendar day, the unit of CMS ingestion.
package day

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/cmsdex/internal/domain"
)

// Layout is the wire format of a day identifier.
const Layout = "2006-01-02"

// DefaultMaxRangeDays caps how many days a single range may expand to.
const DefaultMaxRangeDays = 3660

// Day is a calendar date (immutable value object, always UTC midnight).
type Day struct {
	t time.Time
}

// New creates a Day from year, month and day-of-month. Out-of-range values are normalized.
func New(year int, month time.Month, d int) Day {
	return Day{t: time.Date(year, month, d, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates t to its calendar day in t's own location.
func FromTime(t time.Time) Day {
	return New(t.Year(), t.Month(), t.Day())
}

// Parse accepts YYYY-MM-DD or an RFC 3339 timestamp.
func Parse(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day{}, fmt.Errorf("empty date: %w", domain.ErrValidation)
	}
	if t, err := time.Parse(Layout, s); err == nil {
		return FromTime(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return FromTime(t), nil
	}
	return Day{}, fmt.Errorf("date %q is not YYYY-MM-DD: %w", s, domain.ErrValidation)
}

// MustParse is Parse that panics, for tests and constants.
func MustParse(s string) Day {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String renders the day identifier.
func (d Day) String() string { return d.t.Format(Layout) }

// Time returns the UTC midnight instant of the day.
func (d Day) Time() time.Time { return d.t }

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool { return d.t.IsZero() }

// AddDays returns d shifted by n calendar days.
func (d Day) AddDays(n int) Day { return Day{t: d.t.AddDate(0, 0, n)} }

// Before reports whether d is earlier than o.
func (d Day) Before(o Day) bool { return d.t.Before(o.t) }

// After reports whether d is later than o.
func (d Day) After(o Day) bool { return d.t.After(o.t) }

// Equal reports whether d and o are the same calendar day.
func (d Day) Equal(o Day) bool { return d.t.Equal(o.t) }

// Compare returns -1, 0 or +1.
func (d Day) Compare(o Day) int { return d.t.Compare(o.t) }

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Strings renders a sequence of days.
func Strings(days []Day) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.String()
	}
	return out
}

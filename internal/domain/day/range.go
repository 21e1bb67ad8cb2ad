package day

import (
	"fmt"

	"github.com/kailas-cloud/cmsdex/internal/domain"
)

// Range is a start day with an optional inclusive end day.
type Range struct {
	start Day
	end   *Day
}

// NewRange validates end >= start.
func NewRange(start Day, end *Day) (Range, error) {
	if end != nil && end.Before(start) {
		return Range{}, fmt.Errorf("end %s is before start %s: %w", end, start, domain.ErrInvalidRange)
	}
	r := Range{start: start}
	if end != nil {
		e := *end
		r.end = &e
	}
	return r, nil
}

// Start returns the first day.
func (r Range) Start() Day { return r.start }

// End returns the last day, or nil for a single-day range.
func (r Range) End() *Day { return r.end }

// Len returns the number of days covered.
func (r Range) Len() int {
	if r.end == nil {
		return 1
	}
	return daysBetween(r.start, *r.end) + 1
}

// Days expands the range; see Expand.
func (r Range) Days(maxDays int) ([]Day, error) {
	return Expand(r.start, r.end, maxDays)
}

// Expand returns every calendar day from start to end inclusive, ascending.
// A nil end yields [start]. maxDays <= 0 disables the width cap.
func Expand(start Day, end *Day, maxDays int) ([]Day, error) {
	if end == nil {
		return []Day{start}, nil
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end %s is before start %s: %w", end, start, domain.ErrInvalidRange)
	}

	n := daysBetween(start, *end) + 1
	if maxDays > 0 && n > maxDays {
		return nil, &domain.RangeTooWideError{Days: n, Max: maxDays}
	}

	days := make([]Day, 0, n)
	for d := start; !d.After(*end); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days, nil
}

// daysBetween counts whole days; both values are UTC midnight so DST never applies.
func daysBetween(a, b Day) int {
	return int(b.t.Sub(a.t).Hours() / 24)
}

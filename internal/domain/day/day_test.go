package day

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/cmsdex/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2020-01-01", "2020-01-01", false},
		{" 2020-02-29 ", "2020-02-29", false},
		{"2020-01-03T23:59:59Z", "2020-01-03", false},
		{"2020-01-03T01:00:00+05:00", "2020-01-03", false},
		{"", "", true},
		{"01/02/2020", "", true},
		{"2021-02-29", "", true},
	}
	for _, tc := range tests {
		got, err := Parse(tc.in)
		if tc.wantErr {
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Parse(%q) err = %v, want ErrValidation", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got.String() != tc.want {
			t.Errorf("Parse(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestOrdering(t *testing.T) {
	a := MustParse("2020-01-01")
	b := MustParse("2020-01-02")

	if !a.Before(b) || b.Before(a) {
		t.Error("expected a < b")
	}
	if !b.After(a) {
		t.Error("expected b > a")
	}
	if !a.Equal(New(2020, time.January, 1)) {
		t.Error("expected equal days")
	}
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Error("unexpected Compare result")
	}
}

func TestUnmarshalText(t *testing.T) {
	var d Day
	if err := d.UnmarshalText([]byte("2019-12-31")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2019-12-31" {
		t.Errorf("got %s", d)
	}
	if err := d.UnmarshalText([]byte("nope")); err == nil {
		t.Error("expected error")
	}
}

func TestExpand_NoEnd(t *testing.T) {
	start := MustParse("2020-01-01")
	days, err := Expand(start, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 1 || !days[0].Equal(start) {
		t.Errorf("expected [start], got %v", Strings(days))
	}
}

func TestExpand_Inclusive(t *testing.T) {
	start := MustParse("2020-01-01")
	end := MustParse("2020-01-03")

	days, err := Expand(start, &end, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2020-01-01", "2020-01-02", "2020-01-03"}
	got := Strings(days)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("day %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestExpand_SameDay(t *testing.T) {
	start := MustParse("2020-05-05")
	days, err := Expand(start, &start, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 1 {
		t.Errorf("expected 1 day, got %d", len(days))
	}
}

func TestExpand_CrossesMonthLeapYearAndDST(t *testing.T) {
	cases := []struct {
		start, end string
		n          int
	}{
		{"2020-02-27", "2020-03-02", 5},
		{"2019-12-30", "2020-01-02", 4},
		{"2021-03-27", "2021-03-29", 3},
		{"2020-01-01", "2020-12-31", 366},
	}
	for _, tc := range cases {
		start, end := MustParse(tc.start), MustParse(tc.end)
		days, err := Expand(start, &end, 0)
		if err != nil {
			t.Fatalf("%s..%s: unexpected error: %v", tc.start, tc.end, err)
		}
		if len(days) != tc.n {
			t.Errorf("%s..%s: expected %d days, got %d", tc.start, tc.end, tc.n, len(days))
		}
		for i := 1; i < len(days); i++ {
			if !days[i-1].AddDays(1).Equal(days[i]) {
				t.Errorf("%s..%s: gap between %s and %s", tc.start, tc.end, days[i-1], days[i])
			}
		}
		if !days[0].Equal(start) || !days[len(days)-1].Equal(end) {
			t.Errorf("%s..%s: bounds not inclusive", tc.start, tc.end)
		}
	}
}

func TestExpand_EndBeforeStart(t *testing.T) {
	start := MustParse("2020-01-03")
	end := MustParse("2020-01-01")

	_, err := Expand(start, &end, 0)
	if !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestExpand_MaxDays(t *testing.T) {
	start := MustParse("2020-01-01")
	end := MustParse("2020-01-10")

	if _, err := Expand(start, &end, 10); err != nil {
		t.Fatalf("10 days within limit 10: %v", err)
	}
	_, err := Expand(start, &end, 9)
	if !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	var tw *domain.RangeTooWideError
	if !errors.As(err, &tw) || tw.Days != 10 || tw.Max != 9 {
		t.Errorf("expected RangeTooWideError{10, 9}, got %v", err)
	}
}

func TestNewRange(t *testing.T) {
	start := MustParse("2020-01-01")
	end := MustParse("2020-01-31")

	r, err := NewRange(start, &end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Len() != 31 {
		t.Errorf("expected 31, got %d", r.Len())
	}

	// mutating the caller's end must not change the range
	end = MustParse("2020-02-01")
	if r.End().String() != "2020-01-31" {
		t.Errorf("range end changed to %s", r.End())
	}

	single, err := NewRange(start, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if single.Len() != 1 || single.End() != nil {
		t.Error("expected single-day range")
	}

	if _, err := NewRange(end, &start); !errors.Is(err, domain.ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

package task

import (
	"testing"
	"time"

	"github.com/kailas-cloud/cmsdex/internal/domain/day"
)

func TestEncodeDecode(t *testing.T) {
	now := time.Date(2020, 1, 5, 10, 0, 0, 0, time.UTC)
	orig := New(day.MustParse("2020-01-02"), now)
	if orig.ID == "" {
		t.Fatal("expected generated ID")
	}

	data, err := orig.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != orig.ID || !got.Day.Equal(orig.Day) || !got.SubmittedAt.Equal(now) {
		t.Errorf("round trip mismatch: %+v vs %+v", got, orig)
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, in := range []string{`not json`, `{"id":"x"}`, `{"day":"2020-13-01"}`} {
		if _, err := Decode([]byte(in)); err == nil {
			t.Errorf("Decode(%s): expected error", in)
		}
	}
}

package handlers

import (
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	moscow, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	cases := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-11T10:00:00Z", time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)},
		{"2026-03-11T10:00", time.Date(2026, 3, 11, 10, 0, 0, 0, moscow)},
		{"2026-03-11 10:00", time.Date(2026, 3, 11, 10, 0, 0, 0, moscow)},
		{"2026-03-11", time.Date(2026, 3, 11, 0, 0, 0, 0, moscow)},
	}

	for _, tc := range cases {
		got, err := parseTime(tc.in, "Europe/Moscow")
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Errorf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := parseTime("tomorrow", "Europe/Moscow"); err == nil {
		t.Fatal("expected an error for free text")
	}
}

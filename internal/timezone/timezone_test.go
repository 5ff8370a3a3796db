package timezone

import (
	"testing"
	"time"
)

func TestLocationFallsBack(t *testing.T) {
	if got := Location("Not/AZone"); got == nil {
		t.Fatal("expected a location")
	}
	if IsValid("") {
		t.Error("empty zone must be invalid")
	}
	if !IsValid("UTC") {
		t.Error("UTC must be valid")
	}
}

func TestFormat(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	if got := Format(ts, "UTC"); got != "14.03.2026 09:30" {
		t.Errorf("unexpected format %q", got)
	}
}

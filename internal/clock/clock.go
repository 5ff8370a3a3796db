// Package clock supplies the current time so tests can pin or advance it.
package clock

import (
	"sync"
	"time"

	"github.com/warpVIT1/tarot-booking-app/internal/timezone"
)

type Clock interface {
	Now() time.Time
}

// Real reports wall time in the configured zone.
type Real struct {
	Timezone string
}

func (r Real) Now() time.Time {
	return timezone.NowIn(r.Timezone)
}

// Fixed is a manually driven clock.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixed) Set(now time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

func (f *Fixed) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	return f.now
}

package booking

import (
	"context"
	"errors"
	"time"

	domain "github.com/warpVIT1/tarot-booking-app/internal/domain/booking"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/identity"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/slot"
	"github.com/warpVIT1/tarot-booking-app/internal/events"
	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
	"github.com/warpVIT1/tarot-booking-app/internal/logger"
	"github.com/warpVIT1/tarot-booking-app/internal/store"
	ucSlot "github.com/warpVIT1/tarot-booking-app/internal/usecase/slot"
)

// OrphanGrace is how long a claimed slot may sit without a booking before
// ReleaseOrphans gives it back. It covers the gap between claim and booking write.
const OrphanGrace = 10 * time.Minute

var system = identity.Actor{ID: "system"}

// CompleteElapsed closes confirmed bookings whose slot has ended and marks
// their slots booked.
func (l *Ledger) CompleteElapsed(ctx context.Context) (int, error) {
	now := l.clock.Now()

	var done []domain.Booking
	_, err := store.Mutate(ctx, l.store, store.Bookings, func(items []domain.Booking) ([]domain.Booking, error) {
		done = done[:0]
		for i := range items {
			if items[i].Status != domain.StatusConfirmed || items[i].SlotEnd.After(now) {
				continue
			}
			if err := domain.Complete(&items[i], now); err != nil {
				return nil, err
			}
			done = append(done, items[i])
		}
		if len(done) == 0 {
			return nil, store.ErrNoChange
		}
		return items, nil
	})
	if err != nil {
		return 0, err
	}

	for _, b := range done {
		_, err := l.slots.TryTransition(ctx, b.SlotID, slot.AnyVersion, slot.StatusPending, slot.StatusBooked)
		if err != nil && !errors.Is(err, httperr.ErrConflict) {
			return len(done), err
		}
		if err != nil {
			logger.Warn("slot not marked booked", "slot", b.SlotID, "booking", b.ID, "error", err)
		}
		l.dispatch(system, "booking_completed", b)
		l.publish(ctx, events.BookingCompleted, b, "")
	}

	if len(done) > 0 {
		logger.Info("completed elapsed bookings", "count", len(done))
	}
	return len(done), nil
}

// ReleaseOrphans returns pending slots that no active booking holds.
func (l *Ledger) ReleaseOrphans(ctx context.Context) (int, error) {
	pending, err := l.slots.List(ctx, ucSlot.Filter{Status: slot.StatusPending})
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	bookings, _, err := store.Load[domain.Booking](ctx, l.store, store.Bookings)
	if err != nil {
		return 0, err
	}
	held := make(map[string]bool, len(bookings))
	for _, b := range bookings {
		if b.Status.Active() {
			held[b.SlotID] = true
		}
	}

	cutoff := l.clock.Now().Add(-OrphanGrace)
	released := 0
	for _, s := range pending {
		if held[s.ID] || s.UpdatedAt.After(cutoff) {
			continue
		}
		_, err := l.slots.TryTransition(ctx, s.ID, s.Version, slot.StatusPending, slot.StatusAvailable)
		if errors.Is(err, httperr.ErrConflict) {
			continue
		}
		if err != nil {
			return released, err
		}
		released++
		logger.Warn("released orphaned slot", "slot", s.ID)
	}
	return released, nil
}

// MarkRemindersDue flags every booking due for a reminder at now in one
// guarded write and returns the flagged bookings.
func (l *Ledger) MarkRemindersDue(ctx context.Context, now time.Time, lead time.Duration) ([]domain.Booking, error) {
	var due []domain.Booking
	_, err := store.Mutate(ctx, l.store, store.Bookings, func(items []domain.Booking) ([]domain.Booking, error) {
		due = due[:0]
		for i := range items {
			if !domain.DueForReminder(items[i], now, lead) {
				continue
			}
			items[i].ReminderSent = true
			due = append(due, items[i])
		}
		if len(due) == 0 {
			return nil, store.ErrNoChange
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return due, nil
}

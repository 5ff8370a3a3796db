package booking

import (
	"sort"
	"time"

	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
)

type Booking struct {
	ID         string `json:"id"`
	ClientID   string `json:"client_id"`
	ProviderID string `json:"provider_id,omitempty"`

	// Copied from the slot when it was claimed. Slot bounds never change.
	SlotID    string    `json:"slot_id"`
	SlotStart time.Time `json:"slot_start"`
	SlotEnd   time.Time `json:"slot_end"`

	Status Status `json:"status"`

	ClientName    string     `json:"client_name"`
	ClientContact string     `json:"client_contact"`
	Question      string     `json:"question,omitempty"`
	SuggestedTime *time.Time `json:"suggested_time,omitempty"`

	ReminderSent bool `json:"reminder_sent"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Fields is what a client supplies when claiming a slot.
type Fields struct {
	ClientName    string     `json:"client_name" validate:"required,max=100"`
	ClientContact string     `json:"client_contact" validate:"required,max=100,contact"`
	Question      string     `json:"question" validate:"max=2000"`
	SuggestedTime *time.Time `json:"suggested_time"`
}

// ===============================
// Domain Actions
// ===============================

func Confirm(b *Booking, now time.Time) error {
	if err := CanConfirm(b.Status); err != nil {
		return err
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now
	return nil
}

func Reject(b *Booking, now time.Time) error {
	if err := CanReject(b.Status); err != nil {
		return err
	}
	b.Status = StatusCancelled
	b.UpdatedAt = now
	b.CancelledAt = &now
	return nil
}

// Cancel refuses once the slot starts within minLead of now.
func Cancel(b *Booking, now time.Time, minLead time.Duration) error {
	if err := CanCancel(b.Status); err != nil {
		return err
	}
	if b.SlotStart.Sub(now) < minLead {
		return httperr.ErrTooLate
	}
	b.Status = StatusCancelled
	b.UpdatedAt = now
	b.CancelledAt = &now
	return nil
}

func Complete(b *Booking, now time.Time) error {
	if err := CanComplete(b.Status); err != nil {
		return err
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now
	b.CompletedAt = &now
	return nil
}

// DueForReminder reports whether a reminder should go out at now.
func DueForReminder(b Booking, now time.Time, lead time.Duration) bool {
	if b.Status != StatusConfirmed || b.ReminderSent {
		return false
	}
	return !b.SlotStart.Before(now) && b.SlotStart.Before(now.Add(lead))
}

// SortBySlotStart orders bookings by slot start, ties by ID.
func SortBySlotStart(bookings []Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		if !bookings[i].SlotStart.Equal(bookings[j].SlotStart) {
			return bookings[i].SlotStart.Before(bookings[j].SlotStart)
		}
		return bookings[i].ID < bookings[j].ID
	})
}

package booking

import "github.com/warpVIT1/tarot-booking-app/internal/httperr"

// ===============================
// Booking Status
// ===============================

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return Status(s), nil
	}
	return "", httperr.ErrInvalidInput
}

// Active bookings hold their slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// ===============================
// Validations
// ===============================

func CanConfirm(current Status) error {
	if current != StatusPending {
		return httperr.ErrInvalidState
	}
	return nil
}

func CanReject(current Status) error {
	if current != StatusPending {
		return httperr.ErrInvalidState
	}
	return nil
}

func CanCancel(current Status) error {
	if !current.Active() {
		return httperr.ErrInvalidState
	}
	return nil
}

func CanComplete(current Status) error {
	if current != StatusConfirmed {
		return httperr.ErrInvalidState
	}
	return nil
}

func InitialStatus() Status {
	return StatusPending
}

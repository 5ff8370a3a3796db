package slot

import "github.com/warpVIT1/tarot-booking-app/internal/httperr"

// ===============================
// Slot Status
// ===============================

type Status string

const (
	StatusAvailable Status = "available"
	StatusPending   Status = "pending" // claimed by a booking
	StatusBooked    Status = "booked"
)

// AnyVersion skips the version half of the compare-and-swap.
const AnyVersion int64 = -1

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusAvailable, StatusPending, StatusBooked:
		return Status(s), nil
	}
	return "", httperr.ErrInvalidInput
}

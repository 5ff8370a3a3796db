package slot

import (
	"sort"
	"time"

	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
)

type TimeSlot struct {
	ID        string    `json:"id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Status    Status    `json:"status"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ===============================
// Domain Actions
// ===============================

func New(id string, start, end, now time.Time) (TimeSlot, error) {
	if !end.After(start) {
		return TimeSlot{}, httperr.ErrInvalidRange
	}
	return TimeSlot{
		ID:        id,
		Start:     start,
		End:       end,
		Status:    StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Matches reports whether the slot is still in the state the caller observed.
func (s TimeSlot) Matches(expectedVersion int64, expectedStatus Status) bool {
	if s.Status != expectedStatus {
		return false
	}
	return expectedVersion == AnyVersion || s.Version == expectedVersion
}

// Transition applies a compare-and-swap in memory. A mismatch leaves s untouched.
func Transition(s *TimeSlot, expectedVersion int64, expectedStatus, next Status) error {
	if !s.Matches(expectedVersion, expectedStatus) {
		return httperr.ErrConflict
	}
	s.Status = next
	s.Version++
	return nil
}

// SortByStart orders slots nearest first, ties by ID.
func SortByStart(slots []TimeSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].Start.Equal(slots[j].Start) {
			return slots[i].Start.Before(slots[j].Start)
		}
		return slots[i].ID < slots[j].ID
	})
}

// Package fixtures builds development data through the public operations only.
package fixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/warpVIT1/tarot-booking-app/internal/clock"
	"github.com/warpVIT1/tarot-booking-app/internal/config"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/booking"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/identity"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/slot"
	"github.com/warpVIT1/tarot-booking-app/internal/middleware"
	"github.com/warpVIT1/tarot-booking-app/internal/timezone"
	ucBooking "github.com/warpVIT1/tarot-booking-app/internal/usecase/booking"
	ucIdentity "github.com/warpVIT1/tarot-booking-app/internal/usecase/identity"
	ucSlot "github.com/warpVIT1/tarot-booking-app/internal/usecase/slot"
)

const (
	DevClientID   = "12345678"
	DevProviderID = "87654321"
)

type Seeder struct {
	Registry  *ucSlot.Registry
	Ledger    *ucBooking.Ledger
	Directory *ucIdentity.Directory
	Clock     clock.Clock
	Timezone  string
}

type Result struct {
	Client   identity.Identity
	Provider identity.Identity
	Slots    []slot.TimeSlot
	Booking  *booking.Booking
}

// Seed registers the dev identities and tomorrow's slots at 10:00 and 14:00,
// plus a 16:00 slot claimed by the dev client. Slots that already exist are
// left alone, so running it twice is harmless.
func (s Seeder) Seed(ctx context.Context) (Result, error) {
	var res Result
	var err error

	res.Client, err = s.Directory.Register(ctx, ucIdentity.Registration{
		ID: DevClientID, Role: identity.RoleClient, DisplayName: "Test User",
	})
	if err != nil {
		return res, fmt.Errorf("register dev client: %w", err)
	}
	res.Provider, err = s.Directory.Register(ctx, ucIdentity.Registration{
		ID: DevProviderID, Role: identity.RoleProvider, DisplayName: "Test Reader",
	})
	if err != nil {
		return res, fmt.Errorf("register dev provider: %w", err)
	}

	existing, err := s.Registry.List(ctx, ucSlot.Filter{})
	if err != nil {
		return res, err
	}
	taken := make(map[int64]bool, len(existing))
	for _, sl := range existing {
		taken[sl.Start.Unix()] = true
	}

	loc := timezone.Location(s.Timezone)
	tomorrow := s.Clock.Now().In(loc).AddDate(0, 0, 1)

	for _, hour := range []int{10, 14, 16} {
		start := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, 0, 0, 0, loc)
		if taken[start.Unix()] {
			continue
		}

		sl, err := s.Registry.Create(ctx, start, start.Add(time.Hour))
		if err != nil {
			return res, fmt.Errorf("create slot %02d:00: %w", hour, err)
		}

		if hour == 16 {
			b, err := s.Ledger.Create(ctx,
				identity.Actor{ID: res.Client.ID, Role: identity.RoleClient},
				sl.ID,
				booking.Fields{
					ClientName:    res.Client.DisplayName,
					ClientContact: "@test_user",
					Question:      "Test booking",
				},
			)
			if err != nil {
				return res, fmt.Errorf("claim dev slot: %w", err)
			}
			res.Booking = &b
			sl.Status = slot.StatusPending
		}
		res.Slots = append(res.Slots, sl)
	}

	return res, nil
}

// DevToken mints a session token for instant dev login.
func DevToken(cfg *config.Config, id identity.Identity) (string, error) {
	return middleware.IssueToken(cfg, id)
}

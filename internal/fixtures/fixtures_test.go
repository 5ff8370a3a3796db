package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/warpVIT1/tarot-booking-app/internal/clock"
	"github.com/warpVIT1/tarot-booking-app/internal/config"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/slot"
	"github.com/warpVIT1/tarot-booking-app/internal/store"
	ucBooking "github.com/warpVIT1/tarot-booking-app/internal/usecase/booking"
	ucIdentity "github.com/warpVIT1/tarot-booking-app/internal/usecase/identity"
	ucSlot "github.com/warpVIT1/tarot-booking-app/internal/usecase/slot"
)

func newSeeder() Seeder {
	mem := store.NewMemory()
	clk := clock.NewFixed(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	registry := ucSlot.NewRegistry(mem, clk, nil, nil)
	return Seeder{
		Registry:  registry,
		Directory: ucIdentity.NewDirectory(mem, clk, nil),
		Ledger: ucBooking.NewLedger(ucBooking.Deps{
			Store: mem,
			Slots: registry,
			Clock: clk,
			Rules: config.BookingRules{
				MinCancelLead:     time.Hour,
				MinBookingLead:    2 * time.Hour,
				MaxBookingHorizon: 30 * 24 * time.Hour,
			},
		}),
		Clock:    clk,
		Timezone: "UTC",
	}
}

func TestSeed(t *testing.T) {
	s := newSeeder()
	ctx := context.Background()

	res, err := s.Seed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Slots) != 3 || res.Booking == nil {
		t.Fatalf("unexpected seed result %+v", res)
	}

	available, _ := s.Registry.List(ctx, ucSlot.Filter{Status: slot.StatusAvailable})
	if len(available) != 2 || available[0].Start.Hour() != 10 || available[1].Start.Hour() != 14 {
		t.Errorf("unexpected available slots %+v", available)
	}
	pending, _ := s.Registry.List(ctx, ucSlot.Filter{Status: slot.StatusPending})
	if len(pending) != 1 || pending[0].Start.Hour() != 16 || pending[0].Start.Day() != 2 {
		t.Errorf("unexpected pending slots %+v", pending)
	}

	again, err := s.Seed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Slots) != 0 {
		t.Errorf("second seed created %d slots", len(again.Slots))
	}
}

func TestDevToken(t *testing.T) {
	s := newSeeder()
	res, err := s.Seed(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	token, err := DevToken(&config.Config{JWTSecret: "x", TokenTTL: time.Hour}, res.Provider)
	if err != nil || token == "" {
		t.Fatalf("token %q err %v", token, err)
	}
}

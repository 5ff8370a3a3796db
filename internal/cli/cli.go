// Package cli holds the operator commands of slotctl.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/warpVIT1/tarot-booking-app/internal/app"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/identity"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/slot"
	"github.com/warpVIT1/tarot-booking-app/internal/fixtures"
	"github.com/warpVIT1/tarot-booking-app/internal/timezone"
	ucIdentity "github.com/warpVIT1/tarot-booking-app/internal/usecase/identity"
	ucSlot "github.com/warpVIT1/tarot-booking-app/internal/usecase/slot"
)

type Context struct {
	Ctx context.Context
	App *app.App
	Out io.Writer
}

type SeedCmd struct{}

func (c *SeedCmd) Run(ctx *Context) error {
	res, err := ctx.App.Seeder().Seed(ctx.Ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "client %s, provider %s\n", res.Client.ID, res.Provider.ID)
	fmt.Fprintf(ctx.Out, "created %d slot(s)\n", len(res.Slots))
	if res.Booking != nil {
		fmt.Fprintf(ctx.Out, "booking %s on slot %s\n", res.Booking.ID, res.Booking.SlotID)
	}
	return nil
}

type RemindCmd struct{}

func (c *RemindCmd) Run(ctx *Context) error {
	n, err := ctx.App.Scheduler.ScanOnce(ctx.Ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "sent %d reminder(s)\n", n)
	return nil
}

type MaintainCmd struct{}

func (c *MaintainCmd) Run(ctx *Context) error {
	completed, err := ctx.App.Bookings.CompleteElapsed(ctx.Ctx)
	if err != nil {
		return err
	}
	released, err := ctx.App.Bookings.ReleaseOrphans(ctx.Ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "completed %d booking(s), released %d slot(s)\n", completed, released)
	return nil
}

type SlotsCmd struct {
	Status string `help:"Only slots in this status (available, pending, booked)."`
}

func (c *SlotsCmd) Run(ctx *Context) error {
	var f ucSlot.Filter
	if c.Status != "" {
		s, err := slot.ParseStatus(c.Status)
		if err != nil {
			return err
		}
		f.Status = s
	}

	slots, err := ctx.App.Slots.List(ctx.Ctx, f)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		fmt.Fprintln(ctx.Out, "No slots found")
		return nil
	}

	tz := ctx.App.Config.Timezone
	for _, s := range slots {
		fmt.Fprintf(ctx.Out, "  %s  %s - %s  [%s] v%d\n",
			s.ID, timezone.Format(s.Start, tz), timezone.Format(s.End, tz), s.Status, s.Version)
	}
	return nil
}

// EnrollCmd creates a password-protected identity. It is how providers get
// accounts when self sign-up is closed.
type EnrollCmd struct {
	ID       string `help:"Account id." required:""`
	Role     string `help:"Account role." enum:"client,provider" default:"provider"`
	Name     string `help:"Display name."`
	Password string `help:"Initial password." env:"SLOTCTL_PASSWORD" required:""`
}

func (c *EnrollCmd) Run(ctx *Context) error {
	id, err := ctx.App.Identities.Enroll(ctx.Ctx, ucIdentity.Registration{
		ID:          c.ID,
		Role:        identity.Role(c.Role),
		DisplayName: c.Name,
	}, c.Password)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "enrolled %s %s (referral code %s)\n", id.Role, id.ID, id.ReferralCode)
	return nil
}

type TokenCmd struct {
	Role string `help:"Dev identity to sign in as." enum:"client,provider" default:"client"`
}

func (c *TokenCmd) Run(ctx *Context) error {
	reg := ucIdentity.Registration{ID: fixtures.DevClientID, Role: identity.RoleClient, DisplayName: "Test User"}
	if c.Role == string(identity.RoleProvider) {
		reg = ucIdentity.Registration{ID: fixtures.DevProviderID, Role: identity.RoleProvider, DisplayName: "Test Reader"}
	}

	id, err := ctx.App.Identities.Register(ctx.Ctx, reg)
	if err != nil {
		return err
	}
	token, err := fixtures.DevToken(ctx.App.Config, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, token)
	return nil
}

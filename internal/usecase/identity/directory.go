package identity

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/warpVIT1/tarot-booking-app/internal/audit"
	"github.com/warpVIT1/tarot-booking-app/internal/clock"
	domain "github.com/warpVIT1/tarot-booking-app/internal/domain/identity"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/referral"
	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
	"github.com/warpVIT1/tarot-booking-app/internal/store"
)

// Directory keeps the identities known to the service.
type Directory struct {
	store store.KeyedStore
	clock clock.Clock
	audit *audit.Dispatcher

	hashCost int
}

func NewDirectory(st store.KeyedStore, clk clock.Clock, audit *audit.Dispatcher) *Directory {
	return &Directory{store: st, clock: clk, audit: audit, hashCost: bcrypt.DefaultCost}
}

type Registration struct {
	ID          string
	Role        domain.Role
	DisplayName string
}

// Register is idempotent on ID. The role of an existing identity never changes.
// It stores no credential, so it is meant for fixtures and operator tooling;
// public sign-up goes through Enroll.
func (d *Directory) Register(ctx context.Context, reg Registration) (domain.Identity, error) {
	reg.ID = strings.TrimSpace(reg.ID)
	if reg.ID == "" {
		return domain.Identity{}, httperr.ErrInvalidInput
	}
	if _, err := domain.ParseRole(string(reg.Role)); err != nil {
		return domain.Identity{}, err
	}

	var (
		result  domain.Identity
		created bool
	)
	_, err := store.Mutate(ctx, d.store, store.Identities, func(items []domain.Identity) ([]domain.Identity, error) {
		created = false
		for _, it := range items {
			if it.ID == reg.ID {
				result = it
				return nil, store.ErrNoChange
			}
		}

		result = d.newIdentity(reg)
		created = true
		return append(items, result), nil
	})
	if err != nil {
		return domain.Identity{}, err
	}

	if created {
		d.audit.Dispatch(audit.Event{
			ActorID:  result.ID,
			Action:   "identity_registered",
			Entity:   "identity",
			EntityID: result.ID,
			Metadata: map[string]any{"role": result.Role},
		})
	}
	return result, nil
}

func (d *Directory) newIdentity(reg Registration) domain.Identity {
	return domain.Identity{
		ID:           reg.ID,
		Role:         reg.Role,
		DisplayName:  strings.TrimSpace(reg.DisplayName),
		ReferralCode: referral.CodeFor(reg.ID),
		RegisteredAt: d.clock.Now(),
	}
}

func (d *Directory) FindByID(ctx context.Context, id string) (domain.Identity, error) {
	return d.find(ctx, func(it domain.Identity) bool { return it.ID == id })
}

func (d *Directory) FindByReferralCode(ctx context.Context, code string) (domain.Identity, error) {
	if code == "" {
		return domain.Identity{}, httperr.ErrIdentityNotFound
	}
	return d.find(ctx, func(it domain.Identity) bool { return it.ReferralCode == code })
}

// ProviderIDs lists every registered provider.
func (d *Directory) ProviderIDs(ctx context.Context) ([]string, error) {
	items, _, err := store.Load[domain.Identity](ctx, d.store, store.Identities)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, it := range items {
		if it.Role == domain.RoleProvider {
			ids = append(ids, it.ID)
		}
	}
	return ids, nil
}

// SetReferredBy records the inviter code once. It reports false when the
// identity was already attributed.
func (d *Directory) SetReferredBy(ctx context.Context, id, code string) (bool, error) {
	set := false
	_, err := store.Mutate(ctx, d.store, store.Identities, func(items []domain.Identity) ([]domain.Identity, error) {
		set = false
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if items[i].ReferredBy != "" {
				return nil, store.ErrNoChange
			}
			items[i].ReferredBy = code
			set = true
			return items, nil
		}
		return nil, httperr.ErrIdentityNotFound
	})
	return set, err
}

func (d *Directory) find(ctx context.Context, match func(domain.Identity) bool) (domain.Identity, error) {
	items, _, err := store.Load[domain.Identity](ctx, d.store, store.Identities)
	if err != nil {
		return domain.Identity{}, err
	}
	for _, it := range items {
		if match(it) {
			return it, nil
		}
	}
	return domain.Identity{}, httperr.ErrIdentityNotFound
}

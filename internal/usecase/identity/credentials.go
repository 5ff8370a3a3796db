package identity

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/warpVIT1/tarot-booking-app/internal/audit"
	domain "github.com/warpVIT1/tarot-booking-app/internal/domain/identity"
	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
	"github.com/warpVIT1/tarot-booking-app/internal/logger"
	"github.com/warpVIT1/tarot-booking-app/internal/store"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores anything past 72 bytes.
	MaxPasswordLength = 72
)

// SetHashCost changes the bcrypt cost for new passwords. Values outside the
// bcrypt range fall back to bcrypt.DefaultCost.
func (d *Directory) SetHashCost(cost int) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	d.hashCost = cost
}

// Enroll creates a new identity protected by a password. Unlike Register it
// refuses an ID that is already taken.
func (d *Directory) Enroll(ctx context.Context, reg Registration, password string) (domain.Identity, error) {
	reg.ID = strings.TrimSpace(reg.ID)
	if reg.ID == "" || len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return domain.Identity{}, httperr.ErrInvalidInput
	}
	if _, err := domain.ParseRole(string(reg.Role)); err != nil {
		return domain.Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.hashCost)
	if err != nil {
		return domain.Identity{}, err
	}

	var result domain.Identity
	_, err = store.Mutate(ctx, d.store, store.Identities, func(items []domain.Identity) ([]domain.Identity, error) {
		for _, it := range items {
			if it.ID == reg.ID {
				return nil, httperr.ErrIdentityExists
			}
		}
		result = d.newIdentity(reg)
		return append(items, result), nil
	})
	if err != nil {
		return domain.Identity{}, err
	}

	cred := domain.Credential{IdentityID: result.ID, PasswordHash: string(hash), UpdatedAt: d.clock.Now()}
	if err := d.putCredential(ctx, cred); err != nil {
		// An identity without a credential could never sign in, and would
		// block the ID forever.
		if rmErr := d.remove(ctx, result.ID); rmErr != nil {
			logger.Error("identity rollback failed", "identity", result.ID, "error", rmErr)
		}
		return domain.Identity{}, err
	}

	d.audit.Dispatch(audit.Event{
		ActorID:  result.ID,
		Action:   "identity_registered",
		Entity:   "identity",
		EntityID: result.ID,
		Metadata: map[string]any{"role": result.Role, "credential": true},
	})
	return result, nil
}

// Authenticate checks a password and returns the identity it unlocks.
func (d *Directory) Authenticate(ctx context.Context, id, password string) (domain.Identity, error) {
	id = strings.TrimSpace(id)

	creds, _, err := store.Load[domain.Credential](ctx, d.store, store.Credentials)
	if err != nil {
		return domain.Identity{}, err
	}

	var hash string
	for _, c := range creds {
		if c.IdentityID == id {
			hash = c.PasswordHash
			break
		}
	}
	if hash == "" {
		return domain.Identity{}, httperr.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return domain.Identity{}, httperr.ErrInvalidCredentials
		}
		return domain.Identity{}, err
	}

	found, err := d.FindByID(ctx, id)
	if errors.Is(err, httperr.ErrIdentityNotFound) {
		return domain.Identity{}, httperr.ErrInvalidCredentials
	}
	return found, err
}

// putCredential replaces any leftover credential for the same identity.
func (d *Directory) putCredential(ctx context.Context, cred domain.Credential) error {
	_, err := store.Mutate(ctx, d.store, store.Credentials, func(items []domain.Credential) ([]domain.Credential, error) {
		for i := range items {
			if items[i].IdentityID == cred.IdentityID {
				items[i] = cred
				return items, nil
			}
		}
		return append(items, cred), nil
	})
	return err
}

func (d *Directory) remove(ctx context.Context, id string) error {
	_, err := store.Mutate(ctx, d.store, store.Identities, func(items []domain.Identity) ([]domain.Identity, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, store.ErrNoChange
	})
	return err
}

package identity

import (
	"time"

	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
)

type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleClient, RoleProvider:
		return Role(s), nil
	}
	return "", httperr.ErrInvalidInput
}

type Identity struct {
	ID           string    `json:"id"`
	Role         Role      `json:"role"`
	DisplayName  string    `json:"display_name"`
	ReferralCode string    `json:"referral_code"`
	ReferredBy   string    `json:"referred_by,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Credential holds the password hash for an identity. Stored apart from
// identities so listings never carry it.
type Credential struct {
	IdentityID   string    `json:"identity_id"`
	PasswordHash string    `json:"password_hash"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor is whoever is calling an operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsProvider() bool { return a.Role == RoleProvider }
func (a Actor) IsClient() bool   { return a.Role == RoleClient }

// Session supplies the acting identity. Operations trust it for authorization.
type Session interface {
	CurrentIdentity() (Identity, bool)
	Role() Role
}

// ActorFrom reads the acting identity off a session.
func ActorFrom(s Session) (Actor, bool) {
	id, ok := s.CurrentIdentity()
	if !ok {
		return Actor{}, false
	}
	return Actor{ID: id.ID, Role: s.Role()}, true
}

package identity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/warpVIT1/tarot-booking-app/internal/clock"
	domain "github.com/warpVIT1/tarot-booking-app/internal/domain/identity"
	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
	"github.com/warpVIT1/tarot-booking-app/internal/store"
)

func newEnrollDirectory(st store.KeyedStore) *Directory {
	d := NewDirectory(st, clock.NewFixed(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)), nil)
	d.SetHashCost(bcrypt.MinCost)
	return d
}

// credentialWritesFail refuses every write to the credentials collection.
type credentialWritesFail struct {
	*store.Memory
}

func (s credentialWritesFail) WriteCollection(ctx context.Context, name string, records []json.RawMessage, rev string) error {
	if name == store.Credentials {
		return errors.New("disk full")
	}
	return s.Memory.WriteCollection(ctx, name, records, rev)
}

func TestEnrollThenAuthenticate(t *testing.T) {
	mem := store.NewMemory()
	d := newEnrollDirectory(mem)
	ctx := context.Background()

	id, err := d.Enroll(ctx, Registration{ID: "c1", Role: domain.RoleClient, DisplayName: "Anna"}, "moonlight")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if id.Role != domain.RoleClient || id.DisplayName != "Anna" {
		t.Fatalf("unexpected identity %+v", id)
	}

	got, err := d.Authenticate(ctx, "c1", "moonlight")
	if err != nil || got.ID != "c1" {
		t.Fatalf("authenticate: %+v, %v", got, err)
	}

	creds, _, err := store.Load[domain.Credential](ctx, mem, store.Credentials)
	if err != nil || len(creds) != 1 {
		t.Fatalf("credentials: %v, %v", creds, err)
	}
	if strings.Contains(creds[0].PasswordHash, "moonlight") {
		t.Fatal("password stored in clear")
	}
}

func TestEnrollRefusesTakenID(t *testing.T) {
	d := newEnrollDirectory(store.NewMemory())
	ctx := context.Background()

	if _, err := d.Enroll(ctx, Registration{ID: "p1", Role: domain.RoleProvider}, "original-pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Enroll(ctx, Registration{ID: "p1", Role: domain.RoleClient}, "takeover-pw"); !errors.Is(err, httperr.ErrIdentityExists) {
		t.Fatalf("expected ErrIdentityExists, got %v", err)
	}

	// Identities created without a password are taken too.
	if _, err := d.Register(ctx, Registration{ID: "dev", Role: domain.RoleProvider}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Enroll(ctx, Registration{ID: "dev", Role: domain.RoleProvider}, "takeover-pw"); !errors.Is(err, httperr.ErrIdentityExists) {
		t.Fatalf("expected ErrIdentityExists for registered id, got %v", err)
	}

	if _, err := d.Authenticate(ctx, "p1", "takeover-pw"); !errors.Is(err, httperr.ErrInvalidCredentials) {
		t.Fatalf("takeover password accepted: %v", err)
	}
	if _, err := d.Authenticate(ctx, "p1", "original-pw"); err != nil {
		t.Fatalf("original password rejected: %v", err)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	d := newEnrollDirectory(store.NewMemory())
	ctx := context.Background()

	if _, err := d.Enroll(ctx, Registration{ID: "c1", Role: domain.RoleClient}, "moonlight"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Register(ctx, Registration{ID: "nopass", Role: domain.RoleClient}); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name, id, password string
	}{
		{"wrong password", "c1", "sunlight!"},
		{"unknown id", "ghost", "moonlight"},
		{"no credential", "nopass", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := d.Authenticate(ctx, tc.id, tc.password); !errors.Is(err, httperr.ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestEnrollValidates(t *testing.T) {
	d := newEnrollDirectory(store.NewMemory())

	cases := []struct {
		name     string
		reg      Registration
		password string
		want     error
	}{
		{"blank id", Registration{ID: " ", Role: domain.RoleClient}, "moonlight", httperr.ErrInvalidInput},
		{"short password", Registration{ID: "c1", Role: domain.RoleClient}, "short", httperr.ErrInvalidInput},
		{"long password", Registration{ID: "c1", Role: domain.RoleClient}, strings.Repeat("x", 73), httperr.ErrInvalidInput},
		{"bad role", Registration{ID: "c1", Role: "admin"}, "moonlight", httperr.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := d.Enroll(context.Background(), tc.reg, tc.password); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEnrollRollsBackWhenCredentialWriteFails(t *testing.T) {
	d := newEnrollDirectory(credentialWritesFail{store.NewMemory()})
	ctx := context.Background()

	if _, err := d.Enroll(ctx, Registration{ID: "c1", Role: domain.RoleClient}, "moonlight"); err == nil {
		t.Fatal("expected credential write failure")
	}
	if _, err := d.FindByID(ctx, "c1"); !errors.Is(err, httperr.ErrIdentityNotFound) {
		t.Fatalf("identity left behind without a credential: %v", err)
	}
}

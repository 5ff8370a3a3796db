// Package store defines the shared keyed persistence surface. A collection is
// read and written as a whole; writes are guarded by the revision token
// returned from the read so concurrent writers cannot silently overwrite each other.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
)

// Collection names.
const (
	Slots           = "slots"
	Bookings        = "bookings"
	Identities      = "identities"
	Credentials     = "credentials"
	Referrals       = "referrals"
	ReferralBonuses = "referral_bonuses"
)

// ErrStaleRevision is returned by WriteCollection when the collection changed
// since the caller read it.
var ErrStaleRevision = errors.New("store: stale revision")

// ErrNoChange lets a Mutate callback skip the write.
var ErrNoChange = errors.New("store: no change")

// Snapshot is a whole collection. Revision is "" when the collection does not exist.
type Snapshot struct {
	Records  []json.RawMessage
	Revision string
}

type KeyedStore interface {
	ReadCollection(ctx context.Context, name string) (Snapshot, error)
	WriteCollection(ctx context.Context, name string, records []json.RawMessage, expectedRevision string) error
}

// MutateBudget bounds the retries of a Mutate whose context has no deadline.
var MutateBudget = 5 * time.Second

const (
	backoffBase = time.Millisecond
	backoffCap  = 50 * time.Millisecond
)

// Decode unmarshals every record of a snapshot.
func Decode[T any](snap Snapshot) ([]T, error) {
	out := make([]T, 0, len(snap.Records))
	for i, raw := range snap.Records {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func Encode[T any](items []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(items))
	for i, v := range items {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// Load reads and decodes a collection.
func Load[T any](ctx context.Context, s KeyedStore, name string) ([]T, string, error) {
	snap, err := s.ReadCollection(ctx, name)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", name, err)
	}
	items, err := Decode[T](snap)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", name, err)
	}
	return items, snap.Revision, nil
}

// Mutate runs read, fn, conditional write. On a stale revision fn runs again
// against fresh data after a jittered backoff, so any check inside fn is
// re-evaluated. Errors from fn abort without writing; ErrNoChange aborts
// quietly. Retries go on until the context deadline (or MutateBudget); running
// out returns httperr.ErrBusy.
func Mutate[T any](ctx context.Context, s KeyedStore, name string, fn func(items []T) ([]T, error)) ([]T, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(MutateBudget)
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, rev, err := Load[T](ctx, s, name)
		if err != nil {
			return nil, err
		}

		next, err := fn(items)
		if errors.Is(err, ErrNoChange) {
			return items, nil
		}
		if err != nil {
			return nil, err
		}

		records, err := Encode(next)
		if err != nil {
			return nil, err
		}

		err = s.WriteCollection(ctx, name, records, rev)
		if errors.Is(err, ErrStaleRevision) {
			if !backoff(ctx, attempt, deadline) {
				return nil, fmt.Errorf("%w: %s contended after %d attempts", httperr.ErrBusy, name, attempt+1)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		return next, nil
	}
}

// backoff sleeps a random duration up to an exponentially growing ceiling.
// It reports false when the wait would overrun the deadline or ctx ends.
func backoff(ctx context.Context, attempt int, deadline time.Time) bool {
	ceiling := backoffBase << min(attempt, 6)
	if ceiling > backoffCap {
		ceiling = backoffCap
	}
	wait := time.Duration(rand.Int63n(int64(ceiling))) + time.Microsecond

	if time.Until(deadline) < wait {
		return false
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// EncodePayload packs records into the JSON array the table and object backends persist.
func EncodePayload(records []json.RawMessage) ([]byte, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	return json.Marshal(records)
}

func DecodePayload(payload []byte) ([]json.RawMessage, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return records, nil
}

package slot

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/warpVIT1/tarot-booking-app/internal/clock"
	domain "github.com/warpVIT1/tarot-booking-app/internal/domain/slot"
	"github.com/warpVIT1/tarot-booking-app/internal/events"
	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
	"github.com/warpVIT1/tarot-booking-app/internal/store"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newRegistry(t *testing.T) (*Registry, *store.Memory, *events.Recorder) {
	t.Helper()
	mem := store.NewMemory()
	rec := &events.Recorder{}
	return NewRegistry(mem, clock.NewFixed(base), nil, rec), mem, rec
}

func TestCreateAndList(t *testing.T) {
	r, _, rec := newRegistry(t)
	ctx := context.Background()

	late, err := r.Create(ctx, base.Add(26*time.Hour), base.Add(27*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	early, err := r.Create(ctx, base.Add(25*time.Hour), base.Add(26*time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	slots, err := r.List(ctx, Filter{Status: domain.StatusAvailable})
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 2 || slots[0].ID != early.ID || slots[1].ID != late.ID {
		t.Fatalf("expected nearest slot first, got %+v", slots)
	}

	slots, _ = r.List(ctx, Filter{From: base.Add(26 * time.Hour)})
	if len(slots) != 1 || slots[0].ID != late.ID {
		t.Errorf("from filter: got %+v", slots)
	}

	if len(rec.Subjects()) != 2 {
		t.Errorf("expected two slot.created events, got %v", rec.Subjects())
	}
}

func TestCreateInvalidRange(t *testing.T) {
	r, mem, _ := newRegistry(t)
	_, err := r.Create(context.Background(), base.Add(time.Hour), base)
	if !errors.Is(err, httperr.ErrInvalidRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}
	if snap, _ := mem.ReadCollection(context.Background(), store.Slots); snap.Revision != "" {
		t.Error("invalid slot must not be stored")
	}
}

func TestFindByIDUnknown(t *testing.T) {
	r, _, _ := newRegistry(t)
	if _, err := r.FindByID(context.Background(), "nope"); !errors.Is(err, httperr.ErrSlotNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err := r.TryTransition(context.Background(), "nope", 0, domain.StatusAvailable, domain.StatusPending)
	if !errors.Is(err, httperr.ErrSlotNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTryTransitionVersionMonotonic(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()
	s, _ := r.Create(ctx, base.Add(24*time.Hour), base.Add(25*time.Hour))

	claimed, err := r.TryTransition(ctx, s.ID, 0, domain.StatusAvailable, domain.StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if claimed.Version != 1 {
		t.Fatalf("expected version 1, got %d", claimed.Version)
	}

	// stale version
	_, err = r.TryTransition(ctx, s.ID, 0, domain.StatusPending, domain.StatusAvailable)
	if !errors.Is(err, httperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	after, _ := r.FindByID(ctx, s.ID)
	if after.Version != 1 || after.Status != domain.StatusPending {
		t.Fatalf("conflict mutated slot: %+v", after)
	}

	released, err := r.TryTransition(ctx, s.ID, domain.AnyVersion, domain.StatusPending, domain.StatusAvailable)
	if err != nil {
		t.Fatal(err)
	}
	if released.Version != 2 {
		t.Errorf("expected version 2, got %d", released.Version)
	}
}

func TestConcurrentClaimsExactlyOneWins(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()
	s, _ := r.Create(ctx, base.Add(24*time.Hour), base.Add(25*time.Hour))

	const claimers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.TryTransition(ctx, s.ID, 0, domain.StatusAvailable, domain.StatusPending)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, httperr.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	final, _ := r.FindByID(ctx, s.ID)
	if final.Version != 1 {
		t.Errorf("expected version 1, got %d", final.Version)
	}
}

func TestTransitionSurvivesUnrelatedWrites(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()
	a, _ := r.Create(ctx, base.Add(24*time.Hour), base.Add(25*time.Hour))
	b, _ := r.Create(ctx, base.Add(26*time.Hour), base.Add(27*time.Hour))

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, id := range []string{a.ID, b.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := r.TryTransition(ctx, id, 0, domain.StatusAvailable, domain.StatusPending)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("claims on different slots must both succeed: %v", err)
		}
	}
}

// flakyStore wraps Memory. readErr fails every call; staleWrites rejects
// every write as if another writer always got there first.
type flakyStore struct {
	*store.Memory
	readErr     error
	staleWrites bool
}

func (f *flakyStore) ReadCollection(ctx context.Context, name string) (store.Snapshot, error) {
	if f.readErr != nil {
		return store.Snapshot{}, f.readErr
	}
	return f.Memory.ReadCollection(ctx, name)
}

func (f *flakyStore) WriteCollection(ctx context.Context, name string, records []json.RawMessage, rev string) error {
	if f.readErr != nil {
		return f.readErr
	}
	if f.staleWrites {
		return store.ErrStaleRevision
	}
	return f.Memory.WriteCollection(ctx, name, records, rev)
}

func TestStoreFailurePropagates(t *testing.T) {
	down := errors.New("store down")
	r := NewRegistry(&flakyStore{Memory: store.NewMemory(), readErr: down}, clock.NewFixed(base), nil, nil)

	if _, err := r.List(context.Background(), Filter{}); !errors.Is(err, down) {
		t.Fatalf("expected store error, got %v", err)
	}
	if _, err := r.Create(context.Background(), base, base.Add(time.Hour)); !errors.Is(err, down) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestContentionIsBusyNotConflict(t *testing.T) {
	st := &flakyStore{Memory: store.NewMemory()}
	r := NewRegistry(st, clock.NewFixed(base), nil, nil)

	s, err := r.Create(context.Background(), base.Add(24*time.Hour), base.Add(25*time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	st.staleWrites = true
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = r.TryTransition(ctx, s.ID, s.Version, domain.StatusAvailable, domain.StatusPending)
	if !errors.Is(err, httperr.ErrBusy) {
		t.Fatalf("expected busy, got %v", err)
	}
	if errors.Is(err, httperr.ErrConflict) {
		t.Fatal("an untouched slot must not report a conflict")
	}

	st.staleWrites = false
	got, err := r.FindByID(context.Background(), s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusAvailable || got.Version != s.Version {
		t.Fatalf("slot changed by a failed transition: %+v", got)
	}
}

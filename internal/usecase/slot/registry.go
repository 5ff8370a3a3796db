package slot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/warpVIT1/tarot-booking-app/internal/audit"
	"github.com/warpVIT1/tarot-booking-app/internal/clock"
	domain "github.com/warpVIT1/tarot-booking-app/internal/domain/slot"
	"github.com/warpVIT1/tarot-booking-app/internal/events"
	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
	"github.com/warpVIT1/tarot-booking-app/internal/logger"
	"github.com/warpVIT1/tarot-booking-app/internal/store"
)

// Registry owns time slots. Every status change goes through TryTransition.
type Registry struct {
	store store.KeyedStore
	clock clock.Clock
	audit *audit.Dispatcher
	bus   events.Publisher
}

func NewRegistry(
	st store.KeyedStore,
	clk clock.Clock,
	audit *audit.Dispatcher,
	bus events.Publisher,
) *Registry {
	if bus == nil {
		bus = events.Nop{}
	}
	return &Registry{
		store: st,
		clock: clk,
		audit: audit,
		bus:   bus,
	}
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status domain.Status
	From   time.Time
}

func (r *Registry) Create(ctx context.Context, start, end time.Time) (domain.TimeSlot, error) {
	s, err := domain.New(uuid.NewString(), start, end, r.clock.Now())
	if err != nil {
		return domain.TimeSlot{}, err
	}

	_, err = store.Mutate(ctx, r.store, store.Slots, func(items []domain.TimeSlot) ([]domain.TimeSlot, error) {
		return append(items, s), nil
	})
	if err != nil {
		return domain.TimeSlot{}, err
	}

	r.audit.Dispatch(audit.Event{
		Action:   "slot_created",
		Entity:   "slot",
		EntityID: s.ID,
		Metadata: map[string]any{"start": s.Start, "end": s.End},
	})
	r.publish(ctx, events.SlotCreated, s)

	return s, nil
}

func (r *Registry) List(ctx context.Context, f Filter) ([]domain.TimeSlot, error) {
	items, _, err := store.Load[domain.TimeSlot](ctx, r.store, store.Slots)
	if err != nil {
		return nil, err
	}

	out := make([]domain.TimeSlot, 0, len(items))
	for _, s := range items {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && s.Start.Before(f.From) {
			continue
		}
		out = append(out, s)
	}

	domain.SortByStart(out)
	return out, nil
}

func (r *Registry) FindByID(ctx context.Context, id string) (domain.TimeSlot, error) {
	items, _, err := store.Load[domain.TimeSlot](ctx, r.store, store.Slots)
	if err != nil {
		return domain.TimeSlot{}, err
	}
	for _, s := range items {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.TimeSlot{}, httperr.ErrSlotNotFound
}

// TryTransition moves a slot to next only if it still has expectedStatus and
// expectedVersion (or domain.AnyVersion). A lost race returns ErrConflict and
// leaves the slot untouched. If another writer changed an unrelated record in
// the meantime the check runs again on fresh data before writing; if the
// collection stays contended the result is httperr.ErrBusy, not ErrConflict.
func (r *Registry) TryTransition(
	ctx context.Context,
	id string,
	expectedVersion int64,
	expectedStatus domain.Status,
	next domain.Status,
) (domain.TimeSlot, error) {

	now := r.clock.Now()

	var updated domain.TimeSlot
	_, err := store.Mutate(ctx, r.store, store.Slots, func(items []domain.TimeSlot) ([]domain.TimeSlot, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if err := domain.Transition(&items[i], expectedVersion, expectedStatus, next); err != nil {
				return nil, err
			}
			items[i].UpdatedAt = now
			updated = items[i]
			return items, nil
		}
		return nil, httperr.ErrSlotNotFound
	})
	if errors.Is(err, httperr.ErrBusy) {
		logger.Warn("slot transition gave up under contention", "slot", id)
	}
	if err != nil {
		return domain.TimeSlot{}, err
	}

	logger.Debug("slot transition",
		"slot", id,
		"from", expectedStatus,
		"to", next,
		"version", updated.Version,
	)
	return updated, nil
}

func (r *Registry) publish(ctx context.Context, subject string, s domain.TimeSlot) {
	err := r.bus.Publish(ctx, subject, events.SlotEvent{
		SlotID:  s.ID,
		Start:   s.Start,
		End:     s.End,
		Status:  string(s.Status),
		Version: s.Version,
	})
	if err != nil {
		logger.Warn("publish failed", "subject", subject, "error", err)
	}
}

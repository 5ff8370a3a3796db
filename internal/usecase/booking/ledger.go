package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/warpVIT1/tarot-booking-app/internal/audit"
	"github.com/warpVIT1/tarot-booking-app/internal/clock"
	"github.com/warpVIT1/tarot-booking-app/internal/config"
	domain "github.com/warpVIT1/tarot-booking-app/internal/domain/booking"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/identity"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/slot"
	"github.com/warpVIT1/tarot-booking-app/internal/events"
	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
	"github.com/warpVIT1/tarot-booking-app/internal/logger"
	"github.com/warpVIT1/tarot-booking-app/internal/notify"
	"github.com/warpVIT1/tarot-booking-app/internal/store"
	"github.com/warpVIT1/tarot-booking-app/internal/timezone"
	ucSlot "github.com/warpVIT1/tarot-booking-app/internal/usecase/slot"
	"github.com/warpVIT1/tarot-booking-app/internal/validators"
)

var validate = validators.New()

// SlotRegistry is the part of the slot registry the ledger relies on.
type SlotRegistry interface {
	FindByID(ctx context.Context, id string) (slot.TimeSlot, error)
	List(ctx context.Context, f ucSlot.Filter) ([]slot.TimeSlot, error)
	TryTransition(ctx context.Context, id string, expectedVersion int64, expectedStatus, next slot.Status) (slot.TimeSlot, error)
}

// Providers resolves who hears about new bookings.
type Providers interface {
	ProviderIDs(ctx context.Context) ([]string, error)
}

type Deps struct {
	Store     store.KeyedStore
	Slots     SlotRegistry
	Providers Providers
	Clock     clock.Clock
	Rules     config.BookingRules
	Timezone  string

	Notifier notify.Notifier
	Audit    *audit.Dispatcher
	Bus      events.Publisher
}

// Ledger owns bookings. Slot status is only ever changed through the registry.
type Ledger struct {
	store     store.KeyedStore
	slots     SlotRegistry
	providers Providers
	clock     clock.Clock
	rules     config.BookingRules
	tz        string

	notifier notify.Notifier
	audit    *audit.Dispatcher
	bus      events.Publisher
}

func NewLedger(d Deps) *Ledger {
	l := &Ledger{
		store:     d.Store,
		slots:     d.Slots,
		providers: d.Providers,
		clock:     d.Clock,
		rules:     d.Rules,
		tz:        d.Timezone,
		notifier:  d.Notifier,
		audit:     d.Audit,
		bus:       d.Bus,
	}
	if l.notifier == nil {
		l.notifier = notify.LogNotifier{}
	}
	if l.bus == nil {
		l.bus = events.Nop{}
	}
	return l
}

// ======================================================
// CREATE
// ======================================================

// Create claims the slot for the acting client and records a pending booking.
// Losing the claim race, or finding the slot taken, yields ErrSlotUnavailable.
func (l *Ledger) Create(
	ctx context.Context,
	actor identity.Actor,
	slotID string,
	fields domain.Fields,
) (domain.Booking, error) {

	if !actor.IsClient() {
		return domain.Booking{}, httperr.ErrForbidden
	}

	fields.ClientName = strings.TrimSpace(fields.ClientName)
	fields.ClientContact = strings.TrimSpace(fields.ClientContact)
	fields.Question = strings.TrimSpace(fields.Question)
	if err := validate.Struct(fields); err != nil {
		return domain.Booking{}, fmt.Errorf("%w: %s", httperr.ErrInvalidInput, err)
	}

	s, err := l.slots.FindByID(ctx, slotID)
	if err != nil {
		return domain.Booking{}, err
	}
	if s.Status != slot.StatusAvailable {
		return domain.Booking{}, httperr.ErrSlotUnavailable
	}

	now := l.clock.Now()
	lead := s.Start.Sub(now)
	if lead < l.rules.MinBookingLead || lead > l.rules.MaxBookingHorizon {
		return domain.Booking{}, httperr.ErrOutsideBookingWindow
	}

	claimed, err := l.slots.TryTransition(ctx, s.ID, s.Version, slot.StatusAvailable, slot.StatusPending)
	if errors.Is(err, httperr.ErrConflict) {
		return domain.Booking{}, httperr.ErrSlotUnavailable
	}
	if err != nil {
		return domain.Booking{}, err
	}

	b := domain.Booking{
		ID:            uuid.NewString(),
		ClientID:      actor.ID,
		SlotID:        claimed.ID,
		SlotStart:     claimed.Start,
		SlotEnd:       claimed.End,
		Status:        domain.InitialStatus(),
		ClientName:    fields.ClientName,
		ClientContact: fields.ClientContact,
		Question:      fields.Question,
		SuggestedTime: fields.SuggestedTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err = store.Mutate(ctx, l.store, store.Bookings, func(items []domain.Booking) ([]domain.Booking, error) {
		for _, other := range items {
			if other.SlotID == b.SlotID && other.Status.Active() {
				return nil, httperr.ErrSlotUnavailable
			}
		}
		return append(items, b), nil
	})
	if err != nil {
		l.releaseClaim(ctx, claimed)
		return domain.Booking{}, err
	}

	l.audit.Dispatch(audit.Event{
		ActorID:  actor.ID,
		Action:   "booking_created",
		Entity:   "booking",
		EntityID: b.ID,
		Metadata: map[string]any{"slot_id": b.SlotID},
	})
	l.publish(ctx, events.BookingCreated, b, actor.ID)
	l.notifyProviders(ctx, "New booking",
		fmt.Sprintf("%s booked a consultation on %s.", b.ClientName, l.format(b)))

	return b, nil
}

// releaseClaim undoes a claim whose booking could not be written.
func (l *Ledger) releaseClaim(ctx context.Context, claimed slot.TimeSlot) {
	_, err := l.slots.TryTransition(ctx, claimed.ID, claimed.Version, slot.StatusPending, slot.StatusAvailable)
	if err != nil {
		logger.Error("failed to release slot after booking write failed",
			"slot", claimed.ID,
			"error", err,
		)
	}
}

// ======================================================
// TRANSITIONS
// ======================================================

func (l *Ledger) Confirm(ctx context.Context, bookingID string, actor identity.Actor) (domain.Booking, error) {
	if !actor.IsProvider() {
		return domain.Booking{}, httperr.ErrForbidden
	}

	now := l.clock.Now()
	b, err := l.update(ctx, bookingID, func(b *domain.Booking) error {
		if err := domain.Confirm(b, now); err != nil {
			return err
		}
		b.ProviderID = actor.ID
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	l.dispatch(actor, "booking_confirmed", b)
	l.publish(ctx, events.BookingConfirmed, b, actor.ID)
	notify.Send(ctx, l.notifier, b.ClientID, "Booking confirmed",
		fmt.Sprintf("Your consultation on %s is confirmed.", l.format(b)))

	return b, nil
}

func (l *Ledger) Reject(ctx context.Context, bookingID string, actor identity.Actor) (domain.Booking, error) {
	if !actor.IsProvider() {
		return domain.Booking{}, httperr.ErrForbidden
	}

	now := l.clock.Now()
	b, err := l.update(ctx, bookingID, func(b *domain.Booking) error {
		if err := domain.Reject(b, now); err != nil {
			return err
		}
		b.ProviderID = actor.ID
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	if err := l.releaseSlot(ctx, b); err != nil {
		return domain.Booking{}, err
	}

	l.dispatch(actor, "booking_rejected", b)
	l.publish(ctx, events.BookingRejected, b, actor.ID)
	notify.Send(ctx, l.notifier, b.ClientID, "Booking declined",
		fmt.Sprintf("Your booking for %s was declined. Please pick another time.", l.format(b)))

	return b, nil
}

// Cancel is open to the booking's client and to providers, until MinCancelLead
// before the slot starts.
func (l *Ledger) Cancel(ctx context.Context, bookingID string, actor identity.Actor) (domain.Booking, error) {
	now := l.clock.Now()
	b, err := l.update(ctx, bookingID, func(b *domain.Booking) error {
		if !actor.IsProvider() && b.ClientID != actor.ID {
			return httperr.ErrForbidden
		}
		return domain.Cancel(b, now, l.rules.MinCancelLead)
	})
	if err != nil {
		return domain.Booking{}, err
	}

	if err := l.releaseSlot(ctx, b); err != nil {
		return domain.Booking{}, err
	}

	l.dispatch(actor, "booking_cancelled", b)
	l.publish(ctx, events.BookingCancelled, b, actor.ID)

	body := fmt.Sprintf("The consultation on %s was cancelled.", l.format(b))
	if actor.IsProvider() {
		notify.Send(ctx, l.notifier, b.ClientID, "Booking cancelled", body)
	} else if b.ProviderID != "" {
		notify.Send(ctx, l.notifier, b.ProviderID, "Booking cancelled", body)
	} else {
		l.notifyProviders(ctx, "Booking cancelled", body)
	}

	return b, nil
}

// releaseSlot hands the slot of a cancelled booking back to the pool. A slot
// that is no longer pending was already released, so a conflict is not an error.
// Store failures surface; ReleaseOrphans repairs the slot later.
func (l *Ledger) releaseSlot(ctx context.Context, b domain.Booking) error {
	_, err := l.slots.TryTransition(ctx, b.SlotID, slot.AnyVersion, slot.StatusPending, slot.StatusAvailable)
	if errors.Is(err, httperr.ErrConflict) || errors.Is(err, httperr.ErrSlotNotFound) {
		logger.Warn("slot not released", "slot", b.SlotID, "booking", b.ID, "error", err)
		return nil
	}
	return err
}

// update applies fn to one booking under the collection's revision guard.
func (l *Ledger) update(ctx context.Context, id string, fn func(b *domain.Booking) error) (domain.Booking, error) {
	var updated domain.Booking
	_, err := store.Mutate(ctx, l.store, store.Bookings, func(items []domain.Booking) ([]domain.Booking, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if err := fn(&items[i]); err != nil {
				return nil, err
			}
			updated = items[i]
			return items, nil
		}
		return nil, httperr.ErrBookingNotFound
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return updated, nil
}

// ======================================================
// READS
// ======================================================

func (l *Ledger) FindByID(ctx context.Context, id string) (domain.Booking, error) {
	items, _, err := store.Load[domain.Booking](ctx, l.store, store.Bookings)
	if err != nil {
		return domain.Booking{}, err
	}
	for _, b := range items {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Booking{}, httperr.ErrBookingNotFound
}

func (l *Ledger) ListForClient(ctx context.Context, clientID string) ([]domain.Booking, error) {
	return l.list(ctx, func(b domain.Booking) bool { return b.ClientID == clientID })
}

// ListForProvider lists every booking, optionally narrowed to one status.
func (l *Ledger) ListForProvider(ctx context.Context, status *domain.Status) ([]domain.Booking, error) {
	return l.list(ctx, func(b domain.Booking) bool { return status == nil || b.Status == *status })
}

func (l *Ledger) list(ctx context.Context, match func(domain.Booking) bool) ([]domain.Booking, error) {
	items, _, err := store.Load[domain.Booking](ctx, l.store, store.Bookings)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(items))
	for _, b := range items {
		if match(b) {
			out = append(out, b)
		}
	}
	domain.SortBySlotStart(out)
	return out, nil
}

// ======================================================
// SIDE EFFECTS
// ======================================================

func (l *Ledger) dispatch(actor identity.Actor, action string, b domain.Booking) {
	l.audit.Dispatch(audit.Event{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "booking",
		EntityID: b.ID,
		Metadata: map[string]any{"slot_id": b.SlotID, "status": b.Status},
	})
}

func (l *Ledger) publish(ctx context.Context, subject string, b domain.Booking, actorID string) {
	err := l.bus.Publish(ctx, subject, events.BookingEvent{
		BookingID: b.ID,
		SlotID:    b.SlotID,
		ClientID:  b.ClientID,
		ActorID:   actorID,
		Status:    string(b.Status),
		SlotStart: b.SlotStart,
		At:        b.UpdatedAt,
	})
	if err != nil {
		logger.Warn("publish failed", "subject", subject, "booking", b.ID, "error", err)
	}
}

func (l *Ledger) notifyProviders(ctx context.Context, title, body string) {
	if l.providers == nil {
		return
	}
	ids, err := l.providers.ProviderIDs(ctx)
	if err != nil {
		logger.Warn("could not resolve providers", "error", err)
		return
	}
	for _, id := range ids {
		notify.Send(ctx, l.notifier, id, title, body)
	}
}

func (l *Ledger) format(b domain.Booking) string {
	return timezone.Format(b.SlotStart, l.tz)
}

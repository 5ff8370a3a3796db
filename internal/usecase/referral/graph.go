package referral

import (
	"context"
	"errors"
	"fmt"

	"github.com/warpVIT1/tarot-booking-app/internal/audit"
	"github.com/warpVIT1/tarot-booking-app/internal/clock"
	"github.com/warpVIT1/tarot-booking-app/internal/config"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/identity"
	domain "github.com/warpVIT1/tarot-booking-app/internal/domain/referral"
	"github.com/warpVIT1/tarot-booking-app/internal/events"
	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
	"github.com/warpVIT1/tarot-booking-app/internal/logger"
	"github.com/warpVIT1/tarot-booking-app/internal/notify"
	"github.com/warpVIT1/tarot-booking-app/internal/store"
)

// Directory is the identity lookup the graph needs.
type Directory interface {
	FindByID(ctx context.Context, id string) (identity.Identity, error)
	FindByReferralCode(ctx context.Context, code string) (identity.Identity, error)
	SetReferredBy(ctx context.Context, id, code string) (bool, error)
}

type Graph struct {
	store    store.KeyedStore
	dir      Directory
	clock    clock.Clock
	rules    config.ReferralConfig
	notifier notify.Notifier
	audit    *audit.Dispatcher
	bus      events.Publisher
}

func NewGraph(
	st store.KeyedStore,
	dir Directory,
	clk clock.Clock,
	rules config.ReferralConfig,
	notifier notify.Notifier,
	audit *audit.Dispatcher,
	bus events.Publisher,
) *Graph {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if bus == nil {
		bus = events.Nop{}
	}
	return &Graph{
		store:    st,
		dir:      dir,
		clock:    clk,
		rules:    rules,
		notifier: notifier,
		audit:    audit,
		bus:      bus,
	}
}

func (g *Graph) CodeFor(identityID string) string {
	return domain.CodeFor(identityID)
}

// Attribute credits the owner of code with bringing invitee in. It records
// at most one edge per invitee; a repeat call reports NoOp.
func (g *Graph) Attribute(ctx context.Context, invitee identity.Identity, code string) (domain.Attribution, error) {
	if code == domain.CodeFor(invitee.ID) {
		return domain.Attribution{}, httperr.ErrSelfReferral
	}

	inviter, err := g.dir.FindByReferralCode(ctx, code)
	if errors.Is(err, httperr.ErrIdentityNotFound) {
		return domain.Attribution{}, httperr.ErrUnknownCode
	}
	if err != nil {
		return domain.Attribution{}, err
	}

	result := domain.Attribution{
		InviterID:       inviter.ID,
		InviteeID:       invitee.ID,
		Code:            code,
		DiscountPercent: g.rules.DiscountPercent,
	}

	current, err := g.dir.FindByID(ctx, invitee.ID)
	if err != nil {
		return domain.Attribution{}, err
	}
	if current.ReferredBy != "" {
		result.NoOp = true
		return result, nil
	}

	now := g.clock.Now()
	recorded := false
	_, err = store.Mutate(ctx, g.store, store.Referrals, func(edges []domain.Edge) ([]domain.Edge, error) {
		recorded = false
		result.NoOp = false
		for _, e := range edges {
			if e.InviteeID != invitee.ID {
				continue
			}
			if e.InviterID != inviter.ID {
				// someone else got there first
				result.NoOp = true
			}
			return nil, store.ErrNoChange
		}
		recorded = true
		return append(edges, domain.Edge{
			InviterID: inviter.ID,
			InviteeID: invitee.ID,
			Code:      code,
			CreatedAt: now,
		}), nil
	})
	if err != nil {
		return domain.Attribution{}, err
	}
	if result.NoOp {
		return result, nil
	}

	set, err := g.dir.SetReferredBy(ctx, invitee.ID, code)
	if err != nil {
		return domain.Attribution{}, err
	}
	if !set && !recorded {
		result.NoOp = true
		return result, nil
	}

	g.audit.Dispatch(audit.Event{
		ActorID:  invitee.ID,
		Action:   "referral_attributed",
		Entity:   "identity",
		EntityID: inviter.ID,
		Metadata: map[string]any{"code": code},
	})
	g.publish(ctx, events.ReferralAttributed, events.ReferralEvent{
		InviterID: inviter.ID,
		InviteeID: invitee.ID,
		Code:      code,
		At:        now,
	})
	notify.Send(ctx, g.notifier, invitee.ID, "Welcome!",
		fmt.Sprintf("You got a %d%% discount on your first consultation thanks to a referral link.", g.rules.DiscountPercent))

	return result, nil
}

// RewardIfEligible grants the inviter's bonus the first time their referral
// count reaches the threshold. The stored bonus record is the guard, so it
// reports true at most once per inviter.
func (g *Graph) RewardIfEligible(ctx context.Context, inviterID string) (bool, error) {
	count, err := g.countInvited(ctx, inviterID)
	if err != nil {
		return false, err
	}
	if count < g.rules.BonusThreshold {
		return false, nil
	}

	bonus := domain.Bonus{
		InviterID: inviterID,
		Amount:    g.rules.BonusAmount,
		GrantedAt: g.clock.Now(),
	}

	granted := false
	_, err = store.Mutate(ctx, g.store, store.ReferralBonuses, func(items []domain.Bonus) ([]domain.Bonus, error) {
		granted = false
		for _, b := range items {
			if b.InviterID == inviterID {
				return nil, store.ErrNoChange
			}
		}
		granted = true
		return append(items, bonus), nil
	})
	if err != nil || !granted {
		return false, err
	}

	logger.Info("referral bonus granted", "inviter", inviterID, "amount", bonus.Amount)
	g.audit.Dispatch(audit.Event{
		ActorID:  inviterID,
		Action:   "referral_bonus_granted",
		Entity:   "identity",
		EntityID: inviterID,
		Metadata: map[string]any{"amount": bonus.Amount, "invited": count},
	})
	g.publish(ctx, events.ReferralBonus, events.ReferralEvent{
		InviterID: inviterID,
		Amount:    bonus.Amount,
		At:        bonus.GrantedAt,
	})
	notify.Send(ctx, g.notifier, inviterID, "Bonus unlocked",
		fmt.Sprintf("You invited %d friends and earned %d bonus points.", count, bonus.Amount))

	return true, nil
}

func (g *Graph) Stats(ctx context.Context, inviterID string) (domain.Stats, error) {
	count, err := g.countInvited(ctx, inviterID)
	if err != nil {
		return domain.Stats{}, err
	}

	bonuses, _, err := store.Load[domain.Bonus](ctx, g.store, store.ReferralBonuses)
	if err != nil {
		return domain.Stats{}, err
	}

	st := domain.Stats{
		Code:      domain.CodeFor(inviterID),
		Invited:   count,
		Threshold: g.rules.BonusThreshold,
	}
	for _, b := range bonuses {
		if b.InviterID == inviterID {
			st.BonusGranted = true
			st.BonusAmount = b.Amount
			break
		}
	}
	return st, nil
}

func (g *Graph) countInvited(ctx context.Context, inviterID string) (int, error) {
	edges, _, err := store.Load[domain.Edge](ctx, g.store, store.Referrals)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range edges {
		if e.InviterID == inviterID {
			n++
		}
	}
	return n, nil
}

func (g *Graph) publish(ctx context.Context, subject string, ev events.ReferralEvent) {
	if err := g.bus.Publish(ctx, subject, ev); err != nil {
		logger.Warn("publish failed", "subject", subject, "error", err)
	}
}

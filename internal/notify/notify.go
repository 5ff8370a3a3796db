// Package notify hands user-facing messages to whatever delivers them.
package notify

import (
	"context"
	"errors"

	"github.com/warpVIT1/tarot-booking-app/internal/events"
	"github.com/warpVIT1/tarot-booking-app/internal/logger"
)

type Notifier interface {
	Notify(ctx context.Context, identityID, title, body string) error
}

// LogNotifier writes messages to the log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, identityID, title, body string) error {
	logger.Info("notify", "to", identityID, "title", title, "body", body)
	return nil
}

// EventNotifier publishes notify.send for an external delivery service.
type EventNotifier struct {
	bus events.Publisher
}

func NewEventNotifier(bus events.Publisher) *EventNotifier {
	return &EventNotifier{bus: bus}
}

func (n *EventNotifier) Notify(ctx context.Context, identityID, title, body string) error {
	return n.bus.Publish(ctx, events.NotifySend, events.NotificationEvent{
		Recipient: identityID,
		Title:     title,
		Body:      body,
	})
}

// Multi fans out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, identityID, title, body string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, identityID, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Send notifies and logs a failure instead of returning it.
func Send(ctx context.Context, n Notifier, identityID, title, body string) {
	if identityID == "" {
		return
	}
	if err := n.Notify(ctx, identityID, title, body); err != nil {
		logger.Warn("notification failed", "to", identityID, "title", title, "error", err)
	}
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/warpVIT1/tarot-booking-app/internal/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url, nats.Name("tarot-booking"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.Debug("publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}

// Nop drops everything. Used when no NATS_URL is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, interface{}) error { return nil }
func (Nop) Close() error                                       { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

func (r *Recorder) Publish(_ context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.Messages = append(r.Messages, Message{Subject: subject, Data: payload, Timestamp: time.Now()})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

// Subjects returns the subjects published so far, in order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = m.Subject
	}
	return out
}

// Event subjects
const (
	SlotCreated = "slot.created"

	BookingCreated   = "booking.created"
	BookingConfirmed = "booking.confirmed"
	BookingRejected  = "booking.rejected"
	BookingCancelled = "booking.cancelled"
	BookingCompleted = "booking.completed"
	BookingReminder  = "booking.reminder"

	ReferralAttributed = "referral.attributed"
	ReferralBonus      = "referral.bonus"

	AuditRecorded = "audit.recorded"
	NotifySend    = "notify.send"
)

// Event payloads
type SlotEvent struct {
	SlotID  string    `json:"slot_id"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Status  string    `json:"status"`
	Version int64     `json:"version"`
}

type BookingEvent struct {
	BookingID string    `json:"booking_id"`
	SlotID    string    `json:"slot_id"`
	ClientID  string    `json:"client_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Status    string    `json:"status"`
	SlotStart time.Time `json:"slot_start"`
	At        time.Time `json:"at"`
}

type ReferralEvent struct {
	InviterID string    `json:"inviter_id"`
	InviteeID string    `json:"invitee_id,omitempty"`
	Code      string    `json:"code,omitempty"`
	Amount    int       `json:"amount,omitempty"`
	At        time.Time `json:"at"`
}

type NotificationEvent struct {
	Recipient string `json:"recipient"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

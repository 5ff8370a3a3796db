package audit

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/warpVIT1/tarot-booking-app/internal/events"
	"github.com/warpVIT1/tarot-booking-app/internal/logger"
	"github.com/warpVIT1/tarot-booking-app/internal/models"
)

// Logger writes audit rows through gorm.
type Logger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Logger {
	return &Logger{db: db}
}

func (l *Logger) Record(ev Event) error {
	row := models.AuditLog{
		ActorID:  ev.ActorID,
		Action:   ev.Action,
		Entity:   ev.Entity,
		EntityID: ev.EntityID,
		Metadata: encodeMetadata(ev.Metadata),
	}

	return l.db.Create(&row).Error
}

// LogSink writes audit events to the application log.
type LogSink struct{}

func (LogSink) Record(ev Event) error {
	logger.Info("audit",
		"action", ev.Action,
		"actor", ev.ActorID,
		"entity", ev.Entity,
		"entity_id", ev.EntityID,
		"metadata", encodeMetadata(ev.Metadata),
	)
	return nil
}

// BusSink publishes audit events on the event bus.
type BusSink struct {
	Bus events.Publisher
}

type busEvent struct {
	ActorID  string `json:"actor_id"`
	Action   string `json:"action"`
	Entity   string `json:"entity"`
	EntityID string `json:"entity_id"`
	Metadata any    `json:"metadata,omitempty"`
}

func (s BusSink) Record(ev Event) error {
	return s.Bus.Publish(context.Background(), events.AuditRecorded, busEvent{
		ActorID:  ev.ActorID,
		Action:   ev.Action,
		Entity:   ev.Entity,
		EntityID: ev.EntityID,
		Metadata: ev.Metadata,
	})
}

func encodeMetadata(metadata any) string {
	if metadata == nil {
		return ""
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(b)
}

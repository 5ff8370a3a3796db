// Package reminder runs the periodic booking jobs: reminders before a
// consultation and the housekeeping that closes elapsed bookings.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/warpVIT1/tarot-booking-app/internal/clock"
	"github.com/warpVIT1/tarot-booking-app/internal/config"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/booking"
	"github.com/warpVIT1/tarot-booking-app/internal/events"
	"github.com/warpVIT1/tarot-booking-app/internal/logger"
	"github.com/warpVIT1/tarot-booking-app/internal/notify"
	"github.com/warpVIT1/tarot-booking-app/internal/timezone"
)

type Bookings interface {
	MarkRemindersDue(ctx context.Context, now time.Time, lead time.Duration) ([]booking.Booking, error)
	CompleteElapsed(ctx context.Context) (int, error)
	ReleaseOrphans(ctx context.Context) (int, error)
}

type Scheduler struct {
	bookings Bookings
	clock    clock.Clock
	cfg      config.ReminderConfig
	tz       string
	notifier notify.Notifier
	bus      events.Publisher

	mu   sync.Mutex
	cron *cron.Cron
}

func NewScheduler(
	bookings Bookings,
	clk clock.Clock,
	cfg config.ReminderConfig,
	tz string,
	notifier notify.Notifier,
	bus events.Publisher,
) *Scheduler {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if bus == nil {
		bus = events.Nop{}
	}
	return &Scheduler{
		bookings: bookings,
		clock:    clk,
		cfg:      cfg,
		tz:       tz,
		notifier: notifier,
		bus:      bus,
	}
}

// ScanOnce flags every confirmed booking starting within the reminder lead and
// then notifies. The flag is written before anyone is notified, so a failed
// delivery is not retried.
func (s *Scheduler) ScanOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()

	due, err := s.bookings.MarkRemindersDue(ctx, now, s.cfg.Lead)
	if err != nil {
		return 0, err
	}

	for _, b := range due {
		when := timezone.Format(b.SlotStart, s.tz)

		notify.Send(ctx, s.notifier, b.ClientID, "Reminder",
			fmt.Sprintf("Don't forget about your consultation on %s!", when))
		notify.Send(ctx, s.notifier, b.ProviderID, "Upcoming consultation",
			fmt.Sprintf("%s at %s.", b.ClientName, when))

		err := s.bus.Publish(ctx, events.BookingReminder, events.BookingEvent{
			BookingID: b.ID,
			SlotID:    b.SlotID,
			ClientID:  b.ClientID,
			Status:    string(b.Status),
			SlotStart: b.SlotStart,
			At:        now,
		})
		if err != nil {
			logger.Warn("publish failed", "subject", events.BookingReminder, "error", err)
		}
	}

	if len(due) > 0 {
		logger.Info("reminders sent", "count", len(due))
	}
	return len(due), nil
}

// Maintain completes elapsed bookings and releases orphaned slots.
func (s *Scheduler) Maintain(ctx context.Context) error {
	completed, err := s.bookings.CompleteElapsed(ctx)
	if err != nil {
		return fmt.Errorf("complete elapsed: %w", err)
	}
	released, err := s.bookings.ReleaseOrphans(ctx)
	if err != nil {
		return fmt.Errorf("release orphans: %w", err)
	}
	logger.Debug("maintenance done", "completed", completed, "released", released)
	return nil
}

// Start schedules both jobs. Runs never overlap with themselves.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := c.AddFunc(every(s.cfg.Interval), func() {
		if _, err := s.ScanOnce(ctx); err != nil {
			logger.Error("reminder scan failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}

	if _, err := c.AddFunc(every(s.cfg.MaintenanceInterval), func() {
		if err := s.Maintain(ctx); err != nil {
			logger.Error("maintenance failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule maintenance: %w", err)
	}

	c.Start()
	s.cron = c

	logger.Info("scheduler started",
		"reminder_interval", s.cfg.Interval,
		"reminder_lead", s.cfg.Lead,
		"maintenance_interval", s.cfg.MaintenanceInterval,
	)
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

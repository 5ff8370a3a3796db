// Package app wires the service together from configuration. Both binaries
// build on it so the API and the operator CLI see the same collaborators.
package app

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/warpVIT1/tarot-booking-app/internal/audit"
	"github.com/warpVIT1/tarot-booking-app/internal/clock"
	"github.com/warpVIT1/tarot-booking-app/internal/config"
	dbpkg "github.com/warpVIT1/tarot-booking-app/internal/db"
	"github.com/warpVIT1/tarot-booking-app/internal/events"
	"github.com/warpVIT1/tarot-booking-app/internal/fixtures"
	"github.com/warpVIT1/tarot-booking-app/internal/infra/gormstore"
	"github.com/warpVIT1/tarot-booking-app/internal/infra/redisstore"
	"github.com/warpVIT1/tarot-booking-app/internal/infra/s3store"
	"github.com/warpVIT1/tarot-booking-app/internal/infra/sqlitestore"
	"github.com/warpVIT1/tarot-booking-app/internal/logger"
	"github.com/warpVIT1/tarot-booking-app/internal/notify"
	"github.com/warpVIT1/tarot-booking-app/internal/store"
	ucBooking "github.com/warpVIT1/tarot-booking-app/internal/usecase/booking"
	ucIdentity "github.com/warpVIT1/tarot-booking-app/internal/usecase/identity"
	ucReferral "github.com/warpVIT1/tarot-booking-app/internal/usecase/referral"
	"github.com/warpVIT1/tarot-booking-app/internal/usecase/reminder"
	ucSlot "github.com/warpVIT1/tarot-booking-app/internal/usecase/slot"
)

type App struct {
	Config *config.Config
	Clock  clock.Clock
	Store  store.KeyedStore
	// DB is set only for the postgres driver.
	DB *gorm.DB

	Bus      events.Publisher
	Audit    *audit.Dispatcher
	Notifier notify.Notifier

	Slots      *ucSlot.Registry
	Bookings   *ucBooking.Ledger
	Identities *ucIdentity.Directory
	Referrals  *ucReferral.Graph
	Scheduler  *reminder.Scheduler

	closers []func() error
}

// Option overrides a collaborator before the use cases are built.
type Option func(*App)

func WithClock(c clock.Clock) Option {
	return func(a *App) { a.Clock = c }
}

func WithStore(s store.KeyedStore) Option {
	return func(a *App) { a.Store = s }
}

func WithBus(b events.Publisher) Option {
	return func(a *App) { a.Bus = b }
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if a.Clock == nil {
		a.Clock = clock.Real{Timezone: cfg.Timezone}
	}

	if a.Store == nil {
		if err := a.openStore(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	if a.Bus == nil {
		if err := a.openBus(); err != nil {
			a.Close()
			return nil, err
		}
	}

	// ======================================================
	// AUDIT + NOTIFICATIONS
	// ======================================================
	sinks := []audit.Sink{audit.LogSink{}}
	if a.DB != nil {
		sinks = append(sinks, audit.New(a.DB))
	}
	if _, ok := a.Bus.(events.Nop); !ok {
		sinks = append(sinks, audit.BusSink{Bus: a.Bus})
	}
	a.Audit = audit.NewDispatcher(sinks...)

	a.Notifier = notify.Multi{notify.LogNotifier{}, notify.NewEventNotifier(a.Bus)}

	// ======================================================
	// USE CASES
	// ======================================================
	a.Slots = ucSlot.NewRegistry(a.Store, a.Clock, a.Audit, a.Bus)
	a.Identities = ucIdentity.NewDirectory(a.Store, a.Clock, a.Audit)
	a.Identities.SetHashCost(cfg.Auth.BcryptCost)
	a.Bookings = ucBooking.NewLedger(ucBooking.Deps{
		Store:     a.Store,
		Slots:     a.Slots,
		Providers: a.Identities,
		Clock:     a.Clock,
		Rules:     cfg.Booking,
		Timezone:  cfg.Timezone,
		Notifier:  a.Notifier,
		Audit:     a.Audit,
		Bus:       a.Bus,
	})
	a.Referrals = ucReferral.NewGraph(a.Store, a.Identities, a.Clock, cfg.Referral, a.Notifier, a.Audit, a.Bus)
	a.Scheduler = reminder.NewScheduler(a.Bookings, a.Clock, cfg.Reminder, cfg.Timezone, a.Notifier, a.Bus)

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config

	switch cfg.Store.Driver {
	case "", "memory":
		a.Store = store.NewMemory()

	case "postgres":
		db, err := dbpkg.NewDB(cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		a.DB = db
		a.Store = gormstore.New(db)
		a.closers = append(a.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})

	case "redis":
		s, err := redisstore.Dial(ctx, cfg.Store.RedisURL, cfg.Store.RedisPrefix)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.Store = s
		a.closers = append(a.closers, s.Close)

	case "s3":
		s, err := s3store.New(cfg.Store)
		if err != nil {
			return fmt.Errorf("configure s3: %w", err)
		}
		a.Store = s

	case "sqlite":
		s, err := sqlitestore.Open(cfg.Store.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		a.Store = s
		a.closers = append(a.closers, s.Close)

	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	logger.Info("store ready", "driver", cfg.Store.Driver)
	return nil
}

func (a *App) openBus() error {
	if a.Config.NATSUrl == "" {
		a.Bus = events.Nop{}
		return nil
	}

	bus, err := events.NewNATSEventBus(a.Config.NATSUrl)
	if err != nil {
		return err
	}
	a.Bus = bus
	logger.Info("event bus connected", "url", a.Config.NATSUrl)
	return nil
}

// Seeder returns the dev fixture seeder bound to this app.
func (a *App) Seeder() fixtures.Seeder {
	return fixtures.Seeder{
		Registry:  a.Slots,
		Ledger:    a.Bookings,
		Directory: a.Identities,
		Clock:     a.Clock,
		Timezone:  a.Config.Timezone,
	}
}

// Close stops the scheduler, flushes audit events and releases connections.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Audit != nil {
		a.Audit.Close()
	}

	var errs []error
	if a.Bus != nil {
		errs = append(errs, a.Bus.Close())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

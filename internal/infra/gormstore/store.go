package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/warpVIT1/tarot-booking-app/internal/models"
	"github.com/warpVIT1/tarot-booking-app/internal/store"
)

// Store keeps collections in the Postgres "collections" table.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --------------------------------------------------
// Read
// --------------------------------------------------

func (s *Store) ReadCollection(ctx context.Context, name string) (store.Snapshot, error) {
	var row models.Collection
	err := s.db.WithContext(ctx).
		Where("name = ?", name).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Snapshot{}, nil
	}
	if err != nil {
		return store.Snapshot{}, err
	}

	records, err := store.DecodePayload([]byte(row.Payload))
	if err != nil {
		return store.Snapshot{}, err
	}
	return store.Snapshot{
		Records:  records,
		Revision: strconv.FormatInt(row.Revision, 10),
	}, nil
}

// --------------------------------------------------
// Conditional write
// --------------------------------------------------

func (s *Store) WriteCollection(ctx context.Context, name string, records []json.RawMessage, expectedRevision string) error {
	payload, err := store.EncodePayload(records)
	if err != nil {
		return err
	}

	if expectedRevision == "" {
		row := models.Collection{
			Name:     name,
			Payload:  string(payload),
			Revision: 1,
		}
		err := s.db.WithContext(ctx).Create(&row).Error
		if isUniqueViolation(err) {
			return store.ErrStaleRevision
		}
		return err
	}

	rev, err := strconv.ParseInt(expectedRevision, 10, 64)
	if err != nil {
		return store.ErrStaleRevision
	}

	res := s.db.WithContext(ctx).
		Model(&models.Collection{}).
		Where("name = ? AND revision = ?", name, rev).
		Updates(map[string]any{
			"payload":    string(payload),
			"revision":   gorm.Expr("revision + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrStaleRevision
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ store.KeyedStore = (*Store)(nil)

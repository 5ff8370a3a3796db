// Package redisstore keeps each collection under one Redis key and guards
// writes with WATCH/MULTI.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/warpVIT1/tarot-booking-app/internal/store"
)

type envelope struct {
	Revision int64             `json:"revision"`
	Records  []json.RawMessage `json:"records"`
}

type Store struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Dial connects using a redis:// URL and checks the connection.
func Dial(ctx context.Context, url, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(client, prefix), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) ReadCollection(ctx context.Context, name string) (store.Snapshot, error) {
	env, ok, err := read(ctx, s.client, s.key(name))
	if err != nil || !ok {
		return store.Snapshot{}, err
	}
	return store.Snapshot{
		Records:  env.Records,
		Revision: strconv.FormatInt(env.Revision, 10),
	}, nil
}

func (s *Store) WriteCollection(ctx context.Context, name string, records []json.RawMessage, expectedRevision string) error {
	key := s.key(name)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		env, ok, err := read(ctx, tx, key)
		if err != nil {
			return err
		}

		current := ""
		if ok {
			current = strconv.FormatInt(env.Revision, 10)
		}
		if current != expectedRevision {
			return store.ErrStaleRevision
		}

		if records == nil {
			records = []json.RawMessage{}
		}
		payload, err := json.Marshal(envelope{Revision: env.Revision + 1, Records: records})
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return store.ErrStaleRevision
	}
	return err
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func read(ctx context.Context, c getter, key string) (envelope, bool, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return envelope{}, false, nil
	}
	if err != nil {
		return envelope{}, false, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return env, true, nil
}

var _ store.KeyedStore = (*Store)(nil)

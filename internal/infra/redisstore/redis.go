// Package redisstore keeps the progress record in Redis, one string key per
// storage slot. It is the shared-backend alternative to the sqlite store.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/quill-writing/quill/internal/domain"
)

// KeyPrefix is the prefix for all slot keys.
const KeyPrefix = "quill:slot:"

var log = logrus.WithField("component", "redis")

// Options configures Connect.
type Options struct {
	Addr     string
	Password string
	DB       int

	// MaxRetries bounds the connection attempts made by Connect.
	MaxRetries uint64
	// RetryInterval is the first backoff delay. Zero uses the library default.
	RetryInterval time.Duration
}

// Store is a slot store backed by a Redis client.
type Store struct {
	client *redis.Client
}

// Connect dials Redis and retries PING with exponential backoff.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.NewExponentialBackOff()
	if opts.RetryInterval > 0 {
		b.InitialInterval = opts.RetryInterval
	}
	attempt := 0
	err := backoff.Retry(
		func() error {
			attempt++
			if err := client.Ping(ctx).Err(); err != nil {
				log.WithField("attempt", attempt).WithError(err).Warn("redis connection failed, retrying")
				return err
			}
			return nil
		},
		backoff.WithContext(backoff.WithMaxRetries(b, opts.MaxRetries), ctx),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", opts.Addr, err)
	}

	log.WithField("addr", opts.Addr).Info("redis store connected")
	return New(client), nil
}

// New wraps an existing client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(slot string) string {
	return KeyPrefix + slot
}

// Get returns the bytes stored in slot, or domain.ErrSlotEmpty.
func (s *Store) Get(ctx context.Context, slot string) ([]byte, error) {
	data, err := s.client.Get(ctx, key(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("get slot %s: %w", slot, err)
	}
	return data, nil
}

// Put overwrites slot with data. Progress never expires.
func (s *Store) Put(ctx context.Context, slot string, data []byte) error {
	if err := s.client.Set(ctx, key(slot), data, 0).Err(); err != nil {
		return fmt.Errorf("put slot %s: %w", slot, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (s *Store) Close() error {
	return s.client.Close()
}

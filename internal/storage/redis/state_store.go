// Package redis provides a Redis-backed state store. Keys are stored as plain
// strings named "<namespace>:<key>".
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrEmptyAddress is returned when the Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

const connectionTimeout = 5 * time.Second

// Config holds Redis connection configuration.
type Config struct {
	Address   string
	Password  string
	DB        int
	Namespace string
}

// StateStore reads and writes namespaced string keys.
type StateStore struct {
	client    goredis.UniversalClient
	namespace string
}

// New dials Redis, verifies the connection with PING and returns a store.
func New(ctx context.Context, cfg Config) (*StateStore, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	store, err := NewWithClient(client, cfg.Namespace)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client goredis.UniversalClient, namespace string) (*StateStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	return &StateStore{client: client, namespace: namespace}, nil
}

func (s *StateStore) key(k string) string {
	return s.namespace + ":" + k
}

// Get returns the value for key; a missing key is reported as not found.
func (s *StateStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", s.key(key), err)
	}
	return val, true, nil
}

// Put stores value for key without expiry.
func (s *StateStore) Put(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key(key), err)
	}
	return nil
}

// Close releases the client connection pool.
func (s *StateStore) Close() error {
	return s.client.Close()
}

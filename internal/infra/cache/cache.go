// Package cache is the key-value cache port used for smart-search query expansions,
// with a Redis adapter and a no-op fallback for deployments without Redis.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is safe for concurrent use. Values are opaque strings; callers own serialization.
type Cache interface {
	// Get returns ErrMiss when key is absent.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value; ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// ErrMiss signals a cache miss, distinct from transport errors.
var ErrMiss = errors.New("cache: miss")

// Noop never stores anything; every Get is a miss.
type Noop struct{}

var _ Cache = Noop{}

func (Noop) Get(context.Context, string) (string, error)               { return "", ErrMiss }
func (Noop) Set(context.Context, string, string, time.Duration) error { return nil }
func (Noop) Ping(context.Context) error                               { return nil }
func (Noop) Close() error                                             { return nil }

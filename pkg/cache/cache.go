// Package cache stores upstream responses as opaque byte slices with a TTL.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: one JSON file per key, for the CLI
//   - [RedisCache]: shared cache for the gateway
//   - [NullCache]: caching disabled
//
// Wrap any backend with [Instrument] to report hits and misses to the
// registered observability hooks.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// A miss is reported as (nil, false, nil), never as an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

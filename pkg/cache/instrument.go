package cache

import (
	"context"
	"time"

	"github.com/matzehuels/relay/pkg/observability"
)

// Instrumented reports hits, misses and writes of an inner cache to the
// registered [observability.CacheHooks] under a fixed key type.
type Instrumented struct {
	inner   Cache
	keyType string
}

// Instrument wraps c. keyType labels the events, e.g. "items".
func Instrument(c Cache, keyType string) *Instrumented {
	return &Instrumented{inner: c, keyType: keyType}
}

func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.inner.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, c.keyType)
		} else {
			observability.Cache().OnCacheMiss(ctx, c.keyType)
		}
	}
	return data, ok, err
}

func (c *Instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.inner.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, c.keyType, len(data))
	}
	return err
}

func (c *Instrumented) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

func (c *Instrumented) Close() error {
	return c.inner.Close()
}

var _ Cache = (*Instrumented)(nil)

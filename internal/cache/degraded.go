package cache

import (
	"context"
	"log/slog"
	"time"
)

// Degraded wraps a Cache so that backend failures become silent misses.
// Get returns "miss" on error, Set/Delete become no-ops, and the pipeline
// keeps functioning uncached instead of failing.
type Degraded struct {
	inner Cache
}

// NewDegraded wraps inner with pass-through degradation.
func NewDegraded(inner Cache) *Degraded {
	return &Degraded{inner: inner}
}

func (d *Degraded) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, found, err := d.inner.Get(ctx, key)
	if err != nil {
		slog.Debug("cache get failed, treating as miss", "key", key, "error", err)
		return nil, false, nil
	}
	return val, found, nil
}

func (d *Degraded) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := d.inner.Set(ctx, key, value, ttl); err != nil {
		slog.Debug("cache set failed, skipping", "key", key, "error", err)
	}
	return nil
}

func (d *Degraded) Delete(ctx context.Context, key string) error {
	if err := d.inner.Delete(ctx, key); err != nil {
		slog.Debug("cache delete failed, skipping", "key", key, "error", err)
	}
	return nil
}

func (d *Degraded) Ping(ctx context.Context) error {
	return d.inner.Ping(ctx)
}

func (d *Degraded) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	return d.inner.IncrWithExpiry(ctx, key, expiry)
}

var _ Cache = (*Degraded)(nil)

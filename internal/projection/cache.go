package projection

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Cache holds the in-memory model behind an atomic pointer. Readers never
// lock; reload swaps the whole model so in-flight projections keep the
// version they started with.
type Cache struct {
	path  string
	model atomic.Pointer[Model]
}

func NewCache(path string) *Cache {
	return &Cache{path: path}
}

func (c *Cache) Load() error {
	m, err := LoadModel(c.path)
	if err != nil {
		return err
	}
	c.model.Store(m)
	slog.Info("projection model loaded", "version", m.Version, "dim", m.Dim)
	return nil
}

// Get returns the current model, or ErrModelUnavailable when none is
// loaded. Callers treat that as a health-degraded state, not a data error.
func (c *Cache) Get() (*Model, error) {
	m := c.model.Load()
	if m == nil {
		return nil, ErrModelUnavailable
	}
	return m, nil
}

func (c *Cache) Healthy() bool {
	return c.model.Load() != nil
}

func (c *Cache) Version() string {
	if m := c.model.Load(); m != nil {
		return m.Version
	}
	return ""
}

// ReloadIfChanged re-reads the artifact and swaps it in when the version
// differs. A read failure leaves the current model in place.
func (c *Cache) ReloadIfChanged() error {
	fresh, err := LoadModel(c.path)
	if err != nil {
		return err
	}
	current := c.model.Load()
	if current != nil && current.Version == fresh.Version {
		return nil
	}
	c.model.Store(fresh)
	slog.Info("projection model swapped", "version", fresh.Version)
	return nil
}

// Watch polls the artifact for version changes until the context ends.
func (c *Cache) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ReloadIfChanged(); err != nil {
				slog.WarnContext(ctx, "projection model reload failed", "error", err)
			}
		}
	}
}

// Package source preloads the assets the intro depends on and keeps the
// decoded results for the overlay content.
package source

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Loader fetches one asset. Loaders must honor ctx cancellation.
type Loader interface {
	Name() string
	Load(ctx context.Context, cache *Cache) error
}

// Gate runs every loader concurrently and reports the first failure. It is
// the barrier that keeps the intro from starting before its assets exist.
type Gate struct {
	Loaders []Loader
	// Limit bounds concurrent loaders; zero or less means no limit.
	Limit int
	Cache *Cache

	once sync.Once
	err  error
}

func NewGate(cache *Cache, loaders ...Loader) *Gate {
	if cache == nil {
		cache = NewCache()
	}
	return &Gate{Loaders: loaders, Cache: cache, Limit: 8}
}

// Wait loads everything once. Later calls return the first result.
func (g *Gate) Wait(ctx context.Context) error {
	g.once.Do(func() {
		g.err = g.load(ctx)
	})
	return g.err
}

func (g *Gate) load(ctx context.Context) error {
	if g.Cache == nil {
		g.Cache = NewCache()
	}
	start := time.Now()

	eg, ctx := errgroup.WithContext(ctx)
	if g.Limit > 0 {
		eg.SetLimit(g.Limit)
	}
	for _, l := range g.Loaders {
		eg.Go(func() error {
			if err := l.Load(ctx, g.Cache); err != nil {
				return fmt.Errorf("%s: %w", l.Name(), err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	slog.Info("assets preloaded", "count", len(g.Loaders), "took", time.Since(start))
	return nil
}

// Cache holds decoded images by asset name.
type Cache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

func NewCache() *Cache {
	return &Cache{images: make(map[string]image.Image)}
}

func (c *Cache) Put(name string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[name] = img
}

func (c *Cache) Get(name string) (image.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.images[name]
	return img, ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// DocumentReady adapts a plain function, such as a page-load signal, into a
// Loader.
type DocumentReady struct {
	Label string
	Ready func(ctx context.Context) error
}

func (d DocumentReady) Name() string {
	if d.Label == "" {
		return "document"
	}
	return d.Label
}

func (d DocumentReady) Load(ctx context.Context, _ *Cache) error {
	if d.Ready == nil {
		return nil
	}
	return d.Ready(ctx)
}

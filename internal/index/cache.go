package index

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"implindex/internal/crawler"
)

// ManifestSource loads discovery manifests for a project root.
type ManifestSource interface {
	Load(root string) (*crawler.Manifest, error)
	ModTime(root string) (time.Time, error)
}

// Cache keeps the latest snapshot per project root. Readers get whatever
// snapshot is current; rebuilds of the same root are coalesced and
// published with a single pointer swap.
type Cache struct {
	builder *Builder
	source  ManifestSource

	mu      sync.Mutex
	entries map[string]*atomic.Pointer[Index]

	group singleflight.Group
}

// NewCache creates a cache that builds with b from manifests in source.
func NewCache(b *Builder, source ManifestSource) *Cache {
	return &Cache{
		builder: b,
		source:  source,
		entries: make(map[string]*atomic.Pointer[Index]),
	}
}

func cacheKey(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return filepath.Clean(root)
}

func (c *Cache) slot(key string) *atomic.Pointer[Index] {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[key]
	if !ok {
		p = new(atomic.Pointer[Index])
		c.entries[key] = p
	}
	return p
}

// Get returns the cached snapshot for root, rebuilding it first when
// nothing is cached or the manifest changed after the snapshot was built.
func (c *Cache) Get(ctx context.Context, root string) (*Index, error) {
	key := cacheKey(root)
	mod, err := c.source.ModTime(root)
	if err != nil {
		if errors.Is(err, crawler.ErrNoManifest) {
			return nil, fmt.Errorf("%w: %v", ErrNoData, err)
		}
		return nil, err
	}
	if cur := c.slot(key).Load(); cur != nil && !mod.After(cur.BuiltAt) {
		return cur, nil
	}
	return c.Rebuild(ctx, root)
}

// Rebuild builds a fresh snapshot for root and publishes it.
func (c *Cache) Rebuild(ctx context.Context, root string) (*Index, error) {
	key := cacheKey(root)
	v, err, _ := c.group.Do(key, func() (any, error) {
		m, err := c.source.Load(root)
		if err != nil {
			if errors.Is(err, crawler.ErrNoManifest) {
				return nil, fmt.Errorf("%w: %v", ErrNoData, err)
			}
			return nil, err
		}
		idx, err := c.builder.Build(ctx, m, root)
		if err != nil {
			return nil, err
		}
		c.slot(key).Store(idx)
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Peek returns the cached snapshot for root without building.
func (c *Cache) Peek(root string) (*Index, bool) {
	idx := c.slot(cacheKey(root)).Load()
	return idx, idx != nil
}

// Invalidate drops the cached snapshot for root.
func (c *Cache) Invalidate(root string) {
	c.slot(cacheKey(root)).Store(nil)
}

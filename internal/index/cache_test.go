package index

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"implindex/internal/crawler"
)

type fakeSource struct {
	mu        sync.Mutex
	manifests map[string]*crawler.Manifest
	modTime   time.Time
	loads     atomic.Int32
}

func (s *fakeSource) Load(root string) (*crawler.Manifest, error) {
	s.loads.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.manifests[root]
	if !ok {
		return nil, fmt.Errorf("%w at %s", crawler.ErrNoManifest, root)
	}
	return m, nil
}

func (s *fakeSource) ModTime(root string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.manifests[root]; !ok {
		return time.Time{}, crawler.ErrNoManifest
	}
	return s.modTime, nil
}

func (s *fakeSource) touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modTime = t
}

func newTestCache() (*Cache, *fakeSource) {
	src := &fakeSource{
		manifests: map[string]*crawler.Manifest{
			"/a": testManifest(),
			"/b": {Files: []crawler.Entry{{Path: "states/AcceptedImplications.js"}}},
		},
		modTime: time.Now().Add(-time.Hour),
	}
	b := NewBuilder(nil, WithReader(testSources()))
	return NewCache(b, src), src
}

func TestCache_Get(t *testing.T) {
	ctx := context.Background()
	c, src := newTestCache()

	first, err := c.Get(ctx, "/a")
	require.NoError(t, err)
	second, err := c.Get(ctx, "/a")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), src.loads.Load())

	t.Run("Newer manifest rebuilds", func(t *testing.T) {
		src.touch(time.Now().Add(time.Hour))
		third, err := c.Get(ctx, "/a")
		require.NoError(t, err)
		assert.NotSame(t, first, third)
	})

	t.Run("Invalidate", func(t *testing.T) {
		src.touch(time.Now().Add(-time.Hour))
		before, ok := c.Peek("/a")
		require.True(t, ok)
		c.Invalidate("/a")
		_, ok = c.Peek("/a")
		assert.False(t, ok)

		after, err := c.Get(ctx, "/a")
		require.NoError(t, err)
		assert.NotSame(t, before, after)
	})
}

func TestCache_ProjectsAreIsolated(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()

	a, err := c.Get(ctx, "/a")
	require.NoError(t, err)
	b, err := c.Get(ctx, "/b")
	require.NoError(t, err)

	assert.Contains(t, a.ByState, "pending")
	assert.NotContains(t, b.ByState, "pending")
	assert.Contains(t, b.ByState, "accepted")
}

func TestCache_NoManifest(t *testing.T) {
	c, _ := newTestCache()
	_, err := c.Get(context.Background(), "/missing")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = c.Rebuild(context.Background(), "/missing")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCache_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()

	var wg sync.WaitGroup
	results := make([]*Index, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, err := c.Get(ctx, "/a")
			if err == nil {
				results[i] = idx
			}
		}(i)
	}
	wg.Wait()

	for _, idx := range results {
		require.NotNil(t, idx)
		assert.Contains(t, idx.ByState, "pending")
	}
}

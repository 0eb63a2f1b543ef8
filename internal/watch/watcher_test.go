package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type suffixFilter struct{}

func (suffixFilter) Matches(name string) bool   { return strings.HasSuffix(name, "Implications.js") }
func (suffixFilter) IsIgnored(name string) bool { return name == "node_modules" }

func TestWatcher_DebouncesMatchingFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "states"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))

	batches := make(chan []string, 4)
	w := New(root, suffixFilter{}, func(_ context.Context, changed []string) error {
		batches <- changed
		return nil
	}, WithDebounce(100*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register directories.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "LibImplications.js"), []byte("x"), 0o644))
	target := filepath.Join(root, "states", "PendingImplications.js")
	require.NoError(t, os.WriteFile(target, []byte("class A {}"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("class B {}"), 0o644))

	select {
	case got := <-batches:
		assert.Equal(t, []string{"states/PendingImplications.js"}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

// Package watch re-runs discovery when state definition files change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for further events before
// firing the handler.
const DefaultDebounce = 300 * time.Millisecond

// Filter decides which files and directories the watcher cares about.
// *crawler.Crawler satisfies it.
type Filter interface {
	Matches(name string) bool
	IsIgnored(name string) bool
}

// Handler receives the root-relative paths changed during one debounce
// window, sorted and de-duplicated.
type Handler func(ctx context.Context, changed []string) error

// Watcher batches file system events under a project root.
type Watcher struct {
	root     string
	filter   Filter
	handler  Handler
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

func New(root string, filter Filter, handler Handler, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		filter:   filter,
		handler:  handler,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Handler errors are logged and do not
// stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watching", slog.String("root", w.root))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.filter.IsIgnored(info.Name()) {
						_ = w.addRecursive(fw, event.Name)
					}
					continue
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.filter.Matches(filepath.Base(event.Name)) {
				continue
			}
			rel, err := filepath.Rel(w.root, event.Name)
			if err != nil {
				rel = event.Name
			}
			pending[filepath.ToSlash(rel)] = struct{}{}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]struct{})

			w.logger.Debug("changes detected", slog.Int("files", len(changed)))
			if err := w.handler(ctx, changed); err != nil {
				w.logger.Error("refresh failed", slog.Any("error", err))
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.filter.IsIgnored(d.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

package crawler

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"implindex/internal/extractor"
)

// DefaultPatterns are the file name suffixes treated as state definitions.
var DefaultPatterns = []string{"Implications.js", "Implications.ts"}

// Crawler scans a directory for state definition files.
type Crawler struct {
	extractor *extractor.Extractor
	ignored   []string
	patterns  []string
	workers   int
	logger    *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithPatterns replaces the file name suffixes that mark candidates.
func WithPatterns(patterns ...string) Option {
	return func(c *Crawler) {
		if len(patterns) > 0 {
			c.patterns = patterns
		}
	}
}

// WithIgnored adds directory names to skip.
func WithIgnored(dirs ...string) Option {
	return func(c *Crawler) {
		c.ignored = append(c.ignored, dirs...)
	}
}

// WithWorkers bounds concurrent extraction.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCrawler creates a new crawler instance.
func NewCrawler(ext *extractor.Extractor, opts ...Option) *Crawler {
	c := &Crawler{
		extractor: ext,
		ignored:   []string{".git", "vendor", "node_modules", "testdata", ".implindex"},
		patterns:  DefaultPatterns,
		workers:   runtime.NumCPU(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Matches reports whether a file name is a state definition candidate.
func (c *Crawler) Matches(name string) bool {
	for _, p := range c.patterns {
		if strings.HasSuffix(name, p) {
			return true
		}
	}
	return false
}

// IsIgnored reports whether a directory name is skipped.
func (c *Crawler) IsIgnored(name string) bool {
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	return false
}

// ScanProject walks the root directory and streams the slash-separated,
// root-relative path of every candidate file.
func (c *Crawler) ScanProject(root string, onFile func(rel string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && c.IsIgnored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !c.Matches(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		onFile(filepath.ToSlash(rel))
		return nil
	})
}

// Discover scans root, extracts every candidate and returns the manifest.
// A file that cannot be read is logged and left without a record; it
// never fails the scan.
func (c *Crawler) Discover(ctx context.Context, root string) (*Manifest, error) {
	var paths []string
	if err := c.ScanProject(root, func(rel string) { paths = append(paths, rel) }); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	sort.Strings(paths)

	entries := make([]Entry, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, rel := range paths {
		i, rel := i, rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries[i] = Entry{Path: rel}
			rec, err := c.extractor.ExtractFromFile(gctx, filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				c.logger.Warn("skipping unreadable file", slog.String("file", rel), slog.Any("error", err))
				return nil
			}
			entries[i].Record = rec
			entries[i].Metadata = Metadata{
				ClassName:  rec.ClassName,
				Status:     rec.Meta.Status,
				HasMachine: rec.HasMachine,
				HasUI:      rec.UIValidation != nil,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &Manifest{Root: root, GeneratedAt: time.Now().UTC(), Files: entries}
	for _, e := range entries {
		if e.Record == nil || e.Record.Meta.Status == "" {
			continue
		}
		for _, t := range e.Record.Transitions {
			m.Transitions = append(m.Transitions, Transition{
				From:        e.Record.Meta.Status,
				Event:       t.Event,
				To:          t.Target,
				Platforms:   t.Platforms,
				Description: t.Description,
			})
		}
	}

	c.logger.Info("discovery complete",
		slog.String("root", root),
		slog.Int("files", len(entries)),
		slog.Int("transitions", len(m.Transitions)))
	return m, nil
}

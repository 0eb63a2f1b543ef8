package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"implindex/internal/analysis"
	"implindex/internal/config"
	"implindex/internal/crawler"
	"implindex/internal/extractor"
	"implindex/internal/graph"
	"implindex/internal/index"
	"implindex/internal/storage"
)

// Sync wires discovery, indexing, analysis and persistence for one
// project root.
type Sync struct {
	Root   string
	DBPath string

	cfg       *config.Config
	crawler   *crawler.Crawler
	manifests *crawler.FileStore
	cache     *index.Cache
	out       io.Writer
	logger    *slog.Logger
}

// Report is what a full Run produced.
type Report struct {
	Manifest *crawler.Manifest
	Index    *index.Index
	Analysis *analysis.Result
	RunID    string
}

func NewSync(cfg *config.Config, out io.Writer, logger *slog.Logger) *Sync {
	if logger == nil {
		logger = slog.Default()
	}
	ext := extractor.NewExtractor(extractor.WithLogger(logger))
	cr := crawler.NewCrawler(ext,
		crawler.WithPatterns(cfg.Project.Patterns...),
		crawler.WithIgnored(cfg.Project.Ignore...),
		crawler.WithWorkers(cfg.Index.Workers),
		crawler.WithLogger(logger),
	)
	manifests := crawler.NewFileStore(cfg.Index.Manifest)
	builder := index.NewBuilder(ext,
		index.WithWorkers(cfg.Index.Workers),
		index.WithLogger(logger),
	)
	return &Sync{
		Root:      cfg.Project.Root,
		DBPath:    cfg.Storage.DB,
		cfg:       cfg,
		crawler:   cr,
		manifests: manifests,
		cache:     index.NewCache(builder, manifests),
		out:       out,
		logger:    logger,
	}
}

// Crawler exposes the file filter used for discovery.
func (s *Sync) Crawler() *crawler.Crawler { return s.crawler }

// Run scans the project, rebuilds the index, analyzes it and optionally
// stores both in the database.
func (s *Sync) Run(ctx context.Context, save bool) (*Report, error) {
	m, err := s.scanStage(ctx)
	if err != nil {
		return nil, err
	}

	idx, err := s.indexStage(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.analysisStage(m)
	if err != nil {
		return nil, err
	}

	report := &Report{Manifest: m, Index: idx, Analysis: res}
	if !save {
		return report, nil
	}
	if report.RunID, err = s.persistStage(ctx, idx, res); err != nil {
		return nil, err
	}
	return report, nil
}

// Scan re-runs discovery and drops the cached index.
func (s *Sync) Scan(ctx context.Context) (*crawler.Manifest, error) {
	return s.scanStage(ctx)
}

// Index returns the current index, building it from the stored manifest
// when needed.
func (s *Sync) Index(ctx context.Context) (*index.Index, error) {
	return s.cache.Get(ctx, s.Root)
}

// Analyze runs the rule pipeline over the stored manifest.
func (s *Sync) Analyze() (*analysis.Result, error) {
	m, err := s.loadManifest()
	if err != nil {
		return nil, err
	}
	return s.analysisStage(m)
}

// Graph builds the state graph from the stored manifest.
func (s *Sync) Graph() (*graph.Graph, error) {
	m, err := s.loadManifest()
	if err != nil {
		return nil, err
	}
	return graph.FromManifest(m), nil
}

func (s *Sync) loadManifest() (*crawler.Manifest, error) {
	m, err := s.manifests.Load(s.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrNoData, err)
	}
	return m, nil
}

// Refresh is the watch handler: rediscover, rebuild and report whether
// the index content changed.
func (s *Sync) Refresh(ctx context.Context, changed []string) error {
	fmt.Fprintf(s.out, "📝 Detected %d changed files.\n", len(changed))
	prev, hadPrev := s.cache.Peek(s.Root)
	if _, err := s.scanStage(ctx); err != nil {
		return err
	}
	idx, err := s.indexStage(ctx)
	if err != nil {
		return err
	}
	if hadPrev && prev.Fingerprint() == idx.Fingerprint() {
		fmt.Fprintln(s.out, "✅ Index content unchanged.")
	}
	return nil
}

func (s *Sync) scanStage(ctx context.Context) (*crawler.Manifest, error) {
	fmt.Fprintf(s.out, "🔍 Scanning %s...\n", s.Root)
	start := time.Now()
	m, err := s.crawler.Discover(ctx, s.Root)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	if err := s.manifests.Save(s.Root, m); err != nil {
		return nil, fmt.Errorf("failed to save manifest: %w", err)
	}
	s.cache.Invalidate(s.Root)
	fmt.Fprintf(s.out, "  -> %d files, %d transitions in %v\n", len(m.Files), len(m.Transitions), time.Since(start).Round(time.Millisecond))
	return m, nil
}

func (s *Sync) indexStage(ctx context.Context) (*index.Index, error) {
	idx, err := s.cache.Get(ctx, s.Root)
	if err != nil {
		return nil, fmt.Errorf("index build failed: %w", err)
	}
	st := idx.Stats
	fmt.Fprintf(s.out, "📊 Index: %d documents, %d terms (%d indexed, %d skipped, %d duplicates)\n",
		len(idx.ByID), st.Terms, st.FilesIndexed, st.FilesSkipped, st.DuplicatesDropped)
	return idx, nil
}

func (s *Sync) analysisStage(m *crawler.Manifest) (*analysis.Result, error) {
	a := analysis.NewAnalyzer(
		analysis.WithOptions(analysis.Options{
			ExpectedPlatforms: s.cfg.Analysis.ExpectedPlatforms,
			TerminalKeywords:  s.cfg.Analysis.TerminalKeywords,
			InitialStates:     s.cfg.Analysis.InitialStates,
		}),
		analysis.WithLogger(s.logger),
	)
	res, err := a.Analyze(m, graph.FromManifest(m))
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	sum := res.Summary
	fmt.Fprintf(s.out, "🩺 Analysis: %d issues (%d errors, %d warnings, %d info)\n", sum.Total, sum.Errors, sum.Warnings, sum.Info)
	return res, nil
}

func (s *Sync) persistStage(ctx context.Context, idx *index.Index, res *analysis.Result) (string, error) {
	store, err := storage.NewSQLiteStore(s.DBPath)
	if err != nil {
		return "", fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	if err := store.SaveIndex(ctx, idx); err != nil {
		return "", fmt.Errorf("failed to save index: %w", err)
	}
	id, err := store.SaveAnalysis(ctx, idx.Root, res)
	if err != nil {
		return "", fmt.Errorf("failed to save analysis: %w", err)
	}
	fmt.Fprintf(s.out, "💾 Saved snapshot and analysis run %s to %s\n", id, s.DBPath)
	return id, nil
}

package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"implindex/internal/crawler"
	"implindex/internal/extractor"
)

// ErrNoData is returned when there is no discovery manifest to build from.
var ErrNoData = errors.New("no data to index")

var ticketRe = regexp.MustCompile(`[A-Z]+-\d+`)

// SourceReader fetches the source text of a manifest entry.
type SourceReader interface {
	ReadSource(path string) ([]byte, error)
}

// BuildStats summarizes one build.
type BuildStats struct {
	FilesSeen           int                       `json:"filesSeen"`
	FilesIndexed        int                       `json:"filesIndexed"`
	FilesSkipped        int                       `json:"filesSkipped"`
	Errors              int                       `json:"errors"`
	ByQuality           map[extractor.Quality]int `json:"byQuality"`
	DuplicatesDropped   int                       `json:"duplicatesDropped"`
	ManifestTransitions int                       `json:"manifestTransitions"`
	Documents           map[DocType]int           `json:"documents"`
	Terms               int                       `json:"terms"`
	Duration            time.Duration             `json:"duration"`
}

// Builder turns a discovery manifest into an Index.
type Builder struct {
	extractor *extractor.Extractor
	reader    SourceReader
	workers   int
	logger    *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithReader replaces the default reader, which reads files under the
// build root.
func WithReader(r SourceReader) BuilderOption {
	return func(b *Builder) { b.reader = r }
}

// WithWorkers bounds concurrent extraction.
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a builder. A nil extractor gets the default one.
func NewBuilder(ext *extractor.Extractor, opts ...BuilderOption) *Builder {
	if ext == nil {
		ext = extractor.NewExtractor()
	}
	b := &Builder{
		extractor: ext,
		workers:   runtime.NumCPU(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type extracted struct {
	entry  crawler.Entry
	record *extractor.Record
	err    error
}

// Build extracts every manifest entry and aggregates the results into a
// new snapshot. Extraction runs in parallel; aggregation follows manifest
// order so identical inputs produce identical snapshots. Per-file failures
// are logged and counted, never returned.
func (b *Builder) Build(ctx context.Context, m *crawler.Manifest, root string) (*Index, error) {
	if m == nil {
		return nil, ErrNoData
	}
	start := time.Now()
	if root == "" {
		root = m.Root
	}
	reader := b.reader
	if reader == nil {
		reader = crawler.DirReader{Root: root}
	}

	results := make([]extracted, len(m.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, entry := range m.Files {
		i, entry := i, entry
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = b.extractEntry(gctx, reader, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build cancelled: %w", err)
	}

	idx := newIndex(root)
	idx.BuiltAt = start
	idx.Stats = BuildStats{
		FilesSeen: len(m.Files),
		ByQuality: make(map[extractor.Quality]int),
		Documents: make(map[DocType]int),
	}
	agg := aggregator{idx: idx, logger: b.logger}

	for _, r := range results {
		if r.err != nil {
			idx.Stats.Errors++
			b.logger.Warn("skipping file", slog.String("file", r.entry.Path), slog.Any("error", r.err))
			continue
		}
		idx.Stats.ByQuality[r.record.Quality]++
		if r.record.Quality == extractor.QualityRegex {
			b.logger.Warn("degraded extraction",
				slog.String("file", r.entry.Path),
				slog.String("quality", string(r.record.Quality)))
		}
		if r.record.Meta.Status == "" {
			idx.Stats.FilesSkipped++
			b.logger.Debug("no status", slog.String("file", r.entry.Path))
			continue
		}
		if agg.addRecord(r.entry.Path, r.record) {
			idx.Stats.FilesIndexed++
		}
	}

	for _, t := range m.Transitions {
		if agg.addManifestTransition(t) {
			idx.Stats.ManifestTransitions++
		}
	}

	idx.finalizeTerms()
	idx.Stats.Documents[TypeState] = len(idx.States)
	idx.Stats.Documents[TypeTransition] = len(idx.Transitions)
	idx.Stats.Documents[TypeValidation] = len(idx.Validations)
	idx.Stats.Documents[TypeCondition] = len(idx.Conditions)
	idx.Stats.Terms = len(idx.termList)
	idx.Stats.Duration = time.Since(start)

	b.logger.Info("index built",
		slog.String("root", root),
		slog.Int("files", idx.Stats.FilesSeen),
		slog.Int("indexed", idx.Stats.FilesIndexed),
		slog.Int("skipped", idx.Stats.FilesSkipped),
		slog.Int("errors", idx.Stats.Errors),
		slog.Int("documents", len(idx.ByID)),
		slog.Duration("duration", idx.Stats.Duration))
	return idx, nil
}

func (b *Builder) extractEntry(ctx context.Context, reader SourceReader, entry crawler.Entry) extracted {
	src, err := reader.ReadSource(entry.Path)
	if err != nil {
		if entry.Record != nil {
			return extracted{entry: entry, record: entry.Record}
		}
		return extracted{entry: entry, err: fmt.Errorf("failed to read %s: %w", entry.Path, err)}
	}
	return extracted{entry: entry, record: b.extractor.Extract(ctx, entry.Path, src)}
}

// aggregator appends documents to an index under construction.
type aggregator struct {
	idx    *Index
	logger *slog.Logger
}

// claim registers a document id, dropping duplicates.
func (a *aggregator) claim(doc Document) bool {
	id := doc.DocID()
	if _, exists := a.idx.ByID[id]; exists {
		a.idx.Stats.DuplicatesDropped++
		a.logger.Debug("duplicate document id dropped", slog.String("id", id))
		return false
	}
	a.idx.ByID[id] = doc
	a.idx.addTerms(id, doc.SearchText(), id, doc.DocLabel(), doc.DocField())
	return true
}

func (a *aggregator) addRecord(path string, rec *extractor.Record) bool {
	meta := rec.Meta
	state := &StateDocument{
		Common: Common{
			ID:   meta.Status,
			Type: TypeState,
			Text: joinText(meta.StatusLabel, Humanize(meta.Status), meta.Platform, meta.Entity,
				strings.Join(meta.RequiredFields, " ")),
		},
		StatusLabel:    meta.StatusLabel,
		Platform:       meta.Platform,
		Entity:         meta.Entity,
		SourceFile:     path,
		ClassName:      rec.ClassName,
		RequiredFields: meta.RequiredFields,
		Terminal:       meta.Terminal,
		Initial:        meta.Initial,
		Quality:        rec.Quality,
	}
	if !a.claim(state) {
		a.logger.Warn("duplicate state definition", slog.String("state", meta.Status), slog.String("file", path))
		return false
	}
	a.idx.States = append(a.idx.States, state)
	a.idx.ByState[state.ID] = state

	for _, t := range rec.Transitions {
		if a.addTransition(meta.Status, t.Event, t.Target, t.Platforms, t.Description) {
			state.TransitionCount++
		}
	}

	if rec.UIValidation != nil {
		for _, p := range rec.UIValidation.Platforms {
			for _, s := range p.Screens {
				a.addScreen(meta.Status, p.Name, s)
			}
		}
	}
	return true
}

func (a *aggregator) addTransition(from, event, to string, platforms []string, description string) bool {
	doc := &TransitionDocument{
		Common: Common{
			ID:   from + "." + event,
			Type: TypeTransition,
			Text: joinText(Humanize(event), description, Humanize(from), Humanize(to),
				strings.Join(platforms, " ")),
		},
		Event:       event,
		From:        from,
		To:          to,
		Platforms:   platforms,
		Description: description,
	}
	if !a.claim(doc) {
		return false
	}
	a.idx.Transitions = append(a.idx.Transitions, doc)
	a.idx.ByEvent[event] = append(a.idx.ByEvent[event], doc)
	a.idx.outgoing[from] = append(a.idx.outgoing[from], doc)
	a.idx.incoming[to] = append(a.idx.incoming[to], doc)
	return true
}

func (a *aggregator) addManifestTransition(t crawler.Transition) bool {
	if t.From == "" || t.Event == "" {
		return false
	}
	if _, exists := a.idx.ByID[t.From+"."+t.Event]; exists {
		return false
	}
	to := extractor.NormalizeTarget(t.To)
	if !a.addTransition(t.From, t.Event, to, t.Platforms, t.Description) {
		return false
	}
	if s, ok := a.idx.ByState[t.From]; ok {
		s.TransitionCount++
	}
	return true
}

func (a *aggregator) addScreen(state, platform string, s extractor.Screen) {
	screenID := state + "." + platform + "." + s.Name
	if !s.IsArray {
		a.addValidation(&ValidationDocument{
			Common:      Common{ID: screenID},
			State:       state,
			Platform:    platform,
			Screen:      s.Name,
			Label:       s.Label,
			Description: s.Description,
		}, nil)
	}
	for i, blk := range s.Blocks {
		seg := blk.ID
		if seg == "" {
			seg = fmt.Sprintf("block%d", i+1)
		}
		a.addValidation(&ValidationDocument{
			Common:        Common{ID: screenID + "." + seg},
			State:         state,
			Platform:      platform,
			Screen:        s.Name,
			BlockID:       blk.ID,
			Label:         blk.Label,
			Description:   blk.Description,
			HasConditions: len(blk.Conditions) > 0,
		}, blk.Conditions)
	}
}

func (a *aggregator) addValidation(doc *ValidationDocument, conds []extractor.Condition) {
	doc.Type = TypeValidation
	doc.Text = joinText(doc.Label, doc.Description, Humanize(doc.Screen), doc.Platform,
		Humanize(doc.BlockID), Humanize(doc.State))
	if !a.claim(doc) {
		return
	}
	a.idx.Validations = append(a.idx.Validations, doc)

	seen := make(map[string]bool)
	for _, ticket := range ticketRe.FindAllString(doc.Label, -1) {
		key := strings.ToUpper(ticket)
		if seen[key] {
			continue
		}
		seen[key] = true
		a.idx.ByTicket[key] = append(a.idx.ByTicket[key], doc)
	}

	for i, c := range conds {
		a.addCondition(doc, i+1, c)
	}
}

func (a *aggregator) addCondition(v *ValidationDocument, n int, c extractor.Condition) {
	doc := &ConditionDocument{
		Common: Common{
			ID:   fmt.Sprintf("%s.%s.%d", v.ID, c.Field, n),
			Type: TypeCondition,
			Text: joinText(Humanize(c.Field), string(c.Operator), formatValue(c.Value),
				Humanize(v.Screen), Humanize(v.State)),
		},
		State:        v.State,
		ValidationID: v.ID,
		BlockID:      v.BlockID,
		Field:        c.Field,
		Operator:     c.Operator,
		Value:        c.Value,
	}
	if !a.claim(doc) {
		return
	}
	a.idx.Conditions = append(a.idx.Conditions, doc)

	a.idx.ByField[c.Field] = append(a.idx.ByField[c.Field], doc)
	if last := lastSegment(c.Field); last != c.Field {
		a.idx.ByField[last] = append(a.idx.ByField[last], doc)
	}
}

func lastSegment(field string) string {
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		return field[i+1:]
	}
	return field
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%g", x), ".0")
	default:
		return fmt.Sprint(x)
	}
}

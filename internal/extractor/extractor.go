package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Names of the configuration literals a state definition declares.
const (
	MachineLiteral = "xstateConfig"
	UILiteral      = "mirrorsOn"
)

// Extractor recovers structured state definitions from source text.
type Extractor struct {
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates a new extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFromFile reads and extracts a single state definition file.
func (e *Extractor) ExtractFromFile(ctx context.Context, path string) (*Record, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return e.Extract(ctx, path, src), nil
}

// Extract produces a best-effort Record from src. It never fails: the
// Quality field tells which tier produced the result. path is only used
// to choose the grammar and label warnings.
func (e *Extractor) Extract(ctx context.Context, path string, src []byte) *Record {
	text := string(src)
	rec := &Record{Quality: QualityEmpty}

	loc, err := locateInTree(ctx, path, src, []string{MachineLiteral, UILiteral})
	if err != nil {
		rec.Warnings = append(rec.Warnings, err.Error())
		loc = &located{literals: map[string]int{}}
	}
	rec.ClassName = loc.className
	if rec.ClassName == "" {
		rec.ClassName = firstGroup(classNameRe, text)
	}

	degraded := false

	machine, found := e.literal(text, loc, MachineLiteral, rec)
	switch {
	case found:
		rec.HasMachine = true
		if cfg, err := parseObject(machine); err == nil {
			decodeMachine(cfg, rec)
		} else {
			degraded = true
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("%s: %v", MachineLiteral, err))
			rec.Meta = fallbackMeta(machine)
			rec.Transitions = fallbackTransitions(machine)
		}
	default:
		// No machine literal; the identity may still be readable.
		rec.Meta = fallbackMeta(text)
		degraded = rec.Meta.Status != ""
	}

	if ui, ok := e.literal(text, loc, UILiteral, rec); ok {
		if tree, err := parseObject(ui); err == nil {
			rec.UIValidation = decodeUI(tree)
		} else {
			degraded = true
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("%s: %v", UILiteral, err))
			rec.UIValidation = fallbackUI(ui)
		}
	}

	switch {
	case rec.Meta.Status == "" && len(rec.Transitions) == 0 && rec.UIValidation == nil:
		rec.Quality = QualityEmpty
	case degraded:
		rec.Quality = QualityRegex
	default:
		rec.Quality = QualityLiteral
	}

	e.logger.Debug("extracted state definition",
		slog.String("file", path),
		slog.String("status", rec.Meta.Status),
		slog.String("quality", string(rec.Quality)),
		slog.Int("transitions", len(rec.Transitions)))
	return rec
}

// literal returns the source text of the named literal, located through
// the syntax tree first and by pattern second.
func (e *Extractor) literal(text string, loc *located, name string, rec *Record) (string, bool) {
	start, ok := loc.literals[name]
	if !ok {
		start, ok = locateByPattern(text, name)
	}
	if !ok {
		return "", false
	}
	lit, err := ScanBalanced(text, start)
	if err != nil {
		rec.Warnings = append(rec.Warnings, fmt.Sprintf("%s: %v", name, err))
		// Keep what there is so the pattern tier can still read it.
		return text[start:], true
	}
	return lit, true
}

func parseObject(lit string) (*Object, error) {
	v, err := ParseLiteral(Sanitize(lit))
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("%w: literal is not an object", ErrSyntax)
	}
	return obj, nil
}

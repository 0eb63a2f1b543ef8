package analysis

import (
	"errors"
	"log/slog"
	"sort"
	"strings"

	"implindex/internal/crawler"
	"implindex/internal/graph"
)

// ErrNoRegistry is returned when Analyze is called without a registry.
var ErrNoRegistry = errors.New("analysis requires a name-resolution registry")

// DefaultTerminalKeywords mark a state as terminal by name.
var DefaultTerminalKeywords = []string{
	"completed", "cancelled", "canceled", "rejected", "closed", "archived",
	"done", "failed", "expired", "deleted", "finished", "terminated", "final",
}

// Registry resolves a declared transition target, possibly an alias, to
// a canonical state id.
type Registry interface {
	Resolve(raw string) (string, bool)
}

// Options tune the analysis.
type Options struct {
	// ExpectedPlatforms every state should cover. Empty means the union of
	// platforms declared by any state.
	ExpectedPlatforms []string
	// TerminalKeywords mark states as terminal by name. Empty means
	// DefaultTerminalKeywords.
	TerminalKeywords []string
	// InitialStates are entry points that need no incoming transition.
	InitialStates []string
}

// Context is shared by every rule during one run.
type Context struct {
	Graph             *graph.Graph
	Registry          Registry
	ExpectedPlatforms []string

	terminalKeywords []string
	initial          map[string]bool
	incoming         map[string]int
}

// IsTerminal reports whether state is explicitly final or its name
// contains a terminal keyword.
func (c *Context) IsTerminal(state *graph.Node) bool {
	if state.Terminal() {
		return true
	}
	name := strings.ToLower(state.ID)
	for _, kw := range c.terminalKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// IsInitial reports whether state is an entry point.
func (c *Context) IsInitial(state *graph.Node) bool {
	return state.Initial() || c.initial[state.ID] || state.ID == "initial"
}

// IncomingCount returns the number of transitions resolving to state.
func (c *Context) IncomingCount(state string) int {
	return c.incoming[state]
}

// Analyzer runs a fixed rule pipeline over discovery results.
type Analyzer struct {
	rules  []Rule
	opts   Options
	logger *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithOptions sets analysis options.
func WithOptions(o Options) Option {
	return func(a *Analyzer) { a.opts = o }
}

// WithRules replaces the default rule pipeline.
func WithRules(rules ...Rule) Option {
	return func(a *Analyzer) { a.rules = rules }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an analyzer with DefaultRules.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{rules: DefaultRules(), logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze evaluates every rule against every state of the discovery
// result. Output order is state order, then rule order.
func (a *Analyzer) Analyze(m *crawler.Manifest, reg Registry) (*Result, error) {
	if reg == nil {
		return nil, ErrNoRegistry
	}
	ctx := a.newContext(graph.FromManifest(m), reg)

	issues := []Issue{}
	for _, state := range ctx.Graph.States() {
		for _, rule := range a.rules {
			if !rule.AppliesTo(state) {
				continue
			}
			found := rule.Analyze(state, ctx)
			if len(found) > 0 {
				a.logger.Debug("rule fired",
					slog.String("rule", rule.Name()),
					slog.String("state", state.ID),
					slog.Int("issues", len(found)))
			}
			issues = append(issues, found...)
		}
	}

	res := &Result{Issues: issues, Summary: Summarize(issues)}
	a.logger.Info("analysis complete",
		slog.Int("states", len(ctx.Graph.Nodes)),
		slog.Int("issues", res.Summary.Total),
		slog.Int("errors", res.Summary.Errors),
		slog.Int("warnings", res.Summary.Warnings))
	return res, nil
}

func (a *Analyzer) newContext(g *graph.Graph, reg Registry) *Context {
	ctx := &Context{
		Graph:            g,
		Registry:         reg,
		terminalKeywords: a.opts.TerminalKeywords,
		initial:          make(map[string]bool),
		incoming:         make(map[string]int),
	}
	if len(ctx.terminalKeywords) == 0 {
		ctx.terminalKeywords = DefaultTerminalKeywords
	}
	for _, s := range a.opts.InitialStates {
		ctx.initial[s] = true
	}

	for _, e := range g.Edges {
		if id, ok := reg.Resolve(e.Target); ok {
			ctx.incoming[id]++
		}
	}

	ctx.ExpectedPlatforms = a.opts.ExpectedPlatforms
	if len(ctx.ExpectedPlatforms) == 0 {
		seen := make(map[string]bool)
		for _, n := range g.States() {
			if n.Record == nil || n.Record.UIValidation == nil {
				continue
			}
			for _, p := range n.Record.UIValidation.Platforms {
				if len(p.Screens) > 0 && !seen[p.Name] {
					seen[p.Name] = true
					ctx.ExpectedPlatforms = append(ctx.ExpectedPlatforms, p.Name)
				}
			}
		}
		sort.Strings(ctx.ExpectedPlatforms)
	}
	return ctx
}

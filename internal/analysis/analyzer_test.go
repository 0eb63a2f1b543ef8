package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"implindex/internal/crawler"
	"implindex/internal/extractor"
	"implindex/internal/graph"
)

func state(status string, transitions ...extractor.Transition) *extractor.Record {
	return &extractor.Record{
		Meta:        extractor.Meta{Status: status},
		Transitions: transitions,
		HasMachine:  true,
		Quality:     extractor.QualityLiteral,
	}
}

func manifestOf(records ...*extractor.Record) *crawler.Manifest {
	m := &crawler.Manifest{}
	for _, r := range records {
		m.Files = append(m.Files, crawler.Entry{Path: r.Meta.Status + ".js", Record: r})
	}
	return m
}

func tr(event, target string) extractor.Transition {
	return extractor.Transition{Event: event, Target: target}
}

func issuesOf(res *Result, typ IssueType, stateName string) []Issue {
	var out []Issue
	for _, is := range res.Issues {
		if is.Type == typ && is.StateName == stateName {
			out = append(out, is)
		}
	}
	return out
}

func analyze(t *testing.T, m *crawler.Manifest, opts Options) *Result {
	t.Helper()
	res, err := NewAnalyzer(WithOptions(opts)).Analyze(m, graph.FromManifest(m))
	require.NoError(t, err)
	return res
}

func TestAnalyze_IsolatedAndBroken(t *testing.T) {
	m := manifestOf(state("A"), state("B", tr("GO", "C")))
	res := analyze(t, m, Options{})

	isolated := issuesOf(res, TypeIsolatedState, "A")
	require.Len(t, isolated, 1)
	assert.Equal(t, SeverityError, isolated[0].Severity)
	assert.Contains(t, isolated[0].Title, "completely isolated")
	assert.Equal(t, "A.js", isolated[0].Location)

	broken := issuesOf(res, TypeBrokenTransition, "B")
	require.Len(t, broken, 1)
	assert.Equal(t, SeverityError, broken[0].Severity)
	assert.Contains(t, broken[0].Message, "GO")
	assert.Contains(t, broken[0].Message, `"C"`)
	assert.Empty(t, broken[0].Suggestions, "single letter names are not similar enough")

	assert.Empty(t, issuesOf(res, TypeBrokenTransition, "A"))
	unreachable := issuesOf(res, TypeUnreachableState, "B")
	require.Len(t, unreachable, 1)
	assert.Equal(t, SeverityWarning, unreachable[0].Severity)
}

func TestBrokenTransition_Suggestions(t *testing.T) {
	m := manifestOf(
		state("accepted"),
		state("accepting"),
		state("pending", tr("ACCEPT", "acepted"), tr("OK", "accepted")),
	)
	res := analyze(t, m, Options{})

	broken := issuesOf(res, TypeBrokenTransition, "pending")
	require.Len(t, broken, 1, "only dangling targets fire")
	sugg := broken[0].Suggestions
	require.Len(t, sugg, 2)
	assert.Equal(t, "accepted", sugg[0].Data["to"])
	assert.Equal(t, "accepting", sugg[1].Data["to"])
	assert.True(t, sugg[0].AutoFixable)
	assert.Equal(t, "replace_target", sugg[0].Action)
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, similarity("abc", "abc"), 1e-9)
	assert.InDelta(t, 7.0/8.0, similarity("acepted", "accepted"), 1e-9)
	assert.InDelta(t, 0.0, similarity("A", "C"), 1e-9)

	got := closestNames("stat", []string{"state", "stats", "start", "status", "xyz"})
	require.Len(t, got, 3)
	assert.Equal(t, "start", got[0].name)
	assert.Equal(t, "state", got[1].name)
	assert.Equal(t, "stats", got[2].name)
}

func TestIsolatedState_Variants(t *testing.T) {
	final := state("archived_booking")
	flagged := state("done_ish")
	flagged.Meta.Terminal = true
	entry := state("start", tr("BEGIN", "working"))
	entry.Meta.Initial = true

	m := manifestOf(
		final,
		flagged,
		entry,
		state("working", tr("FINISH", "archived_booking")),
		state("side_entry", tr("JUMP", "working")),
	)
	res := analyze(t, m, Options{InitialStates: []string{"side_entry"}})

	t.Run("Terminal states downgrade isolation", func(t *testing.T) {
		require.Len(t, issuesOf(res, TypeIsolatedState, "done_ish"), 1)
		assert.Equal(t, SeverityWarning, issuesOf(res, TypeIsolatedState, "done_ish")[0].Severity)
		assert.Empty(t, issuesOf(res, TypeIsolatedState, "archived_booking"), "reached by FINISH")
	})

	t.Run("Initial states are not unreachable", func(t *testing.T) {
		assert.Empty(t, issuesOf(res, TypeUnreachableState, "start"))
		assert.Empty(t, issuesOf(res, TypeUnreachableState, "side_entry"))
	})

	t.Run("Missing transitions skip terminal states", func(t *testing.T) {
		assert.Empty(t, issuesOf(res, TypeMissingTransitions, "archived_booking"))
		assert.Empty(t, issuesOf(res, TypeMissingTransitions, "done_ish"))
		assert.Empty(t, issuesOf(res, TypeMissingTransitions, "working"))
	})
}

type aliasRegistry map[string]string

func (r aliasRegistry) Resolve(raw string) (string, bool) {
	id, ok := r[raw]
	return id, ok
}

func TestIsolatedState_UsesRegistry(t *testing.T) {
	m := manifestOf(state("target"), state("source", tr("GO", "TargetAlias")))

	withAlias, err := NewAnalyzer().Analyze(m, aliasRegistry{"TargetAlias": "target"})
	require.NoError(t, err)
	assert.Empty(t, issuesOf(withAlias, TypeIsolatedState, "target"))

	without, err := NewAnalyzer().Analyze(m, aliasRegistry{})
	require.NoError(t, err)
	assert.Len(t, issuesOf(without, TypeIsolatedState, "target"), 1)
}

func TestMissingTransitions(t *testing.T) {
	res := analyze(t, manifestOf(state("waiting")), Options{})
	issues := issuesOf(res, TypeMissingTransitions, "waiting")
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
}

func TestUICoverage(t *testing.T) {
	none := state("none", tr("GO", "full"))
	empty := state("empty", tr("GO", "full"))
	empty.UIValidation = &extractor.UIValidation{Platforms: []extractor.PlatformUI{{Name: "web"}}}
	partial := state("partial", tr("GO", "full"))
	partial.UIValidation = &extractor.UIValidation{Platforms: []extractor.PlatformUI{
		{Name: "web", Screens: []extractor.Screen{
			{Name: "home", Visible: []string{"title"}, Keys: []string{"visible"}},
			{Name: "profile", Description: "inherits", Keys: []string{"description"}},
		}},
	}}
	full := state("full", tr("GO", "none"))
	full.UIValidation = &extractor.UIValidation{Platforms: []extractor.PlatformUI{
		{Name: "web", Screens: []extractor.Screen{{Name: "a", IsArray: true}}},
		{Name: "dancer", Screens: []extractor.Screen{{Name: "b", IsArray: true}}},
	}}
	m := manifestOf(none, empty, partial, full)

	res := analyze(t, m, Options{})

	t.Run("Missing", func(t *testing.T) {
		issues := issuesOf(res, TypeMissingUICoverage, "none")
		require.Len(t, issues, 1)
		assert.Equal(t, SeverityWarning, issues[0].Severity)
	})

	t.Run("Empty", func(t *testing.T) {
		issues := issuesOf(res, TypeEmptyUICoverage, "empty")
		require.Len(t, issues, 1)
		assert.Equal(t, SeverityInfo, issues[0].Severity)
	})

	t.Run("Partial against observed platforms", func(t *testing.T) {
		issues := issuesOf(res, TypePartialUICoverage, "partial")
		require.Len(t, issues, 1)
		assert.Equal(t, []string{"dancer"}, issues[0].AffectedFields)
		assert.Empty(t, issuesOf(res, TypePartialUICoverage, "full"))
	})

	t.Run("Configured platforms", func(t *testing.T) {
		res := analyze(t, m, Options{ExpectedPlatforms: []string{"web", "dancer", "club"}})
		issues := issuesOf(res, TypePartialUICoverage, "full")
		require.Len(t, issues, 1)
		assert.Equal(t, []string{"club"}, issues[0].AffectedFields)
	})

	t.Run("Empty inheritance", func(t *testing.T) {
		issues := issuesOf(res, TypeEmptyInheritance, "partial")
		require.Len(t, issues, 1)
		assert.Equal(t, SeverityInfo, issues[0].Severity)
		assert.Equal(t, []string{"web.profile"}, issues[0].AffectedFields)
	})
}

func TestAnalyze_Summary(t *testing.T) {
	m := manifestOf(state("A"), state("B", tr("GO", "C")))
	res := analyze(t, m, Options{})

	s := res.Summary
	assert.Equal(t, len(res.Issues), s.Total)
	assert.Equal(t, s.Total, s.Errors+s.Warnings+s.Info)
	assert.Equal(t, 2, s.Errors)
	assert.Equal(t, 1, s.ByType[TypeBrokenTransition])
	assert.Equal(t, 1, s.ByType[TypeIsolatedState])

	total := 0
	for _, n := range s.ByState {
		total += n
	}
	assert.Equal(t, s.Total, total)
}

func TestAnalyze_Deterministic(t *testing.T) {
	m := manifestOf(state("A"), state("B", tr("GO", "C")), state("C_like", tr("X", "A")))
	first := analyze(t, m, Options{})
	second := analyze(t, m, Options{})
	assert.Equal(t, first.Issues, second.Issues)
}

func TestAnalyze_RequiresRegistry(t *testing.T) {
	_, err := NewAnalyzer().Analyze(manifestOf(state("A")), nil)
	assert.ErrorIs(t, err, ErrNoRegistry)
}

func TestAnalyze_ToleratesMissingRecords(t *testing.T) {
	m := &crawler.Manifest{Files: []crawler.Entry{{Path: "x.js"}, {Path: "y.js", Record: &extractor.Record{}}}}
	assert.NotPanics(t, func() {
		res := analyze(t, m, Options{})
		assert.Empty(t, res.Issues)
	})
}

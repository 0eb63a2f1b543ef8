package analysis

import (
	"fmt"
	"strings"

	"implindex/internal/graph"
)

// Rule inspects one state at a time. Rules never fail: data they cannot
// interpret is treated as absent.
type Rule interface {
	Name() string
	AppliesTo(state *graph.Node) bool
	Analyze(state *graph.Node, ctx *Context) []Issue
}

// DefaultRules returns the fixed rule pipeline in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		BrokenTransitionRule{},
		IsolatedStateRule{},
		MissingTransitionsRule{},
		MissingUICoverageRule{},
		EmptyInheritanceRule{},
	}
}

// BrokenTransitionRule flags transitions whose target is not a defined state.
type BrokenTransitionRule struct{}

func (BrokenTransitionRule) Name() string { return "broken-transition" }

func (BrokenTransitionRule) AppliesTo(state *graph.Node) bool {
	return state.Record != nil
}

func (BrokenTransitionRule) Analyze(state *graph.Node, ctx *Context) []Issue {
	var issues []Issue
	for _, e := range ctx.Graph.Outgoing(state.ID) {
		if ctx.Graph.Has(e.Target) {
			continue
		}
		suggestions := []Suggestion{}
		for _, c := range closestNames(e.Target, ctx.Graph.StateIDs()) {
			suggestions = append(suggestions, Suggestion{
				Action:      "replace_target",
				Text:        fmt.Sprintf("Change target of %s to %q (%.0f%% similar)", e.Event, c.name, c.score*100),
				AutoFixable: true,
				Data: map[string]any{
					"event":      e.Event,
					"from":       e.Target,
					"to":         c.name,
					"similarity": c.score,
				},
			})
		}
		issues = append(issues, Issue{
			Severity:       SeverityError,
			Type:           TypeBrokenTransition,
			StateName:      state.ID,
			Title:          "Broken transition",
			Message:        fmt.Sprintf("Transition %s points to %q, which is not a defined state", e.Event, e.Target),
			Suggestions:    suggestions,
			AffectedFields: []string{"on." + e.Event},
			Location:       state.Filepath,
		})
	}
	return issues
}

// IsolatedStateRule flags states nothing transitions into.
type IsolatedStateRule struct{}

func (IsolatedStateRule) Name() string { return "isolated-state" }

func (IsolatedStateRule) AppliesTo(*graph.Node) bool { return true }

func (IsolatedStateRule) Analyze(state *graph.Node, ctx *Context) []Issue {
	if ctx.IncomingCount(state.ID) > 0 {
		return nil
	}
	outgoing := len(ctx.Graph.Outgoing(state.ID))

	if outgoing == 0 {
		severity := SeverityError
		message := fmt.Sprintf("State %q has no incoming and no outgoing transitions", state.ID)
		if ctx.IsTerminal(state) {
			severity = SeverityWarning
			message = fmt.Sprintf("Terminal state %q is never reached by any transition", state.ID)
		}
		return []Issue{{
			Severity:  severity,
			Type:      TypeIsolatedState,
			StateName: state.ID,
			Title:     "State is completely isolated",
			Message:   message,
			Suggestions: []Suggestion{
				{Action: "add_incoming_transition", Text: "Add a transition from another state that targets this one"},
				{Action: "remove_state", Text: "Remove the state if it is no longer used"},
			},
			Location: state.Filepath,
		}}
	}

	if ctx.IsInitial(state) {
		return nil
	}
	return []Issue{{
		Severity:  SeverityWarning,
		Type:      TypeUnreachableState,
		StateName: state.ID,
		Title:     "State is unreachable",
		Message:   fmt.Sprintf("State %q has %d outgoing transitions but no state transitions into it", state.ID, outgoing),
		Suggestions: []Suggestion{
			{Action: "add_incoming_transition", Text: "Add a transition from another state that targets this one"},
			{Action: "mark_initial", Text: "Flag the state as initial if it is an entry point", AutoFixable: true,
				Data: map[string]any{"field": "meta.initial", "value": true}},
		},
		Location: state.Filepath,
	}}
}

// MissingTransitionsRule flags non-terminal dead ends.
type MissingTransitionsRule struct{}

func (MissingTransitionsRule) Name() string { return "missing-transitions" }

func (MissingTransitionsRule) AppliesTo(*graph.Node) bool { return true }

func (MissingTransitionsRule) Analyze(state *graph.Node, ctx *Context) []Issue {
	if ctx.IsTerminal(state) || len(ctx.Graph.Outgoing(state.ID)) > 0 {
		return nil
	}
	return []Issue{{
		Severity:  SeverityWarning,
		Type:      TypeMissingTransitions,
		StateName: state.ID,
		Title:     "No outgoing transitions",
		Message:   fmt.Sprintf("State %q is not terminal but declares no transitions", state.ID),
		Suggestions: []Suggestion{
			{Action: "add_transition", Text: "Declare the events that leave this state under `on`"},
			{Action: "mark_terminal", Text: "Flag the state as terminal if it is final", AutoFixable: true,
				Data: map[string]any{"field": "meta.terminal", "value": true}},
		},
		AffectedFields: []string{"on"},
		Location:       state.Filepath,
	}}
}

// MissingUICoverageRule flags states whose UI tree is absent, empty or
// misses expected platforms.
type MissingUICoverageRule struct{}

func (MissingUICoverageRule) Name() string { return "missing-ui-coverage" }

func (MissingUICoverageRule) AppliesTo(state *graph.Node) bool {
	return state.Record != nil && state.Record.HasMachine
}

func (MissingUICoverageRule) Analyze(state *graph.Node, ctx *Context) []Issue {
	ui := state.Record.UIValidation
	switch {
	case ui == nil:
		return []Issue{{
			Severity:       SeverityWarning,
			Type:           TypeMissingUICoverage,
			StateName:      state.ID,
			Title:          "No UI validation",
			Message:        fmt.Sprintf("State %q declares no mirrorsOn UI checks", state.ID),
			Suggestions:    []Suggestion{{Action: "add_ui_validation", Text: "Describe the screens that must hold in this state"}},
			AffectedFields: []string{"mirrorsOn"},
			Location:       state.Filepath,
		}}
	case ui.Empty():
		return []Issue{{
			Severity:       SeverityInfo,
			Type:           TypeEmptyUICoverage,
			StateName:      state.ID,
			Title:          "Empty UI validation",
			Message:        fmt.Sprintf("State %q has a mirrorsOn tree without any screens", state.ID),
			Suggestions:    []Suggestion{{Action: "add_ui_validation", Text: "Add at least one screen"}},
			AffectedFields: []string{"mirrorsOn"},
			Location:       state.Filepath,
		}}
	}

	declared := make(map[string]bool)
	for _, p := range ui.Platforms {
		if len(p.Screens) > 0 {
			declared[p.Name] = true
		}
	}
	var missing []string
	for _, p := range ctx.ExpectedPlatforms {
		if !declared[p] {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []Issue{{
		Severity:  SeverityInfo,
		Type:      TypePartialUICoverage,
		StateName: state.ID,
		Title:     "Partial UI coverage",
		Message:   fmt.Sprintf("State %q has no UI checks for: %s", state.ID, strings.Join(missing, ", ")),
		Suggestions: []Suggestion{{
			Action: "add_platform_coverage",
			Text:   "Add mirrorsOn entries for the missing platforms",
			Data:   map[string]any{"platforms": missing},
		}},
		AffectedFields: missing,
		Location:       state.Filepath,
	}}
}

// EmptyInheritanceRule flags screens that only carry a description.
type EmptyInheritanceRule struct{}

func (EmptyInheritanceRule) Name() string { return "empty-inheritance" }

func (EmptyInheritanceRule) AppliesTo(state *graph.Node) bool {
	return state.Record != nil && state.Record.UIValidation != nil
}

func (EmptyInheritanceRule) Analyze(state *graph.Node, _ *Context) []Issue {
	var issues []Issue
	for _, p := range state.Record.UIValidation.Platforms {
		for _, s := range p.Screens {
			if !s.DescriptionOnly() {
				continue
			}
			path := p.Name + "." + s.Name
			issues = append(issues, Issue{
				Severity:  SeverityInfo,
				Type:      TypeEmptyInheritance,
				StateName: state.ID,
				Title:     "Minimal override",
				Message:   fmt.Sprintf("Screen %s only sets a description and inherits every check", path),
				Suggestions: []Suggestion{
					{Action: "add_checks", Text: "List visible or hidden elements for this screen"},
				},
				AffectedFields: []string{path},
				Location:       state.Filepath,
			})
		}
	}
	return issues
}

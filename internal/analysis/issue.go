package analysis

// Severity ranks an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// IssueType is the kind of structural defect an Issue reports.
type IssueType string

const (
	TypeBrokenTransition   IssueType = "broken_transition"
	TypeIsolatedState      IssueType = "isolated_state"
	TypeUnreachableState   IssueType = "unreachable_state"
	TypeMissingTransitions IssueType = "missing_transitions"
	TypeMissingUICoverage  IssueType = "missing_ui_coverage"
	TypeEmptyUICoverage    IssueType = "empty_ui_coverage"
	TypePartialUICoverage  IssueType = "partial_ui_coverage"
	TypeEmptyInheritance   IssueType = "empty_inheritance"
)

// Suggestion is a proposed fix for an Issue.
type Suggestion struct {
	Action      string         `json:"action"`
	Text        string         `json:"text"`
	AutoFixable bool           `json:"autoFixable"`
	Data        map[string]any `json:"data,omitempty"`
}

// Issue is one finding of one rule for one state.
type Issue struct {
	Severity       Severity     `json:"severity"`
	Type           IssueType    `json:"type"`
	StateName      string       `json:"stateName"`
	Title          string       `json:"title"`
	Message        string       `json:"message"`
	Suggestions    []Suggestion `json:"suggestions"`
	AffectedFields []string     `json:"affectedFields,omitempty"`
	Location       string       `json:"location,omitempty"`
}

// Summary aggregates the issues of one run.
type Summary struct {
	Total    int               `json:"total"`
	Errors   int               `json:"errors"`
	Warnings int               `json:"warnings"`
	Info     int               `json:"info"`
	ByType   map[IssueType]int `json:"byType"`
	ByState  map[string]int    `json:"byState"`
}

// Result is the output of one analysis run.
type Result struct {
	Issues  []Issue `json:"issues"`
	Summary Summary `json:"summary"`
}

// Summarize counts issues by severity, type and state.
func Summarize(issues []Issue) Summary {
	s := Summary{
		Total:   len(issues),
		ByType:  make(map[IssueType]int),
		ByState: make(map[string]int),
	}
	for _, is := range issues {
		switch is.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		case SeverityInfo:
			s.Info++
		}
		s.ByType[is.Type]++
		s.ByState[is.StateName]++
	}
	return s
}

package search

import (
	"path"
	"sort"
	"strings"

	"implindex/internal/index"
)

// DefaultSuggestLimit caps Suggest when no limit is given.
const DefaultSuggestLimit = 10

// FindByTicket returns the validations whose label mentions ticket. The
// lookup ignores case.
func FindByTicket(idx *index.Index, ticket string) []*index.ValidationDocument {
	if idx == nil {
		return nil
	}
	return idx.ByTicket[strings.ToUpper(strings.TrimSpace(ticket))]
}

// FindByEvent returns transitions fired by event. An exact match wins;
// otherwise events are compared ignoring case.
func FindByEvent(idx *index.Index, event string) []*index.TransitionDocument {
	if idx == nil {
		return nil
	}
	event = strings.TrimSpace(event)
	if docs, ok := idx.ByEvent[event]; ok {
		return docs
	}
	var out []*index.TransitionDocument
	for _, t := range idx.Transitions {
		if strings.EqualFold(t.Event, event) {
			out = append(out, t)
		}
	}
	return out
}

// FindByCondition returns conditions whose field matches pattern. pattern
// may be a full dotted path, a last segment, a glob such as "booking.*" or
// any substring of the field. Matching ignores case.
func FindByCondition(idx *index.Index, pattern string) []*index.ConditionDocument {
	if idx == nil {
		return nil
	}
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}
	if docs, ok := idx.ByField[pattern]; ok {
		return docs
	}

	lower := strings.ToLower(pattern)
	glob := strings.ContainsAny(pattern, "*?[")
	var out []*index.ConditionDocument
	for _, c := range idx.Conditions {
		field := strings.ToLower(c.Field)
		var hit bool
		if glob {
			hit, _ = path.Match(lower, field)
		} else {
			hit = strings.Contains(field, lower)
		}
		if hit {
			out = append(out, c)
		}
	}
	return out
}

// StateDetails gathers everything indexed about one state.
type StateDetails struct {
	State       *index.StateDocument        `json:"state"`
	Outgoing    []*index.TransitionDocument `json:"outgoing"`
	Incoming    []*index.TransitionDocument `json:"incoming"`
	Validations []*index.ValidationDocument `json:"validations"`
	Conditions  []*index.ConditionDocument  `json:"conditions"`
}

// GetStateDetails returns the details of state, or false when the state
// is not indexed.
func GetStateDetails(idx *index.Index, state string) (*StateDetails, bool) {
	if idx == nil {
		return nil, false
	}
	s, ok := idx.ByState[state]
	if !ok {
		return nil, false
	}
	d := &StateDetails{
		State:    s,
		Outgoing: idx.Outgoing(state),
		Incoming: idx.Incoming(state),
	}
	for _, v := range idx.Validations {
		if v.State == state {
			d.Validations = append(d.Validations, v)
		}
	}
	for _, c := range idx.Conditions {
		if c.State == state {
			d.Conditions = append(d.Conditions, c)
		}
	}
	return d, true
}

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	Term      string `json:"term"`
	Documents int    `json:"documents"`
}

// Suggest completes prefix from the index vocabulary, most frequent terms
// first.
func Suggest(idx *index.Index, prefix string, limit int) []Suggestion {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if idx == nil || prefix == "" {
		return []Suggestion{}
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	terms := idx.SortedTerms()
	out := []Suggestion{}
	for i := sort.SearchStrings(terms, prefix); i < len(terms) && strings.HasPrefix(terms[i], prefix); i++ {
		out = append(out, Suggestion{Term: terms[i], Documents: idx.DocFreq(terms[i])})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Documents != out[j].Documents {
			return out[i].Documents > out[j].Documents
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

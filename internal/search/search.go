package search

import (
	"regexp"
	"sort"
	"strings"

	"implindex/internal/index"
)

const (
	DefaultLimit    = 20
	DefaultMinScore = 3.0
	TicketScore     = 100.0

	// NoMinScore disables the score threshold.
	NoMinScore = -1.0
)

// Scoring weights.
const (
	weightText         = 10.0
	weightWordBoundary = 5.0
	weightID           = 12.0
	weightLabel        = 8.0
	weightDescription  = 6.0
	weightField        = 15.0

	phraseBonus     = 1.5
	validationPrior = 1.1
	conditionPrior  = 1.2
)

var ticketQueryRe = regexp.MustCompile(`^[A-Za-z]+-\d+$`)

// Options controls a search.
type Options struct {
	// Types restricts results to the given document types. Empty means all.
	Types []index.DocType
	// Limit caps the number of results. Zero means DefaultLimit.
	Limit int
	// MinScore drops weaker results. Zero means DefaultMinScore; any
	// negative value, such as NoMinScore, keeps every candidate.
	MinScore float64
}

// Result is one scored document.
type Result struct {
	ID       string         `json:"id"`
	Type     index.DocType  `json:"type"`
	Score    float64        `json:"score"`
	Document index.Document `json:"document"`
}

// Search runs a full-text query against idx. A query naming an indexed
// ticket returns that ticket's validations at TicketScore and skips
// scoring entirely. Empty or too short queries return no results.
func Search(idx *index.Index, query string, opts Options) []Result {
	query = strings.TrimSpace(query)
	if idx == nil || query == "" {
		return []Result{}
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	switch {
	case opts.MinScore == 0:
		opts.MinScore = DefaultMinScore
	case opts.MinScore < 0:
		opts.MinScore = 0
	}

	if ticketQueryRe.MatchString(query) {
		if docs := FindByTicket(idx, query); len(docs) > 0 {
			out := make([]Result, 0, len(docs))
			for _, d := range docs {
				out = append(out, Result{ID: d.ID, Type: d.Type, Score: TicketScore, Document: d})
			}
			return out
		}
	}

	tokens := index.Tokenize(query)
	if len(tokens) == 0 {
		return []Result{}
	}

	allowed := make(map[index.DocType]bool)
	for _, t := range opts.Types {
		allowed[t] = true
	}

	sc := newScorer(query, tokens)
	var out []Result
	for _, id := range candidates(idx, tokens) {
		doc := idx.ByID[id]
		if doc == nil || (len(allowed) > 0 && !allowed[doc.Kind()]) {
			continue
		}
		score := sc.score(doc)
		if score < opts.MinScore {
			continue
		}
		out = append(out, Result{ID: id, Type: doc.Kind(), Score: score, Document: doc})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	if out == nil {
		out = []Result{}
	}
	return out
}

// candidates unions exact postings with postings of terms that share a
// prefix relation with a query token.
// TODO: replace the linear prefix pass with a trie once corpora grow past
// a few thousand terms.
func candidates(idx *index.Index, tokens []string) []string {
	set := make(map[string]struct{})
	for _, tok := range tokens {
		for _, id := range idx.Postings(tok) {
			set[id] = struct{}{}
		}
		for _, term := range idx.SortedTerms() {
			if term == tok {
				continue
			}
			if strings.HasPrefix(term, tok) || strings.HasPrefix(tok, term) {
				for _, id := range idx.Postings(term) {
					set[id] = struct{}{}
				}
			}
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type scorer struct {
	phrase string
	tokens []string
	bounds []*regexp.Regexp
}

func newScorer(query string, tokens []string) *scorer {
	s := &scorer{phrase: strings.ToLower(query), tokens: tokens}
	for _, tok := range tokens {
		s.bounds = append(s.bounds, regexp.MustCompile(`\b`+regexp.QuoteMeta(tok)+`\b`))
	}
	return s
}

func (s *scorer) score(doc index.Document) float64 {
	text := strings.ToLower(doc.SearchText())
	id := strings.ToLower(doc.DocID())
	label := strings.ToLower(doc.DocLabel())
	desc := strings.ToLower(doc.DocDescription())
	field := strings.ToLower(doc.DocField())

	var score float64
	for i, tok := range s.tokens {
		if strings.Contains(text, tok) {
			score += weightText
			if s.bounds[i].MatchString(text) {
				score += weightWordBoundary
			}
		}
		if strings.Contains(id, tok) {
			score += weightID
		}
		if label != "" && strings.Contains(label, tok) {
			score += weightLabel
		}
		if desc != "" && strings.Contains(desc, tok) {
			score += weightDescription
		}
		if field != "" && strings.Contains(field, tok) {
			score += weightField
		}
	}

	if strings.Contains(text, s.phrase) {
		score *= phraseBonus
	}
	switch doc.Kind() {
	case index.TypeValidation:
		score *= validationPrior
	case index.TypeCondition:
		score *= conditionPrior
	}
	return score
}

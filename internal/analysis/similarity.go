package analysis

import (
	"sort"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	minSimilarity  = 0.5
	maxSuggestions = 3
)

// similarity is (longer - distance) / longer, in [0, 1].
func similarity(a, b string) float64 {
	longer := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longer {
		longer = n
	}
	if longer == 0 {
		return 1
	}
	return float64(longer-levenshtein.ComputeDistance(a, b)) / float64(longer)
}

type scoredName struct {
	name  string
	score float64
}

// closestNames returns up to maxSuggestions candidates scoring at least
// minSimilarity against target, best first.
func closestNames(target string, candidates []string) []scoredName {
	var out []scoredName
	for _, c := range candidates {
		if s := similarity(target, c); s >= minSimilarity {
			out = append(out, scoredName{name: c, score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].name < out[j].name
	})
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

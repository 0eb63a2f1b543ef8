package index

import (
	"strings"
	"unicode"
)

// MinTokenLen is the shortest token kept by Tokenize.
const MinTokenLen = 2

var separatorReplacer = strings.NewReplacer("_", " ", "-", " ", ".", " ")

// Tokenize lowercases text, treats '_', '-' and '.' as spaces, strips every
// other non-alphanumeric rune and returns the whitespace separated tokens
// of at least MinTokenLen runes. Query and index text go through the same
// function.
func Tokenize(text string) []string {
	text = separatorReplacer.Replace(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= MinTokenLen {
			out = append(out, f)
		}
	}
	return out
}

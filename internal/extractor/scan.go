package extractor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnbalanced is returned when a literal's delimiters never close.
var ErrUnbalanced = errors.New("unbalanced delimiters")

// ScanBalanced returns the exact substring of the literal that opens at
// src[start]. Quoted, back-quoted and comment spans are opaque, so
// delimiters inside them do not count. The input does not need to be
// valid code.
func ScanBalanced(src string, start int) (string, error) {
	end, err := balancedEnd(src, start)
	if err != nil {
		return "", err
	}
	return src[start:end], nil
}

// balancedEnd returns the offset just past the delimiter closing the one
// at src[start].
func balancedEnd(src string, start int) (int, error) {
	if start < 0 || start >= len(src) || !isOpener(src[start]) {
		return 0, fmt.Errorf("%w: no opening delimiter at offset %d", ErrUnbalanced, start)
	}

	depth := 0
	for i := start; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '"' || c == '\'' || c == '`':
			next, ok := skipString(src, i)
			if !ok {
				return 0, fmt.Errorf("%w: unterminated string at offset %d", ErrUnbalanced, i)
			}
			i = next - 1
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := indexFrom(src, "*/", i+2)
			if end < 0 {
				return 0, fmt.Errorf("%w: unterminated comment at offset %d", ErrUnbalanced, i)
			}
			i = end + 1
		case isOpener(c):
			depth++
		case c == '}' || c == ']' || c == ')':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: literal at offset %d never closes", ErrUnbalanced, start)
}

// skipString returns the offset just past the string opening at src[i].
func skipString(src string, i int) (int, bool) {
	quote := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case quote:
			return j + 1, true
		case '\n':
			if quote != '`' {
				return 0, false
			}
		}
	}
	return 0, false
}

func isOpener(c byte) bool {
	return c == '{' || c == '[' || c == '('
}

func indexFrom(s, sub string, from int) int {
	if from > len(s) {
		return -1
	}
	k := strings.Index(s[from:], sub)
	if k < 0 {
		return -1
	}
	return from + k
}

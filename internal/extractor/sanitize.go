package extractor

import "strings"

// neutral replaces constructs that only have meaning at runtime.
const neutral = "null"

// Sanitize rewrites runtime-only constructs so that the remaining text can
// be read as plain data. Inline functions, method shorthand and calls
// (require(...), assign(...), Date.now(), new X()) become null. Dotted
// references such as STATUS.PENDING become the quoted path, spread
// entries are dropped, and template interpolations are removed. Bare
// identifiers are left untouched and surface later as a parse error.
func Sanitize(lit string) string {
	var sb strings.Builder
	sb.Grow(len(lit))

	for i := 0; i < len(lit); {
		c := lit[i]
		switch {
		case c == '"' || c == '\'':
			end, ok := skipString(lit, i)
			if !ok {
				sb.WriteString(lit[i:])
				return sb.String()
			}
			sb.WriteString(lit[i:end])
			i = end

		case c == '`':
			end, ok := skipString(lit, i)
			if !ok {
				sb.WriteString(lit[i:])
				return sb.String()
			}
			sb.WriteString(stripInterpolation(lit[i:end]))
			i = end

		case c == '/' && i+1 < len(lit) && (lit[i+1] == '/' || lit[i+1] == '*'):
			end := commentEnd(lit, i)
			sb.WriteString(lit[i:end])
			i = end

		case c == '(':
			if end, ok := arrowFrom(lit, i); ok {
				sb.WriteString(neutral)
				i = end
				continue
			}
			sb.WriteByte(c)
			i++

		case c == '.' && strings.HasPrefix(lit[i:], "..."):
			end := expressionEnd(lit, i+3)
			if end < len(lit) && lit[end] == ',' {
				end++
			}
			i = end

		case isIdentStart(c) && (i == 0 || !isIdentPart(lit[i-1]) && lit[i-1] != '.'):
			j := identEnd(lit, i)
			if end, ok := runtimeConstruct(lit, i, lit[i:j], j); ok {
				sb.WriteString(neutral)
				i = end
				continue
			}
			path := pathEnd(lit, j)
			next := skipSpace(lit, path)
			if next < len(lit) && lit[next] == '(' {
				if end, ok := callFrom(lit, next); ok {
					if path == j && isKeyPosition(lit, i) {
						// Method shorthand keeps its key.
						if body, ok := methodBody(lit, end); ok {
							sb.WriteString(lit[i:j] + ": " + neutral)
							i = body
							continue
						}
					}
					sb.WriteString(neutral)
					i = end
					continue
				}
			}
			if path > j && (next >= len(lit) || lit[next] != ':') {
				sb.WriteString(`"` + lit[i:path] + `"`)
				i = path
				continue
			}
			sb.WriteString(lit[i:j])
			i = j

		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}

// runtimeConstruct recognises constructs that start with the identifier
// word at [start, wordEnd) and returns the offset just past them.
func runtimeConstruct(lit string, start int, word string, wordEnd int) (int, bool) {
	next := skipSpace(lit, wordEnd)
	switch word {
	case "require":
		if next < len(lit) && lit[next] == '(' {
			if end, err := balancedEnd(lit, next); err == nil {
				return end, true
			}
		}
	case "function":
		return functionFrom(lit, next)
	case "new":
		if next < len(lit) && isIdentStart(lit[next]) {
			ctor := skipSpace(lit, pathEnd(lit, identEnd(lit, next)))
			if ctor < len(lit) && lit[ctor] == '(' {
				return callFrom(lit, ctor)
			}
			return ctor, true
		}
	case "async":
		if strings.HasPrefix(lit[next:], "function") {
			return functionFrom(lit, skipSpace(lit, next+len("function")))
		}
		if next < len(lit) && lit[next] == '(' {
			return arrowFrom(lit, next)
		}
		if next < len(lit) && isIdentStart(lit[next]) {
			return arrowBody(lit, skipSpace(lit, identEnd(lit, next)))
		}
	}
	// Single-parameter arrow: `x => ...`.
	return arrowBody(lit, next)
}

// callFrom consumes the argument list opening at lit[i] == '('.
func callFrom(lit string, i int) (int, bool) {
	end, err := balancedEnd(lit, i)
	if err != nil {
		return 0, false
	}
	return end, true
}

// methodBody expects the `{ ... }` body of a method right after its
// parameter list.
func methodBody(lit string, i int) (int, bool) {
	i = skipSpace(lit, i)
	if i >= len(lit) || lit[i] != '{' {
		return 0, false
	}
	end, err := balancedEnd(lit, i)
	if err != nil {
		return 0, false
	}
	return end, true
}

// isKeyPosition reports whether the identifier at i opens an object entry.
func isKeyPosition(lit string, i int) bool {
	for i--; i >= 0; i-- {
		switch lit[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', ',':
			return true
		}
		return false
	}
	return false
}

// functionFrom consumes an optional name, a parameter list and a body.
func functionFrom(lit string, i int) (int, bool) {
	for i < len(lit) && isIdentPart(lit[i]) {
		i++
	}
	i = skipSpace(lit, i)
	if i >= len(lit) || lit[i] != '(' {
		return 0, false
	}
	params, err := balancedEnd(lit, i)
	if err != nil {
		return 0, false
	}
	body := skipSpace(lit, params)
	if body >= len(lit) || lit[body] != '{' {
		return 0, false
	}
	end, err := balancedEnd(lit, body)
	if err != nil {
		return 0, false
	}
	return end, true
}

// arrowFrom treats lit[i] == '(' as the parameter list of an arrow
// function if `=>` follows it.
func arrowFrom(lit string, i int) (int, bool) {
	params, err := balancedEnd(lit, i)
	if err != nil {
		return 0, false
	}
	return arrowBody(lit, skipSpace(lit, params))
}

// arrowBody expects `=>` at lit[i] and consumes the body that follows.
func arrowBody(lit string, i int) (int, bool) {
	if !strings.HasPrefix(lit[i:], "=>") {
		return 0, false
	}
	i = skipSpace(lit, i+2)
	if i < len(lit) && lit[i] == '{' {
		end, err := balancedEnd(lit, i)
		if err != nil {
			return 0, false
		}
		return end, true
	}
	return expressionEnd(lit, i), true
}

// expressionEnd returns the offset of the first top-level `,` or closing
// delimiter at or after i.
func expressionEnd(lit string, i int) int {
	for i < len(lit) {
		c := lit[i]
		switch {
		case c == '"' || c == '\'' || c == '`':
			end, ok := skipString(lit, i)
			if !ok {
				return len(lit)
			}
			i = end
		case isOpener(c):
			end, err := balancedEnd(lit, i)
			if err != nil {
				return len(lit)
			}
			i = end
		case c == ',' || c == '}' || c == ']' || c == ')':
			return i
		default:
			i++
		}
	}
	return i
}

// stripInterpolation removes ${...} segments from a back-quoted string.
func stripInterpolation(tpl string) string {
	if !strings.Contains(tpl, "${") {
		return tpl
	}
	var sb strings.Builder
	for i := 0; i < len(tpl); i++ {
		if tpl[i] == '\\' && i+1 < len(tpl) {
			sb.WriteByte(tpl[i])
			sb.WriteByte(tpl[i+1])
			i++
			continue
		}
		if tpl[i] == '$' && i+1 < len(tpl) && tpl[i+1] == '{' {
			end, err := balancedEnd(tpl, i+1)
			if err == nil {
				i = end - 1
				continue
			}
		}
		sb.WriteByte(tpl[i])
	}
	return sb.String()
}

func commentEnd(lit string, i int) int {
	if lit[i+1] == '/' {
		nl := strings.IndexByte(lit[i:], '\n')
		if nl < 0 {
			return len(lit)
		}
		return i + nl
	}
	end := indexFrom(lit, "*/", i+2)
	if end < 0 {
		return len(lit)
	}
	return end + 2
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func identEnd(s string, i int) int {
	for i < len(s) && isIdentPart(s[i]) {
		i++
	}
	return i
}

// pathEnd extends an identifier ending at i over `.name` segments.
func pathEnd(s string, i int) int {
	for i+1 < len(s) && s[i] == '.' && isIdentStart(s[i+1]) {
		i = identEnd(s, i+1)
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

package extractor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrSyntax is returned by ParseLiteral for text that is not plain data.
var ErrSyntax = errors.New("literal syntax error")

const maxLiteralDepth = 256

// Object is a parsed object literal that remembers key order.
type Object struct {
	Keys   []string
	values map[string]any
}

func newObject() *Object {
	return &Object{values: make(map[string]any)}
}

func (o *Object) set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.values[key] = v
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// String returns the value under key if it is a string.
func (o *Object) String(key string) string {
	v, _ := o.Get(key)
	s, _ := v.(string)
	return s
}

// Object returns the value under key if it is an object.
func (o *Object) Object(key string) *Object {
	v, _ := o.Get(key)
	obj, _ := v.(*Object)
	return obj
}

// Bool returns the value under key if it is a boolean.
func (o *Object) Bool(key string) bool {
	v, _ := o.Get(key)
	b, _ := v.(bool)
	return b
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Keys)
}

// MarshalJSON encodes the object with its keys in source order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// ParseLiteral reads a JavaScript-style data literal: objects with quoted
// or bare keys, arrays, single, double or back-quoted strings, numbers,
// booleans, null and undefined. Comments and trailing commas are
// accepted. Nothing is ever executed; any expression that is not plain
// data is a syntax error.
//
// Objects decode to *Object, arrays to []any, numbers to float64.
func ParseLiteral(src string) (any, error) {
	p := &literalParser{src: src}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skip()
	if p.pos < len(p.src) && p.src[p.pos] == ';' {
		p.pos++
		p.skip()
	}
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing %q", p.peekToken())
	}
	return v, nil
}

type literalParser struct {
	src   string
	pos   int
	depth int
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) peekToken() string {
	end := p.pos + 12
	if end > len(p.src) {
		end = len(p.src)
	}
	return p.src[p.pos:end]
}

// skip advances over whitespace and comments.
func (p *literalParser) skip() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case c == '/' && p.pos+1 < len(p.src) && (p.src[p.pos+1] == '/' || p.src[p.pos+1] == '*'):
			p.pos = commentEnd(p.src, p.pos)
		default:
			return
		}
	}
}

func (p *literalParser) value() (any, error) {
	p.skip()
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}
	c := p.src[p.pos]
	switch {
	case c == '{':
		return p.object()
	case c == '[':
		return p.array()
	case c == '"' || c == '\'' || c == '`':
		return p.str()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	case isIdentStart(c):
		word := p.ident()
		switch word {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null", "undefined":
			return nil, nil
		case "NaN", "Infinity":
			f, _ := strconv.ParseFloat(word, 64)
			return f, nil
		}
		p.pos -= len(word)
		return nil, p.errorf("unsupported reference %q", word)
	}
	return nil, p.errorf("unexpected %q", p.peekToken())
}

func (p *literalParser) enter() error {
	p.depth++
	if p.depth > maxLiteralDepth {
		return p.errorf("nesting deeper than %d", maxLiteralDepth)
	}
	return nil
}

func (p *literalParser) object() (*Object, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	p.pos++ // {
	obj := newObject()
	for {
		p.skip()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated object")
		}
		if p.src[p.pos] == '}' {
			p.pos++
			return obj, nil
		}

		key, err := p.key()
		if err != nil {
			return nil, err
		}
		p.skip()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return nil, p.errorf("expected ':' after key %q", key)
		}
		p.pos++
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		obj.set(key, v)

		p.skip()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated object")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '}':
		default:
			return nil, p.errorf("expected ',' or '}'")
		}
	}
}

func (p *literalParser) key() (string, error) {
	c := p.src[p.pos]
	switch {
	case c == '"' || c == '\'' || c == '`':
		return p.str()
	case isIdentStart(c):
		return p.ident(), nil
	case c >= '0' && c <= '9':
		f, err := p.number()
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return "", p.errorf("invalid object key %q", p.peekToken())
}

func (p *literalParser) array() ([]any, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	p.pos++ // [
	out := []any{}
	for {
		p.skip()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated array")
		}
		if p.src[p.pos] == ']' {
			p.pos++
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)

		p.skip()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated array")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ']':
		default:
			return nil, p.errorf("expected ',' or ']'")
		}
	}
}

func (p *literalParser) ident() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *literalParser) number() (float64, error) {
	start := p.pos
	if c := p.src[p.pos]; c == '-' || c == '+' {
		p.pos++
		if strings.HasPrefix(p.src[p.pos:], "Infinity") {
			p.pos += len("Infinity")
			return strconv.ParseFloat(p.src[start:p.pos], 64)
		}
	}
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if isIdentPart(c) || c == '.' || ((c == '-' || c == '+') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E')) {
			p.pos++
			continue
		}
		break
	}
	tok := p.src[start:p.pos]
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f, nil
	}
	if n, err := strconv.ParseInt(tok, 0, 64); err == nil {
		return float64(n), nil
	}
	p.pos = start
	return 0, p.errorf("invalid number %q", tok)
}

func (p *literalParser) str() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return sb.String(), nil
		case c == '\\':
			if err := p.escape(&sb); err != nil {
				return "", err
			}
		case c == '\n' && quote != '`':
			return "", p.errorf("newline in string")
		case quote == '`' && c == '$' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '{':
			return "", p.errorf("template interpolation")
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *literalParser) escape(sb *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case '0':
		sb.WriteByte(0)
	case '\n':
		// line continuation
	case 'x':
		return p.hexRune(sb, 2)
	case 'u':
		if p.pos < len(p.src) && p.src[p.pos] == '{' {
			end := strings.IndexByte(p.src[p.pos:], '}')
			if end < 0 {
				return p.errorf("unterminated unicode escape")
			}
			n, err := strconv.ParseUint(p.src[p.pos+1:p.pos+end], 16, 32)
			if err != nil {
				return p.errorf("invalid unicode escape")
			}
			sb.WriteRune(rune(n))
			p.pos += end + 1
			return nil
		}
		return p.hexRune(sb, 4)
	default:
		sb.WriteByte(c)
	}
	return nil
}

func (p *literalParser) hexRune(sb *strings.Builder, digits int) error {
	if p.pos+digits > len(p.src) {
		return p.errorf("short hex escape")
	}
	n, err := strconv.ParseUint(p.src[p.pos:p.pos+digits], 16, 32)
	if err != nil {
		return p.errorf("invalid hex escape")
	}
	r := rune(n)
	if !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	sb.WriteRune(r)
	p.pos += digits
	return nil
}

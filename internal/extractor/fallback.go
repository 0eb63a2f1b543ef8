package extractor

import (
	"regexp"
	"strings"
)

// The fallback tier recovers only the fields the index and the analyzer
// consume. It never fails; it returns whatever it finds.

const quoteClass = "[\"'`]"

func fieldRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\w$.])` + name + `\s*:\s*` + quoteClass + "([^\"'`]*)" + quoteClass)
}

var (
	statusRe      = fieldRe("status")
	statusLabelRe = fieldRe("statusLabel")
	platformRe    = fieldRe("platform")
	entityRe      = fieldRe("entity")
	targetRe      = fieldRe("target")
	descriptionRe = fieldRe("description")
	labelRe       = fieldRe("label")
	blockIDRe     = fieldRe("blockId")
	idRe          = fieldRe("id")
	condFieldRe   = fieldRe("field")
	platformsRe   = regexp.MustCompile(`platforms\s*:\s*\[([^\]]*)\]`)
	requiredRe    = regexp.MustCompile(`requiredFields\s*:\s*\[([^\]]*)\]`)
	quotedRe      = regexp.MustCompile(quoteClass + "([^\"'`]+)" + quoteClass)
	operatorRe    = regexp.MustCompile(`(?:^|[^\w$])(equals|notEquals|contains|truthy|falsy)\s*:`)
	terminalRe    = regexp.MustCompile(`(?:^|[^\w$])(?:terminal\s*:\s*true|type\s*:\s*["']final["'])`)
	initialRe     = regexp.MustCompile(`(?:^|[^\w$])initial\s*:\s*true`)
)

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func quotedList(text string) []string {
	var out []string
	for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// fallbackMeta reads identity fields, preferring the `meta` block when one
// can be isolated.
func fallbackMeta(text string) Meta {
	scope := text
	if start, ok := locateByPattern(text, "meta"); ok {
		if lit, err := ScanBalanced(text, start); err == nil {
			scope = lit
		}
	}
	m := Meta{
		Status:      firstGroup(statusRe, scope),
		StatusLabel: firstGroup(statusLabelRe, scope),
		Platform:    firstGroup(platformRe, scope),
		Entity:      firstGroup(entityRe, scope),
		Terminal:    terminalRe.MatchString(text),
		Initial:     initialRe.MatchString(scope),
	}
	if sub := requiredRe.FindStringSubmatch(scope); sub != nil {
		m.RequiredFields = quotedList(sub[1])
	}
	return m
}

// fallbackTransitions reads event names and targets from the `on` block.
func fallbackTransitions(machine string) []Transition {
	start, ok := locateByPattern(machine, "on")
	if !ok {
		return nil
	}
	block, err := ScanBalanced(machine, start)
	if err != nil {
		return nil
	}

	var out []Transition
	for _, e := range topLevelEntries(block) {
		t := Transition{Event: e.key}
		v := strings.TrimSpace(e.value)
		if v != "" && strings.ContainsRune("\"'`", rune(v[0])) {
			t.Target = strings.Trim(v, "\"'`")
		} else {
			t.Target = firstGroup(targetRe, v)
			t.Description = firstGroup(descriptionRe, v)
			if sub := platformsRe.FindStringSubmatch(v); sub != nil {
				t.Platforms = quotedList(sub[1])
			}
		}
		t.Target = NormalizeTarget(t.Target)
		if t.Target != "" {
			out = append(out, t)
		}
	}
	return out
}

// fallbackUI reads platforms, screens, block ids, labels and condition
// fields from a mirrorsOn literal.
func fallbackUI(lit string) *UIValidation {
	tree := lit
	for _, e := range topLevelEntries(lit) {
		if e.key == "UI" && strings.HasPrefix(strings.TrimSpace(e.value), "{") {
			tree = strings.TrimSpace(e.value)
			break
		}
	}

	out := &UIValidation{Platforms: []PlatformUI{}}
	for _, pe := range topLevelEntries(tree) {
		pv := strings.TrimSpace(pe.value)
		if !strings.HasPrefix(pv, "{") {
			continue
		}
		p := PlatformUI{Name: pe.key}
		for _, se := range topLevelEntries(pv) {
			sv := strings.TrimSpace(se.value)
			switch {
			case strings.HasPrefix(sv, "["):
				s := Screen{Name: se.key, IsArray: true}
				for _, el := range topLevelElements(sv) {
					if strings.HasPrefix(strings.TrimSpace(el), "{") {
						s.Blocks = append(s.Blocks, fallbackBlock(el))
					}
				}
				p.Screens = append(p.Screens, s)
			case strings.HasPrefix(sv, "{"):
				p.Screens = append(p.Screens, fallbackScreen(se.key, sv))
			}
		}
		out.Platforms = append(out.Platforms, p)
	}
	return out
}

func fallbackScreen(name, lit string) Screen {
	s := Screen{Name: name}
	for _, e := range topLevelEntries(lit) {
		v := strings.TrimSpace(e.value)
		if v == "" || v == "[]" || v == "{}" || v == `""` || v == "''" || v == "null" || v == "undefined" {
			continue
		}
		s.Keys = append(s.Keys, e.key)
		switch e.key {
		case "description":
			s.Description = strings.Trim(v, "\"'`")
		case "label":
			s.Label = strings.Trim(v, "\"'`")
		case "visible":
			s.Visible = quotedList(v)
		case "hidden":
			s.Hidden = quotedList(v)
		case "blocks":
			for _, el := range topLevelElements(v) {
				if strings.HasPrefix(strings.TrimSpace(el), "{") {
					s.Blocks = append(s.Blocks, fallbackBlock(el))
				}
			}
		}
	}
	return s
}

func fallbackBlock(lit string) Block {
	b := Block{
		ID:          firstGroup(blockIDRe, lit),
		Label:       firstGroup(labelRe, lit),
		Description: firstGroup(descriptionRe, lit),
	}
	if b.ID == "" {
		b.ID = firstGroup(idRe, lit)
	}
	for _, loc := range condFieldRe.FindAllStringSubmatchIndex(lit, -1) {
		c := Condition{Field: lit[loc[2]:loc[3]]}
		rest := lit[loc[1]:]
		if end := strings.IndexByte(rest, '}'); end >= 0 {
			rest = rest[:end]
		}
		if m := operatorRe.FindStringSubmatch(rest); m != nil {
			c.Operator = Operator(m[1])
		}
		b.Conditions = append(b.Conditions, c)
	}
	return b
}

type entry struct {
	key   string
	value string
}

// topLevelEntries splits the body of an object literal into key and value
// source spans. Entries it cannot read (spreads, methods) are skipped.
func topLevelEntries(lit string) []entry {
	lit = strings.TrimSpace(lit)
	if len(lit) < 2 || lit[0] != '{' {
		return nil
	}
	var out []entry
	i := 1
	for i < len(lit) {
		i = skipSpaceAndComments(lit, i)
		if i >= len(lit) || lit[i] == '}' {
			break
		}

		var key string
		switch c := lit[i]; {
		case c == '"' || c == '\'' || c == '`':
			end, ok := skipString(lit, i)
			if !ok {
				return out
			}
			key = lit[i+1 : end-1]
			i = end
		case isIdentPart(c):
			j := i
			for j < len(lit) && isIdentPart(lit[j]) {
				j++
			}
			key = lit[i:j]
			i = j
		}

		i = skipSpaceAndComments(lit, i)
		if key == "" || i >= len(lit) || lit[i] != ':' {
			i = nextTopLevel(lit, i)
			continue
		}
		start := i + 1
		end := expressionEnd(lit, start)
		out = append(out, entry{key: key, value: lit[start:end]})
		i = end
		if i < len(lit) && lit[i] == ',' {
			i++
		}
	}
	return out
}

// topLevelElements splits the body of an array literal into element spans.
func topLevelElements(lit string) []string {
	lit = strings.TrimSpace(lit)
	if len(lit) < 2 || lit[0] != '[' {
		return nil
	}
	var out []string
	i := 1
	for i < len(lit) {
		i = skipSpaceAndComments(lit, i)
		if i >= len(lit) || lit[i] == ']' {
			break
		}
		end := expressionEnd(lit, i)
		if end == i {
			i++
			continue
		}
		out = append(out, lit[i:end])
		i = end
		if i < len(lit) && lit[i] == ',' {
			i++
		}
	}
	return out
}

func nextTopLevel(lit string, i int) int {
	end := expressionEnd(lit, i)
	if end < len(lit) && lit[end] == ',' {
		return end + 1
	}
	if end == i {
		return i + 1
	}
	return end
}

func skipSpaceAndComments(s string, i int) int {
	for {
		i = skipSpace(s, i)
		if i+1 < len(s) && s[i] == '/' && (s[i+1] == '/' || s[i+1] == '*') {
			i = commentEnd(s, i)
			continue
		}
		return i
	}
}

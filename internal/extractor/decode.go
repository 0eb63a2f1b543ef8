package extractor

import (
	"fmt"
	"strings"
)

// decodeMachine fills meta and transitions from a parsed xstateConfig.
func decodeMachine(cfg *Object, rec *Record) {
	meta := cfg.Object("meta")
	rec.Meta = Meta{
		Status:         meta.String("status"),
		StatusLabel:    meta.String("statusLabel"),
		Platform:       meta.String("platform"),
		Entity:         meta.String("entity"),
		RequiredFields: stringList(valueOf(meta, "requiredFields")),
		Terminal:       meta.Bool("terminal") || cfg.String("type") == "final",
		Initial:        meta.Bool("initial"),
	}
	if rec.Meta.Status == "" {
		rec.Meta.Status = cfg.String("id")
	}

	on := cfg.Object("on")
	for _, event := range keysOf(on) {
		v, _ := on.Get(event)
		t, ok := decodeTransition(event, v)
		if !ok {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("transition %s has no target", event))
			continue
		}
		rec.Transitions = append(rec.Transitions, t)
	}
}

func decodeTransition(event string, v any) (Transition, bool) {
	t := Transition{Event: event}
	switch tv := v.(type) {
	case string:
		t.Target = tv
	case *Object:
		t.Target = tv.String("target")
		meta := tv.Object("meta")
		t.Platforms = stringList(valueOf(tv, "platforms"))
		if len(t.Platforms) == 0 {
			t.Platforms = stringList(valueOf(meta, "platforms"))
		}
		t.Description = tv.String("description")
		if t.Description == "" {
			t.Description = meta.String("description")
		}
	case []any:
		for _, el := range tv {
			if cand, ok := decodeTransition(event, el); ok {
				return cand, true
			}
		}
	}
	t.Target = NormalizeTarget(t.Target)
	return t, t.Target != ""
}

// NormalizeTarget strips the id-reference marker from a transition target.
func NormalizeTarget(target string) string {
	return strings.TrimPrefix(strings.TrimSpace(target), "#")
}

// decodeUI builds the UI tree from a parsed mirrorsOn literal. The `UI`
// wrapper key is optional.
func decodeUI(root *Object) *UIValidation {
	tree := root
	if ui := root.Object("UI"); ui != nil {
		tree = ui
	}

	out := &UIValidation{Platforms: []PlatformUI{}}
	for _, platform := range keysOf(tree) {
		screens := tree.Object(platform)
		if screens == nil {
			continue
		}
		p := PlatformUI{Name: platform}
		for _, name := range keysOf(screens) {
			v, _ := screens.Get(name)
			if s, ok := decodeScreen(name, v); ok {
				p.Screens = append(p.Screens, s)
			}
		}
		out.Platforms = append(out.Platforms, p)
	}
	return out
}

func decodeScreen(name string, v any) (Screen, bool) {
	switch sv := v.(type) {
	case []any:
		s := Screen{Name: name, IsArray: true}
		for _, el := range sv {
			if obj, ok := el.(*Object); ok {
				s.Blocks = append(s.Blocks, decodeBlock(obj))
			}
		}
		return s, true
	case *Object:
		s := Screen{
			Name:        name,
			Description: sv.String("description"),
			Label:       sv.String("label"),
			Visible:     stringList(valueOf(sv, "visible")),
			Hidden:      stringList(valueOf(sv, "hidden")),
		}
		for _, k := range sv.Keys {
			v, _ := sv.Get(k)
			if populated(v) {
				s.Keys = append(s.Keys, k)
			}
		}
		if blocks, ok := valueOf(sv, "blocks").([]any); ok {
			for _, el := range blocks {
				if obj, ok := el.(*Object); ok {
					s.Blocks = append(s.Blocks, decodeBlock(obj))
				}
			}
		}
		return s, true
	}
	return Screen{}, false
}

func decodeBlock(obj *Object) Block {
	b := Block{
		ID:          obj.String("blockId"),
		Label:       obj.String("label"),
		Description: obj.String("description"),
		Visible:     stringList(valueOf(obj, "visible")),
		Hidden:      stringList(valueOf(obj, "hidden")),
	}
	if b.ID == "" {
		b.ID = obj.String("id")
	}
	if v, ok := obj.Get("conditions"); ok {
		b.Conditions = decodeConditions(v)
	}
	return b
}

// decodeConditions flattens a condition group into field checks.
func decodeConditions(v any) []Condition {
	var out []Condition
	switch cv := v.(type) {
	case []any:
		for _, el := range cv {
			out = append(out, decodeConditions(el)...)
		}
	case *Object:
		if c, ok := decodeCheck(cv); ok {
			return []Condition{c}
		}
		for _, group := range []string{"checks", "all", "any", "and", "or"} {
			if nested, ok := cv.Get(group); ok {
				out = append(out, decodeConditions(nested)...)
			}
		}
	}
	return out
}

func decodeCheck(obj *Object) (Condition, bool) {
	field := obj.String("field")
	if field == "" {
		return Condition{}, false
	}
	if raw := obj.String("operator"); raw != "" {
		op, ok := validOperator(raw)
		if !ok {
			return Condition{}, false
		}
		v, _ := obj.Get("value")
		return Condition{Field: field, Operator: op, Value: v}, true
	}
	for _, op := range operators {
		if v, ok := obj.Get(string(op)); ok {
			return Condition{Field: field, Operator: op, Value: v}, true
		}
	}
	return Condition{}, false
}

func valueOf(obj *Object, key string) any {
	v, _ := obj.Get(key)
	return v
}

func keysOf(obj *Object) []string {
	if obj == nil {
		return nil
	}
	return obj.Keys
}

func stringList(v any) []string {
	switch lv := v.(type) {
	case string:
		if lv == "" {
			return nil
		}
		return []string{lv}
	case []any:
		var out []string
		for _, el := range lv {
			if s, ok := el.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func populated(v any) bool {
	switch pv := v.(type) {
	case nil:
		return false
	case string:
		return pv != ""
	case []any:
		return len(pv) > 0
	case *Object:
		return pv.Len() > 0
	}
	return true
}

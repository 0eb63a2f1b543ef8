package extractor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// located holds the syntax-tree findings for one file.
type located struct {
	className string
	literals  map[string]int // literal name -> offset of its opening delimiter
}

// languageFor picks the grammar by file extension. Anything that is not
// TypeScript is read with the JavaScript grammar.
func languageFor(path string) *sitter.Language {
	if strings.HasSuffix(path, ".ts") || strings.HasSuffix(path, ".mts") || strings.HasSuffix(path, ".cts") {
		return typescript.GetLanguage()
	}
	return javascript.GetLanguage()
}

// locateInTree parses src and records the offsets of object literals
// bound to any of names, through variable declarations, class fields,
// assignments or object pairs. Tree-sitter recovers from errors, so a
// partly broken file still yields whatever it can.
func locateInTree(ctx context.Context, path string, src []byte, names []string) (*located, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(languageFor(path))
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	out := &located{literals: make(map[string]int)}
	root := tree.RootNode()
	if root == nil {
		return out, nil
	}

	walkNamed(root, func(n *sitter.Node) {
		switch n.Type() {
		case "class_declaration", "class":
			if out.className == "" {
				if name := n.ChildByFieldName("name"); name != nil {
					out.className = name.Content(src)
				}
			}
		case "variable_declarator":
			record(out, want, n.ChildByFieldName("name"), n.ChildByFieldName("value"), src)
		case "field_definition":
			record(out, want, n.ChildByFieldName("property"), n.ChildByFieldName("value"), src)
		case "public_field_definition":
			record(out, want, n.ChildByFieldName("name"), n.ChildByFieldName("value"), src)
		case "pair":
			record(out, want, n.ChildByFieldName("key"), n.ChildByFieldName("value"), src)
		case "assignment_expression":
			left := n.ChildByFieldName("left")
			if left != nil && left.Type() == "member_expression" {
				left = left.ChildByFieldName("property")
			}
			record(out, want, left, n.ChildByFieldName("right"), src)
		}
	})
	return out, nil
}

func record(out *located, want map[string]bool, name, value *sitter.Node, src []byte) {
	if name == nil || value == nil || value.Type() != "object" {
		return
	}
	key := strings.Trim(name.Content(src), `"'`)
	if !want[key] {
		return
	}
	if _, seen := out.literals[key]; seen {
		return
	}
	out.literals[key] = int(value.StartByte())
}

func walkNamed(n *sitter.Node, fn func(*sitter.Node)) {
	fn(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child != nil {
			walkNamed(child, fn)
		}
	}
}

var classNameRe = regexp.MustCompile(`\bclass\s+([A-Za-z_$][\w$]*)`)

// locateByPattern finds `name = {` or `name: {` textually and returns the
// offset of the brace.
func locateByPattern(src, name string) (int, bool) {
	re := regexp.MustCompile(`(?:^|[^\w$.])` + regexp.QuoteMeta(name) + `\s*(?::\s*[\w<>\[\], |]+)?\s*[=:]\s*\{`)
	loc := re.FindStringIndex(src)
	if loc == nil {
		return 0, false
	}
	return loc[1] - 1, true
}

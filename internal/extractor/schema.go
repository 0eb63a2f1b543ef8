package extractor

// Quality reports which extraction tier produced a Record.
type Quality string

const (
	// QualityLiteral means the configuration literal was parsed as data.
	QualityLiteral Quality = "literal"
	// QualityRegex means the literal could not be parsed and fields were
	// recovered by targeted pattern matching.
	QualityRegex Quality = "regex"
	// QualityEmpty means nothing usable was recovered.
	QualityEmpty Quality = "empty"
)

// Record is the best-effort structured view of one state definition.
type Record struct {
	ClassName    string        `json:"class_name,omitempty"`
	Meta         Meta          `json:"meta"`
	Transitions  []Transition  `json:"transitions,omitempty"`
	UIValidation *UIValidation `json:"ui_validation,omitempty"` // nil when the source has no UI tree
	Quality      Quality       `json:"parse_quality"`
	HasMachine   bool          `json:"has_machine"` // an xstateConfig literal was found
	Warnings     []string      `json:"warnings,omitempty"`
}

// Meta holds the identity of a state.
type Meta struct {
	Status         string   `json:"status"`
	StatusLabel    string   `json:"status_label,omitempty"`
	Platform       string   `json:"platform,omitempty"`
	Entity         string   `json:"entity,omitempty"`
	RequiredFields []string `json:"required_fields,omitempty"`
	Terminal       bool     `json:"terminal,omitempty"`
	Initial        bool     `json:"initial,omitempty"`
}

// Transition is one outgoing edge declared under `on`.
type Transition struct {
	Event       string   `json:"event"`
	Target      string   `json:"target"`
	Platforms   []string `json:"platforms,omitempty"`
	Description string   `json:"description,omitempty"`
}

// UIValidation is the mirrorsOn tree, in source order.
type UIValidation struct {
	Platforms []PlatformUI `json:"platforms"`
}

// PlatformNames returns the declared platforms in source order.
func (u *UIValidation) PlatformNames() []string {
	if u == nil {
		return nil
	}
	out := make([]string, 0, len(u.Platforms))
	for _, p := range u.Platforms {
		out = append(out, p.Name)
	}
	return out
}

// Empty reports whether the tree declares no screens at all.
func (u *UIValidation) Empty() bool {
	if u == nil {
		return true
	}
	for _, p := range u.Platforms {
		if len(p.Screens) > 0 {
			return false
		}
	}
	return true
}

type PlatformUI struct {
	Name    string   `json:"name"`
	Screens []Screen `json:"screens"`
}

// Screen is one screen entry. Object-form screens carry their own
// description and element lists; array-form screens only carry Blocks.
type Screen struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Label       string   `json:"label,omitempty"`
	Visible     []string `json:"visible,omitempty"`
	Hidden      []string `json:"hidden,omitempty"`
	Blocks      []Block  `json:"blocks,omitempty"`
	// Keys lists the populated keys of an object-form screen.
	Keys    []string `json:"keys,omitempty"`
	IsArray bool     `json:"is_array,omitempty"`
}

// DescriptionOnly reports whether description is the only populated key.
func (s Screen) DescriptionOnly() bool {
	if s.IsArray || s.Description == "" {
		return false
	}
	for _, k := range s.Keys {
		if k != "description" {
			return false
		}
	}
	return true
}

type Block struct {
	ID          string      `json:"block_id,omitempty"`
	Label       string      `json:"label,omitempty"`
	Description string      `json:"description,omitempty"`
	Visible     []string    `json:"visible,omitempty"`
	Hidden      []string    `json:"hidden,omitempty"`
	Conditions  []Condition `json:"conditions,omitempty"`
}

// Operator is a field predicate kind.
type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "notEquals"
	OpTruthy    Operator = "truthy"
	OpFalsy     Operator = "falsy"
	OpContains  Operator = "contains"
)

var operators = []Operator{OpEquals, OpNotEquals, OpContains, OpTruthy, OpFalsy}

func validOperator(s string) (Operator, bool) {
	for _, op := range operators {
		if string(op) == s {
			return op, true
		}
	}
	return "", false
}

type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

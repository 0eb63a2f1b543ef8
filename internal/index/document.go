package index

import (
	"strings"

	"implindex/internal/extractor"
)

// DocType identifies one of the four document collections.
type DocType string

const (
	TypeState      DocType = "state"
	TypeTransition DocType = "transition"
	TypeValidation DocType = "validation"
	TypeCondition  DocType = "condition"
)

// AllTypes lists every document type in index order.
var AllTypes = []DocType{TypeState, TypeTransition, TypeValidation, TypeCondition}

// Document is the searchable view shared by all document kinds.
type Document interface {
	DocID() string
	Kind() DocType
	SearchText() string
	DocLabel() string
	DocDescription() string
	DocField() string
}

// Common carries the fields every document has.
type Common struct {
	ID   string  `json:"id"`
	Type DocType `json:"type"`
	Text string  `json:"text"`
}

func (c *Common) DocID() string      { return c.ID }
func (c *Common) Kind() DocType      { return c.Type }
func (c *Common) SearchText() string { return c.Text }

// StateDocument is one indexed state.
type StateDocument struct {
	Common
	StatusLabel     string            `json:"statusLabel,omitempty"`
	Platform        string            `json:"platform,omitempty"`
	Entity          string            `json:"entity,omitempty"`
	SourceFile      string            `json:"sourceFile"`
	ClassName       string            `json:"className,omitempty"`
	RequiredFields  []string          `json:"requiredFields,omitempty"`
	TransitionCount int               `json:"transitionCount"`
	Terminal        bool              `json:"terminal,omitempty"`
	Initial         bool              `json:"initial,omitempty"`
	Quality         extractor.Quality `json:"parseQuality"`
}

func (d *StateDocument) DocLabel() string       { return d.StatusLabel }
func (d *StateDocument) DocDescription() string { return "" }
func (d *StateDocument) DocField() string       { return "" }

// TransitionDocument is one outgoing edge. To may name a state that does
// not exist.
type TransitionDocument struct {
	Common
	Event       string   `json:"event"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Platforms   []string `json:"platforms,omitempty"`
	Description string   `json:"description,omitempty"`
}

func (d *TransitionDocument) DocLabel() string       { return "" }
func (d *TransitionDocument) DocDescription() string { return d.Description }
func (d *TransitionDocument) DocField() string       { return "" }

// ValidationDocument is one UI check unit: a whole screen or one block of it.
type ValidationDocument struct {
	Common
	State         string `json:"state"`
	Platform      string `json:"platform"`
	Screen        string `json:"screen"`
	BlockID       string `json:"blockId,omitempty"`
	Label         string `json:"label,omitempty"`
	Description   string `json:"description,omitempty"`
	HasConditions bool   `json:"hasConditions"`
}

func (d *ValidationDocument) DocLabel() string       { return d.Label }
func (d *ValidationDocument) DocDescription() string { return d.Description }
func (d *ValidationDocument) DocField() string       { return "" }

// ConditionDocument is one field predicate inside a validation block.
type ConditionDocument struct {
	Common
	State        string             `json:"state"`
	ValidationID string             `json:"validationId"`
	BlockID      string             `json:"blockId,omitempty"`
	Field        string             `json:"field"`
	Operator     extractor.Operator `json:"operator"`
	Value        any                `json:"value,omitempty"`
}

func (d *ConditionDocument) DocLabel() string       { return "" }
func (d *ConditionDocument) DocDescription() string { return "" }
func (d *ConditionDocument) DocField() string       { return d.Field }

const textSeparator = " | "

// joinText assembles indexable text from the non-empty parts.
func joinText(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, textSeparator)
}

// Humanize turns identifiers like "checked_in" or "bookingDetails" into
// space separated lowercase words.
func Humanize(id string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range id {
		switch {
		case r == '_' || r == '-' || r == '.':
			b.WriteByte(' ')
			prevLower = false
			continue
		case r >= 'A' && r <= 'Z':
			if prevLower {
				b.WriteByte(' ')
			}
			b.WriteRune(r + ('a' - 'A'))
			prevLower = false
			continue
		}
		b.WriteRune(r)
		prevLower = (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Package template implements the block-based message template model.
package template

import (
	"github.com/google/uuid"
)

// Template is the channel-agnostic message owned by one rule.
type Template struct {
	Subject string  `json:"subject"`
	Blocks  []Block `json:"blocks"`
}

// Clone returns a deep copy. A nil template clones to nil.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	out := &Template{Subject: t.Subject}
	if t.Blocks != nil {
		out.Blocks = make([]Block, len(t.Blocks))
		copy(out.Blocks, t.Blocks)
	}
	return out
}

// IDs lists block ids in order.
func (t *Template) IDs() []string {
	if t == nil {
		return nil
	}
	ids := make([]string, len(t.Blocks))
	for i, b := range t.Blocks {
		ids[i] = b.ID
	}
	return ids
}

// Kinds lists block kinds in order.
func (t *Template) Kinds() []BlockKind {
	if t == nil {
		return nil
	}
	out := make([]BlockKind, len(t.Blocks))
	for i, b := range t.Blocks {
		out[i] = b.Kind
	}
	return out
}

// Find returns the position of the block with the given id, or -1.
func (t *Template) Find(id string) int {
	if t == nil {
		return -1
	}
	for i := range t.Blocks {
		if t.Blocks[i].ID == id {
			return i
		}
	}
	return -1
}

// DefaultTemplate is used for rules that have no template yet:
// header, paragraph, one variable, divider and button.
func DefaultTemplate() *Template {
	return DefaultTemplateWithIDs(NewBlockID)
}

// DefaultTemplateWithIDs builds the default template using newID for block ids.
func DefaultTemplateWithIDs(newID func() string) *Template {
	t := &Template{Subject: "Notificación: {{nombre}}"}
	for _, k := range []BlockKind{KindHeader, KindParagraph, KindVariable, KindDivider, KindButton} {
		content, style := defaults(k)
		t.Blocks = append(t.Blocks, Block{ID: newID(), Kind: k, Content: content, Style: style})
	}
	t.Blocks[0].Content = "Nueva notificación"
	t.Blocks[1].Content = "Se ha registrado un cambio que requiere su atención."
	return t
}

// NewBlockID generates a block identifier.
func NewBlockID() string {
	return uuid.NewString()
}

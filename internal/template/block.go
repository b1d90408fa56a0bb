package template

import (
	"errors"
	"strings"
)

// BlockKind is the discriminant of a template block.
type BlockKind string

const (
	KindHeader    BlockKind = "header"
	KindParagraph BlockKind = "paragraph"
	KindVariable  BlockKind = "variable"
	KindButton    BlockKind = "button"
	KindDivider   BlockKind = "divider"
	KindList      BlockKind = "list"
	KindAlert     BlockKind = "alert"
)

// Alignment of text-bearing blocks.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Emphasis is the callout color of alert and button blocks.
type Emphasis string

const (
	EmphasisInfo    Emphasis = "info"
	EmphasisWarning Emphasis = "warning"
	EmphasisDanger  Emphasis = "danger"
)

var ErrUnknownKind = errors.New("unknown block kind")

var kinds = map[BlockKind]bool{
	KindHeader:    true,
	KindParagraph: true,
	KindVariable:  true,
	KindButton:    true,
	KindDivider:   true,
	KindList:      true,
	KindAlert:     true,
}

// Kinds returns every block kind in palette order.
func Kinds() []BlockKind {
	return []BlockKind{KindHeader, KindParagraph, KindVariable, KindButton, KindDivider, KindList, KindAlert}
}

// ParseKind normalizes s into a known BlockKind.
func ParseKind(s string) (BlockKind, error) {
	k := BlockKind(strings.ToLower(strings.TrimSpace(s)))
	if !kinds[k] {
		return "", ErrUnknownKind
	}
	return k, nil
}

// Valid reports whether k is one of the known kinds.
func (k BlockKind) Valid() bool { return kinds[k] }

// HonorsAlignment is false for divider and variable blocks.
func (k BlockKind) HonorsAlignment() bool {
	return k != KindDivider && k != KindVariable
}

// Style holds the optional presentation settings of a block.
type Style struct {
	Alignment Alignment `json:"alignment,omitempty"`
	Emphasis  Emphasis  `json:"emphasis,omitempty"`
	URL       string    `json:"url,omitempty"` // button target
}

// Block is one unit of message content.
type Block struct {
	ID      string    `json:"id"`
	Kind    BlockKind `json:"kind"`
	Content string    `json:"content"`
	Style   Style     `json:"style"`
}

// Alignment resolves the effective alignment; unset means left.
// Kinds that ignore alignment always report left.
func (b Block) Alignment() Alignment {
	if !b.Kind.HonorsAlignment() {
		return AlignLeft
	}
	switch b.Style.Alignment {
	case AlignCenter, AlignRight:
		return b.Style.Alignment
	default:
		return AlignLeft
	}
}

// Emphasis resolves the effective emphasis; unset or unknown means info.
func (b Block) Emphasis() Emphasis {
	switch b.Style.Emphasis {
	case EmphasisWarning, EmphasisDanger:
		return b.Style.Emphasis
	default:
		return EmphasisInfo
	}
}

// ListItems splits list content on line breaks and drops blank lines.
func (b Block) ListItems() []string {
	lines := splitLines(b.Content)
	items := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		items = append(items, strings.TrimSpace(l))
	}
	return items
}

// Lines splits paragraph content on line breaks, keeping blank lines.
func (b Block) Lines() []string {
	return splitLines(b.Content)
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}

// Patch is a partial update of a block. Nil fields are left untouched.
type Patch struct {
	Content   *string    `json:"content,omitempty"`
	Alignment *Alignment `json:"alignment,omitempty"`
	Emphasis  *Emphasis  `json:"emphasis,omitempty"`
	URL       *string    `json:"url,omitempty"`
}

func (p Patch) apply(b *Block) {
	if p.Content != nil {
		b.Content = *p.Content
	}
	if p.Alignment != nil {
		b.Style.Alignment = *p.Alignment
	}
	if p.Emphasis != nil {
		b.Style.Emphasis = *p.Emphasis
	}
	if p.URL != nil {
		b.Style.URL = *p.URL
	}
}

// defaults returns the content and style a freshly added block starts with.
func defaults(kind BlockKind) (string, Style) {
	switch kind {
	case KindHeader:
		return "Título de la notificación", Style{}
	case KindParagraph:
		return "Escriba aquí el contenido del mensaje.", Style{}
	case KindVariable:
		return "nombre", Style{}
	case KindButton:
		return "Ver detalle", Style{Alignment: AlignCenter, Emphasis: EmphasisInfo}
	case KindAlert:
		return "Información importante", Style{Alignment: AlignCenter, Emphasis: EmphasisInfo}
	case KindList:
		return "Elemento 1\nElemento 2", Style{}
	default:
		return "", Style{}
	}
}

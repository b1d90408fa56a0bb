package variable

import (
	"strings"
)

// Canonical variable names.
const (
	Name        = "nombre"
	Description = "descripcion"
	Date        = "fecha"
	Responsible = "responsable"
	EntityType  = "tipoEntidad"
	Severity    = "severidad"
	Status      = "estado"
	CreatedBy   = "creadoPor"
)

// Fallback is the value shown when a variable cannot be resolved.
const Fallback = "—"

// DateLayout is the display format of dates.
const DateLayout = "02/01/2006"

// Descriptor is the channel-agnostic result of resolving one variable.
type Descriptor struct {
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	Initials string `json:"initials,omitempty"`
	Tone     string `json:"tone,omitempty"`
	Muted    bool   `json:"muted"`
}

// Definition describes one entry of the vocabulary.
type Definition struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

var vocabulary = []Definition{
	{Name: Name, Label: "Nombre", Icon: "file-text"},
	{Name: Description, Label: "Descripción", Icon: "align-left"},
	{Name: Date, Label: "Fecha", Icon: "calendar"},
	{Name: Responsible, Label: "Responsable", Icon: "user"},
	{Name: EntityType, Label: "Tipo de entidad", Icon: "layers"},
	{Name: Severity, Label: "Severidad", Icon: "alert-triangle"},
	{Name: Status, Label: "Estado", Icon: "activity"},
	{Name: CreatedBy, Label: "Creado por", Icon: "user-plus"},
}

// lookup maps lowercase canonical names and English aliases to definitions.
var lookup = func() map[string]Definition {
	aliases := map[string]string{
		"name":        Name,
		"description": Description,
		"date":        Date,
		"responsible": Responsible,
		"entitytype":  EntityType,
		"severity":    Severity,
		"status":      Status,
		"createdby":   CreatedBy,
	}
	m := make(map[string]Definition, len(vocabulary)+len(aliases))
	byName := make(map[string]Definition, len(vocabulary))
	for _, d := range vocabulary {
		byName[d.Name] = d
		m[strings.ToLower(d.Name)] = d
	}
	for alias, canonical := range aliases {
		m[alias] = byName[canonical]
	}
	return m
}()

// Vocabulary lists the known variables in picker order.
func Vocabulary() []Definition {
	out := make([]Definition, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Known reports whether name is part of the vocabulary.
func Known(name string) bool {
	_, ok := lookup[normalize(name)]
	return ok
}

// Resolve maps name to a display descriptor using ctx. It never fails:
// unknown names, a nil context or a missing field all produce the muted
// fallback descriptor.
func Resolve(name string, ctx *Context) Descriptor {
	def, ok := lookup[normalize(name)]
	if !ok {
		return fallback(strings.TrimSpace(name), Definition{Label: strings.TrimSpace(name), Icon: "help-circle"})
	}
	if ctx == nil {
		return fallback(def.Name, def)
	}
	d := Descriptor{Name: def.Name, Icon: def.Icon, Label: def.Label}
	switch def.Name {
	case Name:
		d.Value = ctx.Name
	case Description:
		d.Value = ctx.Description
	case Date:
		if !ctx.Date.IsZero() {
			d.Value = ctx.Date.Format(DateLayout)
		}
	case Responsible:
		if ctx.Responsible != nil {
			d.Value, d.Initials = ctx.Responsible.Name, initials(ctx.Responsible)
		}
	case CreatedBy:
		if ctx.CreatedBy != nil {
			d.Value, d.Initials = ctx.CreatedBy.Name, initials(ctx.CreatedBy)
		}
	case EntityType:
		if ctx.EntityType != nil {
			d.Value = ctx.EntityType.Label
			if ctx.EntityType.Icon != "" {
				d.Icon = ctx.EntityType.Icon
			}
		}
	case Severity:
		if ctx.Severity != nil {
			d.Value, d.Tone = ctx.Severity.Label, ctx.Severity.Tone
		}
	case Status:
		if ctx.Status != nil {
			d.Value, d.Tone = ctx.Status.Label, ctx.Status.Tone
		}
	}
	if strings.TrimSpace(d.Value) == "" {
		return fallback(def.Name, def)
	}
	return d
}

func fallback(name string, def Definition) Descriptor {
	label := def.Label
	if label == "" {
		label = "Variable"
	}
	return Descriptor{Name: name, Icon: def.Icon, Label: label, Value: Fallback, Muted: true}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// initials uses the explicit initials or derives them from the name.
func initials(p *Person) string {
	if p.Initials != "" {
		return p.Initials
	}
	var b strings.Builder
	n := 0
	for _, part := range strings.Fields(p.Name) {
		r := []rune(part)
		b.WriteString(strings.ToUpper(string(r[0])))
		if n++; n == 2 {
			break
		}
	}
	return b.String()
}

// Package variable resolves symbolic template variables against a
// preview or live context.
package variable

import "time"

// Person is a user reference shown with an avatar.
type Person struct {
	Name     string `json:"name"`
	Initials string `json:"initials"`
}

// Labeled is a display label with an icon.
type Labeled struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// Toned is a display label with a color tone (success, info, warning, danger, neutral).
type Toned struct {
	Label string `json:"label"`
	Tone  string `json:"tone"`
}

// Context carries the data variables are resolved against.
// Nil pointers mean the field is absent.
type Context struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Responsible *Person   `json:"responsible,omitempty"`
	EntityType  *Labeled  `json:"entityType,omitempty"`
	Severity    *Toned    `json:"severity,omitempty"`
	Status      *Toned    `json:"status,omitempty"`
	CreatedBy   *Person   `json:"createdBy,omitempty"`
}

// SampleContext is the built-in preview data used when the caller has no
// live context.
func SampleContext() *Context {
	return &Context{
		Name:        "Servidor de base de datos principal",
		Description: "Activo crítico del proceso de facturación",
		Date:        time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC),
		Responsible: &Person{Name: "María González", Initials: "MG"},
		EntityType:  &Labeled{Label: "Activo", Icon: "server"},
		Severity:    &Toned{Label: "Alta", Tone: "danger"},
		Status:      &Toned{Label: "En revisión", Tone: "warning"},
		CreatedBy:   &Person{Name: "Carlos Pérez", Initials: "CP"},
	}
}

// OrSample returns c, or the sample context when c is nil.
func OrSample(c *Context) *Context {
	if c == nil {
		return SampleContext()
	}
	return c
}

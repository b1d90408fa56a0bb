package rule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifyconsole/internal/template"
)

func alertRule() *Rule {
	r, _ := NewDraft(CategoryAlert)
	r.Name = "Disponibilidad baja"
	r.Scope = "infraestructura"
	r.Alert.Metric = "availability"
	r.Alert.Operator = OpLT
	r.Alert.Threshold = 70
	r.Alert.CooldownMinutes = 60
	return r
}

func fields(t *testing.T, err error) *ValidationError {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "want *ValidationError, got %v", err)
	assert.ErrorIs(t, err, ErrValidation)
	return verr
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, Validate(eventDraft("Nuevo Activo Creado")))
	assert.NoError(t, Validate(alertRule()))

	x, _ := NewDraft(CategoryExpiration)
	x.Name, x.Scope = "Vencimiento de contratos", "CONTRACT"
	assert.NoError(t, Validate(x))
}

func TestValidate_RequiredFields(t *testing.T) {
	r, _ := NewDraft(CategoryEvent)
	r.Name = "   "
	r.Event = nil
	verr := fields(t, Validate(r))
	assert.True(t, verr.Has("name"))
	assert.True(t, verr.Has("scope"))
	assert.True(t, verr.Has("event"))
	for _, f := range verr.Fields {
		assert.NotEmpty(t, f.Reason)
	}
}

func TestValidate_AlertBounds(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*AlertTrigger)
		field string
	}{
		{"negative threshold", func(a *AlertTrigger) { a.Threshold = -5 }, "alert.threshold"},
		{"negative cooldown", func(a *AlertTrigger) { a.CooldownMinutes = -1 }, "alert.cooldownMinutes"},
		{"missing metric", func(a *AlertTrigger) { a.Metric = "" }, "alert.metric"},
		{"bad operator", func(a *AlertTrigger) { a.Operator = "BETWEEN" }, "alert.operator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := alertRule()
			tt.edit(r.Alert)
			verr := fields(t, Validate(r))
			assert.True(t, verr.Has(tt.field), "fields: %+v", verr.Fields)
		})
	}

	r := alertRule()
	r.Alert.CooldownMinutes = 0
	r.Alert.Threshold = 0
	assert.NoError(t, Validate(r), "zero cooldown and threshold are allowed")
}

func TestValidate_ExpirationOffsets(t *testing.T) {
	base := func() *Rule {
		r, _ := NewDraft(CategoryExpiration)
		r.Name, r.Scope = "v", "CONTRACT"
		return r
	}

	r := base()
	r.Expiration.DaysBefore = []int{7, 0}
	assert.True(t, fields(t, Validate(r)).Has("expiration.daysBefore[1]"))

	r = base()
	r.Expiration.DaysAfter = []int{3, 3}
	assert.True(t, fields(t, Validate(r)).Has("expiration.daysAfter"))

	r = base()
	r.Expiration.DaysBefore, r.Expiration.DaysAfter = nil, nil
	assert.True(t, fields(t, Validate(r)).Has("expiration"))

	r = base()
	r.Expiration.DaysAfter = nil
	assert.NoError(t, Validate(r))
}

func TestValidate_CategoryMismatch(t *testing.T) {
	r := eventDraft("a")
	r.Alert = &AlertTrigger{Metric: "m", Operator: OpGT}
	assert.True(t, fields(t, Validate(r)).Has("category"))

	r = eventDraft("a")
	r.Category = "other"
	assert.True(t, fields(t, Validate(r)).Has("category"))
}

func TestValidate_SeverityAndBlocks(t *testing.T) {
	r := eventDraft("a")
	r.Severity = "urgent"
	r.Template = &template.Template{Blocks: []template.Block{{ID: "1", Kind: "video"}}}
	verr := fields(t, Validate(r))
	assert.True(t, verr.Has("severity"))
	assert.True(t, verr.Has("template.blocks[0].kind"))
}

func TestValidate_BlockIDs(t *testing.T) {
	r := eventDraft("a")
	r.Template = &template.Template{Blocks: []template.Block{
		{ID: "x", Kind: template.KindHeader},
		{ID: "x", Kind: template.KindParagraph},
		{Kind: template.KindDivider},
	}}
	verr := fields(t, Validate(r))
	assert.False(t, verr.Has("template.blocks[0].id"))
	assert.True(t, verr.Has("template.blocks[1].id"))
	assert.True(t, verr.Has("template.blocks[2].id"))

	r.Template.Blocks[1].ID, r.Template.Blocks[2].ID = "y", "z"
	assert.NoError(t, Validate(r))
}

func TestValidationError_Message(t *testing.T) {
	err := Validate(nil)
	assert.Contains(t, err.Error(), "rule is required")
}

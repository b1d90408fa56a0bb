package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"notifyconsole/internal/models"
	"notifyconsole/internal/recipient"
	"notifyconsole/internal/rule"
	"notifyconsole/internal/session"
	"notifyconsole/internal/template"
)

func openTest(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(Config{Driver: "sqlite", DBName: ":memory:", LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func sampleRule(id string, at time.Time) *rule.Rule {
	r, _ := rule.NewDraft(rule.CategoryEvent)
	r.ID = id
	r.Name = "Nuevo Activo Creado"
	r.Scope = "ASSET"
	n := 0
	r.Template = template.DefaultTemplateWithIDs(func() string { n++; return fmt.Sprintf("%s-blk%d", id, n) })
	r.CreatedAt, r.UpdatedAt = at, at
	return r
}

func TestRuleRepository_RoundTrip(t *testing.T) {
	repo := NewRuleRepository(openTest(t))
	ctx := context.Background()
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	in := sampleRule("r1", at)
	_, err := repo.SaveRule(ctx, rule.CategoryEvent, in)
	require.NoError(t, err)
	_, err = repo.SaveRule(ctx, rule.CategoryEvent, sampleRule("r2", at.Add(time.Minute)))
	require.NoError(t, err)

	got, err := repo.LoadRules(ctx, rule.CategoryEvent)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].ID)
	assert.True(t, rule.Equal(in, got[0]), "got %+v", got[0])

	none, err := repo.LoadRules(ctx, rule.CategoryAlert)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRuleRepository_Upsert(t *testing.T) {
	repo := NewRuleRepository(openTest(t))
	ctx := context.Background()
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	r := sampleRule("r1", at)
	_, err := repo.SaveRule(ctx, rule.CategoryEvent, r)
	require.NoError(t, err)

	r.Name = "Activo eliminado"
	r.Event.Event = rule.EventDelete
	r.UpdatedAt = at.Add(time.Hour)
	_, err = repo.SaveRule(ctx, rule.CategoryEvent, r)
	require.NoError(t, err)

	got, err := repo.LoadRules(ctx, rule.CategoryEvent)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Activo eliminado", got[0].Name)
	assert.Equal(t, rule.EventDelete, got[0].Event.Event)

	_, err = repo.SaveRule(ctx, rule.CategoryAlert, r)
	assert.ErrorIs(t, err, rule.ErrCategoryMix)
}

func TestRuleRepository_ActiveColumn(t *testing.T) {
	db := openTest(t)
	repo := NewRuleRepository(db)
	ctx := context.Background()
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	off := sampleRule("r1", at)
	off.Active = false
	_, err := repo.SaveRule(ctx, rule.CategoryEvent, off)
	require.NoError(t, err)
	on := sampleRule("r2", at)
	_, err = repo.SaveRule(ctx, rule.CategoryEvent, on)
	require.NoError(t, err)

	var ids []string
	require.NoError(t, db.Model(&models.NotificationRule{}).Where("active = ?", false).Pluck("rule_id", &ids).Error)
	assert.Equal(t, []string{"r1"}, ids)

	on.Active = false
	_, err = repo.SaveRule(ctx, rule.CategoryEvent, on)
	require.NoError(t, err)
	var n int64
	require.NoError(t, db.Model(&models.NotificationRule{}).Where("active = ?", false).Count(&n).Error)
	assert.EqualValues(t, 2, n)

	got, err := repo.LoadRules(ctx, rule.CategoryEvent)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.False(t, got[0].Active)
}

func TestRuleRepository_Delete(t *testing.T) {
	repo := NewRuleRepository(openTest(t))
	ctx := context.Background()
	_, err := repo.SaveRule(ctx, rule.CategoryEvent, sampleRule("r1", time.Now()))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteRule(ctx, rule.CategoryEvent, "r1"))
	assert.ErrorIs(t, repo.DeleteRule(ctx, rule.CategoryEvent, "r1"), rule.ErrNotFound)
}

func TestRecipientRepository(t *testing.T) {
	repo := NewRecipientRepository(openTest(t))
	ctx := context.Background()

	list := []recipient.Recipient{
		{ID: "a", Kind: recipient.KindEmail, Value: "a@example.com", DisplayName: "Ana"},
		{ID: "b", Kind: recipient.KindDynamic, Value: "{{responsable}}"},
	}
	require.NoError(t, repo.SaveRecipients(ctx, "riesgos", list))
	got, err := repo.LoadRecipients(ctx, "riesgos")
	require.NoError(t, err)
	assert.Equal(t, list, got)

	require.NoError(t, repo.SaveRecipients(ctx, "riesgos", list[1:]))
	got, err = repo.LoadRecipients(ctx, "riesgos")
	require.NoError(t, err)
	assert.Equal(t, list[1:], got)

	mods, err := repo.Modules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"riesgos"}, mods)

	require.NoError(t, repo.SaveRecipients(ctx, "riesgos", nil))
	got, err = repo.LoadRecipients(ctx, "riesgos")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChangeLog(t *testing.T) {
	log := NewChangeLog(openTest(t))
	ctx := context.Background()
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	r := sampleRule("r1", at)
	require.NoError(t, log.Record(ctx, session.Change{Kind: session.ChangeSaved, Category: r.Category, RuleID: r.ID, Created: true, Rule: r, At: at}))
	require.NoError(t, log.Record(ctx, session.Change{Kind: session.ChangeDeleted, Category: r.Category, RuleID: r.ID, At: at.Add(time.Hour)}))

	hist, err := log.History(ctx, rule.CategoryEvent, "r1", 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "deleted", hist[0].Kind)
	assert.Equal(t, "saved", hist[1].Kind)
	assert.Equal(t, "Nuevo Activo Creado", hist[1].RuleName)
	assert.True(t, hist[1].Created)
}

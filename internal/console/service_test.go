package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifyconsole/internal/catalog"
	"notifyconsole/internal/recipient"
	"notifyconsole/internal/rule"
	"notifyconsole/internal/session"
)

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

// memRecipients is an in-memory RecipientStore.
type memRecipients struct {
	mu    sync.Mutex
	lists map[string][]recipient.Recipient
	fail  error
}

func (m *memRecipients) LoadRecipients(_ context.Context, module string) ([]recipient.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recipient.Recipient(nil), m.lists[module]...), nil
}

func (m *memRecipients) SaveRecipients(_ context.Context, module string, list []recipient.Recipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.lists[module] = append([]recipient.Recipient(nil), list...)
	return nil
}

func (m *memRecipients) Modules(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.lists {
		out = append(out, k)
	}
	return out, nil
}

type staticCatalog struct{ loads int }

func (s *staticCatalog) Tree(_ context.Context, module string) ([]catalog.Node, error) {
	s.loads++
	return []catalog.Node{{ID: module + "-1", Label: "Raíz"}}, nil
}

func (s *staticCatalog) Flat(_ context.Context, module string) ([]catalog.Entity, error) {
	return []catalog.Entity{{ID: module + "-1", Label: "Raíz"}}, nil
}

type fixture struct {
	svc        *Service
	persist    *rule.MemoryPersistence
	recipients *memRecipients
	changes    []session.Change
}

func newFixture(t *testing.T, seed ...*rule.Rule) *fixture {
	t.Helper()
	n, sid := 0, 0
	f := &fixture{
		persist:    rule.NewMemoryPersistence(seed...),
		recipients: &memRecipients{lists: map[string][]recipient.Recipient{}},
	}
	store := rule.NewStore(
		rule.WithClock(func() time.Time { return fixedNow }),
		rule.WithIDGenerator(func() string { n++; return fmt.Sprintf("r%d", n) }),
	)
	f.svc = New(f.persist,
		WithStore(store),
		WithRecipientStore(f.recipients),
		WithCatalog(&staticCatalog{}),
		WithSessionIDs(func() string { sid++; return fmt.Sprintf("s%d", sid) }),
		WithRecorder("test", func(_ context.Context, c session.Change) error {
			f.changes = append(f.changes, c)
			return nil
		}),
		WithRecorder("broken", func(context.Context, session.Change) error { return errors.New("sink down") }),
	)
	return f
}

func eventDraft(name string) *rule.Rule {
	d, _ := rule.NewDraft(rule.CategoryEvent)
	d.Name, d.Scope = name, "ASSET"
	return d
}

func TestBootstrapLoadsPersistence(t *testing.T) {
	stored := eventDraft("Riesgo actualizado")
	stored.ID, stored.Category = "e1", rule.CategoryEvent
	f := newFixture(t, stored)
	f.recipients.lists["riesgos"] = []recipient.Recipient{{ID: "x", Kind: recipient.KindEmail, Value: "a@example.com"}}

	require.NoError(t, f.svc.Bootstrap(context.Background()))

	got, err := f.svc.GetRule(rule.CategoryEvent, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Riesgo actualizado", got.Name)
	assert.Equal(t, []string{"riesgos"}, f.svc.RecipientModules())
	assert.Len(t, f.svc.ListRecipients("riesgos"), 1)
}

func TestRuleCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateRule(ctx, rule.CategoryEvent, eventDraft("  Nuevo Activo Creado "))
	require.NoError(t, err)
	assert.Equal(t, "r1", created.ID)
	assert.Equal(t, "Nuevo Activo Creado", created.Name)
	assert.Equal(t, fixedNow, created.CreatedAt)
	assert.Equal(t, 1, f.persist.Saves)

	_, err = f.svc.CreateRule(ctx, rule.CategoryEvent, eventDraft(""))
	assert.ErrorIs(t, err, rule.ErrValidation)

	updated, err := f.svc.UpdateRule(ctx, rule.CategoryEvent, "r1", func(r *rule.Rule) {
		r.ID = "hijack"
		r.Active = false
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", updated.ID)
	assert.False(t, updated.Active)

	assert.ErrorIs(t, f.svc.RemoveRule(ctx, rule.CategoryEvent, "r1", session.NeverConfirm), session.ErrDeleteCancelled)
	_, err = f.svc.GetRule(rule.CategoryEvent, "r1")
	require.NoError(t, err)
	assert.Zero(t, f.persist.Deletes)

	require.NoError(t, f.svc.RemoveRule(ctx, rule.CategoryEvent, "r1", session.AlwaysConfirm))
	_, err = f.svc.GetRule(rule.CategoryEvent, "r1")
	assert.ErrorIs(t, err, rule.ErrNotFound)

	require.Len(t, f.changes, 3)
	assert.True(t, f.changes[0].Created)
	assert.Equal(t, session.ChangeDeleted, f.changes[2].Kind)
}

func TestRuleWritePersistenceFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.persist.FailSave = errors.New("db down")

	_, err := f.svc.CreateRule(ctx, rule.CategoryEvent, eventDraft("Activo"))
	assert.ErrorIs(t, err, session.ErrPersistence)
	n, _ := f.svc.Store().Count(rule.CategoryAll)
	assert.Zero(t, n)
	assert.Empty(t, f.changes)
}

func TestSessionsAreIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.svc.OpenSession(), f.svc.OpenSession()
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, f.svc.SessionCount())

	require.NoError(t, f.svc.Do(a, false, func(s *session.Session) error {
		if err := s.NewRule(rule.CategoryEvent); err != nil {
			return err
		}
		return s.Edit(func(r *rule.Rule) { r.Name, r.Scope = "Nuevo Activo Creado", "ASSET" })
	}))
	require.NoError(t, f.svc.Do(b, false, func(s *session.Session) error {
		assert.Equal(t, session.Idle, s.State())
		return nil
	}))
	require.NoError(t, f.svc.Do(a, false, func(s *session.Session) error { return s.Save(ctx) }))

	require.Len(t, f.changes, 1)
	assert.Equal(t, "r1", f.changes[0].RuleID)
	require.NoError(t, f.svc.Do(b, false, func(s *session.Session) error {
		return s.Select(rule.CategoryEvent, "r1")
	}))

	assert.ErrorIs(t, f.svc.Do("missing", false, func(*session.Session) error { return nil }), ErrSessionNotFound)
}

func TestCloseSessionNeedsConfirmWhenDirty(t *testing.T) {
	f := newFixture(t)
	id := f.svc.OpenSession()
	require.NoError(t, f.svc.Do(id, false, func(s *session.Session) error { return s.NewRule(rule.CategoryAlert) }))

	assert.ErrorIs(t, f.svc.CloseSession(id, false), session.ErrSelectionCancelled)
	assert.Equal(t, 1, f.svc.SessionCount())

	require.NoError(t, f.svc.CloseSession(id, true))
	assert.Zero(t, f.svc.SessionCount())
}

func TestDeleteConfirmComesFromRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateRule(ctx, rule.CategoryEvent, eventDraft("Activo"))
	require.NoError(t, err)
	id := f.svc.OpenSession()

	err = f.svc.Do(id, false, func(s *session.Session) error { return s.Delete(ctx, rule.CategoryEvent, "r1") })
	assert.ErrorIs(t, err, session.ErrDeleteCancelled)
	require.NoError(t, f.svc.Do(id, true, func(s *session.Session) error { return s.Delete(ctx, rule.CategoryEvent, "r1") }))
	assert.Equal(t, 1, f.persist.Deletes)
}

func TestRecipientsWriteThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.AddRecipient(ctx, " Riesgos ", recipient.KindEmail, "Ana@Example.com", "Ana")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", rec.Value)
	assert.Len(t, f.recipients.lists["riesgos"], 1)

	_, err = f.svc.UpdateRecipient(ctx, "riesgos", rec.ID, "ana.g@example.com", "Ana G.")
	require.NoError(t, err)
	assert.Equal(t, "ana.g@example.com", f.recipients.lists["riesgos"][0].Value)

	f.recipients.fail = errors.New("db down")
	_, err = f.svc.AddRecipient(ctx, "riesgos", recipient.KindDynamic, "{{responsable}}", "")
	assert.ErrorIs(t, err, session.ErrPersistence)
	assert.Len(t, f.svc.ListRecipients("riesgos"), 1, "failed write is rolled back")

	assert.ErrorIs(t, f.svc.RemoveRecipient(ctx, "riesgos", rec.ID), session.ErrPersistence)
	assert.Len(t, f.svc.ListRecipients("riesgos"), 1)

	f.recipients.fail = nil
	require.NoError(t, f.svc.RemoveRecipient(ctx, "riesgos", rec.ID))
	assert.Empty(t, f.recipients.lists["riesgos"])

	_, err = f.svc.AddRecipient(ctx, "riesgos", recipient.KindEmail, "not-an-address", "")
	assert.ErrorIs(t, err, recipient.ErrInvalidValue)
}

// stalledRecipients holds the first save until release is closed and then
// fails it.
type stalledRecipients struct {
	*memRecipients
	calls   int32
	entered chan struct{}
	release chan struct{}
}

func (m *stalledRecipients) SaveRecipients(ctx context.Context, module string, list []recipient.Recipient) error {
	if atomic.AddInt32(&m.calls, 1) == 1 {
		close(m.entered)
		<-m.release
		return errors.New("db down")
	}
	return m.memRecipients.SaveRecipients(ctx, module, list)
}

func TestRecipientWritesSerializedPerModule(t *testing.T) {
	store := &stalledRecipients{
		memRecipients: &memRecipients{lists: make(map[string][]recipient.Recipient)},
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	svc := New(rule.NewMemoryPersistence(), WithRecipientStore(store))
	ctx := context.Background()

	var wg sync.WaitGroup
	var errA, errB error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errA = svc.AddRecipient(ctx, "riesgos", recipient.KindEmail, "a@example.com", "")
	}()
	<-store.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errB = svc.AddRecipient(ctx, "riesgos", recipient.KindEmail, "b@example.com", "")
	}()
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	assert.ErrorIs(t, errA, session.ErrPersistence)
	require.NoError(t, errB)

	values := func(list []recipient.Recipient) []string {
		var out []string
		for _, r := range list {
			out = append(out, r.Value)
		}
		return out
	}
	assert.Equal(t, []string{"b@example.com"}, values(svc.ListRecipients("riesgos")))
	assert.Equal(t, []string{"b@example.com"}, values(store.lists["riesgos"]))
}

func TestSelectCatalog(t *testing.T) {
	f := newFixture(t)
	sel, err := f.svc.SelectCatalog(context.Background(), "riesgos")
	require.NoError(t, err)
	assert.Equal(t, "riesgos", sel.Module)
	require.Len(t, sel.Flat, 1)

	bare := New(rule.NewMemoryPersistence())
	_, err = bare.SelectCatalog(context.Background(), "riesgos")
	assert.ErrorIs(t, err, ErrNoCatalog)
}

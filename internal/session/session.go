// Package session implements the rule editing session: a working copy of one
// rule, its baseline, and the Idle/Viewing/Dirty transitions between them.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"notifyconsole/internal/render"
	"notifyconsole/internal/rule"
	"notifyconsole/internal/template"
	"notifyconsole/internal/variable"
)

type State int

const (
	Idle State = iota
	Viewing
	Dirty
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Viewing:
		return "viewing"
	case Dirty:
		return "dirty"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var (
	ErrNoSelection        = errors.New("no rule selected")
	ErrSelectionCancelled = errors.New("pending changes kept, selection cancelled")
	ErrDeleteCancelled    = errors.New("delete cancelled")
	ErrPersistence        = errors.New("persistence failure")
)

// Confirmation prompts shown to the user.
const (
	MsgDiscardChanges = "Hay cambios sin guardar. ¿Desea descartarlos?"
	MsgDeleteRule     = "¿Eliminar la regla %q? Esta acción no se puede deshacer."
)

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(message string) bool
}

type ConfirmFunc func(message string) bool

func (f ConfirmFunc) Confirm(message string) bool { return f(message) }

var (
	AlwaysConfirm Confirmer = ConfirmFunc(func(string) bool { return true })
	NeverConfirm  Confirmer = ConfirmFunc(func(string) bool { return false })
)

type ChangeKind string

const (
	ChangeSaved   ChangeKind = "saved"
	ChangeDeleted ChangeKind = "deleted"
)

// Change describes a committed save or delete.
type Change struct {
	Kind     ChangeKind    `json:"kind"`
	Category rule.Category `json:"category"`
	RuleID   string        `json:"ruleId"`
	Created  bool          `json:"created,omitempty"`
	Rule     *rule.Rule    `json:"rule,omitempty"`
	At       time.Time     `json:"at"`
}

// Observer is told about every committed change.
type Observer func(ctx context.Context, c Change)

type Option func(*Session)

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithBlockIDs sets the block id generator of the template editor.
func WithBlockIDs(fn func() string) Option {
	return func(s *Session) { s.blockID = fn }
}

func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// Session edits one rule at a time. It is not safe for concurrent use.
type Session struct {
	store     *rule.Store
	persist   rule.Persistence
	confirm   Confirmer
	log       *zap.Logger
	observers []Observer
	blockID   func() string

	state    State
	baseline *rule.Rule
	working  *rule.Rule
	editor   *template.Editor
	isNew    bool
}

// New creates an idle session over store. A nil confirmer declines every
// prompt.
func New(store *rule.Store, persist rule.Persistence, confirm Confirmer, opts ...Option) *Session {
	if confirm == nil {
		confirm = NeverConfirm
	}
	s := &Session{
		store:   store,
		persist: persist,
		confirm: confirm,
		log:     zap.NewNop(),
		blockID: template.NewBlockID,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) Subscribe(o Observer) { s.observers = append(s.observers, o) }

func (s *Session) State() State { return s.state }

// IsNew reports whether the working copy is a draft not yet saved.
func (s *Session) IsNew() bool { return s.state != Idle && s.isNew }

// Current returns a copy of the working rule, or nil when idle.
func (s *Session) Current() *rule.Rule { return s.working.Clone() }

// Baseline returns a copy of the last saved value, or the draft defaults for
// a new rule.
func (s *Session) Baseline() *rule.Rule { return s.baseline.Clone() }

// Template returns a copy of the template shown in the editor. Rules without
// a template show the default one.
func (s *Session) Template() *template.Template {
	if s.editor == nil {
		return nil
	}
	return s.editor.Template().Clone()
}

// Select opens the stored rule category/id. With pending changes the user
// must confirm discarding them first.
func (s *Session) Select(category rule.Category, id string) error {
	if s.state == Dirty && !s.confirm.Confirm(MsgDiscardChanges) {
		return ErrSelectionCancelled
	}
	r, err := s.store.Get(category, id)
	if err != nil {
		return err
	}
	s.load(r, false)
	s.state = Viewing
	s.log.Debug("rule selected", zap.String("category", string(category)), zap.String("id", id))
	return nil
}

// NewRule opens a draft of category with default values. The draft is not
// in the store until saved.
func (s *Session) NewRule(category rule.Category) error {
	draft, err := rule.NewDraft(category)
	if err != nil {
		return err
	}
	if s.state == Dirty && !s.confirm.Confirm(MsgDiscardChanges) {
		return ErrSelectionCancelled
	}
	s.load(draft, true)
	s.state = Dirty
	return nil
}

// Close returns to Idle, gated like Select when there are pending changes.
func (s *Session) Close() error {
	if s.state == Dirty && !s.confirm.Confirm(MsgDiscardChanges) {
		return ErrSelectionCancelled
	}
	s.clear()
	return nil
}

// Edit applies fn to the working copy. Identity, category and timestamps are
// restored after fn runs.
func (s *Session) Edit(fn func(r *rule.Rule)) error {
	if s.state == Idle {
		return ErrNoSelection
	}
	w := s.working
	id, cat, created, updated := w.ID, w.Category, w.CreatedAt, w.UpdatedAt
	tpl := w.Template
	fn(w)
	w.ID, w.Category, w.CreatedAt, w.UpdatedAt = id, cat, created, updated
	if w.Template != tpl {
		s.bindEditor(s.editorSelection())
	}
	s.state = Dirty
	return nil
}

func (s *Session) AddBlock(kind template.BlockKind) (string, error) {
	if s.state == Idle {
		return "", ErrNoSelection
	}
	id, err := s.editor.AddBlock(kind)
	if err != nil {
		return "", err
	}
	s.touchTemplate()
	return id, nil
}

// UpdateBlock merges patch into block id. Unknown ids change nothing.
func (s *Session) UpdateBlock(id string, patch template.Patch) error {
	if s.state == Idle {
		return ErrNoSelection
	}
	if s.editor.UpdateBlock(id, patch) {
		s.touchTemplate()
	}
	return nil
}

func (s *Session) RemoveBlock(id string) error {
	if s.state == Idle {
		return ErrNoSelection
	}
	if s.editor.RemoveBlock(id) {
		s.touchTemplate()
	}
	return nil
}

func (s *Session) MoveBlock(index, direction int) error {
	if s.state == Idle {
		return ErrNoSelection
	}
	if s.editor.MoveBlock(index, direction) {
		s.touchTemplate()
	}
	return nil
}

// SetSubject replaces the template subject line.
func (s *Session) SetSubject(subject string) error {
	if s.state == Idle {
		return ErrNoSelection
	}
	s.editor.SetSubject(subject)
	s.touchTemplate()
	return nil
}

// ResetTemplate replaces the block list. A nil list loads the default
// template.
func (s *Session) ResetTemplate(blocks []template.Block) error {
	if s.state == Idle {
		return ErrNoSelection
	}
	if blocks == nil {
		blocks = template.DefaultTemplateWithIDs(s.blockID).Blocks
	}
	s.editor.Reset(blocks)
	s.touchTemplate()
	return nil
}

// SelectBlock moves the block editor selection. It is not an edit.
func (s *Session) SelectBlock(id string) error {
	if s.state == Idle {
		return ErrNoSelection
	}
	s.editor.Select(id)
	return nil
}

func (s *Session) SelectedBlock() (template.Block, bool) {
	if s.editor == nil {
		return template.Block{}, false
	}
	return s.editor.Selected()
}

// Save validates the working copy, writes it through persistence and only
// then updates the store and the baseline. Any failure leaves the session
// as it was.
func (s *Session) Save(ctx context.Context) error {
	switch s.state {
	case Idle:
		return ErrNoSelection
	case Viewing:
		return nil
	}
	candidate := s.working.Clone()
	candidate.Normalize()
	if err := rule.Validate(candidate); err != nil {
		return err
	}
	s.store.Stamp(candidate)

	saved, err := s.persist.SaveRule(ctx, candidate.Category, candidate)
	if err != nil {
		s.log.Warn("save rule failed", zap.String("category", string(candidate.Category)), zap.String("id", candidate.ID), zap.Error(err))
		return fmt.Errorf("%w: save rule: %w", ErrPersistence, err)
	}
	if saved == nil {
		saved = candidate
	}
	if err := s.store.Put(saved); err != nil {
		return fmt.Errorf("store rule: %w", err)
	}

	created := s.isNew
	sel := s.editorSelection()
	s.baseline = saved.Clone()
	s.working = saved.Clone()
	s.isNew = false
	s.bindEditor(sel)
	s.state = Viewing

	s.log.Info("rule saved", zap.String("category", string(saved.Category)), zap.String("id", saved.ID), zap.Bool("created", created))
	s.notify(ctx, Change{Kind: ChangeSaved, Category: saved.Category, RuleID: saved.ID, Created: created, Rule: saved.Clone(), At: saved.UpdatedAt})
	return nil
}

// Discard restores the baseline into the working copy. Discarding a draft
// that was never saved returns to Idle.
func (s *Session) Discard() error {
	switch s.state {
	case Idle:
		return ErrNoSelection
	case Viewing:
		return nil
	}
	if s.isNew {
		s.clear()
		return nil
	}
	s.load(s.baseline, false)
	s.state = Viewing
	return nil
}

// Delete removes a stored rule after confirmation. Deleting the selected
// rule returns the session to Idle.
func (s *Session) Delete(ctx context.Context, category rule.Category, id string) error {
	r, err := s.store.Get(category, id)
	if err != nil {
		return err
	}
	if !s.confirm.Confirm(fmt.Sprintf(MsgDeleteRule, r.Name)) {
		return ErrDeleteCancelled
	}
	if err := s.persist.DeleteRule(ctx, category, id); err != nil {
		s.log.Warn("delete rule failed", zap.String("category", string(category)), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("%w: delete rule: %w", ErrPersistence, err)
	}
	if err := s.store.Remove(category, id); err != nil && !errors.Is(err, rule.ErrNotFound) {
		return err
	}
	if s.state != Idle && !s.isNew && s.working.Category == category && s.working.ID == id {
		s.clear()
	}
	s.log.Info("rule deleted", zap.String("category", string(category)), zap.String("id", id))
	s.notify(ctx, Change{Kind: ChangeDeleted, Category: category, RuleID: id, Rule: r, At: s.store.Now()})
	return nil
}

// Preview renders the editor template of the working copy for channel. A
// nil ctx uses the sample context.
func (s *Session) Preview(channel render.Channel, ctx *variable.Context, opts render.Options) (*render.Document, error) {
	if s.state == Idle {
		return nil, ErrNoSelection
	}
	tpl := s.editor.Template()
	return render.Preview(channel, tpl.Subject, tpl.Blocks, ctx, opts)
}

func (s *Session) load(r *rule.Rule, isNew bool) {
	s.baseline = r.Clone()
	s.working = r.Clone()
	s.isNew = isNew
	s.bindEditor("")
}

func (s *Session) clear() {
	s.baseline, s.working, s.editor = nil, nil, nil
	s.isNew = false
	s.state = Idle
}

// bindEditor points the block editor at the working template, or at a
// detached default template when the rule has none.
func (s *Session) bindEditor(selected string) {
	tpl := s.working.Template
	if tpl == nil {
		tpl = template.DefaultTemplateWithIDs(s.blockID)
	}
	s.editor = template.NewEditor(tpl).WithIDGenerator(s.blockID)
	if selected != "" {
		s.editor.Select(selected)
	}
}

func (s *Session) editorSelection() string {
	if s.editor == nil {
		return ""
	}
	if b, ok := s.editor.Selected(); ok {
		return b.ID
	}
	return ""
}

// touchTemplate attaches the editor template to the working copy and marks
// the session dirty.
func (s *Session) touchTemplate() {
	s.working.Template = s.editor.Template()
	s.state = Dirty
}

func (s *Session) notify(ctx context.Context, c Change) {
	for _, o := range s.observers {
		o(ctx, c)
	}
}

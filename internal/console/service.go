// Package console wires the rule store, its persistence, the recipient
// registry, the catalog cache and the audit sinks behind one service, and
// keeps the editing sessions of every open console.
package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"notifyconsole/internal/catalog"
	"notifyconsole/internal/recipient"
	"notifyconsole/internal/rule"
	"notifyconsole/internal/session"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoCatalog       = errors.New("no catalog configured")
)

// RecipientStore persists recipient lists and can enumerate the modules it
// holds.
type RecipientStore interface {
	recipient.Persistence
	Modules(ctx context.Context) ([]string, error)
}

// Recorder is an audit sink for committed rule changes.
type Recorder func(ctx context.Context, c session.Change) error

type Option func(*Service)

func WithStore(store *rule.Store) Option {
	return func(s *Service) { s.store = store }
}

func WithRecipientStore(rs RecipientStore) Option {
	return func(s *Service) { s.recipientStore = rs }
}

func WithCatalog(src catalog.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.catalog = catalog.NewCache(src)
		}
	}
}

// WithRecorder adds an audit sink. Sink failures are logged and never undo
// the change.
func WithRecorder(name string, rec Recorder) Option {
	return func(s *Service) {
		s.recorders = append(s.recorders, namedRecorder{name: name, rec: rec})
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithSessionIDs(fn func() string) Option {
	return func(s *Service) { s.newSessionID = fn }
}

func WithBlockIDs(fn func() string) Option {
	return func(s *Service) { s.blockID = fn }
}

type namedRecorder struct {
	name string
	rec  Recorder
}

// entry serializes one editing session. confirm carries the answer of the
// request currently driving it.
type entry struct {
	mu      sync.Mutex
	sess    *session.Session
	confirm bool
}

type Service struct {
	store          *rule.Store
	persist        rule.Persistence
	recipients     *recipient.Registry
	recipientStore RecipientStore
	catalog        *catalog.Cache
	recorders      []namedRecorder
	log            *zap.Logger
	newSessionID   func() string
	blockID        func() string

	mu       sync.Mutex
	sessions map[string]*entry
	modules  map[string]*sync.Mutex // recipient writes, per module
}

func New(persist rule.Persistence, opts ...Option) *Service {
	s := &Service{
		persist:      persist,
		recipients:   recipient.NewRegistry(),
		log:          zap.NewNop(),
		newSessionID: uuid.NewString,
		sessions:     make(map[string]*entry),
		modules:      make(map[string]*sync.Mutex),
	}
	for _, o := range opts {
		o(s)
	}
	if s.store == nil {
		s.store = rule.NewStore()
	}
	return s
}

func (s *Service) Store() *rule.Store { return s.store }

func (s *Service) Recipients() *recipient.Registry { return s.recipients }

// Bootstrap loads every rule category and every stored recipient list.
func (s *Service) Bootstrap(ctx context.Context) error {
	for _, c := range rule.Categories() {
		rules, err := s.persist.LoadRules(ctx, c)
		if err != nil {
			return fmt.Errorf("%w: load %s rules: %w", session.ErrPersistence, c, err)
		}
		if err := s.store.Replace(c, rules); err != nil {
			return fmt.Errorf("load %s rules: %w", c, err)
		}
	}

	if s.recipientStore != nil {
		modules, err := s.recipientStore.Modules(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", session.ErrPersistence, err)
		}
		for _, m := range modules {
			list, err := s.recipientStore.LoadRecipients(ctx, m)
			if err != nil {
				return fmt.Errorf("%w: %w", session.ErrPersistence, err)
			}
			if err := s.recipients.Replace(m, list); err != nil {
				return fmt.Errorf("load recipients of %s: %w", m, err)
			}
		}
	}

	n, _ := s.store.Count(rule.CategoryAll)
	s.log.Info("console bootstrapped", zap.Int("rules", n), zap.Int("recipient_modules", len(s.recipients.Modules())))
	return nil
}

// OpenSession starts an idle editing session and returns its id.
func (s *Service) OpenSession() string {
	e := &entry{}
	confirm := session.ConfirmFunc(func(string) bool { return e.confirm })
	opts := []session.Option{
		session.WithLogger(s.log.Named("session")),
		session.WithObserver(s.record),
	}
	if s.blockID != nil {
		opts = append(opts, session.WithBlockIDs(s.blockID))
	}
	e.sess = session.New(s.store, s.persist, confirm, opts...)

	id := s.newSessionID()
	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()
	s.log.Debug("session opened", zap.String("session", id))
	return id
}

// Do runs fn on the session id while holding its lock. confirm answers every
// confirmation prompt raised during fn.
func (s *Service) Do(id string, confirm bool, fn func(*session.Session) error) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.confirm = confirm
	defer func() { e.confirm = false }()
	return fn(e.sess)
}

// CloseSession drops the session. A dirty session is only closed when
// confirm is set.
func (s *Service) CloseSession(id string, confirm bool) error {
	err := s.Do(id, confirm, func(sess *session.Session) error { return sess.Close() })
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.log.Debug("session closed", zap.String("session", id))
	return nil
}

func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Service) entry(id string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (s *Service) record(ctx context.Context, c session.Change) {
	for _, r := range s.recorders {
		if err := r.rec(ctx, c); err != nil {
			s.log.Warn("audit sink failed",
				zap.String("sink", r.name),
				zap.String("category", string(c.Category)),
				zap.String("id", c.RuleID),
				zap.Error(err))
		}
	}
}

// SelectCatalog loads the entity catalog of module.
func (s *Service) SelectCatalog(ctx context.Context, module string) (*catalog.Selection, error) {
	if s.catalog == nil {
		return nil, ErrNoCatalog
	}
	sel, err := s.catalog.Select(ctx, module)
	if err != nil {
		s.log.Warn("catalog load failed", zap.String("module", module), zap.Error(err))
		return nil, err
	}
	return sel, nil
}

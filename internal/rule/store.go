package rule

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps the three rule collections in insertion order. Every rule
// going in or coming out is deep copied, so callers never share state with
// the store.
type Store struct {
	mu    sync.RWMutex
	rules map[Category][]*Rule
	now   func() time.Time
	newID func() string
}

type StoreOption func(*Store)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the identity generator used by Create and Stamp.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) { s.newID = fn }
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		rules: make(map[Category][]*Rule, 3),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// List returns the rules of category in order. CategoryAll concatenates the
// three collections in Categories order.
func (s *Store) List(category Category) ([]*Rule, error) {
	cats, err := expand(category)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Rule
	for _, c := range cats {
		for _, r := range s.rules[c] {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// Count returns the number of rules in category, or in all of them.
func (s *Store) Count(category Category) (int, error) {
	cats, err := expand(category)
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range cats {
		n += len(s.rules[c])
	}
	return n, nil
}

func (s *Store) Get(category Category, id string) (*Rule, error) {
	if !category.Valid() {
		return nil, ErrUnknownCategory
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(category, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return s.rules[category][i].Clone(), nil
}

// Now reads the store clock.
func (s *Store) Now() time.Time { return s.now() }

// Stamp fills in identity and timestamps on r the way Create does, without
// storing it. An existing id is kept.
func (s *Store) Stamp(r *Rule) {
	now := s.now()
	if r.ID == "" {
		r.ID = s.newID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}

// Create stores a copy of draft under category with a new identity and
// creation timestamp.
func (s *Store) Create(category Category, draft *Rule) (*Rule, error) {
	if !category.Valid() {
		return nil, ErrUnknownCategory
	}
	r := draft.Clone()
	if r == nil {
		r = &Rule{}
	}
	r.Category = category
	if payloads(r) > 0 && !payloadMatches(r) {
		return nil, ErrCategoryMix
	}
	r.ID = ""
	r.CreatedAt = time.Time{}
	s.Stamp(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index(category, r.ID) >= 0 {
		return nil, ErrDuplicateID
	}
	s.rules[category] = append(s.rules[category], r)
	return r.Clone(), nil
}

// Update applies patch to a copy of the stored rule and stores the result.
// Identity, category and creation time cannot be changed by patch.
func (s *Store) Update(category Category, id string, patch func(*Rule)) (*Rule, error) {
	if !category.Valid() {
		return nil, ErrUnknownCategory
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(category, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	old := s.rules[category][i]
	r := old.Clone()
	if patch != nil {
		patch(r)
	}
	r.ID, r.Category, r.CreatedAt = old.ID, old.Category, old.CreatedAt
	if payloads(r) > 0 && !payloadMatches(r) {
		return nil, ErrCategoryMix
	}
	r.UpdatedAt = s.now()
	s.rules[category][i] = r
	return r.Clone(), nil
}

func (s *Store) Remove(category Category, id string) error {
	if !category.Valid() {
		return ErrUnknownCategory
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(category, id)
	if i < 0 {
		return ErrNotFound
	}
	list := s.rules[category]
	s.rules[category] = append(list[:i:i], list[i+1:]...)
	return nil
}

// Put inserts r, or replaces the rule with the same key in place. The value
// is stored as given, timestamps included.
func (s *Store) Put(r *Rule) error {
	if r == nil || !r.Category.Valid() {
		return ErrUnknownCategory
	}
	if r.ID == "" {
		return ErrNotFound
	}
	c := r.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(c.Category, c.ID); i >= 0 {
		s.rules[c.Category][i] = c
		return nil
	}
	s.rules[c.Category] = append(s.rules[c.Category], c)
	return nil
}

// Replace swaps the whole collection of category, as loaded from
// persistence. Rules of other categories are rejected.
func (s *Store) Replace(category Category, rules []*Rule) error {
	if !category.Valid() {
		return ErrUnknownCategory
	}
	list := make([]*Rule, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if r == nil {
			continue
		}
		if r.Category != category {
			return ErrCategoryMix
		}
		if _, ok := seen[r.ID]; ok {
			return ErrDuplicateID
		}
		seen[r.ID] = struct{}{}
		list = append(list, r.Clone())
	}
	s.mu.Lock()
	s.rules[category] = list
	s.mu.Unlock()
	return nil
}

func (s *Store) index(category Category, id string) int {
	for i, r := range s.rules[category] {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func expand(category Category) ([]Category, error) {
	if category == CategoryAll {
		return Categories(), nil
	}
	if !category.Valid() {
		return nil, ErrUnknownCategory
	}
	return []Category{category}, nil
}

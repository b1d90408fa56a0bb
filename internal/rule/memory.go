package rule

import (
	"context"
	"sync"
)

// MemoryPersistence is a Persistence kept in process memory. It backs the
// console when no database is configured and doubles as a test fake.
type MemoryPersistence struct {
	mu    sync.Mutex
	rules map[Key]*Rule
	order []Key

	// FailSave and FailDelete, when set, are returned by the next calls.
	FailSave   error
	FailDelete error
	Saves      int
	Deletes    int
}

func NewMemoryPersistence(seed ...*Rule) *MemoryPersistence {
	m := &MemoryPersistence{rules: make(map[Key]*Rule)}
	for _, r := range seed {
		m.put(r.Clone())
	}
	return m
}

func (m *MemoryPersistence) put(r *Rule) {
	k := r.Key()
	if _, ok := m.rules[k]; !ok {
		m.order = append(m.order, k)
	}
	m.rules[k] = r
}

func (m *MemoryPersistence) LoadRules(_ context.Context, category Category) ([]*Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Rule
	for _, k := range m.order {
		if k.Category == category {
			out = append(out, m.rules[k].Clone())
		}
	}
	return out, nil
}

func (m *MemoryPersistence) SaveRule(_ context.Context, category Category, r *Rule) (*Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return nil, m.FailSave
	}
	if r.Category != category {
		return nil, ErrCategoryMix
	}
	m.Saves++
	m.put(r.Clone())
	return r.Clone(), nil
}

func (m *MemoryPersistence) DeleteRule(_ context.Context, category Category, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete != nil {
		return m.FailDelete
	}
	k := Key{Category: category, ID: id}
	if _, ok := m.rules[k]; !ok {
		return ErrNotFound
	}
	delete(m.rules, k)
	for i, o := range m.order {
		if o == k {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.Deletes++
	return nil
}

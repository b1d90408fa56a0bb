package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"notifyconsole/internal/rule"
	"notifyconsole/internal/session"
)

func (s *Service) ListRules(category rule.Category) ([]*rule.Rule, error) {
	return s.store.List(category)
}

func (s *Service) GetRule(category rule.Category, id string) (*rule.Rule, error) {
	return s.store.Get(category, id)
}

// CreateRule validates draft, persists it under a new identity and stores
// it. It is the session-less path used by bulk tooling and the API.
func (s *Service) CreateRule(ctx context.Context, category rule.Category, draft *rule.Rule) (*rule.Rule, error) {
	if !category.Valid() {
		return nil, rule.ErrUnknownCategory
	}
	r := draft.Clone()
	if r == nil {
		return nil, rule.Validate(nil)
	}
	r.Category = category
	r.ID = ""
	r.CreatedAt = time.Time{}
	return s.commit(ctx, r, true)
}

// UpdateRule applies patch to a copy of the stored rule, then validates and
// persists it. Identity, category and creation time survive the patch.
func (s *Service) UpdateRule(ctx context.Context, category rule.Category, id string, patch func(*rule.Rule)) (*rule.Rule, error) {
	old, err := s.store.Get(category, id)
	if err != nil {
		return nil, err
	}
	r := old.Clone()
	if patch != nil {
		patch(r)
	}
	r.ID, r.Category, r.CreatedAt = old.ID, old.Category, old.CreatedAt
	return s.commit(ctx, r, false)
}

// RemoveRule deletes the rule from persistence and then from the store once
// confirm accepts the delete prompt.
func (s *Service) RemoveRule(ctx context.Context, category rule.Category, id string, confirm session.Confirmer) error {
	old, err := s.store.Get(category, id)
	if err != nil {
		return err
	}
	if !confirm.Confirm(fmt.Sprintf(session.MsgDeleteRule, old.Name)) {
		return session.ErrDeleteCancelled
	}
	if err := s.persist.DeleteRule(ctx, category, id); err != nil {
		s.log.Warn("delete rule failed", zap.String("category", string(category)), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("%w: delete rule: %w", session.ErrPersistence, err)
	}
	if err := s.store.Remove(category, id); err != nil && !errors.Is(err, rule.ErrNotFound) {
		return err
	}
	s.record(ctx, session.Change{Kind: session.ChangeDeleted, Category: category, RuleID: id, Rule: old, At: s.store.Now()})
	return nil
}

func (s *Service) commit(ctx context.Context, r *rule.Rule, created bool) (*rule.Rule, error) {
	r.Normalize()
	if err := rule.Validate(r); err != nil {
		return nil, err
	}
	s.store.Stamp(r)
	saved, err := s.persist.SaveRule(ctx, r.Category, r)
	if err != nil {
		s.log.Warn("save rule failed", zap.String("category", string(r.Category)), zap.String("id", r.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: save rule: %w", session.ErrPersistence, err)
	}
	if saved == nil {
		saved = r
	}
	if err := s.store.Put(saved); err != nil {
		return nil, fmt.Errorf("store rule: %w", err)
	}
	s.log.Info("rule saved", zap.String("category", string(saved.Category)), zap.String("id", saved.ID), zap.Bool("created", created))
	s.record(ctx, session.Change{Kind: session.ChangeSaved, Category: saved.Category, RuleID: saved.ID, Created: created, Rule: saved.Clone(), At: saved.UpdatedAt})
	return saved.Clone(), nil
}

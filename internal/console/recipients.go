package console

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"notifyconsole/internal/recipient"
	"notifyconsole/internal/session"
)

func (s *Service) ListRecipients(module string) []recipient.Recipient {
	return s.recipients.List(module)
}

func (s *Service) RecipientModules() []string {
	return s.recipients.Modules()
}

func (s *Service) AddRecipient(ctx context.Context, module string, kind recipient.Kind, value, displayName string) (recipient.Recipient, error) {
	var rec recipient.Recipient
	err := s.writeRecipients(ctx, module, func() error {
		var err error
		rec, err = s.recipients.Add(module, kind, value, displayName)
		return err
	})
	return rec, err
}

func (s *Service) UpdateRecipient(ctx context.Context, module, id, value, displayName string) (recipient.Recipient, error) {
	var rec recipient.Recipient
	err := s.writeRecipients(ctx, module, func() error {
		var err error
		rec, err = s.recipients.Update(module, id, value, displayName)
		return err
	})
	return rec, err
}

func (s *Service) RemoveRecipient(ctx context.Context, module, id string) error {
	return s.writeRecipients(ctx, module, func() error {
		return s.recipients.Remove(module, id)
	})
}

// writeRecipients applies change to the registry and writes the resulting
// list of module through. A failed write restores the previous list.
func (s *Service) writeRecipients(ctx context.Context, module string, change func() error) error {
	module = strings.ToLower(strings.TrimSpace(module))
	mu := s.moduleLock(module)
	mu.Lock()
	defer mu.Unlock()

	prev := s.recipients.List(module)
	if err := change(); err != nil {
		return err
	}
	if s.recipientStore == nil {
		return nil
	}
	if err := s.recipientStore.SaveRecipients(ctx, module, s.recipients.List(module)); err != nil {
		if rerr := s.recipients.Replace(module, prev); rerr != nil {
			s.log.Error("recipient rollback failed", zap.String("module", module), zap.Error(rerr))
		}
		s.log.Warn("save recipients failed", zap.String("module", module), zap.Error(err))
		return fmt.Errorf("%w: save recipients: %w", session.ErrPersistence, err)
	}
	return nil
}

func (s *Service) moduleLock(module string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.modules[module]
	if !ok {
		mu = &sync.Mutex{}
		s.modules[module] = mu
	}
	return mu
}

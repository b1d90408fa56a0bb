package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"notifyconsole/internal/models"
	"notifyconsole/internal/recipient"
	"notifyconsole/internal/rule"
	"notifyconsole/internal/session"
)

// RuleRepository stores rules in the notification_rules table.
type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

var _ rule.Persistence = (*RuleRepository)(nil)

func (r *RuleRepository) LoadRules(ctx context.Context, category rule.Category) ([]*rule.Rule, error) {
	var rows []models.NotificationRule
	err := r.db.WithContext(ctx).
		Where("category = ?", string(category)).
		Order("created_at, rule_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s rules: %w", category, err)
	}

	out := make([]*rule.Rule, 0, len(rows))
	for i := range rows {
		rl, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rl)
	}
	return out, nil
}

// SaveRule inserts or overwrites the rule row.
func (r *RuleRepository) SaveRule(ctx context.Context, category rule.Category, rl *rule.Rule) (*rule.Rule, error) {
	if rl.Category != category {
		return nil, rule.ErrCategoryMix
	}
	row, err := toRow(rl)
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save rule %s/%s: %w", category, rl.ID, err)
	}
	return rl.Clone(), nil
}

func (r *RuleRepository) DeleteRule(ctx context.Context, category rule.Category, id string) error {
	res := r.db.WithContext(ctx).
		Where("category = ? AND rule_id = ?", string(category), id).
		Delete(&models.NotificationRule{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete rule %s/%s: %w", category, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return rule.ErrNotFound
	}
	return nil
}

func toRow(rl *rule.Rule) (*models.NotificationRule, error) {
	payload, err := json.Marshal(rl)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rule: %w", err)
	}
	return &models.NotificationRule{
		Category:     string(rl.Category),
		RuleID:       rl.ID,
		Name:         rl.Name,
		Scope:        rl.Scope,
		Active:       rl.Active,
		Severity:     string(rl.Severity),
		InAppEnabled: rl.Channels.InApp,
		EmailEnabled: rl.Channels.Email,
		Payload:      string(payload),
		CreatedAt:    rl.CreatedAt,
		UpdatedAt:    rl.UpdatedAt,
	}, nil
}

func fromRow(row *models.NotificationRule) (*rule.Rule, error) {
	var rl rule.Rule
	if err := json.Unmarshal([]byte(row.Payload), &rl); err != nil {
		return nil, fmt.Errorf("failed to parse rule %s/%s: %w", row.Category, row.RuleID, err)
	}
	rl.Category = rule.Category(row.Category)
	rl.ID = row.RuleID
	return &rl, nil
}

// RecipientRepository stores the per-module recipient lists.
type RecipientRepository struct {
	db *gorm.DB
}

func NewRecipientRepository(db *gorm.DB) *RecipientRepository {
	return &RecipientRepository{db: db}
}

var _ recipient.Persistence = (*RecipientRepository)(nil)

func (r *RecipientRepository) LoadRecipients(ctx context.Context, module string) ([]recipient.Recipient, error) {
	var rows []models.NotificationRecipient
	if err := r.db.WithContext(ctx).Where("module = ?", module).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load recipients of %s: %w", module, err)
	}
	out := make([]recipient.Recipient, len(rows))
	for i, row := range rows {
		out[i] = recipient.Recipient{
			ID:          row.ID,
			Kind:        recipient.Kind(row.Kind),
			Value:       row.Value,
			DisplayName: row.DisplayName,
		}
	}
	return out, nil
}

// Modules lists the modules that have stored recipients.
func (r *RecipientRepository) Modules(ctx context.Context) ([]string, error) {
	var mods []string
	err := r.db.WithContext(ctx).Model(&models.NotificationRecipient{}).
		Distinct("module").Order("module").Pluck("module", &mods).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recipient modules: %w", err)
	}
	return mods, nil
}

// SaveRecipients replaces the stored list of module in one transaction.
func (r *RecipientRepository) SaveRecipients(ctx context.Context, module string, list []recipient.Recipient) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("module = ?", module).Delete(&models.NotificationRecipient{}).Error; err != nil {
			return fmt.Errorf("failed to clear recipients of %s: %w", module, err)
		}
		if len(list) == 0 {
			return nil
		}
		rows := make([]models.NotificationRecipient, len(list))
		for i, rec := range list {
			rows[i] = models.NotificationRecipient{
				ID:          rec.ID,
				Module:      module,
				Kind:        string(rec.Kind),
				Value:       rec.Value,
				DisplayName: rec.DisplayName,
				Position:    i,
				CreatedAt:   now,
			}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save recipients of %s: %w", module, err)
		}
		return nil
	})
}

// ChangeLog keeps committed rule changes in notification_rule_changes.
type ChangeLog struct {
	db *gorm.DB
}

func NewChangeLog(db *gorm.DB) *ChangeLog {
	return &ChangeLog{db: db}
}

func (l *ChangeLog) Record(ctx context.Context, c session.Change) error {
	row := models.RuleChange{
		Kind:      string(c.Kind),
		Category:  string(c.Category),
		RuleID:    c.RuleID,
		Created:   c.Created,
		ChangedAt: c.At,
	}
	if c.Rule != nil {
		row.RuleName = c.Rule.Name
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record rule change: %w", err)
	}
	return nil
}

// History returns the latest changes of one rule, newest first.
func (l *ChangeLog) History(ctx context.Context, category rule.Category, id string, limit int) ([]models.RuleChange, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []models.RuleChange
	err := l.db.WithContext(ctx).
		Where("category = ? AND rule_id = ?", string(category), id).
		Order("changed_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load rule history: %w", err)
	}
	return rows, nil
}

package models

import "time"

// NotificationRule is the stored form of a rule. The full rule travels as
// JSON in Payload; the other columns exist for filtering.
type NotificationRule struct {
	Category     string    `gorm:"primaryKey;size:20" json:"category"`
	RuleID       string    `gorm:"primaryKey;size:64" json:"rule_id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Scope        string    `gorm:"size:100;index" json:"scope"`
	Active       bool      `gorm:"index" json:"active"`
	Severity     string    `gorm:"size:20" json:"severity"`
	InAppEnabled bool      `json:"in_app_enabled"`
	EmailEnabled bool      `json:"email_enabled"`
	Payload      string    `gorm:"type:text;not null" json:"payload"` // JSON string
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (NotificationRule) TableName() string {
	return "notification_rules"
}

// NotificationRecipient is one extra recipient of a console module.
type NotificationRecipient struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Module      string    `gorm:"size:100;not null;index" json:"module"`
	Kind        string    `gorm:"size:20;not null" json:"kind"` // usuario, email, dinamico
	Value       string    `gorm:"size:255;not null" json:"value"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	Position    int       `gorm:"default:0" json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

func (NotificationRecipient) TableName() string {
	return "notification_recipients"
}

// RuleChange records a committed save or delete of a rule.
type RuleChange struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Kind      string    `gorm:"size:20;not null" json:"kind"` // saved, deleted
	Category  string    `gorm:"size:20;not null;index:idx_rule_change_rule" json:"category"`
	RuleID    string    `gorm:"size:64;not null;index:idx_rule_change_rule" json:"rule_id"`
	RuleName  string    `gorm:"size:255" json:"rule_name"`
	Created   bool      `json:"created"`
	ChangedAt time.Time `gorm:"index" json:"changed_at"`
}

func (RuleChange) TableName() string {
	return "notification_rule_changes"
}

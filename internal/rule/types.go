// Package rule holds the notification rule model shared by the three rule
// categories, its validation and the in-memory rule store.
package rule

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"time"

	"notifyconsole/internal/template"
)

// Category separates the independent rule collections.
type Category string

const (
	CategoryEvent      Category = "event"
	CategoryAlert      Category = "alert"
	CategoryExpiration Category = "expiration"
	// CategoryAll is the derived union, valid only for List and Count.
	CategoryAll Category = "all"
)

var (
	ErrUnknownCategory = errors.New("unknown rule category")
	ErrNotFound        = errors.New("rule not found")
	ErrDuplicateID     = errors.New("rule id already exists")
	ErrCategoryMix     = errors.New("rule payload does not match category")
)

// Categories lists the concrete categories in display order.
func Categories() []Category {
	return []Category{CategoryEvent, CategoryAlert, CategoryExpiration}
}

// Valid reports whether c is a concrete category.
func (c Category) Valid() bool {
	switch c {
	case CategoryEvent, CategoryAlert, CategoryExpiration:
		return true
	}
	return false
}

// ParseCategory accepts the category names plus the Spanish screen names.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "event", "events", "evento", "eventos", "notification", "notificacion":
		return CategoryEvent, nil
	case "alert", "alerts", "alerta", "alertas", "threshold":
		return CategoryAlert, nil
	case "expiration", "expirations", "vencimiento", "vencimientos":
		return CategoryExpiration, nil
	case "all", "todas", "":
		return CategoryAll, nil
	}
	return "", ErrUnknownCategory
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// EventKind is the lifecycle event an event rule reacts to.
type EventKind string

const (
	EventCreate    EventKind = "CREATE"
	EventUpdate    EventKind = "UPDATE"
	EventDelete    EventKind = "DELETE"
	EventApproval  EventKind = "APPROVAL"
	EventRejection EventKind = "REJECTION"
	EventKPIChange EventKind = "KPI_CHANGE"
)

// Operator compares an observed metric against a threshold.
type Operator string

const (
	OpGT  Operator = "GT"
	OpGTE Operator = "GTE"
	OpLT  Operator = "LT"
	OpLTE Operator = "LTE"
	OpEQ  Operator = "EQ"
	OpNEQ Operator = "NEQ"
)

// Holds reports whether value compared to threshold satisfies o.
func (o Operator) Holds(value, threshold float64) bool {
	switch o {
	case OpGT:
		return value > threshold
	case OpGTE:
		return value >= threshold
	case OpLT:
		return value < threshold
	case OpLTE:
		return value <= threshold
	case OpEQ:
		return value == threshold
	case OpNEQ:
		return value != threshold
	}
	return false
}

// Channels are the independently toggled delivery surfaces.
type Channels struct {
	InApp bool `json:"inApp"`
	Email bool `json:"email"`
}

// Recipients targets the people notified by a rule. Event rules use the
// creator, responsible and approvers flags, alert rules the role and user
// lists, expiration rules the responsible and supervisor flags.
type Recipients struct {
	Creator     bool     `json:"creator"`
	Responsible bool     `json:"responsible"`
	Approvers   bool     `json:"approvers"`
	Supervisor  bool     `json:"supervisor"`
	Roles       []string `json:"roles,omitempty"`
	Users       []string `json:"users,omitempty"`
}

type EventTrigger struct {
	Event EventKind `json:"event" validate:"required,oneof=CREATE UPDATE DELETE APPROVAL REJECTION KPI_CHANGE"`
}

type AlertTrigger struct {
	Metric          string   `json:"metric" validate:"required"`
	Operator        Operator `json:"operator" validate:"required,oneof=GT GTE LT LTE EQ NEQ"`
	Threshold       float64  `json:"threshold" validate:"gte=0"`
	CooldownMinutes int      `json:"cooldownMinutes" validate:"gte=0"`
}

// Cooldown returns the minimum delay between repeated firings.
func (a *AlertTrigger) Cooldown() time.Duration {
	return time.Duration(a.CooldownMinutes) * time.Minute
}

type ExpirationTrigger struct {
	DaysBefore []int `json:"daysBefore" validate:"dive,gt=0"`
	DaysAfter  []int `json:"daysAfter" validate:"dive,gt=0"`
}

// Rule is the shared record of every category. Exactly one of Event, Alert
// and Expiration is set and it matches Category.
type Rule struct {
	ID          string             `json:"id"`
	Category    Category           `json:"category"`
	Name        string             `json:"name" validate:"required"`
	Description string             `json:"description"`
	Active      bool               `json:"active"`
	Scope       string             `json:"scope" validate:"required"`
	Severity    Severity           `json:"severity,omitempty"`
	Channels    Channels           `json:"channels"`
	Recipients  Recipients         `json:"recipients"`
	Template    *template.Template `json:"template,omitempty"`
	Event       *EventTrigger      `json:"event,omitempty"`
	Alert       *AlertTrigger      `json:"alert,omitempty"`
	Expiration  *ExpirationTrigger `json:"expiration,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// Clone returns a deep copy of r.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	c := *r
	c.Recipients.Roles = cloneStrings(r.Recipients.Roles)
	c.Recipients.Users = cloneStrings(r.Recipients.Users)
	c.Template = r.Template.Clone()
	if r.Event != nil {
		e := *r.Event
		c.Event = &e
	}
	if r.Alert != nil {
		a := *r.Alert
		c.Alert = &a
	}
	if r.Expiration != nil {
		c.Expiration = &ExpirationTrigger{
			DaysBefore: cloneInts(r.Expiration.DaysBefore),
			DaysAfter:  cloneInts(r.Expiration.DaysAfter),
		}
	}
	return &c
}

// Equal compares two rules field for field. Nil and empty slices compare
// equal, times compare by instant.
func Equal(a, b *Rule) bool {
	if a == nil || b == nil {
		return a == b
	}
	x, y := a.Clone(), b.Clone()
	for _, r := range []*Rule{x, y} {
		r.canonical()
	}
	return reflect.DeepEqual(x, y)
}

func (r *Rule) canonical() {
	r.CreatedAt = r.CreatedAt.UTC().Round(0)
	r.UpdatedAt = r.UpdatedAt.UTC().Round(0)
	if len(r.Recipients.Roles) == 0 {
		r.Recipients.Roles = nil
	}
	if len(r.Recipients.Users) == 0 {
		r.Recipients.Users = nil
	}
	if r.Expiration != nil {
		if len(r.Expiration.DaysBefore) == 0 {
			r.Expiration.DaysBefore = nil
		}
		if len(r.Expiration.DaysAfter) == 0 {
			r.Expiration.DaysAfter = nil
		}
	}
	if r.Template != nil && len(r.Template.Blocks) == 0 {
		r.Template.Blocks = nil
	}
}

// Normalize trims the text fields, drops blank and repeated role and user
// entries and sorts the expiration offsets. Duplicated offsets are kept so
// validation can report them.
func (r *Rule) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Scope = strings.TrimSpace(r.Scope)
	r.Description = strings.TrimSpace(r.Description)
	r.Recipients.Roles = compactStrings(r.Recipients.Roles)
	r.Recipients.Users = compactStrings(r.Recipients.Users)
	if r.Alert != nil {
		r.Alert.Metric = strings.TrimSpace(r.Alert.Metric)
	}
	if r.Expiration != nil {
		r.Expiration.DaysBefore = sortedInts(r.Expiration.DaysBefore)
		r.Expiration.DaysAfter = sortedInts(r.Expiration.DaysAfter)
	}
}

// Key identifies a rule across categories.
type Key struct {
	Category Category
	ID       string
}

func (r *Rule) Key() Key { return Key{Category: r.Category, ID: r.ID} }

// Persistence is the external collaborator backing the store. The core calls
// it only at explicit save and delete points.
type Persistence interface {
	LoadRules(ctx context.Context, category Category) ([]*Rule, error)
	SaveRule(ctx context.Context, category Category, r *Rule) (*Rule, error)
	DeleteRule(ctx context.Context, category Category, id string) error
}

// NewDraft returns a rule of category with default field values and no
// identity.
func NewDraft(category Category) (*Rule, error) {
	if !category.Valid() {
		return nil, ErrUnknownCategory
	}
	r := &Rule{
		Category: category,
		Active:   true,
		Channels: Channels{InApp: true},
	}
	switch category {
	case CategoryEvent:
		r.Severity = SeverityMedium
		r.Event = &EventTrigger{Event: EventCreate}
		r.Recipients = Recipients{Responsible: true}
	case CategoryAlert:
		r.Severity = SeverityHigh
		r.Alert = &AlertTrigger{Operator: OpGT, CooldownMinutes: 60}
	case CategoryExpiration:
		r.Expiration = &ExpirationTrigger{DaysBefore: []int{7, 15, 30}, DaysAfter: []int{1}}
		r.Recipients = Recipients{Responsible: true}
	}
	return r, nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneInts(s []int) []int {
	if s == nil {
		return nil
	}
	return append([]int(nil), s...)
}

func compactStrings(s []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(s))
	for _, v := range s {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func sortedInts(s []int) []int {
	if len(s) == 0 {
		return nil
	}
	out := append([]int(nil), s...)
	sort.Ints(out)
	return out
}

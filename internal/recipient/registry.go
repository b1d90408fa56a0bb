// Package recipient keeps the extra recipients configured per console
// module: user references, literal addresses and dynamic placeholders that
// the dispatcher resolves when a notification goes out.
package recipient

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"notifyconsole/internal/rule"
)

type Kind string

const (
	KindUser    Kind = "usuario"
	KindEmail   Kind = "email"
	KindDynamic Kind = "dinamico"
)

// ParseKind accepts the stored names and their English equivalents.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "usuario", "user":
		return KindUser, nil
	case "email", "correo":
		return KindEmail, nil
	case "dinamico", "dinámico", "dynamic":
		return KindDynamic, nil
	}
	return "", ErrUnknownKind
}

var (
	ErrUnknownKind    = errors.New("unknown recipient kind")
	ErrInvalidValue   = errors.New("invalid recipient value")
	ErrDuplicate      = errors.New("recipient already registered")
	ErrNotFound       = errors.New("recipient not found")
	ErrModuleRequired = errors.New("module is required")
)

type Recipient struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Value       string `json:"value"`
	DisplayName string `json:"displayName,omitempty"`
}

// Persistence stores the recipient list of a module as a whole.
type Persistence interface {
	LoadRecipients(ctx context.Context, module string) ([]Recipient, error)
	SaveRecipients(ctx context.Context, module string, list []Recipient) error
}

// Placeholders known to the dispatcher. Other well-formed tokens are
// accepted as well.
var Placeholders = []string{"{{creador}}", "{{responsable}}", "{{aprobador}}", "{{supervisor}}", "{{propietario}}"}

var tokenPattern = regexp.MustCompile(`^\{\{\s*[A-Za-z][A-Za-z0-9_.]*\s*\}\}$`)

type Registry struct {
	mu    sync.RWMutex
	lists map[string][]Recipient
	newID func() string
}

func NewRegistry() *Registry {
	return &Registry{lists: make(map[string][]Recipient), newID: uuid.NewString}
}

// Add registers a recipient under module and returns it with its id.
func (r *Registry) Add(module string, kind Kind, value, displayName string) (Recipient, error) {
	module = normModule(module)
	if module == "" {
		return Recipient{}, ErrModuleRequired
	}
	rec := Recipient{Kind: kind, Value: value, DisplayName: strings.TrimSpace(displayName)}
	if err := check(&rec); err != nil {
		return Recipient{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if dup(r.lists[module], rec, "") {
		return Recipient{}, ErrDuplicate
	}
	rec.ID = r.newID()
	r.lists[module] = append(r.lists[module], rec)
	return rec, nil
}

// Update changes the value and display name of recipient id. The kind is
// fixed at creation.
func (r *Registry) Update(module, id, value, displayName string) (Recipient, error) {
	module = normModule(module)
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.lists[module]
	i := find(list, id)
	if i < 0 {
		return Recipient{}, ErrNotFound
	}
	rec := Recipient{ID: id, Kind: list[i].Kind, Value: value, DisplayName: strings.TrimSpace(displayName)}
	if err := check(&rec); err != nil {
		return Recipient{}, err
	}
	if dup(list, rec, id) {
		return Recipient{}, ErrDuplicate
	}
	list[i] = rec
	return rec, nil
}

func (r *Registry) Remove(module, id string) error {
	module = normModule(module)
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.lists[module]
	i := find(list, id)
	if i < 0 {
		return ErrNotFound
	}
	r.lists[module] = append(list[:i:i], list[i+1:]...)
	if len(r.lists[module]) == 0 {
		delete(r.lists, module)
	}
	return nil
}

// List returns a copy of the recipients of module in insertion order.
func (r *Registry) List(module string) []Recipient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.lists[normModule(module)]
	out := make([]Recipient, len(list))
	copy(out, list)
	return out
}

// Modules lists the modules that have recipients, sorted.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.lists))
	for m := range r.lists {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Replace validates list and swaps it in for module. Entries without id get
// one.
func (r *Registry) Replace(module string, list []Recipient) error {
	module = normModule(module)
	if module == "" {
		return ErrModuleRequired
	}
	next := make([]Recipient, 0, len(list))
	for _, rec := range list {
		if err := check(&rec); err != nil {
			return err
		}
		if dup(next, rec, "") {
			return ErrDuplicate
		}
		if rec.ID == "" {
			rec.ID = r.newID()
		}
		next = append(next, rec)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(next) == 0 {
		delete(r.lists, module)
		return nil
	}
	r.lists[module] = next
	return nil
}

// check normalizes rec in place and validates its value for the kind.
func check(rec *Recipient) error {
	rec.Value = strings.TrimSpace(rec.Value)
	if rec.Value == "" {
		return ErrInvalidValue
	}
	switch rec.Kind {
	case KindUser:
	case KindEmail:
		v, _ := rule.Validator()
		if err := v.Var(rec.Value, "email"); err != nil {
			return ErrInvalidValue
		}
		rec.Value = strings.ToLower(rec.Value)
	case KindDynamic:
		if !tokenPattern.MatchString(rec.Value) {
			return ErrInvalidValue
		}
	default:
		return ErrUnknownKind
	}
	return nil
}

func dup(list []Recipient, rec Recipient, skipID string) bool {
	for _, o := range list {
		if o.ID != skipID && o.Kind == rec.Kind && strings.EqualFold(o.Value, rec.Value) {
			return true
		}
	}
	return false
}

func find(list []Recipient, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func normModule(m string) string {
	return strings.ToLower(strings.TrimSpace(m))
}

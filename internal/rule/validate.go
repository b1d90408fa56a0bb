package rule

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ErrValidation matches every *ValidationError with errors.Is.
var ErrValidation = errors.New("validation failed")

// FieldError is one rejected field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every field that blocks a save.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Has reports whether field was rejected.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
	trans        ut.Translator
)

// Validator returns the shared validator configured with json field names
// and English messages. The recipient registry uses it too.
func Validator() (*validator.Validate, ut.Translator) {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(validate, trans)
	})
	return validate, trans
}

// Translate turns validator errors into field/reason pairs. The top-level
// struct name is dropped from the field path.
func Translate(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Reason: err.Error()}}
	}
	_, t := Validator()
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, FieldError{Field: field, Reason: fe.Translate(t)})
	}
	return out
}

// Validate checks everything a save needs: name, scope, a trigger condition
// matching the category and the numeric bounds of the trigger. It returns
// nil or a *ValidationError.
func Validate(r *Rule) error {
	if r == nil {
		return &ValidationError{Fields: []FieldError{{Field: "rule", Reason: "rule is required"}}}
	}
	verr := &ValidationError{}
	v, _ := Validator()
	if err := v.Struct(r); err != nil {
		verr.Fields = append(verr.Fields, Translate(err)...)
	}
	if strings.TrimSpace(r.Name) == "" && !verr.Has("name") {
		verr.add("name", "name is a required field")
	}
	if strings.TrimSpace(r.Scope) == "" && !verr.Has("scope") {
		verr.add("scope", "scope is a required field")
	}

	switch r.Category {
	case CategoryEvent:
		if r.Event == nil {
			verr.add("event", "event is a required field")
		}
		checkSeverity(verr, r.Severity)
	case CategoryAlert:
		if r.Alert == nil {
			verr.add("alert", "alert is a required field")
		}
		checkSeverity(verr, r.Severity)
	case CategoryExpiration:
		if r.Expiration == nil || len(r.Expiration.DaysBefore)+len(r.Expiration.DaysAfter) == 0 {
			verr.add("expiration", "at least one day offset is required")
		} else {
			checkUnique(verr, "expiration.daysBefore", r.Expiration.DaysBefore)
			checkUnique(verr, "expiration.daysAfter", r.Expiration.DaysAfter)
		}
	default:
		verr.add("category", fmt.Sprintf("category must be one of [%s %s %s]", CategoryEvent, CategoryAlert, CategoryExpiration))
	}
	if payloads(r) > 1 || (r.Category.Valid() && payloads(r) == 1 && !payloadMatches(r)) {
		verr.add("category", ErrCategoryMix.Error())
	}

	if r.Template != nil {
		ids := make(map[string]struct{}, len(r.Template.Blocks))
		for i, b := range r.Template.Blocks {
			if !b.Kind.Valid() {
				verr.add(fmt.Sprintf("template.blocks[%d].kind", i), fmt.Sprintf("unknown block kind %q", b.Kind))
			}
			field := fmt.Sprintf("template.blocks[%d].id", i)
			if b.ID == "" {
				verr.add(field, "id is a required field")
				continue
			}
			if _, ok := ids[b.ID]; ok {
				verr.add(field, fmt.Sprintf("id %q is already used by another block", b.ID))
			}
			ids[b.ID] = struct{}{}
		}
	}

	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

func checkSeverity(verr *ValidationError, s Severity) {
	switch s {
	case "", SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return
	}
	verr.add("severity", "severity must be one of [low medium high critical]")
}

func checkUnique(verr *ValidationError, field string, offsets []int) {
	seen := make(map[int]struct{}, len(offsets))
	for _, d := range offsets {
		if _, ok := seen[d]; ok {
			verr.add(field, fmt.Sprintf("%s must contain unique values", field))
			return
		}
		seen[d] = struct{}{}
	}
}

func payloads(r *Rule) int {
	n := 0
	if r.Event != nil {
		n++
	}
	if r.Alert != nil {
		n++
	}
	if r.Expiration != nil {
		n++
	}
	return n
}

func payloadMatches(r *Rule) bool {
	switch r.Category {
	case CategoryEvent:
		return r.Event != nil
	case CategoryAlert:
		return r.Alert != nil
	case CategoryExpiration:
		return r.Expiration != nil
	}
	return false
}

package validation

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Field names a form input.
type Field string

const (
	FieldEmail        Field = "email"
	FieldPassword     Field = "password"
	FieldFullName     Field = "fullName"
	FieldAgreeToTerms Field = "agreeToTerms"
)

// Values carries the raw inputs of a form, keyed by field.
type Values map[Field]any

// String returns the string value of f, or "" when absent or not a string.
func (v Values) String(f Field) string {
	s, _ := v[f].(string)
	return s
}

// Bool returns the bool value of f, or false when absent or not a bool.
func (v Values) Bool(f Field) bool {
	b, _ := v[f].(bool)
	return b
}

// Kind is the Go type a field's value must have.
type Kind int

const (
	KindString Kind = iota
	KindBool
)

// Rule binds a validator tag to a field and the message shown when it fails.
// A value whose type does not match Kind fails with Message as well.
type Rule struct {
	Field   Field
	Kind    Kind
	Tag     string
	Message string
}

// Schema is an ordered set of rules. Fields appear at most once.
type Schema struct {
	rules []Rule
}

// Result is the outcome of validating a full set of values. Errors contains
// only the violated fields.
type Result struct {
	Errors map[Field]string
	Valid  bool
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// NewSchema builds a schema from rules. It panics on a duplicate field since
// schemas are fixed at program start.
func NewSchema(rules ...Rule) Schema {
	seen := make(map[Field]struct{}, len(rules))
	for _, r := range rules {
		if _, dup := seen[r.Field]; dup {
			panic(fmt.Sprintf("validation: duplicate rule for field %q", r.Field))
		}
		seen[r.Field] = struct{}{}
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return Schema{rules: out}
}

// Fields lists the schema's fields in declaration order.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Field
	}
	return out
}

// Has reports whether the schema declares f.
func (s Schema) Has(f Field) bool {
	_, ok := s.rule(f)
	return ok
}

func (s Schema) rule(f Field) (Rule, bool) {
	for _, r := range s.rules {
		if r.Field == f {
			return r, true
		}
	}
	return Rule{}, false
}

// Validate checks every rule against values. Missing values are validated as
// their zero value.
func (s Schema) Validate(values Values) Result {
	res := Result{Errors: map[Field]string{}}
	for _, r := range s.rules {
		if msg := check(r, values[r.Field]); msg != "" {
			res.Errors[r.Field] = msg
		}
	}
	res.Valid = len(res.Errors) == 0
	return res
}

// ValidateField checks a single field and returns its message, or "" when the
// value passes. Unknown fields always pass.
func (s Schema) ValidateField(f Field, value any) string {
	r, ok := s.rule(f)
	if !ok {
		return ""
	}
	return check(r, value)
}

func check(r Rule, value any) string {
	if value == nil {
		value = r.Kind.zero()
	}
	if !r.Kind.matches(value) {
		return r.Message
	}
	if err := engine().Var(value, r.Tag); err != nil {
		return r.Message
	}
	return ""
}

func (k Kind) zero() any {
	if k == KindBool {
		return false
	}
	return ""
}

func (k Kind) matches(value any) bool {
	switch k {
	case KindBool:
		_, ok := value.(bool)
		return ok
	default:
		_, ok := value.(string)
		return ok
	}
}

// Package form tracks the live state of a credential form: per-field value,
// touched flag and error, plus the submit gate.
package form

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/gotg/authflow/validation"
)

var (
	// ErrSubmitting is returned by BeginSubmit while a submission is in flight.
	ErrSubmitting = errors.New("form submission already in progress")
	// ErrUnmounted is returned by BeginSubmit after Unmount.
	ErrUnmounted = errors.New("form is unmounted")
)

// InvalidError is returned by BeginSubmit when at least one field fails
// validation. It matches ErrInvalid with errors.Is.
type InvalidError struct {
	Fields map[validation.Field]string
}

// ErrInvalid is the sentinel matched by *InvalidError.
var ErrInvalid = errors.New("form has invalid fields")

func (e *InvalidError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return ErrInvalid.Error() + ": " + strings.Join(names, ", ")
}

func (e *InvalidError) Is(target error) bool { return target == ErrInvalid }

// FieldState is a snapshot of one input.
type FieldState struct {
	Value   any
	Touched bool
	Error   string
}

// Form is safe for concurrent use.
type Form struct {
	mu         sync.Mutex
	schema     validation.Schema
	fields     map[validation.Field]*FieldState
	submitting bool
	unmounted  bool
}

// New returns an empty form for schema. Errors stay empty until a field is
// set or a submit is attempted.
func New(schema validation.Schema) *Form {
	f := &Form{
		schema: schema,
		fields: make(map[validation.Field]*FieldState),
	}
	for _, name := range schema.Fields() {
		f.fields[name] = &FieldState{}
	}
	return f
}

// Set updates a field, marks it touched and recomputes its error. Unknown
// fields are ignored.
func (f *Form) Set(field validation.Field, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unmounted {
		return
	}
	st, ok := f.fields[field]
	if !ok {
		return
	}
	st.Value = value
	st.Touched = true
	st.Error = f.schema.ValidateField(field, value)
}

// Has reports whether the form carries field.
func (f *Form) Has(field validation.Field) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.fields[field]
	return ok
}

// Field returns a copy of one field's state.
func (f *Form) Field(field validation.Field) FieldState {
	f.mu.Lock()
	defer f.mu.Unlock()

	if st, ok := f.fields[field]; ok {
		return *st
	}
	return FieldState{}
}

// Values returns the current raw values.
func (f *Form) Values() validation.Values {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(validation.Values, len(f.fields))
	for name, st := range f.fields {
		if st.Value != nil {
			out[name] = st.Value
		}
	}
	return out
}

// Errors returns the errors of touched fields only.
func (f *Form) Errors() map[validation.Field]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[validation.Field]string)
	for name, st := range f.fields {
		if st.Touched && st.Error != "" {
			out[name] = st.Error
		}
	}
	return out
}

// IsSubmitting reports whether a submission is in flight.
func (f *Form) IsSubmitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Unmounted reports whether Unmount was called.
func (f *Form) Unmounted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unmounted
}

// BeginSubmit revalidates every field and marks them all touched. On success
// the form enters the submitting state, the caller owns a matching EndSubmit,
// and the returned values are the exact set that was validated. Later Set
// calls do not change them.
func (f *Form) BeginSubmit() (validation.Values, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unmounted {
		return nil, ErrUnmounted
	}
	if f.submitting {
		return nil, ErrSubmitting
	}

	values := make(validation.Values, len(f.fields))
	for name, st := range f.fields {
		if st.Value != nil {
			values[name] = st.Value
		}
	}
	res := f.schema.Validate(values)
	for name, st := range f.fields {
		st.Touched = true
		st.Error = res.Errors[name]
	}
	if !res.Valid {
		return nil, &InvalidError{Fields: res.Errors}
	}
	f.submitting = true
	return values, nil
}

// EndSubmit leaves the submitting state. It is a no-op once unmounted.
func (f *Form) EndSubmit() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unmounted {
		return
	}
	f.submitting = false
}

// Reset discards all values and errors.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unmounted {
		return
	}
	for name := range f.fields {
		f.fields[name] = &FieldState{}
	}
}

// Unmount freezes the form. Later mutations are silently dropped.
func (f *Form) Unmount() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unmounted = true
}

// Package validation holds the declarative field rules for the sign-in and
// sign-up forms.
//
// A Schema is an ordered list of rules expressed as go-playground/validator
// tags. Validation is pure: it performs no I/O, never blocks, and never
// mutates its input.
package validation

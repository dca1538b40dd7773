package authflow

import (
	"errors"
	"fmt"

	"github.com/gotg/authflow/validation"
)

var (
	// ErrNotStarted is returned by operations invoked before Start.
	ErrNotStarted = errors.New("controller not started")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("controller already started")
	// ErrClosed is returned by operations invoked after Close.
	ErrClosed = errors.New("controller closed")
	// ErrSubmitInProgress is returned when a form is submitted twice.
	ErrSubmitInProgress = errors.New("submission already in progress")
	// ErrResendInProgress is returned while a resend request is outstanding.
	ErrResendInProgress = errors.New("verification resend already in progress")
	// ErrPendingEmailNotFound is returned by a resend with no known address.
	ErrPendingEmailNotFound = errors.New("pending verification email not found")
	// ErrWrongForm is returned when a form built for another schema is submitted.
	ErrWrongForm = errors.New("form does not carry the fields this operation needs")
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrGatewayRequired is returned by Build without a gateway.
	ErrGatewayRequired = errors.New("gateway required")
)

// ErrorKind classifies an AuthError.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindGateway
	KindNetwork
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindGateway:
		return "gateway"
	case KindNetwork:
		return "network"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// AuthError is the error returned by Controller operations. Message is what
// the user was shown. Fields is set for validation failures.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Fields  map[validation.Field]string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Field returns the message for one invalid field, or "".
func (e *AuthError) Field(f validation.Field) string {
	if e == nil {
		return ""
	}
	return e.Fields[f]
}

// ErrorKindOf returns the kind of the AuthError in err's chain, or
// KindUnknown.
func ErrorKindOf(err error) ErrorKind {
	var aerr *AuthError
	if errors.As(err, &aerr) {
		return aerr.Kind
	}
	return KindUnknown
}

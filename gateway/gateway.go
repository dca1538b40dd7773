// Package gateway defines the contract between the auth flow and a remote
// identity backend.
//
// # Architecture boundaries
//
// The gateway is the only component that talks to the backend. It reports
// session transitions through SubscribeSession; the flow controller never
// writes sessions it did not receive from a gateway.
//
// # What this package must NOT do
//
//   - Hold UI state or notifications.
//   - Persist pending verification state.
package gateway

import (
	"context"
	"errors"

	"github.com/gotg/authflow/session"
)

// ErrNetwork is returned (possibly wrapped) when the backend could not be
// reached.
var ErrNetwork = errors.New("gateway network failure")

// Error is a rejection reported by the backend. Message is human-readable
// and shown to the user verbatim.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// Rejection codes used by the in-process backend. Real backends may return
// any code.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotConfirmed  = "email_not_confirmed"
	CodeUserExists         = "user_already_exists"
	CodeWeakPassword       = "weak_password"
	CodeTermsRequired      = "terms_not_accepted"
	CodeRateLimited        = "over_request_rate_limit"
	CodeNotFound           = "user_not_found"
	CodeInvalidToken       = "invalid_token"
)

// Message extracts a user-facing message from err. It returns "" when err
// carries none.
func Message(err error) string {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Message
	}
	return ""
}

// Profile is user metadata attached at sign-up.
type Profile struct {
	FullName     string `json:"full_name"`
	AgreeToTerms bool   `json:"agree_to_terms"`
}

// SignUpResult reports whether the new account must confirm its email before
// a session is issued. Session is set only when verification is not needed.
type SignUpResult struct {
	NeedsVerification bool
	Session           *session.Session
}

// Listener receives session events in backend order.
type Listener func(session.Event)

// Gateway is implemented by identity backends.
type Gateway interface {
	SignUp(ctx context.Context, email, password string, profile Profile) (SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error)
	SignOut(ctx context.Context) error
	ResendVerification(ctx context.Context, email, redirectURL string) error
	RestoreSession(ctx context.Context) (*session.Session, error)
	SubscribeSession(fn Listener) (unsubscribe func())
}

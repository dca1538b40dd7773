package session

import (
	"time"
)

// Session is an opaque token bundle identifying an authenticated user.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now. A zero
// ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Equal reports whether a and b carry the same identity and tokens. Two nil
// sessions are equal.
func Equal(a, b *Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UserID == b.UserID &&
		a.Email == b.Email &&
		a.AccessToken == b.AccessToken &&
		a.RefreshToken == b.RefreshToken &&
		a.ExpiresAt.Equal(b.ExpiresAt)
}

// Clone returns a copy of s, or nil.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}

package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned when an access token cannot be decoded.
var ErrMalformedToken = errors.New("malformed access token")

type accessClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// FromAccessToken builds a Session from a JWT access token and its refresh
// token. The signature is not verified: the client never holds the signing key
// and only needs the subject and expiry the backend already vouched for.
func FromAccessToken(accessToken, refreshToken string) (*Session, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrMalformedToken)
	}

	s := &Session{
		UserID:       claims.Subject,
		Email:        claims.Email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

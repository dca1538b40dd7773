package bridge

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gotg/authflow/session"
)

// SessionSource reports the active session.
type SessionSource interface {
	Session() *session.Session
}

type sessionContextKey struct{}

// SessionFromContext returns the session RequireSession admitted the request
// with.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return s, ok
}

// RequireSession rejects requests with 401 unless a session is active. A
// caller presenting a bearer token must present the active access token.
func RequireSession(src SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if src == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "", nil)
				return
			}
			s := src.Session()
			if s == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "", nil)
				return
			}

			if header := r.Header.Get("Authorization"); header != "" {
				token, ok := bearerToken(header)
				if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.AccessToken)) != 1 {
					writeError(w, http.StatusUnauthorized, "unauthorized", "", nil)
					return
				}
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

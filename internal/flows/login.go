package flows

import (
	"context"

	"github.com/gotg/authflow/internal/notify"
	"github.com/gotg/authflow/session"
)

// SignInMetrics carries metric IDs needed by the sign-in flow.
type SignInMetrics struct {
	Success        int
	Failure        int
	GatewayLatency int
}

// SignInEvents carries notification event names used by the sign-in flow.
type SignInEvents struct {
	Success string
	Failure string
}

// SignInMessages carries user-facing texts for the sign-in flow.
type SignInMessages struct {
	Success  string
	Fallback string
}

// SignInDeps captures sign-in flow dependencies.
type SignInDeps struct {
	SignIn       func(ctx context.Context, email, password string) (*session.Session, error)
	ErrorMessage func(error) string
	Notify       Notifier
	Instruments  Instruments

	Metrics  SignInMetrics
	Events   SignInEvents
	Messages SignInMessages
}

// SignInResult is the flow-local sign-in response shape. Message is the text
// shown to the user on failure.
type SignInResult struct {
	Session *session.Session
	Err     error
	Message string
}

// RunSignIn authenticates with the gateway. The returned session is reported
// but never written to the session store: the gateway subscription is the
// only writer, so a sign-out that lands first cannot be undone by this result.
func RunSignIn(ctx context.Context, email, password string, deps SignInDeps) SignInResult {
	var (
		s   *session.Session
		err error
	)
	deps.Instruments.timed(deps.Metrics.GatewayLatency, func() {
		s, err = deps.SignIn(ctx, email, password)
	})
	if err != nil {
		msg := messageOr(deps.ErrorMessage(err), deps.Messages.Fallback)
		deps.Instruments.inc(deps.Metrics.Failure)
		deps.Notify(ctx, notify.KindError, deps.Events.Failure, msg)
		return SignInResult{Err: err, Message: msg}
	}

	deps.Instruments.inc(deps.Metrics.Success)
	deps.Notify(ctx, notify.KindSuccess, deps.Events.Success, deps.Messages.Success)
	return SignInResult{Session: s}
}

package flows

import (
	"context"

	"github.com/gotg/authflow/gateway"
	"github.com/gotg/authflow/internal/notify"
	"github.com/gotg/authflow/session"
)

// SignUpMetrics carries metric IDs needed by the sign-up flow.
type SignUpMetrics struct {
	Success             int
	Failure             int
	VerificationPending int
	PendingPersistError int
	GatewayLatency      int
}

// SignUpEvents carries notification event names used by the sign-up flow.
type SignUpEvents struct {
	Success string
	Failure string
}

// SignUpMessages carries user-facing texts for the sign-up flow.
type SignUpMessages struct {
	Success  string
	Fallback string
}

// SignUpDeps captures sign-up flow dependencies.
type SignUpDeps struct {
	SignUp         func(ctx context.Context, email, password string, profile gateway.Profile) (gateway.SignUpResult, error)
	PersistPending func(ctx context.Context, email string) error
	ErrorMessage   func(error) string
	Notify         Notifier
	Instruments    Instruments

	Metrics  SignUpMetrics
	Events   SignUpEvents
	Messages SignUpMessages
}

// SignUpRequest is the validated sign-up input.
type SignUpRequest struct {
	Email    string
	Password string
	Profile  gateway.Profile
}

// SignUpResult reports the flow outcome. PendingEmail is set when the account
// awaits verification; PersistErr records a failed credential-store write,
// which does not fail the flow.
type SignUpResult struct {
	PendingEmail string
	Session      *session.Session
	PersistErr   error
	Err          error
	Message      string
}

// RunSignUp registers the account. An issued session reaches the session store
// through the gateway subscription only. A result with neither a session nor an
// explicit verification flag is treated as pending verification, since no
// session was issued.
func RunSignUp(ctx context.Context, req SignUpRequest, deps SignUpDeps) SignUpResult {
	var (
		res gateway.SignUpResult
		err error
	)
	deps.Instruments.timed(deps.Metrics.GatewayLatency, func() {
		res, err = deps.SignUp(ctx, req.Email, req.Password, req.Profile)
	})
	if err != nil {
		msg := messageOr(deps.ErrorMessage(err), deps.Messages.Fallback)
		deps.Instruments.inc(deps.Metrics.Failure)
		deps.Notify(ctx, notify.KindError, deps.Events.Failure, msg)
		return SignUpResult{Err: err, Message: msg}
	}

	out := SignUpResult{}
	if res.Session != nil && !res.NeedsVerification {
		out.Session = res.Session
	} else {
		out.PendingEmail = req.Email
		deps.Instruments.inc(deps.Metrics.VerificationPending)
		if perr := deps.PersistPending(ctx, req.Email); perr != nil {
			deps.Instruments.inc(deps.Metrics.PendingPersistError)
			out.PersistErr = perr
		}
	}

	deps.Instruments.inc(deps.Metrics.Success)
	deps.Notify(ctx, notify.KindSuccess, deps.Events.Success, deps.Messages.Success)
	return out
}

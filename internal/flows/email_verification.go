package flows

import (
	"context"

	"github.com/gotg/authflow/internal/notify"
)

// ResendMetrics carries metric IDs needed by the resend flow.
type ResendMetrics struct {
	Success        int
	Failure        int
	MissingEmail   int
	GatewayLatency int
}

// ResendEvents carries notification event names used by the resend flow.
type ResendEvents struct {
	Success      string
	Failure      string
	MissingEmail string
}

// ResendMessages carries user-facing texts for the resend flow.
type ResendMessages struct {
	Success      string
	Fallback     string
	MissingEmail string
}

// ResendDeps captures resend flow dependencies.
type ResendDeps struct {
	LoadPending  func(ctx context.Context) (string, bool, error)
	Resend       func(ctx context.Context, email, redirectURL string) error
	RedirectURL  string
	ErrorMessage func(error) string
	Notify       Notifier
	Instruments  Instruments

	Metrics  ResendMetrics
	Events   ResendEvents
	Messages ResendMessages
}

// ResendResult reports the flow outcome. Missing is set when no pending
// email could be found; the gateway is not called in that case.
type ResendResult struct {
	Email   string
	Missing bool
	LoadErr error
	Err     error
	Message string
}

// RunResend asks the gateway to resend the verification email to known, or
// to the address in the credential store when known is empty. A storage
// failure counts as an unknown address.
func RunResend(ctx context.Context, known string, deps ResendDeps) ResendResult {
	out := ResendResult{Email: known}
	if out.Email == "" && deps.LoadPending != nil {
		stored, ok, err := deps.LoadPending(ctx)
		if err != nil {
			out.LoadErr = err
		} else if ok {
			out.Email = stored
		}
	}

	if out.Email == "" {
		deps.Instruments.inc(deps.Metrics.MissingEmail)
		deps.Notify(ctx, notify.KindError, deps.Events.MissingEmail, deps.Messages.MissingEmail)
		out.Missing = true
		out.Message = deps.Messages.MissingEmail
		return out
	}

	var err error
	deps.Instruments.timed(deps.Metrics.GatewayLatency, func() {
		err = deps.Resend(ctx, out.Email, deps.RedirectURL)
	})
	if err != nil {
		out.Err = err
		out.Message = messageOr(deps.ErrorMessage(err), deps.Messages.Fallback)
		deps.Instruments.inc(deps.Metrics.Failure)
		deps.Notify(ctx, notify.KindError, deps.Events.Failure, out.Message)
		return out
	}

	deps.Instruments.inc(deps.Metrics.Success)
	deps.Notify(ctx, notify.KindSuccess, deps.Events.Success, deps.Messages.Success)
	return out
}

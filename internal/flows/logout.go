package flows

import (
	"context"
)

// SignOutMetrics carries metric IDs needed by the sign-out flow.
type SignOutMetrics struct {
	SignOut        int
	GatewayFailure int
	GatewayLatency int
}

// SignOutDeps captures sign-out flow dependencies.
type SignOutDeps struct {
	SignOut      func(ctx context.Context) error
	ClearSession func()
	ClearPending func(ctx context.Context) error
	Instruments  Instruments

	Metrics SignOutMetrics
}

// SignOutResult keeps the gateway and local cleanup errors apart; neither
// prevents the local session from being cleared.
type SignOutResult struct {
	GatewayErr error
	ClearErr   error
}

// RunSignOut revokes the session at the gateway, then clears local state
// regardless of the gateway outcome.
func RunSignOut(ctx context.Context, deps SignOutDeps) SignOutResult {
	var out SignOutResult
	deps.Instruments.timed(deps.Metrics.GatewayLatency, func() {
		out.GatewayErr = deps.SignOut(ctx)
	})
	if out.GatewayErr != nil {
		deps.Instruments.inc(deps.Metrics.GatewayFailure)
	}

	deps.ClearSession()
	out.ClearErr = deps.ClearPending(ctx)
	deps.Instruments.inc(deps.Metrics.SignOut)
	return out
}

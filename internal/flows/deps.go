package flows

import (
	"context"
	"time"

	"github.com/gotg/authflow/internal/notify"
)

// Deps groups flow dependency sets. The root controller builds this once and
// delegates operations to the matching flow implementation.
type Deps struct {
	SignIn  SignInDeps
	SignUp  SignUpDeps
	Resend  ResendDeps
	SignOut SignOutDeps
}

// Notifier raises a user-facing notification for a named flow event.
type Notifier func(ctx context.Context, kind notify.Kind, event, message string)

// Instruments are the shared observability hooks every flow receives.
type Instruments struct {
	MetricInc      func(int)
	ObserveLatency func(int, time.Duration)
	Now            func() time.Time
}

func (in Instruments) inc(id int) {
	if in.MetricInc != nil {
		in.MetricInc(id)
	}
}

// timed runs fn and reports its latency under id.
func (in Instruments) timed(id int, fn func()) {
	if in.Now == nil || in.ObserveLatency == nil {
		fn()
		return
	}
	start := in.Now()
	fn()
	in.ObserveLatency(id, in.Now().Sub(start))
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

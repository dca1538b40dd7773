package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gotg/authflow/gateway"
	"github.com/gotg/authflow/internal/notify"
	"github.com/gotg/authflow/session"
)

type note struct {
	kind    notify.Kind
	event   string
	message string
}

type harness struct {
	notes   []note
	metrics map[int]int
	latency map[int]int
}

func newHarness() *harness {
	return &harness{metrics: map[int]int{}, latency: map[int]int{}}
}

func (h *harness) notify(_ context.Context, kind notify.Kind, event, message string) {
	h.notes = append(h.notes, note{kind, event, message})
}

func (h *harness) instruments() Instruments {
	return Instruments{
		MetricInc:      func(id int) { h.metrics[id]++ },
		ObserveLatency: func(id int, _ time.Duration) { h.latency[id]++ },
		Now:            time.Now,
	}
}

func (h *harness) last(t *testing.T) note {
	t.Helper()
	if len(h.notes) == 0 {
		t.Fatal("no notification raised")
	}
	return h.notes[len(h.notes)-1]
}

const (
	mSuccess = iota + 1
	mFailure
	mLatency
	mPending
	mPersist
	mMissing
)

func signInDeps(h *harness, fn func(context.Context, string, string) (*session.Session, error)) SignInDeps {
	return SignInDeps{
		SignIn:       fn,
		ErrorMessage: gateway.Message,
		Notify:       h.notify,
		Instruments:  h.instruments(),
		Metrics:      SignInMetrics{Success: mSuccess, Failure: mFailure, GatewayLatency: mLatency},
		Events:       SignInEvents{Success: "ok", Failure: "fail"},
		Messages:     SignInMessages{Success: "Signed in successfully", Fallback: "An error occurred during sign in"},
	}
}

func TestRunSignInSuccessReportsSession(t *testing.T) {
	h := newHarness()
	want := &session.Session{UserID: "u1"}
	deps := signInDeps(h, func(context.Context, string, string) (*session.Session, error) { return want, nil })

	res := RunSignIn(context.Background(), "a@b.com", "pw", deps)
	if res.Err != nil || res.Session != want {
		t.Fatalf("result = %+v", res)
	}
	if n := h.last(t); n.kind != notify.KindSuccess || n.message != "Signed in successfully" {
		t.Fatalf("note = %+v", n)
	}
	if h.metrics[mSuccess] != 1 || h.latency[mLatency] != 1 {
		t.Fatalf("metrics = %v latency = %v", h.metrics, h.latency)
	}
}

func TestRunSignInMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"gateway message verbatim", &gateway.Error{Code: "x", Message: "Invalid login credentials"}, "Invalid login credentials"},
		{"fallback", gateway.ErrNetwork, "An error occurred during sign in"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			deps := signInDeps(h, func(context.Context, string, string) (*session.Session, error) { return nil, tc.err })

			res := RunSignIn(context.Background(), "a@b.com", "pw", deps)
			if !errors.Is(res.Err, tc.err) || res.Message != tc.want {
				t.Fatalf("result = %+v", res)
			}
			if res.Session != nil {
				t.Fatal("no session expected on failure")
			}
			if n := h.last(t); n.kind != notify.KindError || n.message != tc.want {
				t.Fatalf("note = %+v", n)
			}
			if h.metrics[mFailure] != 1 {
				t.Fatalf("metrics = %v", h.metrics)
			}
		})
	}
}

func signUpDeps(h *harness, res gateway.SignUpResult, err error, persisted *[]string, persistErr error) SignUpDeps {
	return SignUpDeps{
		SignUp: func(context.Context, string, string, gateway.Profile) (gateway.SignUpResult, error) {
			return res, err
		},
		PersistPending: func(_ context.Context, email string) error {
			*persisted = append(*persisted, email)
			return persistErr
		},
		ErrorMessage: gateway.Message,
		Notify:       h.notify,
		Instruments:  h.instruments(),
		Metrics:      SignUpMetrics{Success: mSuccess, Failure: mFailure, VerificationPending: mPending, PendingPersistError: mPersist},
		Messages:     SignUpMessages{Success: "done", Fallback: "An error occurred during sign up"},
	}
}

func TestRunSignUpPendingPersistsEmail(t *testing.T) {
	h := newHarness()
	var persisted []string
	deps := signUpDeps(h, gateway.SignUpResult{NeedsVerification: true}, nil, &persisted, nil)

	out := RunSignUp(context.Background(), SignUpRequest{Email: "a@b.com"}, deps)
	if out.PendingEmail != "a@b.com" || out.Session != nil || out.Err != nil {
		t.Fatalf("out = %+v", out)
	}
	if len(persisted) != 1 || persisted[0] != "a@b.com" {
		t.Fatalf("persisted = %v", persisted)
	}
	if h.metrics[mPending] != 1 || h.metrics[mSuccess] != 1 {
		t.Fatalf("metrics = %v", h.metrics)
	}
}

func TestRunSignUpWithoutSessionIsPending(t *testing.T) {
	h := newHarness()
	var persisted []string
	out := RunSignUp(context.Background(), SignUpRequest{Email: "a@b.com"}, signUpDeps(h, gateway.SignUpResult{}, nil, &persisted, nil))
	if out.PendingEmail != "a@b.com" {
		t.Fatalf("out = %+v", out)
	}
}

func TestRunSignUpPersistFailureDoesNotFail(t *testing.T) {
	h := newHarness()
	var persisted []string
	storeErr := errors.New("disk full")
	out := RunSignUp(context.Background(), SignUpRequest{Email: "a@b.com"}, signUpDeps(h, gateway.SignUpResult{NeedsVerification: true}, nil, &persisted, storeErr))
	if out.Err != nil || !errors.Is(out.PersistErr, storeErr) {
		t.Fatalf("out = %+v", out)
	}
	if h.metrics[mPersist] != 1 || h.last(t).kind != notify.KindSuccess {
		t.Fatalf("metrics = %v notes = %v", h.metrics, h.notes)
	}
}

func TestRunSignUpImmediateSession(t *testing.T) {
	h := newHarness()
	var persisted []string
	s := &session.Session{UserID: "u1"}
	out := RunSignUp(context.Background(), SignUpRequest{Email: "a@b.com"}, signUpDeps(h, gateway.SignUpResult{Session: s}, nil, &persisted, nil))
	if out.Session != s || out.PendingEmail != "" || len(persisted) != 0 {
		t.Fatalf("out = %+v persisted = %v", out, persisted)
	}
}

func TestRunSignUpFailureFallback(t *testing.T) {
	h := newHarness()
	var persisted []string
	out := RunSignUp(context.Background(), SignUpRequest{Email: "a@b.com"}, signUpDeps(h, gateway.SignUpResult{}, errors.New("boom"), &persisted, nil))
	if out.Message != "An error occurred during sign up" || len(persisted) != 0 {
		t.Fatalf("out = %+v", out)
	}
}

func resendDeps(h *harness, calls *int, stored string, loadErr error, sendErr error) ResendDeps {
	return ResendDeps{
		LoadPending: func(context.Context) (string, bool, error) {
			return stored, stored != "", loadErr
		},
		Resend: func(_ context.Context, _, redirect string) error {
			*calls++
			if redirect != "app://cb" {
				return errors.New("wrong redirect")
			}
			return sendErr
		},
		RedirectURL:  "app://cb",
		ErrorMessage: gateway.Message,
		Notify:       h.notify,
		Instruments:  h.instruments(),
		Metrics:      ResendMetrics{Success: mSuccess, Failure: mFailure, MissingEmail: mMissing},
		Messages: ResendMessages{
			Success:      "resent",
			Fallback:     "Failed to resend verification email. Please try again.",
			MissingEmail: "Email address not found. Please go back and sign up again.",
		},
	}
}

func TestRunResendMissingEmailSkipsGateway(t *testing.T) {
	for _, loadErr := range []error{nil, errors.New("storage down")} {
		h := newHarness()
		calls := 0
		out := RunResend(context.Background(), "", resendDeps(h, &calls, "", loadErr, nil))
		if !out.Missing || calls != 0 {
			t.Fatalf("out = %+v calls = %d", out, calls)
		}
		if h.last(t).message != "Email address not found. Please go back and sign up again." {
			t.Fatalf("note = %+v", h.last(t))
		}
	}
}

func TestRunResendUsesStoredEmail(t *testing.T) {
	h := newHarness()
	calls := 0
	out := RunResend(context.Background(), "", resendDeps(h, &calls, "a@b.com", nil, nil))
	if out.Email != "a@b.com" || out.Err != nil || calls != 1 {
		t.Fatalf("out = %+v calls = %d", out, calls)
	}
	if h.last(t).kind != notify.KindSuccess {
		t.Fatalf("note = %+v", h.last(t))
	}
}

func TestRunResendGatewayFailure(t *testing.T) {
	h := newHarness()
	calls := 0
	out := RunResend(context.Background(), "a@b.com", resendDeps(h, &calls, "", nil, gateway.ErrNetwork))
	if out.Message != "Failed to resend verification email. Please try again." || calls != 1 {
		t.Fatalf("out = %+v", out)
	}
}

func TestRunSignOutClearsDespiteGatewayError(t *testing.T) {
	h := newHarness()
	cleared, pendingCleared := false, false
	out := RunSignOut(context.Background(), SignOutDeps{
		SignOut:      func(context.Context) error { return gateway.ErrNetwork },
		ClearSession: func() { cleared = true },
		ClearPending: func(context.Context) error { pendingCleared = true; return nil },
		Instruments:  h.instruments(),
		Metrics:      SignOutMetrics{SignOut: mSuccess, GatewayFailure: mFailure},
	})
	if !errors.Is(out.GatewayErr, gateway.ErrNetwork) || !cleared || !pendingCleared {
		t.Fatalf("out = %+v cleared=%v pending=%v", out, cleared, pendingCleared)
	}
	if h.metrics[mFailure] != 1 || h.metrics[mSuccess] != 1 {
		t.Fatalf("metrics = %v", h.metrics)
	}
}

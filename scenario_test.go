package authflow

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gotg/authflow/credstore"
	"github.com/gotg/authflow/gateway/memory"
	tokens "github.com/gotg/authflow/jwt"
	"github.com/gotg/authflow/route"
)

// Scenario A: a returning user signs in and lands on home.
func TestScenarioSignInLandsHome(t *testing.T) {
	h := newHarness(t, withSeededAccount())
	nav := h.c.NewNavigator(route.ScreenSignIn)
	defer nav.Close()

	if v := nav.Current(); v.Screen != route.ScreenSignIn || v.Decision.Kind != route.ShowPublic {
		t.Fatalf("unexpected initial view %+v", v)
	}

	if err := h.c.SignIn(context.Background(), signInForm(h.c, testEmail, testPassword)); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if v := nav.Current(); v.Screen != route.ScreenHome || v.Decision.Kind != route.ShowProtected {
		t.Fatalf("expected home, got %+v", v)
	}
	if got := h.c.MetricsSnapshot().Counters[MetricRedirect]; got == 0 {
		t.Fatalf("expected redirect metric")
	}
}

// Scenario B: sign-up with verification parks the user on verify until the
// email is confirmed.
func TestScenarioSignUpVerifyThenHome(t *testing.T) {
	h := newHarness(t)
	nav := h.c.NewNavigator(route.ScreenSignUp)
	defer nav.Close()

	var views []route.View
	nav.OnChange(func(v route.View) { views = append(views, v) })

	if err := h.c.SignUp(context.Background(), signUpForm(h.c, "Ana Lima", testEmail, testPassword, true)); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	v := nav.Current()
	if v.Screen != route.ScreenVerify || v.PendingEmail != testEmail {
		t.Fatalf("expected verify with pending email, got %+v", v)
	}
	if v := nav.Navigate(route.ScreenHome); v.Screen != route.ScreenVerify {
		t.Fatalf("home must redirect to verify while pending, got %+v", v)
	}
	if v := nav.Navigate(route.ScreenSignIn); v.Screen != route.ScreenSignIn {
		t.Fatalf("sign in stays reachable while pending, got %+v", v)
	}
	nav.Navigate(route.ScreenVerify)

	if _, err := h.gw.ConfirmEmail(context.Background(), testEmail); err != nil {
		t.Fatalf("ConfirmEmail: %v", err)
	}
	if v := nav.Current(); v.Screen != route.ScreenHome {
		t.Fatalf("expected home after confirmation, got %+v", v)
	}
	if h.c.PendingEmail() != "" {
		t.Fatalf("pending email must be cleared")
	}
	if _, ok, _ := h.creds.Get(context.Background(), credstore.KeyVerificationEmail); ok {
		t.Fatalf("pending email must be deleted from the store")
	}
	if len(views) == 0 || views[len(views)-1].Screen != route.ScreenHome {
		t.Fatalf("listeners must see the final home view, got %+v", views)
	}
}

// Scenario C: opening home without a session goes to landing.
func TestScenarioProtectedWithoutSession(t *testing.T) {
	h := newHarness(t)
	nav := h.c.NewNavigator(route.ScreenHome)
	defer nav.Close()

	v := nav.Current()
	if v.Screen != route.ScreenLanding || !v.Redirected || v.Requested != route.ScreenHome {
		t.Fatalf("expected redirect to landing, got %+v", v)
	}
}

func TestScenarioSignOutReturnsToLanding(t *testing.T) {
	h := newHarness(t, withSeededAccount())
	if err := h.c.SignIn(context.Background(), signInForm(h.c, testEmail, testPassword)); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	nav := h.c.NewNavigator(route.ScreenHome)
	defer nav.Close()

	if err := h.c.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if v := nav.Current(); v.Screen != route.ScreenLanding {
		t.Fatalf("expected landing after sign out, got %+v", v)
	}
}

func newTokenManager(t *testing.T) *tokens.Manager {
	t.Helper()
	m, err := tokens.NewManager(tokens.Config{
		AccessTTL:     time.Hour,
		SigningMethod: tokens.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "authflow-test",
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func newFileStore(t *testing.T, path string) *credstore.FileStore {
	t.Helper()
	s, err := credstore.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func TestRestartKeepsPendingVerification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	mgr := newTokenManager(t)

	first := newFileStore(t, path)
	gw, err := memory.New(
		memory.WithStore(first),
		memory.WithTokenManager(mgr),
		memory.WithVerificationRequired(true),
	)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	h1 := newHarness(t, withBackend(gw), withCreds(first))
	if err := h1.c.SignUp(context.Background(), signUpForm(h1.c, "Ana Lima", testEmail, testPassword, true)); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if err := h1.c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	h2 := newHarness(t, withBackend(gw), withCreds(newFileStore(t, path)))
	if got := h2.c.AuthState(); got != route.StatePendingVerification {
		t.Fatalf("expected pending verification after restart, got %v", got)
	}
	if got := h2.c.PendingEmail(); got != testEmail {
		t.Fatalf("expected pending email after restart, got %q", got)
	}

	nav := h2.c.NewNavigator(route.ScreenLanding)
	defer nav.Close()
	if v := nav.Navigate(route.ScreenHome); v.Screen != route.ScreenVerify || v.PendingEmail != testEmail {
		t.Fatalf("expected verify after restart, got %+v", v)
	}

	if err := h2.c.ResendVerification(context.Background()); err != nil {
		t.Fatalf("ResendVerification: %v", err)
	}
	if got := h2.gw.Calls(memory.OpResend); got != 1 {
		t.Fatalf("expected one resend, got %d", got)
	}
}

func TestRestartRestoresSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	mgr := newTokenManager(t)

	first := newFileStore(t, path)
	gw1, err := memory.New(
		memory.WithStore(first),
		memory.WithTokenManager(mgr),
		memory.WithVerificationRequired(false),
	)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	h1 := newHarness(t, withBackend(gw1), withCreds(first))
	if err := h1.c.SignUp(context.Background(), signUpForm(h1.c, "Ana Lima", testEmail, testPassword, true)); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	want := h1.c.Session()
	if err := h1.c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := newFileStore(t, path)
	gw2, err := memory.New(memory.WithStore(second), memory.WithTokenManager(mgr))
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	h2 := newHarness(t, withBackend(gw2), withCreds(second))

	if got := h2.c.AuthState(); got != route.StateActive {
		t.Fatalf("expected restored session, got %v", got)
	}
	if got := h2.c.Session(); got == nil || got.AccessToken != want.AccessToken {
		t.Fatalf("expected the same session, got %+v", got)
	}
}

package route

import "fmt"

// Screen names a route.
type Screen string

const (
	ScreenLanding Screen = "landing"
	ScreenSignIn  Screen = "signin"
	ScreenSignUp  Screen = "signup"
	ScreenVerify  Screen = "verify"
	ScreenHome    Screen = "home"
)

// Screens lists every route.
func Screens() []Screen {
	return []Screen{ScreenLanding, ScreenSignIn, ScreenSignUp, ScreenVerify, ScreenHome}
}

// ParseScreen validates a screen name.
func ParseScreen(name string) (Screen, error) {
	for _, s := range Screens() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown screen %q", name)
}

// Protected reports whether s requires an active session.
func (s Screen) Protected() bool {
	return s == ScreenHome
}

// AuthState is the tri-state (plus loading) the guard decides on.
type AuthState uint8

const (
	StateLoading AuthState = iota
	StateNoSession
	StatePendingVerification
	StateActive
)

func (s AuthState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateNoSession:
		return "no_session"
	case StatePendingVerification:
		return "pending_verification"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// DecisionKind is the guard outcome for one screen.
type DecisionKind uint8

const (
	ShowLoading DecisionKind = iota
	ShowPublic
	ShowProtected
	RedirectTo
)

func (k DecisionKind) String() string {
	switch k {
	case ShowLoading:
		return "show_loading"
	case ShowPublic:
		return "show_public"
	case ShowProtected:
		return "show_protected"
	case RedirectTo:
		return "redirect"
	default:
		return fmt.Sprintf("decision(%d)", uint8(k))
	}
}

// Decision is the guard result. Target is set only for RedirectTo.
type Decision struct {
	Kind   DecisionKind
	Target Screen
}

func redirect(to Screen) Decision {
	return Decision{Kind: RedirectTo, Target: to}
}

// Decide returns what to do when screen is requested in state. Protected
// content is never shown while loading.
func Decide(state AuthState, screen Screen) Decision {
	switch state {
	case StateActive:
		if screen.Protected() {
			return Decision{Kind: ShowProtected}
		}
		return redirect(ScreenHome)

	case StatePendingVerification:
		switch screen {
		case ScreenHome, ScreenSignUp:
			return redirect(ScreenVerify)
		default:
			return Decision{Kind: ShowPublic}
		}

	case StateNoSession:
		if screen.Protected() {
			return redirect(ScreenLanding)
		}
		return Decision{Kind: ShowPublic}

	default:
		return Decision{Kind: ShowLoading}
	}
}

// Resolve follows redirects from screen until a showable decision is
// reached. It returns the final screen and decision.
func Resolve(state AuthState, screen Screen) (Screen, Decision) {
	d := Decide(state, screen)
	for hops := 0; d.Kind == RedirectTo && hops < len(Screens()); hops++ {
		screen = d.Target
		d = Decide(state, screen)
	}
	return screen, d
}

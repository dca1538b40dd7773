package route

import (
	"sync"
)

// Source provides the current auth state and change notifications.
type Source interface {
	AuthState() AuthState
	SubscribeAuthState(fn func(AuthState)) (unsubscribe func())
}

// View is what the shell should render.
type View struct {
	Screen       Screen
	Requested    Screen
	Decision     Decision
	State        AuthState
	PendingEmail string
	Redirected   bool
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithPendingEmail supplies the address shown on the verify screen.
func WithPendingEmail(fn func() string) Option {
	return func(n *Navigator) { n.pendingEmail = fn }
}

// WithRedirectHook is called once per redirect followed.
func WithRedirectHook(fn func(from, to Screen)) Option {
	return func(n *Navigator) { n.onRedirect = fn }
}

// Navigator tracks the active screen and re-resolves it on every auth-state
// change.
type Navigator struct {
	mu        sync.Mutex
	source    Source
	requested Screen
	view      View
	listeners []func(View)

	pendingEmail func() string
	onRedirect   func(from, to Screen)
	unsubscribe  func()
}

// NewNavigator starts on initial and subscribes to src. Call Close to detach.
func NewNavigator(src Source, initial Screen, opts ...Option) *Navigator {
	n := &Navigator{
		source:    src,
		requested: initial,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.mu.Lock()
	n.view = n.resolveLocked(src.AuthState())
	n.mu.Unlock()
	n.unsubscribe = src.SubscribeAuthState(n.onState)
	return n
}

// Current returns the active view.
func (n *Navigator) Current() View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.view
}

// Navigate requests screen and returns the resolved view.
func (n *Navigator) Navigate(screen Screen) View {
	n.mu.Lock()
	n.requested = screen
	v := n.resolveLocked(n.source.AuthState())
	n.view = v
	listeners := append([]func(View){}, n.listeners...)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
	return v
}

// OnChange registers fn for every view change.
func (n *Navigator) OnChange(fn func(View)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

// Close stops following auth-state changes.
func (n *Navigator) Close() {
	if n.unsubscribe != nil {
		n.unsubscribe()
	}
}

func (n *Navigator) onState(state AuthState) {
	n.mu.Lock()
	// A redirect replaces the history entry, so the landing point becomes
	// the requested screen.
	n.requested = n.view.Screen
	if n.requested == "" {
		n.requested = ScreenLanding
	}
	v := n.resolveLocked(state)
	changed := v != n.view
	n.view = v
	listeners := append([]func(View){}, n.listeners...)
	n.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(v)
	}
}

func (n *Navigator) resolveLocked(state AuthState) View {
	requested := n.requested
	screen, d := Resolve(state, requested)
	if d.Kind == ShowLoading {
		screen = requested
	}
	v := View{
		Screen:     screen,
		Requested:  requested,
		Decision:   d,
		State:      state,
		Redirected: screen != requested,
	}
	if v.Redirected && n.onRedirect != nil {
		n.onRedirect(requested, screen)
	}
	if screen == ScreenVerify && n.pendingEmail != nil {
		v.PendingEmail = n.pendingEmail()
	}
	return v
}

package route

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	state AuthState
	subs  []func(AuthState)
}

func (f *fakeSource) AuthState() AuthState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSource) SubscribeAuthState(fn func(AuthState)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
	idx := len(f.subs) - 1
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.subs[idx] = nil
	}
}

func (f *fakeSource) set(s AuthState) {
	f.mu.Lock()
	f.state = s
	subs := append([]func(AuthState){}, f.subs...)
	f.mu.Unlock()
	for _, fn := range subs {
		if fn != nil {
			fn(s)
		}
	}
}

func TestNavigatorReactsToStateChanges(t *testing.T) {
	src := &fakeSource{state: StateLoading}
	var seen []Screen
	nav := NewNavigator(src, ScreenHome)
	nav.OnChange(func(v View) { seen = append(seen, v.Screen) })

	assert.Equal(t, ShowLoading, nav.Current().Decision.Kind)
	assert.Equal(t, ScreenHome, nav.Current().Screen)

	src.set(StateNoSession)
	assert.Equal(t, ScreenLanding, nav.Current().Screen)
	assert.True(t, nav.Current().Redirected)

	nav.Navigate(ScreenSignIn)
	src.set(StateActive)
	v := nav.Current()
	assert.Equal(t, ScreenHome, v.Screen)
	assert.Equal(t, ShowProtected, v.Decision.Kind)

	src.set(StateNoSession)
	assert.Equal(t, ScreenLanding, nav.Current().Screen)

	assert.Equal(t, []Screen{ScreenLanding, ScreenSignIn, ScreenHome, ScreenLanding}, seen)
}

func TestNavigatorPendingVerification(t *testing.T) {
	src := &fakeSource{state: StateNoSession}
	nav := NewNavigator(src, ScreenSignUp, WithPendingEmail(func() string { return "a@b.com" }))

	src.set(StatePendingVerification)
	v := nav.Current()
	require.Equal(t, ScreenVerify, v.Screen)
	assert.Equal(t, "a@b.com", v.PendingEmail)

	v = nav.Navigate(ScreenSignUp)
	assert.Equal(t, ScreenVerify, v.Screen)
	assert.Equal(t, ScreenSignUp, v.Requested)

	v = nav.Navigate(ScreenSignIn)
	assert.Equal(t, ScreenSignIn, v.Screen)
	assert.Empty(t, v.PendingEmail)
}

func TestNavigatorRedirectHookAndClose(t *testing.T) {
	src := &fakeSource{state: StateNoSession}
	var hops [][2]Screen
	nav := NewNavigator(src, ScreenHome, WithRedirectHook(func(from, to Screen) {
		hops = append(hops, [2]Screen{from, to})
	}))
	assert.Equal(t, [][2]Screen{{ScreenHome, ScreenLanding}}, hops)

	nav.Close()
	src.set(StateActive)
	assert.Equal(t, ScreenLanding, nav.Current().Screen)
}

func TestNavigatorNoNotifyWithoutChange(t *testing.T) {
	src := &fakeSource{state: StateNoSession}
	nav := NewNavigator(src, ScreenLanding)
	calls := 0
	nav.OnChange(func(View) { calls++ })

	src.set(StateNoSession)
	assert.Zero(t, calls)
}

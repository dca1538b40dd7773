package authflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gotg/authflow/credstore"
	"github.com/gotg/authflow/form"
	"github.com/gotg/authflow/gateway"
	"github.com/gotg/authflow/internal/flows"
	"github.com/gotg/authflow/internal/notify"
	"github.com/gotg/authflow/route"
	"github.com/gotg/authflow/session"
	"github.com/gotg/authflow/validation"
)

type stateSubscription struct {
	fn     func(route.AuthState)
	active atomic.Bool
}

// Controller drives the sign-in, sign-up, verification and sign-out flows
// and derives the auth state the route guard decides on.
type Controller struct {
	config     Config
	gateway    gateway.Gateway
	creds      credstore.Store
	closeCreds func() error
	sessions   *session.Store
	notifier   *notify.Dispatcher
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time
	flows      flows.Service

	signInSchema validation.Schema
	signUpSchema validation.Schema

	mu           sync.Mutex
	started      bool
	closed       bool
	phase        Phase
	pendingEmail string
	resending    bool
	lastErr      *AuthError
	lastNote     *Notification
	authState    route.AuthState
	stateSubs    []*stateSubscription
	stateQueue   []route.AuthState
	delivering   bool
	unsubscribe  []func()
	closeOnce    sync.Once
}

func (c *Controller) flowDeps() flows.Deps {
	in := flows.Instruments{
		MetricInc:      func(id int) { c.metrics.Inc(MetricID(id)) },
		ObserveLatency: func(id int, d time.Duration) { c.metrics.Observe(MetricID(id), d) },
		Now:            c.now,
	}
	return flows.Deps{
		SignIn: flows.SignInDeps{
			SignIn:       c.gateway.SignInWithPassword,
			ErrorMessage: gateway.Message,
			Notify:       c.notify,
			Instruments:  in,
			Metrics: flows.SignInMetrics{
				Success:        int(MetricSignInSuccess),
				Failure:        int(MetricSignInFailure),
				GatewayLatency: int(MetricGatewayLatency),
			},
			Events:   flows.SignInEvents{Success: EventSignInSuccess, Failure: EventSignInFailure},
			Messages: flows.SignInMessages{Success: MsgSignInSuccess, Fallback: MsgSignInFallback},
		},
		SignUp: flows.SignUpDeps{
			SignUp:         c.gateway.SignUp,
			PersistPending: c.persistPending,
			ErrorMessage:   gateway.Message,
			Notify:         c.notify,
			Instruments:    in,
			Metrics: flows.SignUpMetrics{
				Success:             int(MetricSignUpSuccess),
				Failure:             int(MetricSignUpFailure),
				VerificationPending: int(MetricVerificationPending),
				PendingPersistError: int(MetricPendingPersistFailure),
				GatewayLatency:      int(MetricGatewayLatency),
			},
			Events:   flows.SignUpEvents{Success: EventSignUpSuccess, Failure: EventSignUpFailure},
			Messages: flows.SignUpMessages{Success: MsgSignUpSuccess, Fallback: MsgSignUpFallback},
		},
		Resend: flows.ResendDeps{
			LoadPending:  c.loadPending,
			Resend:       c.gateway.ResendVerification,
			RedirectURL:  c.config.Verification.RedirectURL,
			ErrorMessage: gateway.Message,
			Notify:       c.notify,
			Instruments:  in,
			Metrics: flows.ResendMetrics{
				Success:        int(MetricResendSuccess),
				Failure:        int(MetricResendFailure),
				MissingEmail:   int(MetricResendMissingEmail),
				GatewayLatency: int(MetricGatewayLatency),
			},
			Events: flows.ResendEvents{
				Success:      EventResendSuccess,
				Failure:      EventResendFailure,
				MissingEmail: EventPendingEmailAbsent,
			},
			Messages: flows.ResendMessages{
				Success:      MsgResendSuccess,
				Fallback:     MsgResendFallback,
				MissingEmail: MsgPendingEmailMissing,
			},
		},
		SignOut: flows.SignOutDeps{
			SignOut: c.gateway.SignOut,
			ClearSession: func() {
				c.sessions.Apply(session.Event{Kind: session.EventSignedOut})
			},
			ClearPending: c.clearPending,
			Instruments:  in,
			Metrics: flows.SignOutMetrics{
				SignOut:        int(MetricSignOut),
				GatewayFailure: int(MetricSignOutGatewayFailure),
				GatewayLatency: int(MetricGatewayLatency),
			},
		},
	}
}

// Start subscribes the session store to the gateway, restores the persisted
// session and recovers a pending verification from the credential store.
// Until the restore resolves AuthState reports StateLoading. A failed restore
// is logged and treated as no session.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.started:
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	unsubSession := c.sessions.Subscribe(c.onSessionChange)
	unsubGateway := c.gateway.SubscribeSession(func(evt session.Event) {
		c.sessions.Apply(evt)
	})
	c.mu.Lock()
	c.unsubscribe = append(c.unsubscribe, unsubGateway, unsubSession)
	c.mu.Unlock()

	err := c.sessions.Restore(ctx, func(ctx context.Context) (*session.Session, error) {
		// Recover the pending email before the restore resolves so the
		// first published state is already the right one.
		if email, ok, lerr := c.loadPending(ctx); lerr != nil {
			c.log(ctx).Warn("pending verification lookup failed", slog.Any("error", lerr))
		} else if ok {
			c.mu.Lock()
			c.pendingEmail = email
			c.mu.Unlock()
		}
		return c.gateway.RestoreSession(ctx)
	})
	if err != nil {
		c.metrics.Inc(MetricRestoreFailure)
		c.log(ctx).Warn("session restore failed", slog.Any("error", err))
	}

	c.log(ctx).Debug("controller started", slog.String("state", c.AuthState().String()))
	return nil
}

// Close detaches from the gateway, drains notifications and releases the
// credential store. It is safe to call more than once.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		unsub := c.unsubscribe
		c.unsubscribe = nil
		c.mu.Unlock()

		for _, fn := range unsub {
			fn()
		}
		c.notifier.Close()
		if c.closeCreds != nil {
			err = c.closeCreds()
		}
	})
	return err
}

func (c *Controller) ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return ErrClosed
	case !c.started:
		return ErrNotStarted
	}
	return nil
}

// AuthState returns the current tri-state, or StateLoading before the restore
// resolves.
func (c *Controller) AuthState() route.AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.computeStateLocked()
}

func (c *Controller) computeStateLocked() route.AuthState {
	switch {
	case c.sessions.Loading():
		return route.StateLoading
	case c.sessions.Get() != nil:
		return route.StateActive
	case c.pendingEmail != "":
		return route.StatePendingVerification
	default:
		return route.StateNoSession
	}
}

// SubscribeAuthState registers fn for every auth-state transition. Listeners
// run synchronously in subscription order.
func (c *Controller) SubscribeAuthState(fn func(route.AuthState)) func() {
	sub := &stateSubscription{fn: fn}
	sub.active.Store(true)

	c.mu.Lock()
	c.stateSubs = append(c.stateSubs, sub)
	c.mu.Unlock()

	return func() {
		if !sub.active.Swap(false) {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, candidate := range c.stateSubs {
			if candidate == sub {
				c.stateSubs = append(c.stateSubs[:i:i], c.stateSubs[i+1:]...)
				break
			}
		}
	}
}

// publish recomputes the auth state and notifies subscribers when it moved.
// Transitions raised by a subscriber are queued behind the current one.
func (c *Controller) publish() {
	c.mu.Lock()
	next := c.computeStateLocked()
	if next == c.authState {
		c.mu.Unlock()
		return
	}
	c.authState = next
	c.stateQueue = append(c.stateQueue, next)
	c.metrics.Inc(MetricAuthStateChange)
	if c.delivering {
		c.mu.Unlock()
		return
	}

	c.delivering = true
	for len(c.stateQueue) > 0 {
		state := c.stateQueue[0]
		c.stateQueue = c.stateQueue[1:]
		subs := append([]*stateSubscription(nil), c.stateSubs...)
		c.mu.Unlock()

		for _, sub := range subs {
			if sub.active.Load() {
				sub.fn(state)
			}
		}

		c.mu.Lock()
	}
	c.delivering = false
	c.mu.Unlock()
}

func (c *Controller) onSessionChange(ch session.Change) {
	switch {
	case ch.Session != nil && ch.Previous == nil:
		c.metrics.Inc(MetricSessionActivated)
	case ch.Session == nil && ch.Previous != nil:
		c.metrics.Inc(MetricSessionCleared)
	case ch.Kind == session.EventTokenRefreshed:
		c.metrics.Inc(MetricSessionRefreshed)
	}

	if ch.Session != nil {
		c.mu.Lock()
		hadPending := c.pendingEmail != ""
		c.mu.Unlock()
		if hadPending || ch.Previous == nil {
			if err := c.clearPending(context.Background()); err != nil {
				c.log(context.Background()).Warn("pending verification cleanup failed", slog.Any("error", err))
			}
		}
	}
	c.publish()
}

// SweepExpired clears a session whose expiry has passed. It reports whether
// one was removed.
func (c *Controller) SweepExpired() bool {
	return c.sessions.Sweep(c.now())
}

// Session returns a copy of the active session, or nil.
func (c *Controller) Session() *session.Session {
	return c.sessions.Get()
}

// PendingEmail returns the address awaiting verification, or "".
func (c *Controller) PendingEmail() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingEmail
}

// Snapshot returns a consistent copy of the controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:        c.computeStateLocked(),
		Phase:        c.phase,
		PendingEmail: c.pendingEmail,
		IsResending:  c.resending,
		Session:      c.sessions.Get(),
	}
	if c.lastErr != nil {
		e := *c.lastErr
		snap.LastError = &e
	}
	if c.lastNote != nil {
		n := *c.lastNote
		snap.LastNotification = &n
	}
	return snap
}

// MetricsSnapshot returns a point-in-time copy of the controller metrics.
func (c *Controller) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// NewSignInForm returns a form bound to the configured sign-in rules.
func (c *Controller) NewSignInForm() *form.Form {
	return form.New(c.signInSchema)
}

// NewSignUpForm returns a form bound to the configured sign-up rules.
func (c *Controller) NewSignUpForm() *form.Form {
	return form.New(c.signUpSchema)
}

// NewNavigator returns a route navigator following this controller, starting
// on initial.
func (c *Controller) NewNavigator(initial route.Screen) *route.Navigator {
	return route.NewNavigator(c, initial,
		route.WithPendingEmail(c.PendingEmail),
		route.WithRedirectHook(func(from, to route.Screen) {
			c.metrics.Inc(MetricRedirect)
		}),
	)
}

// beginSubmit runs the form gate and marks the controller busy with phase. It
// returns the values that passed validation.
func (c *Controller) beginSubmit(f *form.Form, phase Phase, required ...validation.Field) (validation.Values, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	for _, field := range required {
		if !f.Has(field) {
			return nil, &AuthError{Kind: KindValidation, Message: ErrWrongForm.Error(), Err: ErrWrongForm}
		}
	}

	values, err := f.BeginSubmit()
	switch {
	case err == nil:
		c.setPhase(phase)
		return values, nil
	case errors.Is(err, form.ErrSubmitting):
		c.metrics.Inc(MetricSubmitRejectedBusy)
		return nil, &AuthError{
			Kind:    KindValidation,
			Message: ErrSubmitInProgress.Error(),
			Err:     fmt.Errorf("%w: %w", ErrSubmitInProgress, err),
		}
	case errors.Is(err, form.ErrInvalid):
		c.metrics.Inc(MetricSubmitRejectedInvalid)
		aerr := &AuthError{Kind: KindValidation, Message: err.Error(), Err: err}
		var inv *form.InvalidError
		if errors.As(err, &inv) {
			aerr.Fields = inv.Fields
		}
		return nil, aerr
	default:
		return nil, &AuthError{Kind: KindValidation, Message: err.Error(), Err: err}
	}
}

// endSubmit releases the form gate. Global effects of the submission have
// already happened; an unmounted form ignores the release.
func (c *Controller) endSubmit(f *form.Form, success bool) {
	if success {
		f.Reset()
	}
	f.EndSubmit()
	c.setPhase(PhaseIdle)
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// fail records err as the last error and returns it as an *AuthError shown
// to the user as message.
func (c *Controller) fail(ctx context.Context, op string, err error, message string) *AuthError {
	aerr := &AuthError{Kind: classify(err), Message: message, Err: err}
	c.mu.Lock()
	c.lastErr = aerr
	c.mu.Unlock()

	c.log(ctx).Warn("auth flow failed",
		slog.String("flow", op),
		slog.String("kind", aerr.Kind.String()),
		slog.Any("error", err),
	)
	return aerr
}

func (c *Controller) succeed() {
	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
}

func (c *Controller) loadPending(ctx context.Context) (string, bool, error) {
	return c.creds.Get(ctx, credstore.KeyVerificationEmail)
}

func (c *Controller) persistPending(ctx context.Context, email string) error {
	c.mu.Lock()
	c.pendingEmail = email
	c.mu.Unlock()
	return c.creds.Set(context.WithoutCancel(ctx), credstore.KeyVerificationEmail, email)
}

// clearPending forgets the pending verification in memory first, so the state
// moves on even when the store is unavailable.
func (c *Controller) clearPending(ctx context.Context) error {
	c.mu.Lock()
	c.pendingEmail = ""
	c.mu.Unlock()
	return c.creds.Delete(context.WithoutCancel(ctx), credstore.KeyVerificationEmail)
}

func (c *Controller) log(ctx context.Context) *slog.Logger {
	if id := requestIDFromContext(ctx); id != "" {
		return c.logger.With(slog.String("request_id", id))
	}
	return c.logger
}

func classify(err error) ErrorKind {
	var gerr *gateway.Error
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &gerr):
		return KindGateway
	case errors.Is(err, gateway.ErrNetwork),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindNetwork
	case errors.Is(err, credstore.ErrUnavailable):
		return KindStorage
	default:
		return KindUnknown
	}
}

package memory

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gotg/authflow/credstore"
	"github.com/gotg/authflow/gateway"
	"github.com/gotg/authflow/internal/rate"
	tokens "github.com/gotg/authflow/jwt"
	"github.com/gotg/authflow/password"
	"github.com/gotg/authflow/session"
)

// KeySession is the credential-store key holding the persisted session.
const KeySession = "authSession"

const minPasswordLength = 6

// Op names a gateway operation for counters and fault injection.
type Op string

const (
	OpSignUp  Op = "sign_up"
	OpSignIn  Op = "sign_in"
	OpSignOut Op = "sign_out"
	OpResend  Op = "resend"
	OpRestore Op = "restore"
	OpConfirm Op = "confirm"
	OpRefresh Op = "refresh"
)

// Limiter throttles attempts per scope and identifier. *rate.Limiter
// satisfies it.
type Limiter interface {
	Allow(ctx context.Context, scope, identifier string) error
	Reset(ctx context.Context, scope, identifier string) error
}

// Verification is a captured verification email.
type Verification struct {
	Email       string
	RedirectURL string
	SentAt      time.Time
}

type account struct {
	id        string
	email     string
	hash      string
	profile   gateway.Profile
	confirmed bool
}

type refreshGrant struct {
	userID string
	email  string
}

type hold struct {
	ch   chan struct{}
	once sync.Once
}

// Backend is safe for concurrent use.
type Backend struct {
	mu       sync.Mutex
	accounts map[string]*account
	grants   map[string]refreshGrant
	current  *session.Session
	subs     map[uint64]gateway.Listener
	nextSub  uint64
	calls    map[Op]int
	faults   map[Op]error
	holds    map[Op]*hold
	outbox   []Verification

	requireVerification bool
	hasher              *password.Hasher
	tokens              *tokens.Manager
	store               credstore.Store
	limiter             Limiter
	now                 func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithVerificationRequired makes sign-up withhold the session until
// ConfirmEmail is called.
func WithVerificationRequired(required bool) Option {
	return func(b *Backend) { b.requireVerification = required }
}

// WithStore sets where the client session is persisted.
func WithStore(s credstore.Store) Option {
	return func(b *Backend) { b.store = s }
}

// WithTokenManager sets the access token signer.
func WithTokenManager(m *tokens.Manager) Option {
	return func(b *Backend) { b.tokens = m }
}

// WithHasher sets the password hasher.
func WithHasher(h *password.Hasher) Option {
	return func(b *Backend) { b.hasher = h }
}

// WithLimiter throttles sign-in attempts and verification resends.
func WithLimiter(l Limiter) Option {
	return func(b *Backend) { b.limiter = l }
}

// WithClock overrides the clock used for outbox timestamps and session
// expiry checks.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// New returns a Backend. Without WithTokenManager it signs HS256 tokens with a
// random per-process secret and a one-hour TTL.
func New(opts ...Option) (*Backend, error) {
	b := &Backend{
		accounts: make(map[string]*account),
		grants:   make(map[string]refreshGrant),
		subs:     make(map[uint64]gateway.Listener),
		calls:    make(map[Op]int),
		faults:   make(map[Op]error),
		holds:    make(map[Op]*hold),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.hasher == nil {
		h, err := password.NewHasher(password.DefaultConfig())
		if err != nil {
			return nil, err
		}
		b.hasher = h
	}
	if b.tokens == nil {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate signing secret: %w", err)
		}
		m, err := tokens.NewManager(tokens.Config{
			AccessTTL:     time.Hour,
			SigningMethod: tokens.MethodHS256,
			PrivateKey:    secret,
			Issuer:        "authflow-memory",
		})
		if err != nil {
			return nil, err
		}
		b.tokens = m
	}
	if b.store == nil {
		b.store = credstore.NewMemoryStore()
	}
	return b, nil
}

var _ gateway.Gateway = (*Backend)(nil)

// SignUp creates an account. With verification required the account is
// unconfirmed and a verification email lands in the outbox; otherwise the
// account is signed in immediately.
func (b *Backend) SignUp(ctx context.Context, email, plain string, profile gateway.Profile) (gateway.SignUpResult, error) {
	if err := b.enter(ctx, OpSignUp); err != nil {
		return gateway.SignUpResult{}, err
	}
	email = normalizeEmail(email)

	switch {
	case email == "":
		return gateway.SignUpResult{}, &gateway.Error{Code: "validation_failed", Message: "Email address is required"}
	case len(plain) < minPasswordLength:
		return gateway.SignUpResult{}, &gateway.Error{Code: gateway.CodeWeakPassword, Message: fmt.Sprintf("Password should be at least %d characters", minPasswordLength)}
	case !profile.AgreeToTerms:
		return gateway.SignUpResult{}, &gateway.Error{Code: gateway.CodeTermsRequired, Message: "Terms and conditions must be accepted"}
	}

	hash, err := b.hasher.Hash(plain)
	if err != nil {
		return gateway.SignUpResult{}, &gateway.Error{Code: gateway.CodeWeakPassword, Message: err.Error()}
	}

	b.mu.Lock()
	existing, ok := b.accounts[email]
	if ok && existing.confirmed {
		b.mu.Unlock()
		return gateway.SignUpResult{}, &gateway.Error{Code: gateway.CodeUserExists, Message: "User already registered"}
	}
	acct := &account{
		id:        uuid.NewString(),
		email:     email,
		hash:      hash,
		profile:   profile,
		confirmed: !b.requireVerification,
	}
	if ok {
		acct.id = existing.id
	}
	b.accounts[email] = acct
	if b.requireVerification {
		b.outbox = append(b.outbox, Verification{Email: email, SentAt: b.now()})
		b.mu.Unlock()
		return gateway.SignUpResult{NeedsVerification: true}, nil
	}
	b.mu.Unlock()

	s, err := b.startSession(ctx, acct.id, email, session.EventSignedIn)
	if err != nil {
		return gateway.SignUpResult{}, err
	}
	return gateway.SignUpResult{Session: s}, nil
}

// SignInWithPassword verifies credentials and starts a session.
func (b *Backend) SignInWithPassword(ctx context.Context, email, plain string) (*session.Session, error) {
	if err := b.enter(ctx, OpSignIn); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)

	if err := b.throttle(ctx, "signin", email, "Too many sign-in attempts. Please try again later."); err != nil {
		return nil, err
	}

	b.mu.Lock()
	acct, ok := b.accounts[email]
	b.mu.Unlock()

	invalid := &gateway.Error{Code: gateway.CodeInvalidCredentials, Message: "Invalid login credentials"}
	if !ok {
		return nil, invalid
	}
	match, err := b.hasher.Verify(plain, acct.hash)
	if err != nil || !match {
		return nil, invalid
	}
	if !acct.confirmed {
		return nil, &gateway.Error{Code: gateway.CodeEmailNotConfirmed, Message: "Email not confirmed"}
	}
	if b.limiter != nil {
		_ = b.limiter.Reset(ctx, "signin", email)
	}
	return b.startSession(ctx, acct.id, acct.email, session.EventSignedIn)
}

// SignOut revokes the current session and always emits SignedOut.
func (b *Backend) SignOut(ctx context.Context) error {
	if err := b.enter(ctx, OpSignOut); err != nil {
		return err
	}

	b.mu.Lock()
	if b.current != nil {
		delete(b.grants, b.current.RefreshToken)
	}
	b.current = nil
	b.mu.Unlock()

	err := b.store.Delete(ctx, KeySession)
	b.emit(session.Event{Kind: session.EventSignedOut})
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrNetwork, err)
	}
	return nil
}

// ResendVerification records a verification email for an unconfirmed
// account. Unknown or confirmed addresses succeed silently so the caller
// cannot probe for accounts.
func (b *Backend) ResendVerification(ctx context.Context, email, redirectURL string) error {
	if err := b.enter(ctx, OpResend); err != nil {
		return err
	}
	email = normalizeEmail(email)
	if email == "" {
		return &gateway.Error{Code: "validation_failed", Message: "Email address is required"}
	}

	if err := b.throttle(ctx, "resend", email, "For security purposes, you can only request this once every 60 seconds"); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if acct, ok := b.accounts[email]; ok && !acct.confirmed {
		b.outbox = append(b.outbox, Verification{Email: email, RedirectURL: redirectURL, SentAt: b.now()})
	}
	return nil
}

// RestoreSession loads the persisted session. An expired access token is
// exchanged through its refresh grant; an unusable session is discarded and
// nil returned.
func (b *Backend) RestoreSession(ctx context.Context) (*session.Session, error) {
	if err := b.enter(ctx, OpRestore); err != nil {
		return nil, err
	}

	raw, ok, err := b.store.Get(ctx, KeySession)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrNetwork, err)
	}
	if !ok {
		return nil, nil
	}

	var s session.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		_ = b.store.Delete(ctx, KeySession)
		return nil, nil
	}

	if _, err := b.tokens.Parse(s.AccessToken); err == nil && !s.Expired(b.now()) {
		b.mu.Lock()
		b.current = s.Clone()
		b.mu.Unlock()
		return &s, nil
	}

	b.mu.Lock()
	grant, ok := b.grants[s.RefreshToken]
	if ok {
		delete(b.grants, s.RefreshToken)
	}
	b.mu.Unlock()
	if !ok {
		_ = b.store.Delete(ctx, KeySession)
		return nil, nil
	}
	return b.issue(ctx, grant.userID, grant.email)
}

// SubscribeSession registers fn for session events.
func (b *Backend) SubscribeSession(fn gateway.Listener) func() {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// ConfirmEmail marks the account confirmed and signs it in, the way the
// verification deep link does.
func (b *Backend) ConfirmEmail(ctx context.Context, email string) (*session.Session, error) {
	if err := b.enter(ctx, OpConfirm); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)

	b.mu.Lock()
	acct, ok := b.accounts[email]
	if ok {
		acct.confirmed = true
	}
	b.mu.Unlock()
	if !ok {
		return nil, &gateway.Error{Code: gateway.CodeNotFound, Message: "User not found"}
	}
	return b.startSession(ctx, acct.id, acct.email, session.EventSignedIn)
}

// Refresh rotates the current session's tokens and emits TokenRefreshed.
func (b *Backend) Refresh(ctx context.Context) (*session.Session, error) {
	if err := b.enter(ctx, OpRefresh); err != nil {
		return nil, err
	}

	b.mu.Lock()
	cur := b.current
	var grant refreshGrant
	ok := false
	if cur != nil {
		grant, ok = b.grants[cur.RefreshToken]
		delete(b.grants, cur.RefreshToken)
	}
	b.mu.Unlock()
	if !ok {
		return nil, &gateway.Error{Code: gateway.CodeInvalidToken, Message: "Invalid Refresh Token"}
	}
	return b.startSession(ctx, grant.userID, grant.email, session.EventTokenRefreshed)
}

func (b *Backend) startSession(ctx context.Context, userID, email string, kind session.EventKind) (*session.Session, error) {
	s, err := b.issue(ctx, userID, email)
	if err != nil {
		return nil, err
	}
	b.emit(session.Event{Kind: kind, Session: s.Clone()})
	return s, nil
}

func (b *Backend) issue(ctx context.Context, userID, email string) (*session.Session, error) {
	access, expiresAt, err := b.tokens.Issue(userID, email, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	s := &session.Session{
		UserID:       userID,
		Email:        email,
		AccessToken:  access,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    expiresAt,
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	if err := b.store.Set(ctx, KeySession, string(raw)); err != nil {
		return nil, fmt.Errorf("%w: persist session: %v", gateway.ErrNetwork, err)
	}

	b.mu.Lock()
	b.grants[s.RefreshToken] = refreshGrant{userID: userID, email: email}
	b.current = s.Clone()
	b.mu.Unlock()
	return s, nil
}

func (b *Backend) emit(evt session.Event) {
	b.mu.Lock()
	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]gateway.Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(evt)
	}
}

func (b *Backend) throttle(ctx context.Context, scope, email, message string) error {
	if b.limiter == nil {
		return nil
	}
	err := b.limiter.Allow(ctx, scope, email)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return &gateway.Error{Code: gateway.CodeRateLimited, Message: message}
	default:
		return fmt.Errorf("%w: %v", gateway.ErrNetwork, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

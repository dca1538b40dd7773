package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrAlreadyRestored is returned when Restore is called a second time.
var ErrAlreadyRestored = errors.New("session restore already performed")

// ErrRestoreFailed wraps the error returned by a RestoreFunc.
var ErrRestoreFailed = errors.New("session restore failed")

// EventKind names a session transition.
type EventKind uint8

const (
	EventInitialSession EventKind = iota
	EventSignedIn
	EventSignedOut
	EventTokenRefreshed
	EventUserUpdated
	EventExpired
)

func (k EventKind) String() string {
	switch k {
	case EventInitialSession:
		return "initial_session"
	case EventSignedIn:
		return "signed_in"
	case EventSignedOut:
		return "signed_out"
	case EventTokenRefreshed:
		return "token_refreshed"
	case EventUserUpdated:
		return "user_updated"
	case EventExpired:
		return "expired"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is a gateway-originated session transition. Session is nil for
// SignedOut and Expired.
type Event struct {
	Kind    EventKind
	Session *Session
}

// Change is what listeners receive. Session and Previous are copies.
type Change struct {
	Kind     EventKind
	Session  *Session
	Previous *Session
	Loading  bool
}

// Listener observes session changes. It runs synchronously on the goroutine
// that applied the event.
type Listener func(Change)

// RestoreFunc recovers a persisted session, or returns nil when none exists.
type RestoreFunc func(ctx context.Context) (*Session, error)

type subscription struct {
	fn     Listener
	active atomic.Bool
}

// Store is the single owned cell holding the current session.
type Store struct {
	mu         sync.Mutex
	current    *Session
	loading    bool
	restoring  bool
	liveEvent  bool
	subs       []*subscription
	queue      []Change
	delivering bool
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns a Store in the loading phase with no session.
func NewStore(opts ...Option) *Store {
	s := &Store{
		loading: true,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the current session, or nil when there is none or it
// has expired.
func (s *Store) Get() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.Expired(s.now()) {
		return nil
	}
	return s.current.Clone()
}

// Loading reports whether the initial restore is still outstanding.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Subscribe registers fn for every subsequent change. Listeners are notified
// in subscription order. The returned function unsubscribes; calling it more
// than once is harmless.
func (s *Store) Subscribe(fn Listener) func() {
	sub := &subscription{fn: fn}
	sub.active.Store(true)

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return func() {
		if !sub.active.Swap(false) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, candidate := range s.subs {
			if candidate == sub {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				break
			}
		}
	}
}

// Restore runs fn once and ends the loading phase. A failed or expired restore
// leaves the store without a session. If a live event was applied while fn was
// running, the live state wins and the restored session is discarded.
func (s *Store) Restore(ctx context.Context, fn RestoreFunc) error {
	s.mu.Lock()
	if s.restoring || !s.loading {
		s.mu.Unlock()
		return ErrAlreadyRestored
	}
	s.restoring = true
	s.mu.Unlock()

	var (
		restored *Session
		err      error
	)
	if fn != nil {
		restored, err = fn(ctx)
	}

	s.mu.Lock()
	if err == nil && !s.liveEvent && restored != nil && !restored.Expired(s.now()) {
		s.current = restored.Clone()
	}
	s.loading = false
	s.enqueueLocked(Change{
		Kind:    EventInitialSession,
		Session: s.current.Clone(),
	})
	s.deliverLocked()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrRestoreFailed, err)
	}
	return nil
}

// Apply records a gateway session event. An event that leaves the snapshot
// unchanged is dropped without notifying anyone, so delivering the same event
// twice is equivalent to delivering it once.
func (s *Store) Apply(evt Event) {
	var next *Session
	switch evt.Kind {
	case EventSignedOut, EventExpired:
	default:
		next = evt.Session
	}
	if next != nil && next.Expired(s.clock()) {
		next = nil
	}

	s.mu.Lock()
	if s.restoring || s.loading {
		s.liveEvent = true
	}
	if Equal(s.current, next) {
		s.mu.Unlock()
		return
	}
	prev := s.current
	s.current = next.Clone()
	s.enqueueLocked(Change{
		Kind:     evt.Kind,
		Session:  next.Clone(),
		Previous: prev,
		Loading:  s.loading,
	})
	s.deliverLocked()
}

// Sweep destroys the current session if it expired at now. It reports whether
// a session was removed.
func (s *Store) Sweep(now time.Time) bool {
	s.mu.Lock()
	if s.current == nil || !s.current.Expired(now) {
		s.mu.Unlock()
		return false
	}
	prev := s.current
	s.current = nil
	s.enqueueLocked(Change{
		Kind:     EventExpired,
		Previous: prev,
		Loading:  s.loading,
	})
	s.deliverLocked()
	return true
}

func (s *Store) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

func (s *Store) enqueueLocked(c Change) {
	s.queue = append(s.queue, c)
}

// deliverLocked drains the change queue in order and releases s.mu. A listener
// that applies another event re-enters Apply; the new change is queued behind
// the current one and delivered by this same loop.
func (s *Store) deliverLocked() {
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for len(s.queue) > 0 {
		c := s.queue[0]
		s.queue = s.queue[1:]
		subs := append([]*subscription(nil), s.subs...)
		s.mu.Unlock()

		for _, sub := range subs {
			if sub.active.Load() {
				sub.fn(c)
			}
		}

		s.mu.Lock()
	}
	s.delivering = false
	s.mu.Unlock()
}

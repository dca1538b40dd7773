// Package session holds the client's view of authentication: the [Session]
// token bundle and the process-wide [Store] that owns it.
//
// # Ownership
//
// The Store is the only writer of the current session. Gateway session events
// enter through [Store.Apply]; every other component reads via [Store.Get] or a
// subscription and never mutates the snapshot directly.
//
// # Lifecycle
//
// A Store starts in the loading phase. [Store.Restore] runs once per process and
// recovers any still-valid session; when it resolves, loading ends for the
// lifetime of the Store whether or not a session was found.
//
// # What this package must NOT do
//
//   - Talk to a backend. Restores and events come from the caller.
//   - Persist tokens. Durable session storage belongs to the gateway.
//   - Decide routing. Route decisions live in package route.
package session

// Package authflow is the authentication and session lifecycle core of the
// community mobile client: sign-up, sign-in, email verification, session
// persistence and the gating of protected screens behind a valid session.
//
// The package is designed for a UI shell that drives it from event handlers:
// Controller methods are safe to call from multiple goroutines after
// initialization through [Builder.Build] and [Controller.Start].
//
// # Architecture boundaries
//
// authflow is the public surface. It exposes [Controller], [Builder], [Config],
// [AuthError] and value types ([Snapshot], [MetricsSnapshot]). Gateway
// orchestration lives in internal/flows; notification delivery lives in
// internal/notify. The route guard (package route) consumes the
// Controller only through [Controller.AuthState] and
// [Controller.SubscribeAuthState].
//
// # What this package must NOT do
//
//   - Talk to an identity backend other than through a gateway.Gateway.
//   - Persist credentials; only the pending verification email is stored.
//   - Write the session directly; every session change goes through the
//     session.Store as a session.Event.
package authflow

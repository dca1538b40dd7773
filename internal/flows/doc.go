// Package flows contains pure-function orchestrators for every Controller
// operation that reaches the identity gateway.
//
// Each flow function (RunSignIn, RunSignUp, RunResend, RunSignOut) accepts a
// typed dependency struct and returns a result without side-effects beyond
// those dependencies. Form gating and auth-state publication stay with the
// Controller.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the gateway, session store, credential
// store, notifications and metrics. They do NOT own any of these resources;
// ownership stays with the Controller.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authflow (to avoid import cycles).
//   - Retry a gateway call on its own.
package flows

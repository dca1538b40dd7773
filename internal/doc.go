// Package internal holds helpers that are private to authflow.
//
// # Sub-packages
//
//   - flows: sign-in, sign-up, resend and sign-out orchestration over Deps func fields
//   - logging: slog construction from the configured level
//   - notify: async notification dispatch (Dispatcher + Sink implementations)
//   - rate: Redis-backed fixed-window attempt counters
//
// # What this package must NOT do
//
//   - Export types that appear in the public authflow API.
//   - Be imported by any package outside the authflow module.
package internal

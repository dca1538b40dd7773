// Package rate provides a Redis-backed fixed-window attempt counter used to
// throttle sign-in attempts and verification resends in the in-process
// gateway.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// "<prefix>:rl:<scope>:<identifier>" with the identifier lowercased.
//
// # What this package must NOT do
//
//   - Decide what a throttled caller sees (gateways map ErrRateLimited).
//   - Be imported outside the authflow module.
package rate

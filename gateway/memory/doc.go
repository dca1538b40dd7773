// Package memory is an in-process identity backend implementing
// gateway.Gateway.
//
// It stores accounts in memory, hashes passwords with Argon2id, signs access
// tokens with the jwt package and persists the client session in a
// credstore.Store so a new Backend or client can restore it. Verification
// emails are captured in an outbox instead of being sent; ConfirmEmail plays
// the role of the deep-link callback.
//
// Fault injection (Fail, Hold) and per-operation call counters exist for
// tests and the local bridge.
package memory

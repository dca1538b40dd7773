// Package credstore persists small strings across process restarts so that an
// in-progress flow (the email awaiting verification) survives the app being
// killed.
//
// # Backends
//
//   - [MemoryStore]: process-local, for tests and previews.
//   - [FileStore]: one JSON document on local disk, replaced atomically.
//   - [RedisStore]: keys in Redis without TTL, for shared device farms.
//
// # What this package must NOT do
//
//   - Hold credentials. Passwords never reach a Store.
//   - Interpret values. Callers own key names and encodings.
package credstore

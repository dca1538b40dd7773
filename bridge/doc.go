// Package bridge exposes a Controller over a small local HTTP API so a UI
// shell can drive the auth flows and follow the route guard.
//
// Handlers translate HTTP into Controller calls and Controller errors into
// status codes. Each submit builds its own form from the request body. The
// bridge owns one Navigator, mirroring a single app instance, and allows one
// sign-in and one sign-up in flight; a concurrent submit is rejected with 409
// the way a second tap would be. Sign-out returns to the landing screen.
//
// # Architecture boundaries
//
// All authentication decisions are delegated to the Controller. The bridge
// never talks to the gateway or the credential store directly.
//
// # What this package must NOT do
//
//   - Return access or refresh tokens in a response body.
//   - Keep auth state of its own beyond the submit gates and the Navigator.
package bridge

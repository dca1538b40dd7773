// Package notify implements async delivery of user-facing notifications
// (the toasts shown after sign-in, sign-up and resend attempts).
//
// # Components
//
//   - [Sink]: interface for notification consumers (channel, JSON writer, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Notification]: kind, message, display hints and the flow event that caused it.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. It does NOT decide which
// notifications to raise or what they say; the flow controller does.
//
// # What this package must NOT do
//
//   - Rewrite or suppress messages based on business logic.
//   - Import authflow or any sibling internal package.
package notify

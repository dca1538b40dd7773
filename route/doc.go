// Package route decides which screen a user may see for a given
// authentication state.
//
// Decide is a pure function of (state, screen). Navigator applies it
// reactively: it re-evaluates the active screen on every auth-state change,
// not only when the user navigates, so signing in or out while sitting on a
// screen moves the user without further input.
package route

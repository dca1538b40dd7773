package gateway

import (
	"errors"
	"fmt"
	"testing"
)

func TestMessage(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Code: CodeInvalidCredentials, Message: "Invalid login credentials"})
	if got := Message(err); got != "Invalid login credentials" {
		t.Fatalf("Message = %q", got)
	}
	if got := Message(ErrNetwork); got != "" {
		t.Fatalf("Message(ErrNetwork) = %q, want empty", got)
	}
	if got := Message(nil); got != "" {
		t.Fatalf("Message(nil) = %q, want empty", got)
	}
}

func TestErrorString(t *testing.T) {
	e := &Error{Code: "x", Message: "y"}
	if e.Error() != "x: y" {
		t.Fatalf("Error() = %q", e.Error())
	}
	if (&Error{Message: "only"}).Error() != "only" {
		t.Fatal("expected message only")
	}
	var target *Error
	if !errors.As(fmt.Errorf("%w", e), &target) || target.Code != "x" {
		t.Fatal("errors.As failed")
	}
}

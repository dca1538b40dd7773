package authflow

import (
	"context"
	"fmt"
	"time"

	"github.com/gotg/authflow/internal/notify"
)

// User-facing texts.
const (
	MsgSignInSuccess       = "Signed in successfully"
	MsgSignInFallback      = "An error occurred during sign in"
	MsgSignUpSuccess       = "Signed up successfully! Please check your email for verification."
	MsgSignUpFallback      = "An error occurred during sign up"
	MsgPendingEmailMissing = "Email address not found. Please go back and sign up again."
	MsgResendSuccess       = "Verification email has been resent. Please check your inbox."
	MsgResendFallback      = "Failed to resend verification email. Please try again."
	MsgForgotPassword      = "Password reset will be implemented soon"
	msgSocialSignIn        = "%s authentication will be implemented soon"
)

// Notification event names.
const (
	EventSignInSuccess      = "sign_in_success"
	EventSignInFailure      = "sign_in_failure"
	EventSignUpSuccess      = "sign_up_success"
	EventSignUpFailure      = "sign_up_failure"
	EventResendSuccess      = "verification_resent"
	EventResendFailure      = "verification_resend_failure"
	EventPendingEmailAbsent = "pending_email_missing"
	EventSocialSignIn       = "social_sign_in"
	EventForgotPassword     = "forgot_password"
)

// SocialSignInMessage is the placeholder text for provider.
func SocialSignInMessage(provider string) string {
	return fmt.Sprintf(msgSocialSignIn, provider)
}

// notify records n as the last notification and hands it to the dispatcher.
func (c *Controller) notify(ctx context.Context, kind notify.Kind, event, message string) {
	n := Notification{
		Timestamp: c.now(),
		Kind:      kind,
		Message:   message,
		Event:     event,
		Duration:  c.notificationDuration(kind, event),
		Placement: notify.Placement(c.config.Notifications.Placement),
	}

	c.mu.Lock()
	c.lastNote = &n
	c.mu.Unlock()

	c.notifier.Emit(context.WithoutCancel(ctx), n)
}

func (c *Controller) notificationDuration(kind notify.Kind, event string) time.Duration {
	cfg := c.config.Notifications
	switch {
	case event == EventSignInSuccess:
		return cfg.BriefDuration
	case kind == notify.KindInfo:
		return cfg.InfoDuration
	default:
		return cfg.Duration
	}
}

// NotificationsDropped reports notifications lost to a full buffer.
func (c *Controller) NotificationsDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.notifier.Dropped()
}

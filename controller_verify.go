package authflow

import (
	"context"
	"fmt"
	"log/slog"
)

// ResendVerification asks the gateway to send the verification email again
// to the pending address. When no address is known, in memory or in the
// credential store, the user is told to sign up again and the gateway is not
// called. Only one resend runs at a time.
func (c *Controller) ResendVerification(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.resending {
		c.mu.Unlock()
		return &AuthError{Kind: KindValidation, Message: ErrResendInProgress.Error(), Err: ErrResendInProgress}
	}
	c.resending = true
	c.phase = PhaseResending
	known := c.pendingEmail
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.resending = false
		c.phase = PhaseIdle
		c.mu.Unlock()
	}()

	res := c.flows.Resend(ctx, known)
	if res.LoadErr != nil {
		c.log(ctx).Warn("pending verification lookup failed", slog.Any("error", res.LoadErr))
	}
	if res.Missing {
		err := ErrPendingEmailNotFound
		if res.LoadErr != nil {
			err = fmt.Errorf("%w: %v", ErrPendingEmailNotFound, res.LoadErr)
		}
		aerr := c.fail(ctx, "resend_verification", err, res.Message)
		aerr.Kind = KindValidation
		return aerr
	}

	if known == "" {
		// Recovered from the credential store.
		c.mu.Lock()
		if c.pendingEmail == "" && c.sessions.Get() == nil {
			c.pendingEmail = res.Email
		}
		c.mu.Unlock()
		c.publish()
	}

	if res.Err != nil {
		return c.fail(ctx, "resend_verification", res.Err, res.Message)
	}
	c.succeed()
	return nil
}

// BackToSignIn abandons the pending verification. The state leaves
// StatePendingVerification even when the credential store cannot be updated;
// that failure is returned as a storage AuthError.
func (c *Controller) BackToSignIn(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}

	err := c.clearPending(ctx)
	c.publish()
	if err != nil {
		return c.fail(ctx, "back_to_sign_in", err, err.Error())
	}
	return nil
}

package authflow

import (
	"context"
	"log/slog"

	"github.com/gotg/authflow/internal/notify"
)

// SignOut revokes the session at the gateway and clears local state
// regardless of the gateway outcome. The gateway error, if any, is returned
// after the state has already moved to StateNoSession.
func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.setPhase(PhaseSigningOut)
	res := c.flows.SignOut(ctx)
	c.setPhase(PhaseIdle)
	c.publish()

	if res.ClearErr != nil {
		c.log(ctx).Warn("pending verification cleanup failed", slog.Any("error", res.ClearErr))
	}
	if res.GatewayErr != nil {
		return c.fail(ctx, "sign_out", res.GatewayErr, res.GatewayErr.Error())
	}
	c.succeed()
	return nil
}

// SocialSignIn is a placeholder for provider sign-in. It only tells the user
// the provider is not available yet.
func (c *Controller) SocialSignIn(provider string) {
	c.notify(context.Background(), notify.KindInfo, EventSocialSignIn, SocialSignInMessage(provider))
}

// ForgotPassword is a placeholder for password reset.
func (c *Controller) ForgotPassword() {
	c.notify(context.Background(), notify.KindInfo, EventForgotPassword, MsgForgotPassword)
}

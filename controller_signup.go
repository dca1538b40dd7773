package authflow

import (
	"context"
	"log/slog"

	"github.com/gotg/authflow/form"
	"github.com/gotg/authflow/gateway"
	"github.com/gotg/authflow/internal/flows"
	"github.com/gotg/authflow/validation"
)

// SignUp submits a sign-up form. When the gateway asks for verification the
// address is kept as the pending verification, in memory and in the
// credential store, and the state moves to StatePendingVerification. A
// failed credential-store write is logged and does not fail the sign-up.
func (c *Controller) SignUp(ctx context.Context, f *form.Form) error {
	required := []validation.Field{
		validation.FieldFullName,
		validation.FieldEmail,
		validation.FieldPassword,
		validation.FieldAgreeToTerms,
	}
	values, err := c.beginSubmit(f, PhaseSigningUp, required...)
	if err != nil {
		return err
	}

	req := flows.SignUpRequest{
		Email:    values.String(validation.FieldEmail),
		Password: values.String(validation.FieldPassword),
		Profile: gateway.Profile{
			FullName:     values.String(validation.FieldFullName),
			AgreeToTerms: values.Bool(validation.FieldAgreeToTerms),
		},
	}
	c.log(ctx).Debug("sign up submitted", slog.String("email", req.Email))

	res := c.flows.SignUp(ctx, req)
	c.endSubmit(f, res.Err == nil)
	if res.Err != nil {
		return c.fail(ctx, "sign_up", res.Err, res.Message)
	}
	if res.PersistErr != nil {
		c.log(ctx).Warn("pending verification not persisted", slog.Any("error", res.PersistErr))
	}
	if res.PendingEmail != "" {
		c.log(ctx).Debug("verification pending", slog.String("email", res.PendingEmail))
	}

	c.succeed()
	c.publish()
	return nil
}

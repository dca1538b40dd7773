package authflow

import (
	"context"
	"log/slog"

	"github.com/gotg/authflow/form"
	"github.com/gotg/authflow/validation"
)

// SignIn submits a sign-in form. Invalid input never reaches the gateway and
// is returned as a validation AuthError. A gateway rejection is shown to the
// user and returned; the form stays editable either way.
func (c *Controller) SignIn(ctx context.Context, f *form.Form) error {
	values, err := c.beginSubmit(f, PhaseSigningIn, validation.FieldEmail, validation.FieldPassword)
	if err != nil {
		return err
	}

	email := values.String(validation.FieldEmail)
	c.log(ctx).Debug("sign in submitted", slog.String("email", email))

	res := c.flows.SignIn(ctx, email, values.String(validation.FieldPassword))
	c.endSubmit(f, res.Err == nil)
	if res.Err != nil {
		return c.fail(ctx, "sign_in", res.Err, res.Message)
	}

	c.succeed()
	c.publish()
	return nil
}

package flows

import (
	"context"
)

// Service is the centralized flow runner built once by the root controller.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.SignIn.SignIn != nil
}

func (s Service) SignIn(ctx context.Context, email, password string) SignInResult {
	return RunSignIn(ctx, email, password, s.deps.SignIn)
}

func (s Service) SignUp(ctx context.Context, req SignUpRequest) SignUpResult {
	return RunSignUp(ctx, req, s.deps.SignUp)
}

func (s Service) Resend(ctx context.Context, known string) ResendResult {
	return RunResend(ctx, known, s.deps.Resend)
}

func (s Service) SignOut(ctx context.Context) SignOutResult {
	return RunSignOut(ctx, s.deps.SignOut)
}

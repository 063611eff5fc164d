package service

import (
	"context"

	"gatekit/internal/modules/aa/domain"
)

// Authenticator is the user extension point: concrete plugins implement the
// decisions while the orchestrator owns the surrounding pipeline. Hooks
// returning an error propagate it to the host unchanged.
type Authenticator interface {
	DoAuthenticate(ctx context.Context, session *Session) (*domain.Verdict, error)
	DoAuthorize(ctx context.Context, session *Session) (*domain.Verdict, error)
	DoSessionEnded(ctx context.Context, session *Session) (*domain.Verdict, error)
}

// BaseAuthenticator accepts everything. Embed it and override the hooks the
// plugin actually cares about.
type BaseAuthenticator struct{}

func (BaseAuthenticator) DoAuthenticate(context.Context, *Session) (*domain.Verdict, error) {
	return domain.Accept(), nil
}

func (BaseAuthenticator) DoAuthorize(context.Context, *Session) (*domain.Verdict, error) {
	return domain.Accept(), nil
}

func (BaseAuthenticator) DoSessionEnded(context.Context, *Session) (*domain.Verdict, error) {
	return nil, nil
}

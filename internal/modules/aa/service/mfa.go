package service

import (
	"context"
	"errors"

	hclog "github.com/hashicorp/go-hclog"

	"gatekit/internal/modules/aa/domain"
)

// Backend is a concrete MFA integration. Implementations report failure
// modes by returning one of the three domain error types; any other error
// propagates to the host untouched.
type Backend interface {
	PushAuthenticate(ctx context.Context, identity string) (bool, error)
	OTPAuthenticate(ctx context.Context, identity, otp string) (bool, error)
}

// MFAClient drives a Backend: a non-empty password selects the OTP path, an
// empty one the push path, and backend failures are classified into
// deny-or-fallback verdicts.
type MFAClient struct {
	backend               Backend
	ignoreConnectionError bool
	logger                hclog.Logger
}

func NewMFAClient(backend Backend, ignoreConnectionError bool, logger hclog.Logger) *MFAClient {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &MFAClient{backend: backend, ignoreConnectionError: ignoreConnectionError, logger: logger}
}

func (c *MFAClient) ExecuteAuthenticate(ctx context.Context, identity, password string) (*domain.Verdict, error) {
	var accepted bool
	var err error
	if password != "" {
		accepted, err = c.backend.OTPAuthenticate(ctx, identity, password)
	} else {
		c.logger.Info("no OTP supplied, starting push notification", "mfa_identity", identity)
		accepted, err = c.backend.PushAuthenticate(ctx, identity)
	}
	if err != nil {
		return c.classify(err)
	}
	if !accepted {
		return domain.DenyWithReason("MFA backend rejected the authentication", "Authentication failed"), nil
	}
	return domain.AcceptWithReason("Authenticated by MFA backend"), nil
}

func (c *MFAClient) classify(err error) (*domain.Verdict, error) {
	var failure *domain.AuthenticationFailure
	if errors.As(err, &failure) {
		c.logger.Info("MFA authentication failed", "error", err)
		return domain.DenyWithReason(err.Error(), "Authentication failed"), nil
	}
	var communication *domain.CommunicationError
	if errors.As(err, &communication) {
		c.logger.Error("MFA backend communication error", "error", err)
		return domain.DenyWithReason(err.Error(), "Communication Error"), nil
	}
	var unreachable *domain.ServiceUnreachable
	if errors.As(err, &unreachable) {
		if c.ignoreConnectionError {
			c.logger.Warn("MFA service unreachable, accepting due to fallback policy", "error", err)
			return domain.AcceptWithReason("MFA service unreachable, fallback enabled"), nil
		}
		c.logger.Error("MFA service unreachable", "error", err)
		return domain.DenyWithReason(err.Error(), "Backend service unreachable"), nil
	}
	return nil, err
}

// MFAAuthenticator is the stock Authenticator for MFA-backed plugins: the
// authenticate hook delegates to the client, everything else accepts.
type MFAAuthenticator struct {
	BaseAuthenticator
	Client *MFAClient
}

func (a *MFAAuthenticator) DoAuthenticate(ctx context.Context, s *Session) (*domain.Verdict, error) {
	return a.Client.ExecuteAuthenticate(ctx, s.MFAIdentity(), s.MFAPassword())
}

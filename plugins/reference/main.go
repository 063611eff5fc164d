// The reference plugin demonstrates an MFA-backed AA plugin built on the
// SDK. Its backend is scripted from the [reference] section instead of
// calling a real MFA provider, which makes it usable as a simulator target.
package main

import (
	"context"
	"fmt"

	hclog "github.com/hashicorp/go-hclog"

	"gatekit/internal/bootstrap"
	"gatekit/internal/modules/aa/domain"
	"gatekit/internal/modules/aa/service"
	"gatekit/internal/platform/configuration"
)

const sectionReference = "reference"

const defaults = `
[reference]
push = accept
`

// staticBackend answers the OTP path by comparing against a configured
// static value and the push path by a configured outcome.
type staticBackend struct {
	otp  string
	push string
}

func (b staticBackend) OTPAuthenticate(_ context.Context, identity, otp string) (bool, error) {
	if b.otp == "" {
		return false, &domain.AuthenticationFailure{Message: "no static otp configured"}
	}
	return otp == b.otp, nil
}

func (b staticBackend) PushAuthenticate(_ context.Context, identity string) (bool, error) {
	switch b.push {
	case "accept":
		return true, nil
	case "deny":
		return false, nil
	case "unreachable":
		return false, &domain.ServiceUnreachable{Message: "push service unreachable"}
	default:
		return false, fmt.Errorf("unknown push outcome %q", b.push)
	}
}

func newAuthenticator(cfg *configuration.Configuration, logger hclog.Logger) (service.Authenticator, error) {
	otp, err := cfg.Get(sectionReference, "otp", "")
	if err != nil {
		return nil, err
	}
	push, err := cfg.GetIEnum(sectionReference, "push", []string{"accept", "deny", "unreachable"}, "accept")
	if err != nil {
		return nil, err
	}
	ignoreConnectionError, err := cfg.GetBool(sectionReference, "ignore_connection_error", false)
	if err != nil {
		return nil, err
	}
	client := service.NewMFAClient(staticBackend{otp: otp, push: push}, ignoreConnectionError, logger)
	return &service.MFAAuthenticator{Client: client}, nil
}

func main() {
	bootstrap.ServePlugin(bootstrap.PluginSpec{
		Name:             "reference",
		Defaults:         defaults,
		NewAuthenticator: newAuthenticator,
	})
}

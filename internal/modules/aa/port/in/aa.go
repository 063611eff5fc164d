package in

import (
	"context"

	"gatekit/internal/modules/aa/dto"
)

// PluginUsecase is the plugin-side surface of the hook ABI: what the RPC
// bridge invokes when the host calls in.
type PluginUsecase interface {
	Authenticate(ctx context.Context, in dto.AuthenticateInput) (dto.Verdict, error)
	Authorize(ctx context.Context, in dto.AuthorizeInput) (dto.Verdict, error)
	SessionEnded(ctx context.Context, in dto.SessionEndedInput) (dto.Verdict, error)
}

// PluginHandle is a launched plugin binary as seen from the host side.
type PluginHandle interface {
	Configure(ctx context.Context, configText string) error
	Authenticate(ctx context.Context, in dto.AuthenticateInput) (dto.Verdict, error)
	Authorize(ctx context.Context, in dto.AuthorizeInput) (dto.Verdict, error)
	SessionEnded(ctx context.Context, in dto.SessionEndedInput) (dto.Verdict, error)
	Close()
}

// HostUsecase launches external plugin binaries for a host-side caller.
type HostUsecase interface {
	Launch(ctx context.Context, binaryPath string) (PluginHandle, error)
}

package out

import (
	"context"

	"gatekit/internal/modules/aa/domain"
)

// Directory answers group-membership and attribute questions about gateway
// users, typically against an LDAP server. Lookups for unknown users return
// apperrors.ErrUserNotFound.
type Directory interface {
	IsUserInAnyGroup(ctx context.Context, username string, groups []string) (bool, error)
	UserAttribute(ctx context.Context, username, attribute string) ([]string, error)
}

// AuthenticationCache allows short-lived reuse of a successful
// authentication for the same (client_ip, username) pair.
type AuthenticationCache interface {
	TryAuthenticate(ctx context.Context, clientIP, username string) (bool, error)
	CacheAuthentication(ctx context.Context, clientIP, username string) error
}

// ConnectionLimiter counts concurrently held sessions per key.
type ConnectionLimiter interface {
	TryConnect(ctx context.Context, key, sessionID string) (bool, error)
	Disconnect(ctx context.Context, key, sessionID string) error
}

// PluginProcess is one running plugin binary. Configure must be called
// before any hook; Close kills the process.
type PluginProcess interface {
	Configure(ctx context.Context, configText string) error
	Authenticate(ctx context.Context, in domain.AuthenticateInput) (*domain.Verdict, error)
	Authorize(ctx context.Context, in domain.AuthorizeInput) (*domain.Verdict, error)
	SessionEnded(ctx context.Context, in domain.SessionEndedInput) (*domain.Verdict, error)
	Close()
}

// Host launches plugin binaries and speaks the hook ABI to them.
type Host interface {
	Launch(ctx context.Context, binaryPath string) (PluginProcess, error)
}

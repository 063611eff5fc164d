package rpc

import (
	"context"
	"sync"

	"github.com/hashicorp/go-plugin"

	"gatekit/internal/modules/aa/dto"
	"gatekit/internal/modules/aa/port/in"
	apperrors "gatekit/internal/platform/errors"
)

// UsecaseFactory builds the configured plugin usecase from the
// configuration text the host pushes through Configure.
type UsecaseFactory func(configText string) (in.PluginUsecase, error)

// pluginServer adapts a PluginUsecase to the wire contract. The usecase is
// created on Configure; hooks arriving before that are refused. The host
// reconfigures a running plugin by calling Configure again.
type pluginServer struct {
	factory UsecaseFactory

	mu      sync.RWMutex
	usecase in.PluginUsecase
}

func NewPluginServer(factory UsecaseFactory) AAPluginServer {
	return &pluginServer{factory: factory}
}

func (s *pluginServer) Configure(_ context.Context, in *ConfigureRequest) (*Empty, error) {
	usecase, err := s.factory(in.Configuration)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.usecase = usecase
	s.mu.Unlock()
	return &Empty{}, nil
}

func (s *pluginServer) configured() (in.PluginUsecase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.usecase == nil {
		return nil, apperrors.ErrPluginNotConfigured
	}
	return s.usecase, nil
}

func (s *pluginServer) Authenticate(ctx context.Context, in *dto.AuthenticateInput) (*dto.Verdict, error) {
	usecase, err := s.configured()
	if err != nil {
		return nil, err
	}
	verdict, err := usecase.Authenticate(ctx, *in)
	if err != nil {
		return nil, err
	}
	return &verdict, nil
}

func (s *pluginServer) Authorize(ctx context.Context, in *dto.AuthorizeInput) (*dto.Verdict, error) {
	usecase, err := s.configured()
	if err != nil {
		return nil, err
	}
	verdict, err := usecase.Authorize(ctx, *in)
	if err != nil {
		return nil, err
	}
	return &verdict, nil
}

func (s *pluginServer) SessionEnded(ctx context.Context, in *dto.SessionEndedInput) (*dto.Verdict, error) {
	usecase, err := s.configured()
	if err != nil {
		return nil, err
	}
	verdict, err := usecase.SessionEnded(ctx, *in)
	if err != nil {
		return nil, err
	}
	return &verdict, nil
}

// Serve blocks serving the plugin side of the contract. It is the last call
// of every plugin main.
func Serve(factory UsecaseFactory) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap(NewPluginServer(factory)),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}

package usecase

import (
	"context"

	"gatekit/internal/modules/aa/domain"
	"gatekit/internal/modules/aa/dto"
	aain "gatekit/internal/modules/aa/port/in"
	aaout "gatekit/internal/modules/aa/port/out"
)

// HostInteractor exposes plugin launching to other modules through the
// ABI-shaped dto records.
type HostInteractor struct {
	host aaout.Host
}

func NewHostInteractor(host aaout.Host) aain.HostUsecase {
	return &HostInteractor{host: host}
}

func (h *HostInteractor) Launch(ctx context.Context, binaryPath string) (aain.PluginHandle, error) {
	process, err := h.host.Launch(ctx, binaryPath)
	if err != nil {
		return nil, err
	}
	return &pluginHandle{process: process}, nil
}

type pluginHandle struct {
	process aaout.PluginProcess
}

func (p *pluginHandle) Configure(ctx context.Context, configText string) error {
	return p.process.Configure(ctx, configText)
}

func (p *pluginHandle) Authenticate(ctx context.Context, in dto.AuthenticateInput) (dto.Verdict, error) {
	verdict, err := p.process.Authenticate(ctx, domain.AuthenticateInput{
		Cookie:        domain.Cookie(in.Cookie),
		SessionCookie: domain.Cookie(in.SessionCookie),
		Connection:    authenticateConnection(in),
	})
	if err != nil {
		return dto.Verdict{}, err
	}
	return verdictToDTO(verdict), nil
}

func (p *pluginHandle) Authorize(ctx context.Context, in dto.AuthorizeInput) (dto.Verdict, error) {
	verdict, err := p.process.Authorize(ctx, domain.AuthorizeInput{
		Cookie:        domain.Cookie(in.Cookie),
		SessionCookie: domain.Cookie(in.SessionCookie),
		Connection:    authorizeConnection(in),
	})
	if err != nil {
		return dto.Verdict{}, err
	}
	return verdictToDTO(verdict), nil
}

func (p *pluginHandle) SessionEnded(ctx context.Context, in dto.SessionEndedInput) (dto.Verdict, error) {
	verdict, err := p.process.SessionEnded(ctx, domain.SessionEndedInput{
		SessionID:     in.SessionID,
		Cookie:        domain.Cookie(in.Cookie),
		SessionCookie: domain.Cookie(in.SessionCookie),
	})
	if err != nil {
		return dto.Verdict{}, err
	}
	return verdictToDTO(verdict), nil
}

func (p *pluginHandle) Close() {
	p.process.Close()
}

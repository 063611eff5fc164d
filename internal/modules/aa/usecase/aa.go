// Package usecase maps the ABI-shaped dto records onto the domain types the
// orchestrator works with, in both directions.
package usecase

import (
	"context"

	"gatekit/internal/modules/aa/domain"
	"gatekit/internal/modules/aa/dto"
	aain "gatekit/internal/modules/aa/port/in"
	"gatekit/internal/modules/aa/service"
)

type Interactor struct {
	svc *service.AAService
}

func NewInteractor(svc *service.AAService) aain.PluginUsecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Authenticate(ctx context.Context, in dto.AuthenticateInput) (dto.Verdict, error) {
	verdict, err := i.svc.Authenticate(ctx, domain.AuthenticateInput{
		Cookie:        domain.Cookie(in.Cookie),
		SessionCookie: domain.Cookie(in.SessionCookie),
		Connection:    authenticateConnection(in),
	})
	if err != nil {
		return dto.Verdict{}, err
	}
	return verdictToDTO(verdict), nil
}

func (i *Interactor) Authorize(ctx context.Context, in dto.AuthorizeInput) (dto.Verdict, error) {
	verdict, err := i.svc.Authorize(ctx, domain.AuthorizeInput{
		Cookie:        domain.Cookie(in.Cookie),
		SessionCookie: domain.Cookie(in.SessionCookie),
		Connection:    authorizeConnection(in),
	})
	if err != nil {
		return dto.Verdict{}, err
	}
	return verdictToDTO(verdict), nil
}

func (i *Interactor) SessionEnded(ctx context.Context, in dto.SessionEndedInput) (dto.Verdict, error) {
	verdict, err := i.svc.SessionEnded(ctx, domain.SessionEndedInput{
		SessionID:     in.SessionID,
		Cookie:        domain.Cookie(in.Cookie),
		SessionCookie: domain.Cookie(in.SessionCookie),
	})
	if err != nil {
		return dto.Verdict{}, err
	}
	return verdictToDTO(verdict), nil
}

func authenticateConnection(in dto.AuthenticateInput) domain.ConnectionInfo {
	return domain.ConnectionInfo{
		SessionID:       in.SessionID,
		Protocol:        in.Protocol,
		ConnectionName:  in.ConnectionName,
		ClientIP:        in.ClientIP,
		ClientPort:      in.ClientPort,
		ClientHostname:  in.ClientHostname,
		GatewayUsername: in.GatewayUser,
		GatewayDomain:   in.GatewayDomain,
		GatewayPassword: in.GatewayPassword,
		ServerUsername:  in.ServerUsername,
		ServerDomain:    in.ServerDomain,
		KeyValuePairs:   in.KeyValuePairs,
	}
}

func authorizeConnection(in dto.AuthorizeInput) domain.ConnectionInfo {
	return domain.ConnectionInfo{
		SessionID:       in.SessionID,
		Protocol:        in.Protocol,
		ConnectionName:  in.ConnectionName,
		ClientIP:        in.ClientIP,
		ClientPort:      in.ClientPort,
		ClientHostname:  in.ClientHostname,
		GatewayUsername: in.GatewayUser,
		GatewayDomain:   in.GatewayDomain,
		GatewayPassword: in.GatewayPassword,
		GatewayGroups:   in.GatewayGroups,
		ServerIP:        in.ServerIP,
		ServerPort:      in.ServerPort,
		ServerHostname:  in.ServerHostname,
		ServerUsername:  in.ServerUsername,
		ServerDomain:    in.ServerDomain,
		KeyValuePairs:   in.KeyValuePairs,
	}
}

func verdictToDTO(v *domain.Verdict) dto.Verdict {
	out := dto.Verdict{
		Verdict:            string(v.Action),
		Reason:             v.Reason,
		DenyReason:         v.DenyReason,
		AdditionalMetadata: v.AdditionalMetadata,
		Cookie:             map[string]any(v.Cookie),
		SessionCookie:      map[string]any(v.SessionCookie),
		GatewayUser:        v.GatewayUser,
		GatewayGroups:      v.GatewayGroups,
	}
	if v.Question != nil {
		out.Question = []any{v.Question.Key, v.Question.Prompt, v.Question.DisableEcho}
	}
	return out
}

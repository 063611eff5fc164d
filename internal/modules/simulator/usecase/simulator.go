package usecase

import (
	"context"

	"gatekit/internal/modules/simulator/dto"
	simin "gatekit/internal/modules/simulator/port/in"
	"gatekit/internal/modules/simulator/service"
)

type Interactor struct {
	svc *service.SimulatorService
}

func NewInteractor(svc *service.SimulatorService) simin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Run(ctx context.Context, scenarioPath, pluginPath string) (dto.RunResult, error) {
	result, err := i.svc.Run(ctx, scenarioPath, pluginPath)
	if err != nil {
		return dto.RunResult{}, err
	}
	out := dto.RunResult{}
	for _, session := range result.Sessions {
		out.Sessions = append(out.Sessions, dto.SessionResult{
			SessionID:           session.SessionID,
			AuthenticateVerdict: session.AuthenticateVerdict,
			AuthorizeVerdict:    session.AuthorizeVerdict,
			RoundTrips:          session.RoundTrips,
		})
	}
	return out, nil
}

func (i *Interactor) Doctor(ctx context.Context, pluginPath, configText string) dto.DoctorResult {
	if err := i.svc.Doctor(ctx, pluginPath, configText); err != nil {
		return dto.DoctorResult{Plugin: pluginPath, Reachable: false, Error: err.Error()}
	}
	return dto.DoctorResult{Plugin: pluginPath, Reachable: true}
}

package in

import (
	"context"

	"gatekit/internal/modules/simulator/dto"
)

type Usecase interface {
	Run(ctx context.Context, scenarioPath, pluginPath string) (dto.RunResult, error)
	Doctor(ctx context.Context, pluginPath, configText string) dto.DoctorResult
}

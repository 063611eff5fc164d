package in

import (
	"context"

	"gatekit/internal/modules/simulator/dto"
	simin "gatekit/internal/modules/simulator/port/in"
)

type CLIHandler struct {
	usecase simin.Usecase
}

func NewCLIHandler(usecase simin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Run(ctx context.Context, scenarioPath, pluginPath string) (dto.RunResult, error) {
	return h.usecase.Run(ctx, scenarioPath, pluginPath)
}

func (h CLIHandler) Doctor(ctx context.Context, pluginPath, configText string) dto.DoctorResult {
	return h.usecase.Doctor(ctx, pluginPath, configText)
}

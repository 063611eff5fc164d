package service

import (
	"context"

	"gatekit/internal/modules/aa/domain"
)

// step is one named unit of a pipeline. Returning (nil, nil) means continue;
// a verdict terminates the pipeline (NEEDINFO suspends it); an error
// propagates to the host.
type step struct {
	name string
	run  func(ctx context.Context, s *Session) (*domain.Verdict, error)
}

// runPipeline executes steps in order, skipping the ones whose (index, name)
// checkpoint is already in the cookie and recording a checkpoint after each
// step that returns nil. A step that returns a verdict is deliberately not
// checkpointed: if the verdict is NEEDINFO the step must run again on
// re-entry to consume the answer.
func runPipeline(ctx context.Context, pipeline string, steps []step, s *Session) (*domain.Verdict, error) {
	for i, st := range steps {
		if domain.StepDone(s.cookie, pipeline, i, st.name) {
			continue
		}
		verdict, err := st.run(ctx, s)
		if err != nil {
			return nil, err
		}
		if verdict != nil {
			return verdict, nil
		}
		domain.MarkStepDone(s.cookie, pipeline, i, st.name)
	}
	return nil, nil
}

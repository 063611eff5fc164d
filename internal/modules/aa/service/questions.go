package service

import (
	"context"
	"fmt"

	"gatekit/internal/modules/aa/domain"
)

// questionSteps builds one step per [question_N] section, in order, stopping
// at the first gap. Each question NEEDINFOs once, then records the answer in
// the session cookie; re-running an answered question is a no-op.
func (svc *AAService) questionSteps() []step {
	var steps []step
	for n := 1; ; n++ {
		section := fmt.Sprintf("question_%d", n)
		if !svc.cfg.HasSection(section) {
			break
		}
		steps = append(steps, step{
			name: fmt.Sprintf("ask_question_%d", n),
			run:  svc.questionStep(section),
		})
	}
	return steps
}

func (svc *AAService) questionStep(section string) func(context.Context, *Session) (*domain.Verdict, error) {
	return func(_ context.Context, s *Session) (*domain.Verdict, error) {
		key, err := svc.cfg.GetRequired(section, "key")
		if err != nil {
			return nil, err
		}
		prompt, err := svc.cfg.GetRequired(section, "prompt")
		if err != nil {
			return nil, err
		}
		disableEcho, err := svc.cfg.GetBool(section, "disable_echo", false)
		if err != nil {
			return nil, err
		}
		if _, answered := s.QuestionAnswer(key); answered {
			return nil, nil
		}
		if s.conn.HasKeyValue(key) {
			s.sessionCookie.EnsureSubMap(sessionCookieQuestions)[key] = s.conn.KeyValue(key)
			return nil, nil
		}
		return domain.NeedInfo(prompt, key, disableEcho), nil
	}
}

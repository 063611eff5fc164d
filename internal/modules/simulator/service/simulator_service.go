// Package service drives scripted sessions through a live plugin binary,
// re-entering on NEEDINFO the way the broker runtime re-invokes a plugin
// after collecting an answer from the end user.
package service

import (
	"context"
	"fmt"
	"maps"

	"github.com/google/uuid"
	hclog "github.com/hashicorp/go-hclog"

	aadto "gatekit/internal/modules/aa/dto"
	aain "gatekit/internal/modules/aa/port/in"
	"gatekit/internal/modules/simulator/domain"
	simout "gatekit/internal/modules/simulator/port/out"
	"gatekit/internal/platform/clock"
	apperrors "gatekit/internal/platform/errors"
)

// maxRoundTrips bounds the NEEDINFO loop per session so a plugin that keeps
// asking cannot hang the simulator.
const maxRoundTrips = 10

const (
	verdictAccept   = "ACCEPT"
	verdictNeedInfo = "NEEDINFO"
)

type SimulatorService struct {
	host      aain.HostUsecase
	scenarios simout.ScenarioStore
	audit     simout.AuditSink
	clk       clock.Clock
	logger    hclog.Logger
}

func NewSimulatorService(host aain.HostUsecase, scenarios simout.ScenarioStore, audit simout.AuditSink, clk clock.Clock, logger hclog.Logger) *SimulatorService {
	return &SimulatorService{
		host:      host,
		scenarios: scenarios,
		audit:     audit,
		clk:       clk,
		logger:    logger,
	}
}

// Run drives every session of the scenario at scenarioPath. A non-empty
// pluginPath overrides the scenario's own plugin binary.
func (s *SimulatorService) Run(ctx context.Context, scenarioPath, pluginPath string) (domain.RunResult, error) {
	scenario, err := s.scenarios.Load(scenarioPath)
	if err != nil {
		return domain.RunResult{}, err
	}
	if pluginPath == "" {
		pluginPath = scenario.Plugin
	}
	if pluginPath == "" {
		return domain.RunResult{}, fmt.Errorf("scenario %s: no plugin binary given", scenarioPath)
	}
	handle, err := s.host.Launch(ctx, pluginPath)
	if err != nil {
		return domain.RunResult{}, err
	}
	defer handle.Close()

	if err := handle.Configure(ctx, scenario.Config); err != nil {
		return domain.RunResult{}, err
	}

	result := domain.RunResult{}
	for _, script := range scenario.Sessions {
		sessionResult, err := s.runSession(ctx, handle, script)
		if err != nil {
			return domain.RunResult{}, err
		}
		result.Sessions = append(result.Sessions, sessionResult)
	}
	return result, nil
}

func (s *SimulatorService) runSession(ctx context.Context, handle aain.PluginHandle, script domain.SessionScript) (domain.SessionResult, error) {
	sessionID := script.ID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logger := s.logger.With("session_id", sessionID)

	state := sessionState{
		sessionID:   sessionID,
		cookie:      map[string]any{},
		sessionCkie: map[string]any{},
		kvp:         maps.Clone(script.KeyValuePairs),
		gatewayUser: script.GatewayUser,
	}
	if state.kvp == nil {
		state.kvp = map[string]string{}
	}

	result := domain.SessionResult{SessionID: sessionID}

	verdict, roundTrips, err := s.authenticate(ctx, handle, script, &state, logger)
	if err != nil {
		return domain.SessionResult{}, err
	}
	result.AuthenticateVerdict = verdict.Verdict
	result.RoundTrips = roundTrips
	if err := expectVerdict(sessionID, "authenticate", script.Expect.Authenticate, verdict.Verdict); err != nil {
		return domain.SessionResult{}, err
	}

	if verdict.Verdict != verdictAccept {
		return result, nil
	}
	authorizeVerdict, err := s.authorize(ctx, handle, script, &state)
	if err != nil {
		return domain.SessionResult{}, err
	}
	result.AuthorizeVerdict = authorizeVerdict.Verdict
	if err := expectVerdict(sessionID, "authorize", script.Expect.Authorize, authorizeVerdict.Verdict); err != nil {
		return domain.SessionResult{}, err
	}

	// The broker only reports session end for sessions it actually built,
	// so a denied authorize never sees the session_ended hook.
	if authorizeVerdict.Verdict != verdictAccept {
		return result, nil
	}
	if err := s.sessionEnded(ctx, handle, &state); err != nil {
		return domain.SessionResult{}, err
	}
	return result, nil
}

type sessionState struct {
	sessionID     string
	cookie        map[string]any
	sessionCkie   map[string]any
	kvp           map[string]string
	gatewayUser   string
	gatewayGroups []string
}

// authenticate loops until the plugin settles on a final verdict, answering
// each NEEDINFO question from the script's answers map.
func (s *SimulatorService) authenticate(ctx context.Context, handle aain.PluginHandle, script domain.SessionScript, state *sessionState, logger hclog.Logger) (aadto.Verdict, int, error) {
	var verdict aadto.Verdict
	for round := 1; round <= maxRoundTrips; round++ {
		var err error
		verdict, err = handle.Authenticate(ctx, aadto.AuthenticateInput{
			Cookie:         state.cookie,
			SessionCookie:  state.sessionCkie,
			SessionID:      state.sessionID,
			Protocol:       script.Protocol,
			ConnectionName: script.ConnectionName,
			ClientIP:       script.ClientIP,
			ClientPort:     script.ClientPort,
			GatewayUser:    script.GatewayUser,
			GatewayDomain:  script.GatewayDomain,
			ServerUsername: script.ServerUsername,
			ServerDomain:   script.ServerDomain,
			KeyValuePairs:  state.kvp,
		})
		if err != nil {
			return aadto.Verdict{}, 0, err
		}
		s.record(ctx, state.sessionID, "authenticate", verdict)
		state.absorb(verdict)

		if verdict.Verdict != verdictNeedInfo {
			return verdict, round, nil
		}
		key, err := questionKey(verdict)
		if err != nil {
			return aadto.Verdict{}, 0, err
		}
		answer, ok := script.Answers[key]
		if !ok {
			return aadto.Verdict{}, 0, fmt.Errorf(
				"session %s: no scripted answer for question %q: %w",
				state.sessionID, key, apperrors.ErrScenarioExpectationFailed)
		}
		logger.Debug("answering question", "key", key, "round", round)
		state.kvp[key] = answer
	}
	return aadto.Verdict{}, 0, fmt.Errorf(
		"session %s: plugin still asking after %d round-trips: %w",
		state.sessionID, maxRoundTrips, apperrors.ErrScenarioExpectationFailed)
}

func (s *SimulatorService) authorize(ctx context.Context, handle aain.PluginHandle, script domain.SessionScript, state *sessionState) (aadto.Verdict, error) {
	verdict, err := handle.Authorize(ctx, aadto.AuthorizeInput{
		Cookie:         state.cookie,
		SessionCookie:  state.sessionCkie,
		SessionID:      state.sessionID,
		Protocol:       script.Protocol,
		ConnectionName: script.ConnectionName,
		ClientIP:       script.ClientIP,
		ClientPort:     script.ClientPort,
		GatewayUser:    state.gatewayUser,
		GatewayDomain:  script.GatewayDomain,
		GatewayGroups:  state.gatewayGroups,
		ServerIP:       script.ServerIP,
		ServerPort:     script.ServerPort,
		ServerHostname: script.ServerHostname,
		ServerUsername: script.ServerUsername,
		ServerDomain:   script.ServerDomain,
		KeyValuePairs:  state.kvp,
	})
	if err != nil {
		return aadto.Verdict{}, err
	}
	s.record(ctx, state.sessionID, "authorize", verdict)
	state.absorb(verdict)
	return verdict, nil
}

func (s *SimulatorService) sessionEnded(ctx context.Context, handle aain.PluginHandle, state *sessionState) error {
	verdict, err := handle.SessionEnded(ctx, aadto.SessionEndedInput{
		SessionID:     state.sessionID,
		Cookie:        state.cookie,
		SessionCookie: state.sessionCkie,
	})
	if err != nil {
		return err
	}
	s.record(ctx, state.sessionID, "session_ended", verdict)
	return nil
}

// absorb applies the broker's side of the contract: re-deliver the returned
// cookies on the next hook, and continue the session under a rewritten
// gateway user when the plugin set one.
func (state *sessionState) absorb(verdict aadto.Verdict) {
	if verdict.Cookie != nil {
		state.cookie = verdict.Cookie
	}
	if verdict.SessionCookie != nil {
		state.sessionCkie = verdict.SessionCookie
	}
	if verdict.GatewayUser != "" {
		state.gatewayUser = verdict.GatewayUser
		state.gatewayGroups = verdict.GatewayGroups
	}
}

func (s *SimulatorService) record(ctx context.Context, sessionID, hook string, verdict aadto.Verdict) {
	err := s.audit.Record(ctx, domain.AuditRecord{
		SessionID: sessionID,
		Hook:      hook,
		Verdict:   verdict.Verdict,
		Reason:    verdict.Reason,
		CreatedAt: s.clk.Now(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", "hook", hook, "error", err)
	}
}

// Doctor checks that a plugin binary starts, handshakes and accepts a
// configuration.
func (s *SimulatorService) Doctor(ctx context.Context, pluginPath, configText string) error {
	handle, err := s.host.Launch(ctx, pluginPath)
	if err != nil {
		return err
	}
	defer handle.Close()
	return handle.Configure(ctx, configText)
}

func expectVerdict(sessionID, hook, want, got string) error {
	if want == "" || want == got {
		return nil
	}
	return fmt.Errorf("session %s: %s verdict %s, expected %s: %w",
		sessionID, hook, got, want, apperrors.ErrScenarioExpectationFailed)
}

func questionKey(verdict aadto.Verdict) (string, error) {
	if len(verdict.Question) != 3 {
		return "", fmt.Errorf("NEEDINFO verdict with malformed question: %w", apperrors.ErrScenarioExpectationFailed)
	}
	key, ok := verdict.Question[0].(string)
	if !ok {
		return "", fmt.Errorf("NEEDINFO verdict with non-string question key: %w", apperrors.ErrScenarioExpectationFailed)
	}
	return key, nil
}

// Package service implements the AA plugin orchestrator: the three host
// hooks, their ordered step pipelines, and checkpoint-based resumption
// across need-info round-trips.
package service

import (
	"context"
	"encoding/json"
	"fmt"

	hclog "github.com/hashicorp/go-hclog"

	"gatekit/internal/modules/aa/domain"
	aaout "gatekit/internal/modules/aa/port/out"
	"gatekit/internal/platform/configuration"
)

const (
	pipelineAuthenticate     = "authenticate"
	pipelinePostAuthenticate = "post_authenticate"
	pipelineAuthorize        = "authorize"
	pipelineSessionEnded     = "session_ended"
)

// Deps are the out-ports the pipelines touch. Nil members disable the
// corresponding step: no directory means no LDAP whitelist or mapping, a nil
// cache never hits, a nil limiter never limits.
type Deps struct {
	Directory         aaout.Directory
	AuthCache         aaout.AuthenticationCache
	ConnectionLimiter aaout.ConnectionLimiter
}

type AAService struct {
	cfg           *configuration.Configuration
	logger        hclog.Logger
	authenticator Authenticator
	deps          Deps
}

func NewAAService(cfg *configuration.Configuration, logger hclog.Logger, authenticator Authenticator, deps Deps) *AAService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &AAService{cfg: cfg, logger: logger, authenticator: authenticator, deps: deps}
}

// Authenticate drives the credential-gathering pipeline. Once the pipeline
// accepts, the verdict is latched in the cookie and the post-success
// pipeline (cache refresh, ad-hoc questions) runs before the host sees the
// final ACCEPT; NEEDINFO from the post-success pipeline preserves the latch.
func (svc *AAService) Authenticate(ctx context.Context, in domain.AuthenticateInput) (*domain.Verdict, error) {
	s := newSession(in.Cookie, in.SessionCookie, in.Connection, svc.cfg, svc.logger)

	if !s.cookie.Bool(cookieAuthSuccessful) {
		verdict, err := runPipeline(ctx, pipelineAuthenticate, svc.authenticateSteps(), s)
		if err != nil {
			return nil, err
		}
		if verdict == nil {
			return nil, fmt.Errorf("authentication pipeline yielded no verdict")
		}
		if verdict.Action != domain.ActionAccept {
			return verdict.Finalize(s.cookie, s.sessionCookie), nil
		}
		verdict = svc.applyGatewayUserRewrite(s, verdict)
		// The stash drops the overlays, so they must be folded into the
		// session state first or the final reply loses them.
		for k, v := range verdict.Cookie {
			s.cookie[k] = v
		}
		for k, v := range verdict.SessionCookie {
			s.sessionCookie[k] = v
		}
		s.cookie[cookieAuthSuccessful] = true
		if err := stashVerdict(s.cookie, verdict); err != nil {
			return nil, err
		}
	}

	verdict, err := runPipeline(ctx, pipelinePostAuthenticate, svc.postAuthenticateSteps(), s)
	if err != nil {
		return nil, err
	}
	if verdict != nil {
		return verdict.Finalize(s.cookie, s.sessionCookie), nil
	}
	latched, err := unstashVerdict(s.cookie)
	if err != nil {
		return nil, err
	}
	return latched.Finalize(s.cookie, s.sessionCookie), nil
}

// Authorize runs once after authentication, when connection parameters are
// known: it applies the concurrent-connection limit and dispatches to the
// user hook.
func (svc *AAService) Authorize(ctx context.Context, in domain.AuthorizeInput) (*domain.Verdict, error) {
	s := newSession(in.Cookie, in.SessionCookie, in.Connection, svc.cfg, svc.logger)
	verdict, err := runPipeline(ctx, pipelineAuthorize, svc.authorizeSteps(), s)
	if err != nil {
		return nil, err
	}
	if verdict == nil {
		return nil, fmt.Errorf("authorization pipeline yielded no verdict")
	}
	return verdict.Finalize(s.cookie, s.sessionCookie), nil
}

// SessionEnded releases the connection-count slot recorded at authorize time
// and dispatches to the user hook. A nil verdict from the hook is normal.
func (svc *AAService) SessionEnded(ctx context.Context, in domain.SessionEndedInput) (*domain.Verdict, error) {
	conn := domain.ConnectionInfo{SessionID: in.SessionID}
	s := newSession(in.Cookie, in.SessionCookie, conn, svc.cfg, svc.logger)
	verdict, err := runPipeline(ctx, pipelineSessionEnded, svc.sessionEndedSteps(), s)
	if err != nil {
		return nil, err
	}
	if verdict == nil {
		verdict = &domain.Verdict{}
	}
	return verdict.Finalize(s.cookie, s.sessionCookie), nil
}

func (svc *AAService) authenticateSteps() []step {
	return []step{
		{"check_username", svc.stepCheckUsername},
		{"check_user_list", svc.stepCheckUserList},
		{"check_ldap_group_list", svc.stepCheckLDAPGroupList},
		{"check_authentication_cache", svc.stepCheckAuthenticationCache},
		{"map_username_explicit", svc.stepMapUsernameExplicit},
		{"map_username_ldap", svc.stepMapUsernameLDAP},
		{"append_domain", svc.stepAppendDomain},
		{"ask_mfa_password", svc.stepAskMFAPassword},
		{"log_mfa_identity", svc.stepLogMFAIdentity},
		{"authenticate_hook", svc.stepAuthenticateHook},
	}
}

func (svc *AAService) postAuthenticateSteps() []step {
	steps := []step{
		{"update_authentication_cache", svc.stepUpdateAuthenticationCache},
	}
	return append(steps, svc.questionSteps()...)
}

func (svc *AAService) authorizeSteps() []step {
	return []step{
		{"log_mfa_identity", svc.stepLogMFAIdentity},
		{"check_connection_limit", svc.stepCheckConnectionLimit},
		{"authorize_hook", svc.stepAuthorizeHook},
	}
}

func (svc *AAService) sessionEndedSteps() []step {
	return []step{
		{"release_connection_limit", svc.stepReleaseConnectionLimit},
		{"session_ended_hook", svc.stepSessionEndedHook},
	}
}

// applyGatewayUserRewrite makes the session continue under the derived
// username when it differs from the inbound gateway user, unless the hook
// already set an override.
func (svc *AAService) applyGatewayUserRewrite(s *Session, verdict *domain.Verdict) *domain.Verdict {
	username := s.Username()
	if verdict.GatewayUser != "" || username == "" || username == s.conn.GatewayUsername {
		return verdict
	}
	return verdict.WithGatewayUser(username, s.conn.GatewayGroups)
}

// The latched verdict is kept in the cookie as a plain JSON object so it
// survives the host round-trip between the accept and the last answered
// question.
func stashVerdict(cookie domain.Cookie, verdict *domain.Verdict) error {
	stripped := *verdict
	stripped.Cookie = nil
	stripped.SessionCookie = nil
	raw, err := json.Marshal(&stripped)
	if err != nil {
		return fmt.Errorf("stash authentication verdict: %w", err)
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return fmt.Errorf("stash authentication verdict: %w", err)
	}
	cookie[cookieAuthVerdict] = asMap
	return nil
}

func unstashVerdict(cookie domain.Cookie) (*domain.Verdict, error) {
	stashed := cookie.SubMap(cookieAuthVerdict)
	if stashed == nil {
		return nil, fmt.Errorf("authentication latched but no stashed verdict in cookie")
	}
	raw, err := json.Marshal(stashed)
	if err != nil {
		return nil, fmt.Errorf("restore authentication verdict: %w", err)
	}
	verdict := &domain.Verdict{}
	if err := json.Unmarshal(raw, verdict); err != nil {
		return nil, fmt.Errorf("restore authentication verdict: %w", err)
	}
	return verdict, nil
}

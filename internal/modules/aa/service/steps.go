package service

import (
	"context"
	"fmt"
	"slices"

	"gatekit/internal/modules/aa/domain"
)

const (
	sectionAuth              = "auth"
	sectionUsernameTransform = "username_transform"
)

const defaultMFAPrompt = "Press Enter for push notification or type one-time password: "

var defaultInteractiveProtocols = []string{"ssh", "rdp", "telnet"}

func (svc *AAService) stepCheckUsername(_ context.Context, s *Session) (*domain.Verdict, error) {
	if s.Username() == "" {
		return domain.DenyWithReason("Unable to determine the gateway username", ""), nil
	}
	return nil, nil
}

func (svc *AAService) stepCheckAuthenticationCache(ctx context.Context, s *Session) (*domain.Verdict, error) {
	if svc.deps.AuthCache == nil {
		return nil, nil
	}
	hit, err := svc.deps.AuthCache.TryAuthenticate(ctx, s.conn.ClientIP, s.Username())
	if err != nil {
		return nil, err
	}
	if !hit {
		return nil, nil
	}
	s.cookie[cookieFromCache] = true
	return domain.AcceptWithReason("Authenticated by cache"), nil
}

func (svc *AAService) stepAppendDomain(_ context.Context, s *Session) (*domain.Verdict, error) {
	domainSuffix, err := svc.cfg.Get(sectionUsernameTransform, "append_domain", "")
	if err != nil {
		return nil, err
	}
	if domainSuffix != "" {
		s.SetMFAIdentity(s.MFAIdentity() + "@" + domainSuffix)
	}
	return nil, nil
}

// stepAskMFAPassword decides where the one-time password comes from: inband
// via key_value_pairs["otp"], interactively via NEEDINFO, or not at all
// (empty password selects the push path) for non-interactive protocols.
func (svc *AAService) stepAskMFAPassword(_ context.Context, s *Session) (*domain.Verdict, error) {
	if s.conn.HasKeyValue("otp") {
		s.cookie[cookieMFAPassword] = s.conn.KeyValue("otp")
		return nil, nil
	}
	interactive, err := svc.cfg.GetList(sectionAuth, "interactive_protocols", defaultInteractiveProtocols)
	if err != nil {
		return nil, err
	}
	if slices.Contains(interactive, s.conn.Protocol) {
		prompt, err := svc.cfg.Get(sectionAuth, "prompt", defaultMFAPrompt)
		if err != nil {
			return nil, err
		}
		disableEcho, err := svc.cfg.GetBool(sectionAuth, "disable_echo", false)
		if err != nil {
			return nil, err
		}
		return domain.NeedInfo(prompt, "otp", disableEcho), nil
	}
	s.cookie[cookieMFAPassword] = ""
	return nil, nil
}

func (svc *AAService) stepLogMFAIdentity(_ context.Context, s *Session) (*domain.Verdict, error) {
	s.logger.Info("calculated MFA identity",
		"username", s.Username(),
		"mfa_identity", s.MFAIdentity())
	return nil, nil
}

func (svc *AAService) stepAuthenticateHook(ctx context.Context, s *Session) (*domain.Verdict, error) {
	verdict, err := svc.authenticator.DoAuthenticate(ctx, s)
	if err != nil {
		return nil, err
	}
	if verdict == nil {
		return nil, fmt.Errorf("authenticate hook returned no verdict")
	}
	return verdict, nil
}

func (svc *AAService) stepUpdateAuthenticationCache(ctx context.Context, s *Session) (*domain.Verdict, error) {
	if svc.deps.AuthCache == nil {
		return nil, nil
	}
	// A cache hit already refreshed last_used under lock; writing a fresh
	// record here would reset the reuse counter and the limit would never
	// bind.
	if s.cookie.Bool(cookieFromCache) {
		return nil, nil
	}
	if err := svc.deps.AuthCache.CacheAuthentication(ctx, s.conn.ClientIP, s.Username()); err != nil {
		return nil, err
	}
	return nil, nil
}

func (svc *AAService) stepCheckConnectionLimit(ctx context.Context, s *Session) (*domain.Verdict, error) {
	if svc.deps.ConnectionLimiter == nil {
		return nil, nil
	}
	key := fmt.Sprintf("%s_%s", s.conn.ClientIP, s.Username())
	ok, err := svc.deps.ConnectionLimiter.TryConnect(ctx, key, s.conn.SessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return domain.DenyWithReason("Connection limit reached", "Connection limit reached"), nil
	}
	s.cookie[cookieConnectionLimitKey] = key
	return nil, nil
}

func (svc *AAService) stepReleaseConnectionLimit(ctx context.Context, s *Session) (*domain.Verdict, error) {
	key := s.cookie.String(cookieConnectionLimitKey)
	if key == "" || svc.deps.ConnectionLimiter == nil {
		return nil, nil
	}
	if err := svc.deps.ConnectionLimiter.Disconnect(ctx, key, s.conn.SessionID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (svc *AAService) stepAuthorizeHook(ctx context.Context, s *Session) (*domain.Verdict, error) {
	verdict, err := svc.authenticator.DoAuthorize(ctx, s)
	if err != nil {
		return nil, err
	}
	if verdict == nil {
		return nil, fmt.Errorf("authorize hook returned no verdict")
	}
	return verdict, nil
}

func (svc *AAService) stepSessionEndedHook(ctx context.Context, s *Session) (*domain.Verdict, error) {
	return svc.authenticator.DoSessionEnded(ctx, s)
}

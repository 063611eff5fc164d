package service

import (
	hclog "github.com/hashicorp/go-hclog"

	"gatekit/internal/modules/aa/domain"
	"gatekit/internal/platform/configuration"
)

// Cookie keys owned by the orchestrator. They are private in the sense that
// the host never interprets them, but they ride the same cookie as anything
// a user hook stores.
const (
	cookieUsername           = "username"
	cookieMFAIdentity        = "mfa_identity"
	cookieMFAPassword        = "mfa_password"
	cookieAuthSuccessful     = "successful_authentication"
	cookieAuthVerdict        = "authentication_verdict"
	cookieFromCache          = "authenticated_from_cache"
	cookieConnectionLimitKey = "connection_limit_key"

	sessionCookieQuestions = "questions"
)

// Session is the per-invocation state handed to pipeline steps and user
// hooks. Everything that must survive a NEEDINFO round-trip is stored in the
// cookie, not on the struct.
type Session struct {
	conn          domain.ConnectionInfo
	cookie        domain.Cookie
	sessionCookie domain.Cookie
	cfg           *configuration.Configuration
	logger        hclog.Logger
}

func newSession(cookie, sessionCookie domain.Cookie, conn domain.ConnectionInfo, cfg *configuration.Configuration, logger hclog.Logger) *Session {
	if cookie == nil {
		cookie = domain.Cookie{}
	}
	if sessionCookie == nil {
		sessionCookie = domain.Cookie{}
	}
	return &Session{
		conn:          conn,
		cookie:        cookie,
		sessionCookie: sessionCookie,
		cfg:           cfg,
		logger:        logger.With("session_id", conn.SessionID),
	}
}

func (s *Session) Connection() domain.ConnectionInfo { return s.conn }

// Cookie is the live continuation state; entries written here are returned
// to the host and re-delivered on the next call.
func (s *Session) Cookie() domain.Cookie { return s.cookie }

// SessionCookie is shared with cooperating plugins for the same session.
func (s *Session) SessionCookie() domain.Cookie { return s.sessionCookie }

func (s *Session) Config() *configuration.Configuration { return s.cfg }

func (s *Session) Logger() hclog.Logger { return s.logger }

// Username derives the gateway identity once per session and caches it in
// the cookie. Derivation order: gateway_user, key_value_pairs["gu"],
// server_username, key_value_pairs["username"].
func (s *Session) Username() string {
	if s.cookie.Has(cookieUsername) {
		return s.cookie.String(cookieUsername)
	}
	username := s.conn.GatewayUsername
	if username == "" {
		username = s.conn.KeyValue("gu")
	}
	if username == "" {
		username = s.conn.ServerUsername
	}
	if username == "" {
		username = s.conn.KeyValue("username")
	}
	s.cookie[cookieUsername] = username
	return username
}

// MFAIdentity is the identity presented to the MFA backend. It starts as
// Username and is rewritten by the mapping and transformation steps.
func (s *Session) MFAIdentity() string {
	if s.cookie.Has(cookieMFAIdentity) {
		return s.cookie.String(cookieMFAIdentity)
	}
	identity := s.Username()
	s.cookie[cookieMFAIdentity] = identity
	return identity
}

func (s *Session) SetMFAIdentity(identity string) {
	s.cookie[cookieMFAIdentity] = identity
}

// MFAPassword is the inband OTP, or the empty string signalling push.
func (s *Session) MFAPassword() string {
	return s.cookie.String(cookieMFAPassword)
}

// QuestionAnswer returns the recorded answer for an ad-hoc question key.
func (s *Session) QuestionAnswer(key string) (string, bool) {
	questions := s.sessionCookie.SubMap(sessionCookieQuestions)
	if questions == nil {
		return "", false
	}
	answer, ok := questions[key].(string)
	return answer, ok
}

// Package domain models simulator scenarios: scripted sessions driven
// against a live plugin binary the way the broker runtime would.
package domain

import "time"

// Scenario is one scripted run: a plugin binary, its configuration and the
// sessions to drive through it in order.
type Scenario struct {
	Plugin   string
	Config   string
	Sessions []SessionScript
}

// SessionScript declares one mediated session. Answers maps question keys
// to the values the simulated end user supplies on NEEDINFO re-entry.
type SessionScript struct {
	ID             string
	Protocol       string
	ConnectionName string
	GatewayUser    string
	GatewayDomain  string
	ClientIP       string
	ClientPort     int
	ServerIP       string
	ServerPort     int
	ServerHostname string
	ServerUsername string
	ServerDomain   string
	KeyValuePairs  map[string]string
	Answers        map[string]string
	Expect         Expectation
}

// Expectation holds the verdicts a session must end its hooks with. Empty
// fields are not checked.
type Expectation struct {
	Authenticate string
	Authorize    string
}

// SessionResult records how one scripted session played out.
type SessionResult struct {
	SessionID           string
	AuthenticateVerdict string
	AuthorizeVerdict    string
	RoundTrips          int
}

type RunResult struct {
	Sessions []SessionResult
}

// AuditRecord is one hook invocation as persisted by the audit sink.
type AuditRecord struct {
	SessionID string
	Hook      string
	Verdict   string
	Reason    string
	CreatedAt time.Time
}

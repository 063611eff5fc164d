// Package dto holds the ABI-shaped records exchanged with the host: field
// names and JSON tags match the hook contract exactly.
package dto

type AuthenticateInput struct {
	Cookie          map[string]any    `json:"cookie"`
	SessionCookie   map[string]any    `json:"session_cookie"`
	SessionID       string            `json:"session_id"`
	Protocol        string            `json:"protocol"`
	ConnectionName  string            `json:"connection_name"`
	ClientIP        string            `json:"client_ip"`
	ClientPort      int               `json:"client_port"`
	ClientHostname  string            `json:"client_hostname"`
	GatewayUser     string            `json:"gateway_user"`
	GatewayDomain   string            `json:"gateway_domain"`
	GatewayPassword string            `json:"gateway_password"`
	ServerUsername  string            `json:"server_username"`
	ServerDomain    string            `json:"server_domain"`
	KeyValuePairs   map[string]string `json:"key_value_pairs"`
}

type AuthorizeInput struct {
	Cookie          map[string]any    `json:"cookie"`
	SessionCookie   map[string]any    `json:"session_cookie"`
	SessionID       string            `json:"session_id"`
	Protocol        string            `json:"protocol"`
	ConnectionName  string            `json:"connection_name"`
	ClientIP        string            `json:"client_ip"`
	ClientPort      int               `json:"client_port"`
	ClientHostname  string            `json:"client_hostname"`
	GatewayUser     string            `json:"gateway_user"`
	GatewayDomain   string            `json:"gateway_domain"`
	GatewayPassword string            `json:"gateway_password"`
	GatewayGroups   []string          `json:"gateway_groups"`
	ServerIP        string            `json:"server_ip"`
	ServerPort      int               `json:"server_port"`
	ServerHostname  string            `json:"server_hostname"`
	ServerUsername  string            `json:"server_username"`
	ServerDomain    string            `json:"server_domain"`
	KeyValuePairs   map[string]string `json:"key_value_pairs"`
}

type SessionEndedInput struct {
	SessionID     string         `json:"session_id"`
	Cookie        map[string]any `json:"cookie"`
	SessionCookie map[string]any `json:"session_cookie"`
}

// Verdict is the reply dict. Question, present only for NEEDINFO, is the
// 3-element array [key, prompt, disable_echo]. Cookie and session cookie are
// present on every reply. An empty Verdict field means the hook had nothing
// to decide (session_ended).
type Verdict struct {
	Verdict            string         `json:"verdict,omitempty"`
	Reason             string         `json:"reason,omitempty"`
	DenyReason         string         `json:"deny_reason,omitempty"`
	AdditionalMetadata string         `json:"additional_metadata,omitempty"`
	Cookie             map[string]any `json:"cookie"`
	SessionCookie      map[string]any `json:"session_cookie"`
	GatewayUser        string         `json:"gateway_user,omitempty"`
	GatewayGroups      []string       `json:"gateway_groups,omitempty"`
	Question           []any          `json:"question,omitempty"`
}

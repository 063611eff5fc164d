package domain

// ConnectionInfo describes one host-invoked hook call. It lives for a single
// invocation and is never persisted; all state that must survive a
// round-trip goes into the cookie instead.
type ConnectionInfo struct {
	SessionID      string
	Protocol       string
	ConnectionName string

	ClientIP       string
	ClientPort     int
	ClientHostname string

	GatewayUsername string
	GatewayDomain   string
	GatewayGroups   []string
	GatewayPassword string

	ServerIP       string
	ServerPort     int
	ServerHostname string
	ServerUsername string
	ServerDomain   string

	// KeyValuePairs carries inband-supplied tokens such as gu, otp and
	// username, plus answers to NEEDINFO questions on re-entry.
	KeyValuePairs map[string]string
}

// Backwards-compatible aliases for the pre-rename target_* field names.

func (c ConnectionInfo) TargetIP() string       { return c.ServerIP }
func (c ConnectionInfo) TargetPort() int        { return c.ServerPort }
func (c ConnectionInfo) TargetHost() string     { return c.ServerHostname }
func (c ConnectionInfo) TargetUsername() string { return c.ServerUsername }
func (c ConnectionInfo) TargetDomain() string   { return c.ServerDomain }

// KeyValue returns key_value_pairs[key] or the empty string.
func (c ConnectionInfo) KeyValue(key string) string {
	if c.KeyValuePairs == nil {
		return ""
	}
	return c.KeyValuePairs[key]
}

// HasKeyValue reports whether key is present, even with an empty value.
// An empty otp is meaningful: it selects the push path.
func (c ConnectionInfo) HasKeyValue(key string) bool {
	if c.KeyValuePairs == nil {
		return false
	}
	_, ok := c.KeyValuePairs[key]
	return ok
}

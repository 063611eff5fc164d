package domain

// AuthenticateInput is the assembled parameter set of one authenticate or
// authorize hook call: the re-delivered cookies plus the connection record.
type AuthenticateInput struct {
	Cookie        Cookie
	SessionCookie Cookie
	Connection    ConnectionInfo
}

// AuthorizeInput has the same shape; by the time authorize runs the
// connection record additionally carries gateway groups and server endpoint.
type AuthorizeInput = AuthenticateInput

type SessionEndedInput struct {
	SessionID     string
	Cookie        Cookie
	SessionCookie Cookie
}

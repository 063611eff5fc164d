package domain

// MFA backend outcomes are classified into three buckets. Backends raise
// these; the driver in the service layer turns them into verdicts.

// AuthenticationFailure means the backend reached a decision and it was no.
type AuthenticationFailure struct {
	Message string
}

func (e *AuthenticationFailure) Error() string {
	if e.Message == "" {
		return "authentication failure"
	}
	return e.Message
}

// CommunicationError means the backend answered with something the client
// could not interpret, or the protocol broke mid-exchange.
type CommunicationError struct {
	Message string
}

func (e *CommunicationError) Error() string {
	if e.Message == "" {
		return "communication error"
	}
	return e.Message
}

// ServiceUnreachable means the backend could not be contacted at all. With
// ignore_connection_error=yes this downgrades to an accept.
type ServiceUnreachable struct {
	Message string
}

func (e *ServiceUnreachable) Error() string {
	if e.Message == "" {
		return "backend service unreachable"
	}
	return e.Message
}

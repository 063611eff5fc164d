// Package dto carries the simulator results handed to the CLI.
package dto

type SessionResult struct {
	SessionID           string `json:"session_id"`
	AuthenticateVerdict string `json:"authenticate_verdict"`
	AuthorizeVerdict    string `json:"authorize_verdict"`
	RoundTrips          int    `json:"round_trips"`
}

type RunResult struct {
	Sessions []SessionResult `json:"sessions"`
}

type DoctorResult struct {
	Plugin    string `json:"plugin"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

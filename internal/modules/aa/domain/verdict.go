package domain

import (
	"encoding/json"
	"fmt"
)

type Action string

const (
	ActionAccept   Action = "ACCEPT"
	ActionDeny     Action = "DENY"
	ActionNeedInfo Action = "NEEDINFO"
)

// Question asks the end user for one more piece of input. On the wire it is
// the 3-element array [key, prompt, disable_echo].
type Question struct {
	Key         string
	Prompt      string
	DisableEcho bool
}

func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{q.Key, q.Prompt, q.DisableEcho})
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var fields []any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if len(fields) != 3 {
		return fmt.Errorf("question: expected 3 elements, got %d", len(fields))
	}
	key, ok := fields[0].(string)
	if !ok {
		return fmt.Errorf("question: key is not a string")
	}
	prompt, ok := fields[1].(string)
	if !ok {
		return fmt.Errorf("question: prompt is not a string")
	}
	disableEcho, ok := fields[2].(bool)
	if !ok {
		return fmt.Errorf("question: disable_echo is not a bool")
	}
	q.Key, q.Prompt, q.DisableEcho = key, prompt, disableEcho
	return nil
}

// Verdict is the reply to a host hook. Reason is free text for logs and
// metadata; DenyReason is the variant surfaced to the end user.
type Verdict struct {
	Action             Action    `json:"verdict"`
	Reason             string    `json:"reason,omitempty"`
	DenyReason         string    `json:"deny_reason,omitempty"`
	AdditionalMetadata string    `json:"additional_metadata,omitempty"`
	GatewayUser        string    `json:"gateway_user,omitempty"`
	GatewayGroups      []string  `json:"gateway_groups,omitempty"`
	Cookie             Cookie    `json:"cookie"`
	SessionCookie      Cookie    `json:"session_cookie"`
	Question           *Question `json:"question,omitempty"`
}

func Accept() *Verdict {
	return &Verdict{Action: ActionAccept}
}

func AcceptWithReason(reason string) *Verdict {
	return &Verdict{Action: ActionAccept, Reason: reason}
}

func Deny() *Verdict {
	return &Verdict{Action: ActionDeny}
}

// DenyWithReason sets the internal reason and the user-visible deny reason.
// Either may be empty.
func DenyWithReason(reason, denyReason string) *Verdict {
	return &Verdict{Action: ActionDeny, Reason: reason, DenyReason: denyReason}
}

func NeedInfo(prompt, key string, disableEcho bool) *Verdict {
	return &Verdict{
		Action:   ActionNeedInfo,
		Question: &Question{Key: key, Prompt: prompt, DisableEcho: disableEcho},
	}
}

// The With* builders return a modified copy, leaving the receiver intact.

func (v Verdict) WithReason(reason string) *Verdict {
	v.Reason = reason
	return &v
}

func (v Verdict) WithAdditionalMetadata(blob string) *Verdict {
	v.AdditionalMetadata = blob
	return &v
}

// WithGatewayUser overrides the identity the session continues under.
func (v Verdict) WithGatewayUser(name string, groups []string) *Verdict {
	v.GatewayUser = name
	if groups == nil {
		groups = []string{}
	}
	v.GatewayGroups = groups
	return &v
}

// WithCookie overlays entries onto the verdict cookie. Builder-supplied
// entries win when the orchestrator later merges its own state underneath.
func (v Verdict) WithCookie(entries Cookie) *Verdict {
	v.Cookie = v.Cookie.Merge(entries)
	return &v
}

func (v Verdict) WithSessionCookie(entries Cookie) *Verdict {
	v.SessionCookie = v.SessionCookie.Merge(entries)
	return &v
}

// Finalize overlays the orchestrator's current cookie state under any
// builder-supplied entries. Every reply carries both cookies.
func (v *Verdict) Finalize(cookie, sessionCookie Cookie) *Verdict {
	v.Cookie = cookie.Merge(v.Cookie)
	v.SessionCookie = sessionCookie.Merge(v.SessionCookie)
	return v
}

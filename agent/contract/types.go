package contract

import "time"

// Role tags who produced a turn in a call's history.
type Role string

const (
	// RoleSystem marks instruction-setting turns seeded at call start.
	RoleSystem Role = "system"
	// RoleAssistant marks turns spoken by the receptionist.
	RoleAssistant Role = "assistant"
	// RoleCaller marks turns spoken by the guest. Caller text may carry
	// appended context fragments; the original utterance is never rewritten.
	RoleCaller Role = "caller"
)

// Turn is one role-tagged message in a call's history.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Document is a single retrieved knowledge-base match.
type Document struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Record is one CRM call-log row, produced once per call.
type Record struct {
	LoggedAt       time.Time `json:"logged_at"`
	GuestName      string    `json:"guest_name"`
	Intent         string    `json:"intent"`
	Summary        string    `json:"summary"`
	ActionRequired string    `json:"action_required"`
}

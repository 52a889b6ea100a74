package domain

import "time"

type SessionStatus string

const (
	SessionReady  SessionStatus = "ready"
	SessionEmpty  SessionStatus = "empty"
	SessionClosed SessionStatus = "closed"
)

// SessionInfo is the externally visible state of a question answering session.
type SessionInfo struct {
	ID        string        `json:"id"`
	Status    SessionStatus `json:"status"`
	Records   int           `json:"records"`
	Sources   int           `json:"sources"`
	Notice    string        `json:"notice,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

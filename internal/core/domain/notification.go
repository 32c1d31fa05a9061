package domain

import "time"

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// DefaultDismissAfter is how long a notification stays on screen.
const DefaultDismissAfter = 3500 * time.Millisecond

// Notification is a transient message for one user.
type Notification struct {
	ID        string    `json:"id"`
	Recipient UserID    `json:"recipient"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

package domain

import "time"

type SessionID string

// SessionLifetime is the number of countdown ticks a granted session lives.
const SessionLifetime = 300

type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateVerifying SessionState = "verifying"
	StateGranted   SessionState = "granted"
	StateDenied    SessionState = "denied"
	StateExpired   SessionState = "expired"
)

// Terminal reports whether no further event can change the session.
func (s SessionState) Terminal() bool {
	return s == StateDenied || s == StateExpired
}

// DenyReason is recorded for logs and metrics only. Clients always see the
// same denial presentation regardless of the reason.
type DenyReason string

const (
	DenyNone      DenyReason = ""
	DenyNotFound  DenyReason = "not_found"
	DenyForbidden DenyReason = "forbidden"
	DenyExpired   DenyReason = "expired"
)

type Presentation string

const (
	PresentVerifying Presentation = "verifying"
	PresentViewer    Presentation = "viewer"
	PresentDenied    Presentation = "denied"
)

// Session is the ephemeral per-view state. It is never persisted.
type Session struct {
	ID        SessionID    `json:"id"`
	ContentID ContentID    `json:"content_id"`
	UserID    UserID       `json:"user_id"`
	State     SessionState `json:"state"`
	Token     string       `json:"token,omitempty"`
	Remaining int          `json:"remaining"`
	Reason    DenyReason   `json:"-"`
	OpenedAt  time.Time    `json:"opened_at"`
}

// SessionEvent drives the session state machine.
type SessionEvent interface {
	sessionEvent()
}

// BeginVerification moves an idle session into verification.
type BeginVerification struct{}

// VerificationComplete carries the authorization decision.
type VerificationComplete struct {
	Granted bool
	Token   string
	Reason  DenyReason
}

// Tick is one elapsed second of the countdown.
type Tick struct{}

func (BeginVerification) sessionEvent()    {}
func (VerificationComplete) sessionEvent() {}
func (Tick) sessionEvent()                 {}

// NewSession returns an idle session.
func NewSession(id SessionID, userID UserID, contentID ContentID, openedAt time.Time) Session {
	return Session{
		ID:        id,
		ContentID: contentID,
		UserID:    userID,
		State:     StateIdle,
		OpenedAt:  openedAt,
	}
}

// Apply returns the session after ev. Events that do not fit the current
// state leave it unchanged.
func (s Session) Apply(ev SessionEvent) Session {
	switch e := ev.(type) {
	case BeginVerification:
		if s.State == StateIdle {
			s.State = StateVerifying
		}
	case VerificationComplete:
		if s.State != StateVerifying {
			return s
		}
		if !e.Granted {
			s.State = StateDenied
			s.Reason = e.Reason
			s.Token = ""
			s.Remaining = 0
			return s
		}
		s.State = StateGranted
		s.Token = e.Token
		s.Remaining = SessionLifetime
	case Tick:
		if s.State != StateGranted {
			return s
		}
		if s.Remaining > 0 {
			s.Remaining--
		}
		if s.Remaining == 0 {
			s.State = StateExpired
			s.Reason = DenyExpired
		}
	}
	return s
}

// Presentation collapses denied and expired sessions into one outcome.
func (s Session) Presentation() Presentation {
	switch s.State {
	case StateGranted:
		return PresentViewer
	case StateDenied, StateExpired:
		return PresentDenied
	default:
		return PresentVerifying
	}
}

package domain

import "time"

type AccessLogID string

type AccessAction string

const (
	ActionView            AccessAction = "VIEW"
	ActionDownloadAttempt AccessAction = "DOWNLOAD_ATTEMPT"
	ActionAccessDenied    AccessAction = "ACCESS_DENIED"
)

// AccessLog is an append-only audit record. UserID and ContentID are soft
// references and may outlive the records they point to.
type AccessLog struct {
	ID           AccessLogID  `json:"id"`
	UserID       UserID       `json:"user_id"`
	UserEmail    string       `json:"user_email"`
	ContentID    ContentID    `json:"content_id"`
	ContentTitle string       `json:"content_title"`
	Timestamp    time.Time    `json:"timestamp"`
	Action       AccessAction `json:"action"`
}

package models

import "time"

// SubmissionPayload is the part of a reported match that lives outside the header row.
type SubmissionPayload struct {
	Lineup  []LineupEntry `json:"lineup"`
	Scorers []int         `json:"scorers,omitempty"`
}

// SubmissionIntent tracks which secondary parts of a submission still have to be written.
type SubmissionIntent struct {
	MatchID       int               `json:"match_id" db:"match_id"`
	Payload       SubmissionPayload `json:"payload" db:"payload"`
	LineupPending bool              `json:"lineup_pending" db:"lineup_pending"`
	EventsPending bool              `json:"events_pending" db:"events_pending"`
	Attempts      int               `json:"attempts" db:"attempts"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	ResolvedAt    *time.Time        `json:"resolved_at,omitempty" db:"resolved_at"`
}

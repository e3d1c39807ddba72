package models

import "time"

type MatchStatus string

const (
	MatchStatusPendingVerification MatchStatus = "PENDING_VERIFICATION"
	MatchStatusConfirmed           MatchStatus = "CONFIRMED"
	MatchStatusRejected            MatchStatus = "REJECTED"
)

// IsTerminal сообщает, что матч уже прошёл подтверждение (в любую сторону).
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusConfirmed || s == MatchStatusRejected
}

type Match struct {
	ID        int         `json:"id" db:"id"`
	SeasonID  *int        `json:"season_id,omitempty" db:"season_id"`
	TeamAID   int         `json:"team_a_id" db:"team_a_id"`
	TeamBID   int         `json:"team_b_id" db:"team_b_id"`
	VenueID   *int        `json:"venue_id,omitempty" db:"venue_id"`
	ScoreA    int         `json:"score_a" db:"score_a"`
	ScoreB    int         `json:"score_b" db:"score_b"`
	CreatorID int         `json:"creator_id" db:"creator_id"`
	Status    MatchStatus `json:"status" db:"status"`
	PlayedAt  time.Time   `json:"played_at" db:"played_at"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`

	Lineup []LineupEntry `json:"lineup,omitempty" db:"-"`
	Events []MatchEvent  `json:"events,omitempty" db:"-"`
}

type LineupEntry struct {
	MatchID   int  `json:"match_id" db:"match_id"`
	TeamID    int  `json:"team_id" db:"team_id"`
	PlayerID  int  `json:"player_id" db:"player_id"`
	IsStarter bool `json:"is_starter" db:"is_starter"`
	XPEarned  int  `json:"xp_earned" db:"xp_earned"`
}

type MatchEventType string

const MatchEventGoal MatchEventType = "GOAL"

type MatchEvent struct {
	ID        int            `json:"id" db:"id"`
	MatchID   int            `json:"match_id" db:"match_id"`
	PlayerID  int            `json:"player_id" db:"player_id"`
	EventType MatchEventType `json:"event_type" db:"event_type"`
}

type VerificationAction string

const (
	VerificationConfirm VerificationAction = "CONFIRM"
	VerificationReject  VerificationAction = "REJECT"
)

// VerificationRecord - запись аудита, только добавляется.
type VerificationRecord struct {
	ID         int                `json:"id" db:"id"`
	MatchID    int                `json:"match_id" db:"match_id"`
	VerifierID int                `json:"verifier_id" db:"verifier_id"`
	Action     VerificationAction `json:"action" db:"action"`
	CreatedAt  time.Time          `json:"created_at" db:"created_at"`
}

// TargetStatus возвращает статус матча, в который переводит действие.
func (a VerificationAction) TargetStatus() MatchStatus {
	if a == VerificationConfirm {
		return MatchStatusConfirmed
	}
	return MatchStatusRejected
}

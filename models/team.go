package models

import "time"

type TeamStatus string

const (
	TeamStatusDraft  TeamStatus = "DRAFT"
	TeamStatusActive TeamStatus = "ACTIVE"
)

// MinActiveTeamSize - команда становится ACTIVE, когда в ней набирается столько игроков.
const MinActiveTeamSize = 5

type Team struct {
	ID         int        `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	ZoneID     int        `json:"zone_id" db:"zone_id"`
	CaptainID  int        `json:"captain_id" db:"captain_id"`
	Status     TeamStatus `json:"status" db:"status"`
	MatchCount int        `json:"match_count" db:"match_count"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

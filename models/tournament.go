package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	TournamentStatusOpen   TournamentStatus = "OPEN"
	TournamentStatusActive TournamentStatus = "ACTIVE"
)

type BracketType string

const BracketGroupStage BracketType = "GROUP_STAGE"

const (
	MinEntrantCap = 4
	MaxEntrantCap = 64
)

// TournamentConfig - фиксированная запись настроек турнира.
type TournamentConfig struct {
	EntrantCap  int         `json:"entrant_cap" db:"entrant_cap"`
	BracketType BracketType `json:"bracket_type" db:"bracket_type"`
}

type Tournament struct {
	ID          int              `json:"id" db:"id"`
	OrganizerID int              `json:"organizer_id" db:"organizer_id"`
	Name        string           `json:"name" db:"name"`
	Status      TournamentStatus `json:"status" db:"status"`
	Config      TournamentConfig `json:"config" db:"-"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`

	Entries []TournamentEntry `json:"entries,omitempty" db:"-"`
}

package models

import "time"

type TournamentEntry struct {
	ID            int       `json:"id" db:"id"`
	TournamentID  int       `json:"tournament_id" db:"tournament_id"`
	TeamID        int       `json:"team_id" db:"team_id"`
	GroupName     *string   `json:"group_name,omitempty" db:"group_name"`
	Points        int       `json:"points" db:"points"`
	GoalDiff      int       `json:"goal_diff" db:"goal_diff"`
	GoalsFor      int       `json:"goals_for" db:"goals_for"`
	MatchesPlayed int       `json:"matches_played" db:"matches_played"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}

// GroupStandings - таблица одной группы, уже отсортированная.
type GroupStandings struct {
	Group   string            `json:"group"`
	Entries []TournamentEntry `json:"entries"`
}

package brackets

import (
	"sort"

	"github.com/Dosada05/matchday/models"
)

// RankStandings сортирует копию таблицы: очки, разница мячей, забитые - по убыванию,
// при полном равенстве - по team_id по возрастанию.
func RankStandings(entries []models.TournamentEntry) []models.TournamentEntry {
	ranked := make([]models.TournamentEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDiff != b.GoalDiff {
			return a.GoalDiff > b.GoalDiff
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return a.TeamID < b.TeamID
	})
	return ranked
}

// GroupTables раскладывает участников по группам и ранжирует каждую.
// Участники без группы (жеребьёвки ещё не было) не попадают в результат.
func GroupTables(entries []models.TournamentEntry) []models.GroupStandings {
	byGroup := make(map[string][]models.TournamentEntry)
	for _, e := range entries {
		if e.GroupName == nil || *e.GroupName == "" {
			continue
		}
		byGroup[*e.GroupName] = append(byGroup[*e.GroupName], e)
	}

	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	tables := make([]models.GroupStandings, 0, len(groups))
	for _, g := range groups {
		tables = append(tables, models.GroupStandings{Group: g, Entries: RankStandings(byGroup[g])})
	}
	return tables
}

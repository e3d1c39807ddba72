package brackets

import (
	"sort"

	"github.com/Dosada05/matchday/models"
)

// Fixture - одна пара круга внутри группы.
type Fixture struct {
	Group      string `json:"group"`
	Round      int    `json:"round"`
	HomeTeamID int    `json:"home_team_id"`
	AwayTeamID int    `json:"away_team_id"`
}

// RoundRobinFixtures строит однокруговое расписание методом круга.
// Каждая команда играет с каждой один раз; при нечётном числе команд одна в каждом туре отдыхает.
func RoundRobinFixtures(group string, teamIDs []int) []Fixture {
	if len(teamIDs) < 2 {
		return nil
	}

	ids := make([]int, len(teamIDs))
	copy(ids, teamIDs)
	sort.Ints(ids)

	const bye = 0
	if len(ids)%2 != 0 {
		ids = append(ids, bye)
	}
	n := len(ids)

	fixtures := make([]Fixture, 0, n/2*(n-1))
	for round := 1; round < n; round++ {
		for i := 0; i < n/2; i++ {
			home, away := ids[i], ids[n-1-i]
			if home == bye || away == bye {
				continue
			}
			// Чередуем хозяев, чтобы первая команда не играла всегда дома
			if round%2 == 0 && i == 0 {
				home, away = away, home
			}
			fixtures = append(fixtures, Fixture{Group: group, Round: round, HomeTeamID: home, AwayTeamID: away})
		}
		// Первый элемент стоит на месте, остальные сдвигаются по кругу
		last := ids[n-1]
		copy(ids[2:], ids[1:n-1])
		ids[1] = last
	}
	return fixtures
}

// GroupFixtures - расписание всех групп турнира, группы по алфавиту.
func GroupFixtures(entries []models.TournamentEntry) []Fixture {
	byGroup := make(map[string][]int)
	for _, e := range entries {
		if e.GroupName == nil || *e.GroupName == "" {
			continue
		}
		byGroup[*e.GroupName] = append(byGroup[*e.GroupName], e.TeamID)
	}

	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	fixtures := make([]Fixture, 0)
	for _, g := range groups {
		fixtures = append(fixtures, RoundRobinFixtures(g, byGroup[g])...)
	}
	return fixtures
}

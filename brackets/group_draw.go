package brackets

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/Dosada05/matchday/models"
)

// MinDrawEntrants - меньше команд разбить на четыре группы нельзя.
const MinDrawEntrants = 4

// DefaultGroupLabels - метки групп в порядке раздачи.
var DefaultGroupLabels = []string{"A", "B", "C", "D"}

var ErrNotEnoughEntrants = errors.New("not enough entrants for a group draw")

type GroupAssignment struct {
	EntryID int    `json:"entry_id"`
	TeamID  int    `json:"team_id"`
	Group   string `json:"group"`
}

// GroupDrawGenerator случайно раскладывает участников по группам.
type GroupDrawGenerator struct {
	labels []string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGroupDrawGenerator создаёт генератор. При src == nil используется глобальный источник.
func NewGroupDrawGenerator(src rand.Source) *GroupDrawGenerator {
	g := &GroupDrawGenerator{labels: DefaultGroupLabels}
	if src != nil {
		g.rng = rand.New(src)
	}
	return g
}

func (g *GroupDrawGenerator) intN(n int) int {
	if g.rng == nil {
		return rand.IntN(n)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.IntN(n)
}

// Shuffle - перестановка Фишера-Йетса на месте: от последнего индекса к 1,
// обмен с равновероятно выбранным индексом из [0, i].
func Shuffle[T any](items []T, intN func(int) int) {
	for i := len(items) - 1; i > 0; i-- {
		j := intN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// Draw перемешивает копию списка и отдаёт участнику с индексом i группу labels[i mod len(labels)].
// Размеры групп отличаются не больше чем на единицу.
func (g *GroupDrawGenerator) Draw(entries []*models.TournamentEntry) ([]GroupAssignment, error) {
	if len(entries) < MinDrawEntrants {
		return nil, fmt.Errorf("%w: found %d, min %d required", ErrNotEnoughEntrants, len(entries), MinDrawEntrants)
	}

	shuffled := make([]*models.TournamentEntry, len(entries))
	copy(shuffled, entries)
	Shuffle(shuffled, g.intN)

	assignments := make([]GroupAssignment, len(shuffled))
	for i, e := range shuffled {
		assignments[i] = GroupAssignment{
			EntryID: e.ID,
			TeamID:  e.TeamID,
			Group:   g.labels[i%len(g.labels)],
		}
	}
	return assignments, nil
}

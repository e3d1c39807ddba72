package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/matchday/brackets"
	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/repositories"
)

type StandingsService interface {
	// GroupStandings возвращает отсортированные таблицы всех групп турнира.
	GroupStandings(ctx context.Context, tournamentID int) ([]models.GroupStandings, error)
	// GroupFixtures - однокруговое расписание внутри групп. До жеребьёвки пусто.
	GroupFixtures(ctx context.Context, tournamentID int) ([]brackets.Fixture, error)
}

type standingsService struct {
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.EntryRepository
}

func NewStandingsService(tournamentRepo repositories.TournamentRepository, entryRepo repositories.EntryRepository) StandingsService {
	return &standingsService{tournamentRepo: tournamentRepo, entryRepo: entryRepo}
}

func (s *standingsService) GroupStandings(ctx context.Context, tournamentID int) ([]models.GroupStandings, error) {
	entries, err := s.loadEntries(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return brackets.GroupTables(entries), nil
}

func (s *standingsService) GroupFixtures(ctx context.Context, tournamentID int) ([]brackets.Fixture, error) {
	entries, err := s.loadEntries(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return brackets.GroupFixtures(entries), nil
}

func (s *standingsService) loadEntries(ctx context.Context, tournamentID int) ([]models.TournamentEntry, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, storeError(fmt.Sprintf("failed to get tournament %d", tournamentID), err)
	}

	entries, err := s.entryRepo.ListByTournament(ctx, nil, tournamentID, false)
	if err != nil {
		return nil, storeError(fmt.Sprintf("failed to list entries for tournament %d", tournamentID), err)
	}

	values := make([]models.TournamentEntry, 0, len(entries))
	for _, e := range entries {
		values = append(values, *e)
	}
	return values, nil
}

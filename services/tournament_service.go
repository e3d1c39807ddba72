package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/repositories"
)

type CreateTournamentInput struct {
	Name       string             `json:"name"`
	EntrantCap int                `json:"entrant_cap"`
	Bracket    models.BracketType `json:"bracket_type,omitempty"`
}

type TournamentService interface {
	Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	RegisterTeam(ctx context.Context, tournamentID, teamID, actorID int) (*models.TournamentEntry, error)
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.EntryRepository
	teamRepo       repositories.TeamRepository
	logger         *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.EntryRepository,
	teamRepo repositories.TeamRepository,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		entryRepo:      entryRepo,
		teamRepo:       teamRepo,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	if input.EntrantCap < models.MinEntrantCap || input.EntrantCap > models.MaxEntrantCap {
		return nil, fmt.Errorf("%w: entrant cap must be between %d and %d", ErrValidationFailed, models.MinEntrantCap, models.MaxEntrantCap)
	}
	bracket := input.Bracket
	if bracket == "" {
		bracket = models.BracketGroupStage
	}
	if bracket != models.BracketGroupStage {
		return nil, fmt.Errorf("%w: unsupported bracket type %q", ErrValidationFailed, bracket)
	}

	t := &models.Tournament{
		OrganizerID: organizerID,
		Name:        name,
		Status:      models.TournamentStatusOpen,
		Config:      models.TournamentConfig{EntrantCap: input.EntrantCap, BracketType: bracket},
	}
	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		return nil, storeError("failed to create tournament", err)
	}
	return t, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, storeError(fmt.Sprintf("failed to get tournament %d", id), err)
	}
	entries, err := s.entryRepo.ListByTournament(ctx, nil, id, false)
	if err != nil {
		return nil, storeError(fmt.Sprintf("failed to list entries for tournament %d", id), err)
	}
	t.Entries = make([]models.TournamentEntry, 0, len(entries))
	for _, e := range entries {
		t.Entries = append(t.Entries, *e)
	}
	return t, nil
}

func (s *tournamentService) RegisterTeam(ctx context.Context, tournamentID, teamID, actorID int) (*models.TournamentEntry, error) {
	// 1. Регистрирует только капитан
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, storeError(fmt.Sprintf("failed to get team %d", teamID), err)
	}
	if team.CaptainID != actorID {
		return nil, ErrCaptainActionForbidden
	}

	entry := &models.TournamentEntry{TournamentID: tournamentID, TeamID: teamID}

	// 2. Строка турнира блокируется: статус и лимит проверяются в той же транзакции, что и вставка
	err = runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		t, err := s.tournamentRepo.GetForUpdate(ctx, tx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return storeError(fmt.Sprintf("failed to lock tournament %d", tournamentID), err)
		}
		if t.Status != models.TournamentStatusOpen {
			return ErrTournamentAlreadyStarted
		}

		count, err := s.entryRepo.CountByTournament(ctx, tx, tournamentID)
		if err != nil {
			return storeError(fmt.Sprintf("failed to count entries for tournament %d", tournamentID), err)
		}
		if count >= t.Config.EntrantCap {
			return fmt.Errorf("%w: %d of %d places taken", ErrTournamentFull, count, t.Config.EntrantCap)
		}

		if err := s.entryRepo.Create(ctx, tx, entry); err != nil {
			switch {
			case errors.Is(err, repositories.ErrEntryConflict):
				return ErrRegistrationConflict
			case errors.Is(err, repositories.ErrEntryTeamInvalid):
				return ErrTeamNotFound
			case errors.Is(err, repositories.ErrEntryTournamentInvalid):
				return ErrTournamentNotFound
			}
			return storeError("failed to create tournament entry", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	entry.Team = team
	return entry, nil
}

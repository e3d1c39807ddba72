package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/matchday/brackets"
	"github.com/Dosada05/matchday/metrics"
	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/repositories"
	"github.com/Dosada05/matchday/storage"
)

const archiveTimeout = 10 * time.Second

// GroupDrawer раскладывает участников по группам.
type GroupDrawer interface {
	Draw(entries []*models.TournamentEntry) ([]brackets.GroupAssignment, error)
}

// DrawArchiver сохраняет итог жеребьёвки и возвращает ссылку на него.
type DrawArchiver interface {
	Archive(ctx context.Context, sheet storage.DrawSheet) (string, error)
}

type DrawResult struct {
	Tournament  *models.Tournament         `json:"tournament"`
	Assignments []brackets.GroupAssignment `json:"assignments"`
	ArchiveURL  string                     `json:"archive_url,omitempty"`
}

// DrawService проводит жеребьёвку группового этапа. Повторный запуск запрещён.
type DrawService interface {
	Start(ctx context.Context, tournamentID, actorID int) (*DrawResult, error)
}

type drawService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.EntryRepository
	teamRepo       repositories.TeamRepository
	drawer         GroupDrawer
	archive        DrawArchiver
	notifier       Notifier
	now            Clock
	logger         *slog.Logger
}

// NewDrawService. archive может быть nil - тогда лист жеребьёвки не сохраняется.
func NewDrawService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.EntryRepository,
	teamRepo repositories.TeamRepository,
	drawer GroupDrawer,
	archive DrawArchiver,
	notifier Notifier,
	now Clock,
	logger *slog.Logger,
) DrawService {
	if now == nil {
		now = time.Now
	}
	return &drawService{
		db:             db,
		tournamentRepo: tournamentRepo,
		entryRepo:      entryRepo,
		teamRepo:       teamRepo,
		drawer:         drawer,
		archive:        archive,
		notifier:       notifier,
		now:            now,
		logger:         logger,
	}
}

func (s *drawService) Start(ctx context.Context, tournamentID, actorID int) (*DrawResult, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, storeError(fmt.Sprintf("failed to get tournament %d", tournamentID), err)
	}

	// 1. Предварительные проверки без транзакции
	if tournament.OrganizerID != actorID {
		metrics.DrawsStarted.WithLabelValues("forbidden").Inc()
		return nil, ErrForbiddenOperation
	}
	if tournament.Status != models.TournamentStatusOpen {
		metrics.DrawsStarted.WithLabelValues("conflict").Inc()
		return nil, ErrTournamentAlreadyStarted
	}

	var assignments []brackets.GroupAssignment
	err = runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		// 2. Условный переход OPEN -> ACTIVE. Он же блокирует строку турнира,
		// поэтому регистрация не может проскочить между подсчётом и записью групп.
		err := s.tournamentRepo.UpdateStatusIfCurrent(ctx, tx, tournamentID, models.TournamentStatusOpen, models.TournamentStatusActive)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentStatusChanged) {
				return ErrTournamentAlreadyStarted
			}
			return storeError(fmt.Sprintf("failed to activate tournament %d", tournamentID), err)
		}

		entries, err := s.entryRepo.ListByTournament(ctx, tx, tournamentID, false)
		if err != nil {
			return storeError(fmt.Sprintf("failed to list entries for tournament %d", tournamentID), err)
		}

		// 3. Перемешивание и раскладка по группам
		assignments, err = s.drawer.Draw(entries)
		if err != nil {
			if errors.Is(err, brackets.ErrNotEnoughEntrants) {
				return fmt.Errorf("%w: %w", ErrInsufficientEntrants, err)
			}
			return fmt.Errorf("group draw failed: %w", err)
		}

		for _, a := range assignments {
			if err := s.entryRepo.AssignGroup(ctx, tx, a.EntryID, a.Group); err != nil {
				return storeError(fmt.Sprintf("failed to assign entry %d to group %s", a.EntryID, a.Group), err)
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrTournamentAlreadyStarted):
			metrics.DrawsStarted.WithLabelValues("conflict").Inc()
		case errors.Is(err, ErrInsufficientEntrants):
			metrics.DrawsStarted.WithLabelValues("insufficient").Inc()
		default:
			metrics.DrawsStarted.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	metrics.DrawsStarted.WithLabelValues("ok").Inc()

	tournament.Status = models.TournamentStatusActive
	result := &DrawResult{Tournament: tournament, Assignments: assignments}
	result.ArchiveURL = s.archiveSheet(ctx, tournament, assignments)
	s.notifyEntrants(ctx, tournament, assignments)

	return result, nil
}

// archiveSheet - best-effort: жеребьёвка уже зафиксирована, сбой архива только логируется.
func (s *drawService) archiveSheet(ctx context.Context, t *models.Tournament, assignments []brackets.GroupAssignment) string {
	if s.archive == nil {
		return ""
	}
	sheet := storage.DrawSheet{
		TournamentID: t.ID,
		Name:         t.Name,
		DrawnAt:      s.now().UTC(),
		Groups:       make(map[string][]int),
	}
	for _, a := range assignments {
		sheet.Groups[a.Group] = append(sheet.Groups[a.Group], a.TeamID)
	}

	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	location, err := s.archive.Archive(archiveCtx, sheet)
	if err != nil {
		s.logger.Warn("draw sheet archive failed", slog.Int("tournament_id", t.ID), slog.Any("error", err))
		return ""
	}
	return location
}

func (s *drawService) notifyEntrants(ctx context.Context, t *models.Tournament, assignments []brackets.GroupAssignment) {
	if s.notifier == nil || len(assignments) == 0 {
		return
	}
	groupByTeam := make(map[int]string, len(assignments))
	teamIDs := make([]int, 0, len(assignments))
	for _, a := range assignments {
		groupByTeam[a.TeamID] = a.Group
		teamIDs = append(teamIDs, a.TeamID)
	}

	teams, err := s.teamRepo.ListByIDs(ctx, teamIDs)
	if err != nil {
		s.logger.Warn("could not load entrant captains for draw notifications",
			slog.Int("tournament_id", t.ID), slog.Any("error", err))
		return
	}
	for _, team := range teams {
		notifyAsync(ctx, s.notifier, s.logger, team.CaptainID, models.NotificationDrawPublished,
			"Tournament draw published",
			fmt.Sprintf("%s plays in group %s of %s.", team.Name, groupByTeam[team.ID], t.Name))
	}
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/matchday/metrics"
	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/repositories"
	"golang.org/x/sync/errgroup"
)

// MinLineupSize - мягкий минимум состава: меньше можно, но с предупреждением.
const MinLineupSize = 5

type SubmitMatchInput struct {
	CreatorID int   `json:"-"`
	TeamAID   int   `json:"team_a_id"`
	TeamBID   int   `json:"team_b_id"`
	VenueID   *int  `json:"venue_id,omitempty"`
	SeasonID  *int  `json:"season_id,omitempty"`
	ScoreA    int   `json:"score_a"`
	ScoreB    int   `json:"score_b"`
	LineupA   []int `json:"lineup_a"`
	LineupB   []int `json:"lineup_b"`
	Scorers   []int `json:"scorers,omitempty"`
}

type SubmitResult struct {
	Match    *models.Match `json:"match"`
	Warnings []string      `json:"warnings,omitempty"`
	// Pending перечисляет части, которые не записались и будут дописаны фоновым проходом.
	Pending []string `json:"pending,omitempty"`
}

type MatchService interface {
	// Submit записывает матч без проверки прав и ограничений.
	Submit(ctx context.Context, input SubmitMatchInput) (*SubmitResult, error)
	// Report - полный сценарий капитана: права, ограничения, запись, уведомление соперника.
	Report(ctx context.Context, input SubmitMatchInput) (*SubmitResult, error)
	GetMatch(ctx context.Context, id int) (*models.Match, error)
}

type matchService struct {
	db          *sql.DB
	matchRepo   repositories.MatchRepository
	lineupRepo  repositories.LineupRepository
	intentRepo  repositories.IntentRepository
	teamRepo    repositories.TeamRepository
	constraints ConstraintService
	notifier    Notifier
	now         Clock
	logger      *slog.Logger
}

func NewMatchService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	lineupRepo repositories.LineupRepository,
	intentRepo repositories.IntentRepository,
	teamRepo repositories.TeamRepository,
	constraints ConstraintService,
	notifier Notifier,
	now Clock,
	logger *slog.Logger,
) MatchService {
	if now == nil {
		now = time.Now
	}
	return &matchService{
		db:          db,
		matchRepo:   matchRepo,
		lineupRepo:  lineupRepo,
		intentRepo:  intentRepo,
		teamRepo:    teamRepo,
		constraints: constraints,
		notifier:    notifier,
		now:         now,
		logger:      logger,
	}
}

// normalizedSubmission - проверенный и очищенный от дублей состав.
type normalizedSubmission struct {
	lineup   []models.LineupEntry
	scorers  []int
	warnings []string
}

func normalizeSubmission(input SubmitMatchInput) (*normalizedSubmission, error) {
	if input.TeamAID <= 0 || input.TeamBID <= 0 {
		return nil, fmt.Errorf("%w: both teams are required", ErrValidationFailed)
	}
	if input.TeamAID == input.TeamBID {
		return nil, fmt.Errorf("%w: a team cannot play against itself", ErrValidationFailed)
	}
	if input.ScoreA < 0 || input.ScoreB < 0 {
		return nil, fmt.Errorf("%w: scores cannot be negative", ErrValidationFailed)
	}
	result := &normalizedSubmission{}
	seen := make(map[int]int)
	collect := func(teamID int, players []int) (int, error) {
		added := 0
		for _, playerID := range players {
			if playerID <= 0 {
				return 0, fmt.Errorf("%w: invalid player id %d", ErrValidationFailed, playerID)
			}
			if owner, ok := seen[playerID]; ok {
				if owner != teamID {
					return 0, fmt.Errorf("%w: player %d is listed for both teams", ErrValidationFailed, playerID)
				}
				continue
			}
			seen[playerID] = teamID
			result.lineup = append(result.lineup, models.LineupEntry{
				TeamID:    teamID,
				PlayerID:  playerID,
				IsStarter: true,
				XPEarned:  0,
			})
			added++
		}
		return added, nil
	}

	for _, side := range []struct {
		teamID  int
		players []int
	}{{input.TeamAID, input.LineupA}, {input.TeamBID, input.LineupB}} {
		n, err := collect(side.teamID, side.players)
		if err != nil {
			return nil, err
		}
		// Короткий или пустой состав не блокирует отчёт
		if n < MinLineupSize {
			result.warnings = append(result.warnings,
				fmt.Sprintf("team %d lineup has %d players, recommended minimum is %d", side.teamID, n, MinLineupSize))
		}
	}

	// Игрок, забивший дважды, указывается дважды.
	for _, scorerID := range input.Scorers {
		if _, ok := seen[scorerID]; !ok {
			return nil, fmt.Errorf("%w: scorer %d is not in the lineup", ErrValidationFailed, scorerID)
		}
		result.scorers = append(result.scorers, scorerID)
	}
	return result, nil
}

func (s *matchService) Submit(ctx context.Context, input SubmitMatchInput) (*SubmitResult, error) {
	sub, err := normalizeSubmission(input)
	if err != nil {
		metrics.MatchSubmissions.WithLabelValues("invalid").Inc()
		return nil, err
	}

	match := &models.Match{
		SeasonID:  input.SeasonID,
		TeamAID:   input.TeamAID,
		TeamBID:   input.TeamBID,
		VenueID:   input.VenueID,
		ScoreA:    input.ScoreA,
		ScoreB:    input.ScoreB,
		CreatorID: input.CreatorID,
		Status:    models.MatchStatusPendingVerification,
		PlayedAt:  s.now().UTC(),
	}
	var lineupErr, eventsErr error

	err = runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		// 1. Заголовок матча: без него вся отправка считается неудачной
		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			if errors.Is(err, repositories.ErrMatchTeamInvalid) {
				return fmt.Errorf("%w: %w", ErrTeamNotFound, err)
			}
			return storeError("failed to create match header", err)
		}

		for i := range sub.lineup {
			sub.lineup[i].MatchID = match.ID
		}

		// 2. Намерение записывается вместе с заголовком, чтобы незавершённые части можно было дописать позже
		intent := &models.SubmissionIntent{
			MatchID:       match.ID,
			Payload:       models.SubmissionPayload{Lineup: sub.lineup, Scorers: sub.scorers},
			LineupPending: true,
			EventsPending: len(sub.scorers) > 0,
		}
		if err := s.intentRepo.Create(ctx, tx, intent); err != nil {
			return storeError("failed to record submission intent", err)
		}

		if err := s.teamRepo.IncrementMatchCount(ctx, tx, match.TeamAID, match.TeamBID); err != nil {
			return storeError("failed to update team match counters", err)
		}

		// 3. Состав и события - каждый под своей точкой сохранения
		var txErr error
		lineupErr, txErr = withSavepoint(ctx, tx, "lineup", func() error {
			return s.lineupRepo.CreateEntries(ctx, tx, sub.lineup)
		})
		if txErr != nil {
			return txErr
		}

		if len(sub.scorers) > 0 {
			events := make([]models.MatchEvent, 0, len(sub.scorers))
			for _, playerID := range sub.scorers {
				events = append(events, models.MatchEvent{MatchID: match.ID, PlayerID: playerID, EventType: models.MatchEventGoal})
			}
			eventsErr, txErr = withSavepoint(ctx, tx, "events", func() error {
				return s.lineupRepo.CreateEvents(ctx, tx, events)
			})
			if txErr != nil {
				return txErr
			}
		}

		if err := s.intentRepo.UpdateProgress(ctx, tx, match.ID, lineupErr != nil, eventsErr != nil); err != nil {
			return storeError("failed to update submission intent", err)
		}
		return nil
	})
	if err != nil {
		metrics.MatchSubmissions.WithLabelValues("error").Inc()
		return nil, err
	}

	result := &SubmitResult{Match: match, Warnings: sub.warnings}
	if lineupErr != nil {
		metrics.PartialWrites.WithLabelValues("lineup").Inc()
		s.logger.Error("lineup write failed, deferred to repair",
			slog.Int("match_id", match.ID), slog.Any("error", lineupErr))
		result.Pending = append(result.Pending, "lineup")
	} else {
		match.Lineup = sub.lineup
	}
	if eventsErr != nil {
		metrics.PartialWrites.WithLabelValues("events").Inc()
		s.logger.Error("match events write failed, deferred to repair",
			slog.Int("match_id", match.ID), slog.Any("error", eventsErr))
		result.Pending = append(result.Pending, "events")
	}

	if len(result.Pending) > 0 {
		metrics.MatchSubmissions.WithLabelValues("partial").Inc()
	} else {
		metrics.MatchSubmissions.WithLabelValues("ok").Inc()
	}
	return result, nil
}

func (s *matchService) Report(ctx context.Context, input SubmitMatchInput) (*SubmitResult, error) {
	// 1. Сообщить результат может только капитан команды A
	teamA, err := s.teamRepo.GetByID(ctx, input.TeamAID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, storeError(fmt.Sprintf("failed to get team %d", input.TeamAID), err)
	}
	if teamA.CaptainID != input.CreatorID {
		return nil, ErrCaptainActionForbidden
	}

	teamB, err := s.teamRepo.GetByID(ctx, input.TeamBID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, storeError(fmt.Sprintf("failed to get team %d", input.TeamBID), err)
	}

	// 2. Лимиты проверяются до записи
	if err := s.constraints.Validate(ctx, teamA.ID); err != nil {
		metrics.MatchSubmissions.WithLabelValues("rejected").Inc()
		return nil, err
	}

	result, err := s.Submit(ctx, input)
	if err != nil {
		return nil, err
	}

	// 3. Капитан соперника должен подтвердить результат
	notifyAsync(ctx, s.notifier, s.logger, teamB.CaptainID, models.NotificationMatchReported,
		"Match result awaits your confirmation",
		fmt.Sprintf("%s reported %d:%d against %s.", teamA.Name, result.Match.ScoreA, result.Match.ScoreB, teamB.Name))

	return result, nil
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, storeError(fmt.Sprintf("failed to get match %d", id), err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lineup, err := s.lineupRepo.ListEntries(gCtx, id)
		if err != nil {
			return storeError(fmt.Sprintf("failed to load lineup for match %d", id), err)
		}
		match.Lineup = lineup
		return nil
	})
	g.Go(func() error {
		events, err := s.lineupRepo.ListEvents(gCtx, id)
		if err != nil {
			return storeError(fmt.Sprintf("failed to load events for match %d", id), err)
		}
		match.Events = events
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return match, nil
}

// withSavepoint выполняет fn под именованной точкой сохранения.
// partErr - ошибка fn, её изменения откатаны, транзакция жива.
// txErr - сбой самой транзакции, продолжать нельзя.
func withSavepoint(ctx context.Context, tx *sql.Tx, name string, fn func() error) (partErr, txErr error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, storeError("failed to create savepoint "+name, err)
	}
	if err := fn(); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return err, fmt.Errorf("%w: failed to roll back to savepoint %s: %w", ErrStoreUnavailable, name, rbErr)
		}
		return err, nil
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return nil, storeError("failed to release savepoint "+name, err)
	}
	return nil, nil
}

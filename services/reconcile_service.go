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
)

const (
	MaxRepairAttempts = 5
	repairGracePeriod = time.Minute
	repairBatchSize   = 50
)

type ReconcileReport struct {
	Scanned   int
	Repaired  int
	Skipped   int
	Failed    int
	Abandoned int
}

// ReconcileService дописывает состав и события матчей, запись которых прошла частично.
type ReconcileService interface {
	Run(ctx context.Context) (ReconcileReport, error)
}

type reconcileService struct {
	db         *sql.DB
	intentRepo repositories.IntentRepository
	lineupRepo repositories.LineupRepository
	now        Clock
	logger     *slog.Logger
}

func NewReconcileService(
	db *sql.DB,
	intentRepo repositories.IntentRepository,
	lineupRepo repositories.LineupRepository,
	now Clock,
	logger *slog.Logger,
) ReconcileService {
	if now == nil {
		now = time.Now
	}
	return &reconcileService{
		db:         db,
		intentRepo: intentRepo,
		lineupRepo: lineupRepo,
		now:        now,
		logger:     logger,
	}
}

func (s *reconcileService) Run(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	intents, err := s.intentRepo.ListUnresolved(ctx, s.now().Add(-repairGracePeriod), MaxRepairAttempts, repairBatchSize)
	if err != nil {
		return report, storeError("failed to list unresolved submissions", err)
	}
	report.Scanned = len(intents)

	for _, intent := range intents {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		repaired, err := s.repair(ctx, intent.MatchID)
		switch {
		case err == nil && repaired:
			report.Repaired++
			metrics.RepairedIntents.WithLabelValues("repaired").Inc()
			s.logger.Info("incomplete submission repaired", slog.Int("match_id", intent.MatchID))
		case err == nil:
			// Уже починено или занято другим процессом
			report.Skipped++
		default:
			report.Failed++
			s.recordFailure(ctx, intent, err, &report)
		}
	}
	return report, nil
}

func (s *reconcileService) recordFailure(ctx context.Context, intent *models.SubmissionIntent, cause error, report *ReconcileReport) {
	if err := s.intentRepo.IncrementAttempts(ctx, intent.MatchID); err != nil {
		s.logger.Error("failed to record repair attempt",
			slog.Int("match_id", intent.MatchID), slog.Any("error", err))
	}
	if intent.Attempts+1 >= MaxRepairAttempts {
		report.Abandoned++
		metrics.RepairedIntents.WithLabelValues("abandoned").Inc()
		s.logger.Error("giving up on incomplete submission",
			slog.Int("match_id", intent.MatchID),
			slog.Int("attempts", intent.Attempts+1),
			slog.Any("error", cause))
		return
	}
	metrics.RepairedIntents.WithLabelValues("failed").Inc()
	s.logger.Warn("submission repair failed, will retry",
		slog.Int("match_id", intent.MatchID),
		slog.Int("attempts", intent.Attempts+1),
		slog.Any("error", cause))
}

// repair возвращает false без ошибки, если строку уже обработал кто-то другой.
func (s *reconcileService) repair(ctx context.Context, matchID int) (bool, error) {
	repaired := false
	err := runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		claimed, err := s.intentRepo.ClaimForRepair(ctx, tx, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrIntentNotFound) {
				return nil
			}
			return storeError(fmt.Sprintf("failed to claim intent for match %d", matchID), err)
		}

		if claimed.LineupPending {
			if _, err := s.lineupRepo.CreateMissingEntries(ctx, tx, claimed.Payload.Lineup); err != nil {
				return fmt.Errorf("lineup: %w", err)
			}
		}

		// События пишутся одним пакетом, поэтому они либо есть все, либо их нет
		if claimed.EventsPending && len(claimed.Payload.Scorers) > 0 {
			existing, err := s.lineupRepo.CountEvents(ctx, tx, matchID)
			if err != nil {
				return fmt.Errorf("events: %w", err)
			}
			if existing == 0 {
				events := make([]models.MatchEvent, 0, len(claimed.Payload.Scorers))
				for _, playerID := range claimed.Payload.Scorers {
					events = append(events, models.MatchEvent{MatchID: matchID, PlayerID: playerID, EventType: models.MatchEventGoal})
				}
				if err := s.lineupRepo.CreateEvents(ctx, tx, events); err != nil {
					return fmt.Errorf("events: %w", err)
				}
			}
		}

		if err := s.intentRepo.UpdateProgress(ctx, tx, matchID, false, false); err != nil {
			return storeError(fmt.Sprintf("failed to resolve intent for match %d", matchID), err)
		}
		repaired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return repaired, nil
}

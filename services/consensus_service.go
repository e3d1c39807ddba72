package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/matchday/metrics"
	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/repositories"
)

// ConsensusService - подтверждение или отклонение результата капитаном соперника.
type ConsensusService interface {
	Confirm(ctx context.Context, matchID, verifierID int) (*models.Match, error)
	Reject(ctx context.Context, matchID, verifierID int) (*models.Match, error)
	History(ctx context.Context, matchID int) ([]models.VerificationRecord, error)
}

type consensusService struct {
	db               *sql.DB
	matchRepo        repositories.MatchRepository
	verificationRepo repositories.VerificationRepository
	teamRepo         repositories.TeamRepository
	notifier         Notifier
	logger           *slog.Logger
}

func NewConsensusService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	verificationRepo repositories.VerificationRepository,
	teamRepo repositories.TeamRepository,
	notifier Notifier,
	logger *slog.Logger,
) ConsensusService {
	return &consensusService{
		db:               db,
		matchRepo:        matchRepo,
		verificationRepo: verificationRepo,
		teamRepo:         teamRepo,
		notifier:         notifier,
		logger:           logger,
	}
}

func (s *consensusService) Confirm(ctx context.Context, matchID, verifierID int) (*models.Match, error) {
	return s.resolve(ctx, matchID, verifierID, models.VerificationConfirm)
}

func (s *consensusService) Reject(ctx context.Context, matchID, verifierID int) (*models.Match, error) {
	return s.resolve(ctx, matchID, verifierID, models.VerificationReject)
}

func (s *consensusService) resolve(ctx context.Context, matchID, verifierID int, action models.VerificationAction) (*models.Match, error) {
	actionLabel := strings.ToLower(string(action))

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, storeError(fmt.Sprintf("failed to get match %d", matchID), err)
	}

	// 1. Решает капитан одной из команд, но не тот, кто сообщил результат
	if err := s.authorizeVerifier(ctx, match, verifierID); err != nil {
		metrics.ConsensusDecisions.WithLabelValues(actionLabel, "forbidden").Inc()
		return nil, err
	}

	// 2. Быстрый отказ; окончательно статус проверяется условным UPDATE ниже
	if match.Status.IsTerminal() {
		metrics.ConsensusDecisions.WithLabelValues(actionLabel, "conflict").Inc()
		return nil, fmt.Errorf("%w: match %d is already %s", ErrMatchAlreadyResolved, matchID, match.Status)
	}

	// 3. Запись аудита и переход статуса в одной транзакции: проигравший гонку не оставляет записи
	target := action.TargetStatus()
	err = runInTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		record := &models.VerificationRecord{MatchID: matchID, VerifierID: verifierID, Action: action}
		if err := s.verificationRepo.Append(ctx, tx, record); err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return storeError("failed to append verification record", err)
		}
		if err := s.matchRepo.UpdateStatusIfCurrent(ctx, tx, matchID, models.MatchStatusPendingVerification, target); err != nil {
			if errors.Is(err, repositories.ErrMatchStatusChanged) {
				return fmt.Errorf("%w: match %d", ErrMatchAlreadyResolved, matchID)
			}
			return storeError(fmt.Sprintf("failed to update match %d status", matchID), err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrMatchAlreadyResolved) {
			metrics.ConsensusDecisions.WithLabelValues(actionLabel, "conflict").Inc()
		} else {
			metrics.ConsensusDecisions.WithLabelValues(actionLabel, "error").Inc()
		}
		return nil, err
	}
	metrics.ConsensusDecisions.WithLabelValues(actionLabel, "ok").Inc()
	match.Status = target

	kind, title := models.NotificationMatchConfirmed, "Match result confirmed"
	if action == models.VerificationReject {
		kind, title = models.NotificationMatchRejected, "Match result rejected"
	}
	notifyAsync(ctx, s.notifier, s.logger, match.CreatorID, kind, title,
		fmt.Sprintf("Match #%d (%d:%d) is now %s.", match.ID, match.ScoreA, match.ScoreB, match.Status))

	return match, nil
}

// authorizeVerifier: решение принимает капитан команды B, отчёт всегда подаёт сторона A.
func (s *consensusService) authorizeVerifier(ctx context.Context, match *models.Match, verifierID int) error {
	if verifierID == match.CreatorID {
		return ErrVerifierNotOpposingCaptain
	}
	opponent, err := s.teamRepo.GetByID(ctx, match.TeamBID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrVerifierNotOpposingCaptain
		}
		return storeError(fmt.Sprintf("failed to load team %d of match %d", match.TeamBID, match.ID), err)
	}
	if opponent.CaptainID != verifierID {
		return ErrVerifierNotOpposingCaptain
	}
	return nil
}

func (s *consensusService) History(ctx context.Context, matchID int) ([]models.VerificationRecord, error) {
	if _, err := s.matchRepo.GetByID(ctx, matchID); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, storeError(fmt.Sprintf("failed to get match %d", matchID), err)
	}
	records, err := s.verificationRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, storeError(fmt.Sprintf("failed to list verifications for match %d", matchID), err)
	}
	return records, nil
}

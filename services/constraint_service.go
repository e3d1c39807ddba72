package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/matchday/repositories"
	"golang.org/x/sync/errgroup"
)

const (
	WeeklyMatchCap   = 24
	WeeklyCapWindow  = 7 * 24 * time.Hour
	CooldownDuration = 2 * time.Hour
)

// ConstraintService проверяет, может ли команда записать ещё один матч.
type ConstraintService interface {
	// Validate возвращает nil, ErrWeeklyCapExceeded, ErrCooldownActive или оба через errors.Join.
	Validate(ctx context.Context, teamID int) error
}

type constraintService struct {
	matchRepo repositories.MatchRepository
	now       Clock
}

func NewConstraintService(matchRepo repositories.MatchRepository, now Clock) ConstraintService {
	if now == nil {
		now = time.Now
	}
	return &constraintService{matchRepo: matchRepo, now: now}
}

func (s *constraintService) Validate(ctx context.Context, teamID int) error {
	now := s.now()

	var (
		weeklyCount    int
		recentlyPlayed bool
	)

	// Правила независимы, поэтому запросы идут параллельно.
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.matchRepo.CountCreatedSince(gCtx, teamID, now.Add(-WeeklyCapWindow))
		if err != nil {
			return storeError(fmt.Sprintf("failed to count weekly matches for team %d", teamID), err)
		}
		weeklyCount = count
		return nil
	})
	g.Go(func() error {
		exists, err := s.matchRepo.ExistsPlayedSince(gCtx, teamID, now.Add(-CooldownDuration))
		if err != nil {
			return storeError(fmt.Sprintf("failed to check cooldown for team %d", teamID), err)
		}
		recentlyPlayed = exists
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	var violations []error
	if weeklyCount >= WeeklyMatchCap {
		violations = append(violations, fmt.Errorf("%w: %d matches in the last 7 days (limit %d)", ErrWeeklyCapExceeded, weeklyCount, WeeklyMatchCap))
	}
	if recentlyPlayed {
		violations = append(violations, fmt.Errorf("%w: wait %s between matches", ErrCooldownActive, CooldownDuration))
	}
	return errors.Join(violations...)
}

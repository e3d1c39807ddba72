package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/repositories"
)

// Eligibility - может ли команда прямо сейчас записать матч.
type Eligibility struct {
	TeamID     int      `json:"team_id"`
	Eligible   bool     `json:"eligible"`
	Violations []string `json:"violations,omitempty"`
}

type TeamService interface {
	GetByID(ctx context.Context, id int) (*models.Team, error)
	Eligibility(ctx context.Context, teamID int) (*Eligibility, error)
}

type teamService struct {
	teamRepo    repositories.TeamRepository
	constraints ConstraintService
}

func NewTeamService(teamRepo repositories.TeamRepository, constraints ConstraintService) TeamService {
	return &teamService{teamRepo: teamRepo, constraints: constraints}
}

func (s *teamService) GetByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, storeError(fmt.Sprintf("failed to get team %d", id), err)
	}
	return team, nil
}

func (s *teamService) Eligibility(ctx context.Context, teamID int) (*Eligibility, error) {
	if _, err := s.GetByID(ctx, teamID); err != nil {
		return nil, err
	}

	result := &Eligibility{TeamID: teamID, Eligible: true}
	err := s.constraints.Validate(ctx, teamID)
	if err == nil {
		return result, nil
	}

	// Нарушения правил - это ответ, а не ошибка
	if errors.Is(err, ErrWeeklyCapExceeded) {
		result.Violations = append(result.Violations, ErrWeeklyCapExceeded.Error())
	}
	if errors.Is(err, ErrCooldownActive) {
		result.Violations = append(result.Violations, ErrCooldownActive.Error())
	}
	if len(result.Violations) == 0 {
		return nil, err
	}
	result.Eligible = false
	return result, nil
}

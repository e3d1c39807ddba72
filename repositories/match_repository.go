package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Dosada05/matchday/models"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchTeamInvalid   = errors.New("match team conflict or invalid")
	ErrMatchStatusChanged = errors.New("match status changed concurrently")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	CountCreatedSince(ctx context.Context, teamID int, since time.Time) (int, error)
	ExistsPlayedSince(ctx context.Context, teamID int, since time.Time) (bool, error)
	// UpdateStatusIfCurrent переводит матч в next только если его статус всё ещё expected.
	UpdateStatusIfCurrent(ctx context.Context, exec SQLExecutor, id int, expected, next models.MatchStatus) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := getExecutor(r.db, exec)
	query := `
		INSERT INTO matches
			(season_id, team_a_id, team_b_id, venue_id, score_a, score_b, creator_id, status, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		match.SeasonID,
		match.TeamAID,
		match.TeamBID,
		match.VenueID,
		match.ScoreA,
		match.ScoreB,
		match.CreatorID,
		match.Status,
		match.PlayedAt,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `
		SELECT id, season_id, team_a_id, team_b_id, venue_id, score_a, score_b, creator_id, status, played_at, created_at
		FROM matches
		WHERE id = $1`

	match := &models.Match{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&match.ID,
		&match.SeasonID,
		&match.TeamAID,
		&match.TeamBID,
		&match.VenueID,
		&match.ScoreA,
		&match.ScoreB,
		&match.CreatorID,
		&match.Status,
		&match.PlayedAt,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, wrapStoreError(err)
	}
	return match, nil
}

func (r *postgresMatchRepository) CountCreatedSince(ctx context.Context, teamID int, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM matches
		WHERE (team_a_id = $1 OR team_b_id = $1) AND created_at >= $2`

	var count int
	if err := r.db.QueryRowContext(ctx, query, teamID, since).Scan(&count); err != nil {
		return 0, wrapStoreError(err)
	}
	return count, nil
}

func (r *postgresMatchRepository) ExistsPlayedSince(ctx context.Context, teamID int, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM matches
			WHERE (team_a_id = $1 OR team_b_id = $1) AND played_at >= $2
		)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, teamID, since).Scan(&exists); err != nil {
		return false, wrapStoreError(err)
	}
	return exists, nil
}

func (r *postgresMatchRepository) UpdateStatusIfCurrent(ctx context.Context, exec SQLExecutor, id int, expected, next models.MatchStatus) error {
	executor := getExecutor(r.db, exec)
	query := `UPDATE matches SET status = $1 WHERE id = $2 AND status = $3`

	result, err := executor.ExecContext(ctx, query, next, id, expected)
	if err != nil {
		return wrapStoreError(err)
	}
	return checkAffectedRows(result, ErrMatchStatusChanged)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := pqError(err); ok {
		if pqErr.Code == pqForeignKeyViolation {
			switch pqErr.Constraint {
			case "matches_team_a_id_fkey", "matches_team_b_id_fkey":
				return ErrMatchTeamInvalid
			}
		}
		if pqErr.Constraint == "matches_distinct_teams" {
			return ErrMatchTeamInvalid
		}
	}
	return wrapStoreError(err)
}

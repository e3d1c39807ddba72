package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/matchday/models"
	"github.com/lib/pq"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByIDs(ctx context.Context, ids []int) ([]*models.Team, error)
	IncrementMatchCount(ctx context.Context, exec SQLExecutor, teamIDs ...int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

const teamColumns = `id, name, zone_id, captain_id, status, match_count, created_at`

func scanTeam(row interface{ Scan(...interface{}) error }) (*models.Team, error) {
	t := &models.Team{}
	if err := row.Scan(&t.ID, &t.Name, &t.ZoneID, &t.CaptainID, &t.Status, &t.MatchCount, &t.CreatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	t, err := scanTeam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, wrapStoreError(err)
	}
	return t, nil
}

func (r *postgresTeamRepository) ListByIDs(ctx context.Context, ids []int) ([]*models.Team, error) {
	if len(ids) == 0 {
		return []*models.Team{}, nil
	}
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = ANY($1) ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, wrapStoreError(err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0, len(ids))
	for rows.Next() {
		t, scanErr := scanTeam(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, t)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapStoreError(err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) IncrementMatchCount(ctx context.Context, exec SQLExecutor, teamIDs ...int) error {
	executor := getExecutor(r.db, exec)
	query := `UPDATE teams SET match_count = match_count + 1 WHERE id = ANY($1)`
	_, err := executor.ExecContext(ctx, query, pq.Array(teamIDs))
	return wrapStoreError(err)
}

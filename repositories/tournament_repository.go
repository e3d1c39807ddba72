package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/matchday/models"
)

var (
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrTournamentStatusChanged = errors.New("tournament status changed concurrently")
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetForUpdate читает турнир с блокировкой строки до конца транзакции.
	GetForUpdate(ctx context.Context, tx SQLExecutor, id int) (*models.Tournament, error)
	// UpdateStatusIfCurrent - условное обновление статуса; ноль строк -> ErrTournamentStatusChanged.
	UpdateStatusIfCurrent(ctx context.Context, exec SQLExecutor, id int, expected, next models.TournamentStatus) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (organizer_id, name, status, entrant_cap, bracket_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.OrganizerID, t.Name, t.Status, t.Config.EntrantCap, t.Config.BracketType,
	).Scan(&t.ID, &t.CreatedAt)
	return wrapStoreError(err)
}

const tournamentSelect = `
		SELECT id, organizer_id, name, status, entrant_cap, bracket_type, created_at
		FROM tournaments
		WHERE id = $1`

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(ctx, getExecutor(r.db, exec), tournamentSelect, id)
}

func (r *postgresTournamentRepository) GetForUpdate(ctx context.Context, tx SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(ctx, getExecutor(r.db, tx), tournamentSelect+` FOR UPDATE`, id)
}

func (r *postgresTournamentRepository) get(ctx context.Context, executor SQLExecutor, query string, id int) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.OrganizerID, &t.Name, &t.Status, &t.Config.EntrantCap, &t.Config.BracketType, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, wrapStoreError(err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) UpdateStatusIfCurrent(ctx context.Context, exec SQLExecutor, id int, expected, next models.TournamentStatus) error {
	executor := getExecutor(r.db, exec)
	query := `UPDATE tournaments SET status = $1 WHERE id = $2 AND status = $3`

	result, err := executor.ExecContext(ctx, query, next, id, expected)
	if err != nil {
		return wrapStoreError(err)
	}
	return checkAffectedRows(result, ErrTournamentStatusChanged)
}

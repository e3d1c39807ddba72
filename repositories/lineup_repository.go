package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/matchday/models"
)

var ErrLineupPlayerConflict = errors.New("player already listed in this match")

// LineupRepository хранит состав матча и события (голы).
type LineupRepository interface {
	CreateEntries(ctx context.Context, exec SQLExecutor, entries []models.LineupEntry) error
	// CreateMissingEntries вставляет только тех игроков, которых ещё нет в составе.
	CreateMissingEntries(ctx context.Context, exec SQLExecutor, entries []models.LineupEntry) (int64, error)
	CreateEvents(ctx context.Context, exec SQLExecutor, events []models.MatchEvent) error
	CountEvents(ctx context.Context, exec SQLExecutor, matchID int) (int, error)
	ListEntries(ctx context.Context, matchID int) ([]models.LineupEntry, error)
	ListEvents(ctx context.Context, matchID int) ([]models.MatchEvent, error)
}

type postgresLineupRepository struct {
	db *sql.DB
}

func NewPostgresLineupRepository(db *sql.DB) LineupRepository {
	return &postgresLineupRepository{db: db}
}

const insertLineupQuery = `
	INSERT INTO match_lineups (match_id, team_id, player_id, is_starter, xp_earned)
	VALUES ($1, $2, $3, $4, $5)`

func (r *postgresLineupRepository) CreateEntries(ctx context.Context, exec SQLExecutor, entries []models.LineupEntry) error {
	executor := getExecutor(r.db, exec)
	for _, e := range entries {
		_, err := executor.ExecContext(ctx, insertLineupQuery, e.MatchID, e.TeamID, e.PlayerID, e.IsStarter, e.XPEarned)
		if err != nil {
			if pqErr, ok := pqError(err); ok && pqErr.Code == pqUniqueViolation {
				return fmt.Errorf("%w: player %d", ErrLineupPlayerConflict, e.PlayerID)
			}
			return fmt.Errorf("lineup insert failed for player %d: %w", e.PlayerID, wrapStoreError(err))
		}
	}
	return nil
}

func (r *postgresLineupRepository) CreateMissingEntries(ctx context.Context, exec SQLExecutor, entries []models.LineupEntry) (int64, error) {
	executor := getExecutor(r.db, exec)
	var inserted int64
	for _, e := range entries {
		result, err := executor.ExecContext(ctx, insertLineupQuery+` ON CONFLICT (match_id, player_id) DO NOTHING`,
			e.MatchID, e.TeamID, e.PlayerID, e.IsStarter, e.XPEarned)
		if err != nil {
			return inserted, fmt.Errorf("lineup repair failed for player %d: %w", e.PlayerID, wrapStoreError(err))
		}
		n, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to check affected rows: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}

func (r *postgresLineupRepository) CreateEvents(ctx context.Context, exec SQLExecutor, events []models.MatchEvent) error {
	executor := getExecutor(r.db, exec)
	query := `
		INSERT INTO match_events (match_id, player_id, event_type)
		VALUES ($1, $2, $3)
		RETURNING id`
	for i := range events {
		e := &events[i]
		if err := executor.QueryRowContext(ctx, query, e.MatchID, e.PlayerID, e.EventType).Scan(&e.ID); err != nil {
			return fmt.Errorf("event insert failed for player %d: %w", e.PlayerID, wrapStoreError(err))
		}
	}
	return nil
}

func (r *postgresLineupRepository) CountEvents(ctx context.Context, exec SQLExecutor, matchID int) (int, error) {
	executor := getExecutor(r.db, exec)
	var count int
	err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_events WHERE match_id = $1`, matchID).Scan(&count)
	if err != nil {
		return 0, wrapStoreError(err)
	}
	return count, nil
}

func (r *postgresLineupRepository) ListEntries(ctx context.Context, matchID int) ([]models.LineupEntry, error) {
	query := `
		SELECT match_id, team_id, player_id, is_starter, xp_earned
		FROM match_lineups
		WHERE match_id = $1
		ORDER BY team_id ASC, player_id ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	defer rows.Close()

	entries := make([]models.LineupEntry, 0)
	for rows.Next() {
		var e models.LineupEntry
		if scanErr := rows.Scan(&e.MatchID, &e.TeamID, &e.PlayerID, &e.IsStarter, &e.XPEarned); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapStoreError(err)
	}
	return entries, nil
}

func (r *postgresLineupRepository) ListEvents(ctx context.Context, matchID int) ([]models.MatchEvent, error) {
	query := `
		SELECT id, match_id, player_id, event_type
		FROM match_events
		WHERE match_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	defer rows.Close()

	events := make([]models.MatchEvent, 0)
	for rows.Next() {
		var e models.MatchEvent
		if scanErr := rows.Scan(&e.ID, &e.MatchID, &e.PlayerID, &e.EventType); scanErr != nil {
			return nil, scanErr
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapStoreError(err)
	}
	return events, nil
}

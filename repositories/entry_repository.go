package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Dosada05/matchday/models"
)

var (
	ErrEntryNotFound          = errors.New("tournament entry not found")
	ErrEntryConflict          = errors.New("team already registered for this tournament")
	ErrEntryTeamInvalid       = errors.New("entry team conflict or invalid")
	ErrEntryTournamentInvalid = errors.New("entry tournament conflict or invalid")
)

type EntryRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.TournamentEntry) error
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, sortByRank bool) ([]*models.TournamentEntry, error)
	AssignGroup(ctx context.Context, exec SQLExecutor, entryID int, group string) error
}

type postgresEntryRepository struct {
	db *sql.DB // Main DB connection, used if exec is nil
}

func NewPostgresEntryRepository(db *sql.DB) EntryRepository {
	return &postgresEntryRepository{db: db}
}

func (r *postgresEntryRepository) Create(ctx context.Context, exec SQLExecutor, entry *models.TournamentEntry) error {
	executor := getExecutor(r.db, exec)
	query := `
		INSERT INTO tournament_entries (tournament_id, team_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, entry.TournamentID, entry.TeamID).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if pqErr, ok := pqError(err); ok {
			switch pqErr.Code {
			case pqUniqueViolation:
				if pqErr.Constraint == "tournament_entries_tournament_team_key" {
					return ErrEntryConflict
				}
			case pqForeignKeyViolation:
				switch pqErr.Constraint {
				case "tournament_entries_team_id_fkey":
					return ErrEntryTeamInvalid
				case "tournament_entries_tournament_id_fkey":
					return ErrEntryTournamentInvalid
				}
			}
		}
		return wrapStoreError(err)
	}
	return nil
}

func (r *postgresEntryRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := getExecutor(r.db, exec)
	var count int
	err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM tournament_entries WHERE tournament_id = $1`, tournamentID).Scan(&count)
	if err != nil {
		return 0, wrapStoreError(err)
	}
	return count, nil
}

func (r *postgresEntryRepository) scanEntry(rowScanner interface{ Scan(...interface{}) error }) (*models.TournamentEntry, error) {
	var e models.TournamentEntry
	err := rowScanner.Scan(
		&e.ID, &e.TournamentID, &e.TeamID, &e.GroupName, &e.Points,
		&e.GoalDiff, &e.GoalsFor, &e.MatchesPlayed, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *postgresEntryRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, sortByRank bool) ([]*models.TournamentEntry, error) {
	executor := getExecutor(r.db, exec)
	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(`
		SELECT id, tournament_id, team_id, group_name, points, goal_diff, goals_for, matches_played, created_at
		FROM tournament_entries
		WHERE tournament_id = $1`)

	if sortByRank {
		queryBuilder.WriteString(" ORDER BY group_name ASC NULLS LAST, points DESC, goal_diff DESC, goals_for DESC, team_id ASC")
	} else {
		queryBuilder.WriteString(" ORDER BY id ASC")
	}

	rows, err := executor.QueryContext(ctx, queryBuilder.String(), tournamentID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	defer rows.Close()

	entries := make([]*models.TournamentEntry, 0)
	for rows.Next() {
		e, errScan := r.scanEntry(rows)
		if errScan != nil {
			return nil, errScan
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapStoreError(err)
	}
	return entries, nil
}

func (r *postgresEntryRepository) AssignGroup(ctx context.Context, exec SQLExecutor, entryID int, group string) error {
	executor := getExecutor(r.db, exec)
	result, err := executor.ExecContext(ctx, `UPDATE tournament_entries SET group_name = $1 WHERE id = $2`, group, entryID)
	if err != nil {
		return wrapStoreError(err)
	}
	return checkAffectedRows(result, ErrEntryNotFound)
}

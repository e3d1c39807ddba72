package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/matchday/models"
)

var ErrIntentNotFound = errors.New("submission intent not found or already claimed")

// IntentRepository хранит намерения записи матча, по которым проход сверки
// дописывает недостающий состав и события.
type IntentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, intent *models.SubmissionIntent) error
	UpdateProgress(ctx context.Context, exec SQLExecutor, matchID int, lineupPending, eventsPending bool) error
	ListUnresolved(ctx context.Context, createdBefore time.Time, maxAttempts, limit int) ([]*models.SubmissionIntent, error)
	// ClaimForRepair блокирует строку в транзакции; занятые другим процессом строки пропускаются.
	ClaimForRepair(ctx context.Context, tx SQLExecutor, matchID int) (*models.SubmissionIntent, error)
	IncrementAttempts(ctx context.Context, matchID int) error
}

type postgresIntentRepository struct {
	db *sql.DB
}

func NewPostgresIntentRepository(db *sql.DB) IntentRepository {
	return &postgresIntentRepository{db: db}
}

const intentColumns = `match_id, payload, lineup_pending, events_pending, attempts, created_at, resolved_at`

func scanIntent(row interface{ Scan(...interface{}) error }) (*models.SubmissionIntent, error) {
	var (
		intent  models.SubmissionIntent
		payload []byte
	)
	err := row.Scan(&intent.MatchID, &payload, &intent.LineupPending, &intent.EventsPending,
		&intent.Attempts, &intent.CreatedAt, &intent.ResolvedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &intent.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode intent payload for match %d: %w", intent.MatchID, err)
	}
	return &intent, nil
}

func (r *postgresIntentRepository) Create(ctx context.Context, exec SQLExecutor, intent *models.SubmissionIntent) error {
	executor := getExecutor(r.db, exec)
	payload, err := json.Marshal(intent.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode intent payload: %w", err)
	}
	query := `
		INSERT INTO match_submission_intents (match_id, payload, lineup_pending, events_pending)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err = executor.QueryRowContext(ctx, query, intent.MatchID, payload, intent.LineupPending, intent.EventsPending).
		Scan(&intent.CreatedAt)
	return wrapStoreError(err)
}

func (r *postgresIntentRepository) UpdateProgress(ctx context.Context, exec SQLExecutor, matchID int, lineupPending, eventsPending bool) error {
	executor := getExecutor(r.db, exec)
	query := `
		UPDATE match_submission_intents
		SET lineup_pending = $1,
		    events_pending = $2,
		    resolved_at = CASE WHEN NOT $1 AND NOT $2 THEN NOW() ELSE NULL END
		WHERE match_id = $3`

	result, err := executor.ExecContext(ctx, query, lineupPending, eventsPending, matchID)
	if err != nil {
		return wrapStoreError(err)
	}
	return checkAffectedRows(result, ErrIntentNotFound)
}

func (r *postgresIntentRepository) ListUnresolved(ctx context.Context, createdBefore time.Time, maxAttempts, limit int) ([]*models.SubmissionIntent, error) {
	query := `
		SELECT ` + intentColumns + `
		FROM match_submission_intents
		WHERE resolved_at IS NULL AND created_at < $1 AND attempts < $2
		ORDER BY created_at ASC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, createdBefore, maxAttempts, limit)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	defer rows.Close()

	intents := make([]*models.SubmissionIntent, 0)
	for rows.Next() {
		intent, scanErr := scanIntent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		intents = append(intents, intent)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapStoreError(err)
	}
	return intents, nil
}

func (r *postgresIntentRepository) ClaimForRepair(ctx context.Context, tx SQLExecutor, matchID int) (*models.SubmissionIntent, error) {
	query := `
		SELECT ` + intentColumns + `
		FROM match_submission_intents
		WHERE match_id = $1 AND resolved_at IS NULL
		FOR UPDATE SKIP LOCKED`

	intent, err := scanIntent(tx.QueryRowContext(ctx, query, matchID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIntentNotFound
		}
		return nil, wrapStoreError(err)
	}
	return intent, nil
}

func (r *postgresIntentRepository) IncrementAttempts(ctx context.Context, matchID int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE match_submission_intents SET attempts = attempts + 1 WHERE match_id = $1`, matchID)
	if err != nil {
		return wrapStoreError(err)
	}
	return checkAffectedRows(result, ErrIntentNotFound)
}

package repositories

import (
	"context"
	"database/sql"

	"github.com/Dosada05/matchday/models"
)

// VerificationRepository - журнал подтверждений, только INSERT и SELECT.
type VerificationRepository interface {
	Append(ctx context.Context, exec SQLExecutor, record *models.VerificationRecord) error
	ListByMatch(ctx context.Context, matchID int) ([]models.VerificationRecord, error)
}

type postgresVerificationRepository struct {
	db *sql.DB
}

func NewPostgresVerificationRepository(db *sql.DB) VerificationRepository {
	return &postgresVerificationRepository{db: db}
}

func (r *postgresVerificationRepository) Append(ctx context.Context, exec SQLExecutor, record *models.VerificationRecord) error {
	executor := getExecutor(r.db, exec)
	query := `
		INSERT INTO match_verifications (match_id, verifier_id, action)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, record.MatchID, record.VerifierID, record.Action).
		Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == pqForeignKeyViolation {
			return ErrMatchNotFound
		}
		return wrapStoreError(err)
	}
	return nil
}

func (r *postgresVerificationRepository) ListByMatch(ctx context.Context, matchID int) ([]models.VerificationRecord, error) {
	query := `
		SELECT id, match_id, verifier_id, action, created_at
		FROM match_verifications
		WHERE match_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	defer rows.Close()

	records := make([]models.VerificationRecord, 0)
	for rows.Next() {
		var rec models.VerificationRecord
		if scanErr := rows.Scan(&rec.ID, &rec.MatchID, &rec.VerifierID, &rec.Action, &rec.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapStoreError(err)
	}
	return records, nil
}

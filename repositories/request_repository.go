package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/matchday/models"
)

var (
	ErrRequestNotFound             = errors.New("operations request not found")
	ErrRequestAlreadyLocked        = errors.New("operations request already locked")
	ErrRequestAvailabilityConflict = errors.New("open availability already exists for requester")
)

type RequestRepository interface {
	Create(ctx context.Context, req *models.OperationsRequest) error
	GetByID(ctx context.Context, id int) (*models.OperationsRequest, error)
	ExistsOpenByRequester(ctx context.Context, requesterID int, reqType models.RequestType) (bool, error)
	ListOpenByZone(ctx context.Context, zoneID int) ([]*models.OperationsRequest, error)
	// Lock - compare-and-swap: OPEN -> LOCKED. Ноль затронутых строк означает, что гонку выиграл другой.
	Lock(ctx context.Context, id, responderID int) error
}

type postgresRequestRepository struct {
	db *sql.DB
}

func NewPostgresRequestRepository(db *sql.DB) RequestRepository {
	return &postgresRequestRepository{db: db}
}

const requestColumns = `id, requester_id, zone_id, type, match_time, venue, detail, status, responder_id, created_at`

func scanRequest(row interface{ Scan(...interface{}) error }) (*models.OperationsRequest, error) {
	var (
		req    models.OperationsRequest
		detail []byte
	)
	err := row.Scan(&req.ID, &req.RequesterID, &req.ZoneID, &req.Type, &req.MatchTime,
		&req.Venue, &detail, &req.Status, &req.ResponderID, &req.CreatedAt)
	if err != nil {
		return nil, err
	}
	d, err := models.DecodeRequestDetail(req.Type, detail)
	if err != nil {
		return nil, fmt.Errorf("request %d has malformed detail: %w", req.ID, err)
	}
	req.Detail = d
	return &req, nil
}

func (r *postgresRequestRepository) Create(ctx context.Context, req *models.OperationsRequest) error {
	detail, err := json.Marshal(req.Detail)
	if err != nil {
		return fmt.Errorf("failed to encode request detail: %w", err)
	}
	query := `
		INSERT INTO operations_requests (requester_id, zone_id, type, match_time, venue, detail, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query,
		req.RequesterID,
		req.ZoneID,
		req.Type,
		req.MatchTime,
		req.Venue,
		detail,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == pqUniqueViolation &&
			pqErr.Constraint == "operations_requests_one_open_availability" {
			return ErrRequestAvailabilityConflict
		}
		return wrapStoreError(err)
	}
	return nil
}

func (r *postgresRequestRepository) GetByID(ctx context.Context, id int) (*models.OperationsRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM operations_requests WHERE id = $1`
	req, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, wrapStoreError(err)
	}
	return req, nil
}

func (r *postgresRequestRepository) ExistsOpenByRequester(ctx context.Context, requesterID int, reqType models.RequestType) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM operations_requests
			WHERE requester_id = $1 AND type = $2 AND status = $3
		)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, requesterID, reqType, models.RequestStatusOpen).Scan(&exists)
	if err != nil {
		return false, wrapStoreError(err)
	}
	return exists, nil
}

func (r *postgresRequestRepository) ListOpenByZone(ctx context.Context, zoneID int) ([]*models.OperationsRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM operations_requests
		WHERE zone_id = $1 AND status = $2
		ORDER BY created_at DESC, id DESC` // Сначала самые новые

	rows, err := r.db.QueryContext(ctx, query, zoneID, models.RequestStatusOpen)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	defer rows.Close()

	requests := make([]*models.OperationsRequest, 0)
	for rows.Next() {
		req, scanErr := scanRequest(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		requests = append(requests, req)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapStoreError(err)
	}
	return requests, nil
}

func (r *postgresRequestRepository) Lock(ctx context.Context, id, responderID int) error {
	query := `
		UPDATE operations_requests
		SET status = $1, responder_id = $2
		WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, models.RequestStatusLocked, responderID, id, models.RequestStatusOpen)
	if err != nil {
		return wrapStoreError(err)
	}
	return checkAffectedRows(result, ErrRequestAlreadyLocked)
}

package repositories

import (
	"context"
	"database/sql"

	"github.com/Dosada05/matchday/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID int, limit int) ([]*models.Notification, error)
}

type postgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, title, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, n.UserID, n.Type, n.Title, n.Message).Scan(&n.ID, &n.CreatedAt)
	return wrapStoreError(err)
}

func (r *postgresNotificationRepository) ListByUser(ctx context.Context, userID int, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	defer rows.Close()

	list := make([]*models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if scanErr := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Read, &n.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		list = append(list, &n)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapStoreError(err)
	}
	return list, nil
}

package models

import "time"

type NotificationType string

const (
	NotificationMatchReported  NotificationType = "MATCH_REPORTED"
	NotificationMatchConfirmed NotificationType = "MATCH_CONFIRMED"
	NotificationMatchRejected  NotificationType = "MATCH_REJECTED"
	NotificationRequestTaken   NotificationType = "REQUEST_ACCEPTED"
	NotificationDrawPublished  NotificationType = "DRAW_PUBLISHED"
)

type Notification struct {
	ID        int              `json:"id" db:"id"`
	UserID    int              `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

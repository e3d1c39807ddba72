package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/realtime"
	"github.com/Dosada05/matchday/repositories"
)

const (
	defaultInboxLimit = 50
	maxInboxLimit     = 200
)

// RoomBroadcaster - отправка сообщений в комнату вебсокетов.
type RoomBroadcaster interface {
	BroadcastToRoom(roomID string, msgType string, payload interface{}) int
}

// NotificationService сохраняет уведомление и сразу пушит его в комнату пользователя.
type NotificationService interface {
	Notifier
	ListForUser(ctx context.Context, userID, limit int) ([]*models.Notification, error)
}

type notificationService struct {
	repo   repositories.NotificationRepository
	push   RoomBroadcaster
	logger *slog.Logger
}

func NewNotificationService(repo repositories.NotificationRepository, push RoomBroadcaster, logger *slog.Logger) NotificationService {
	return &notificationService{repo: repo, push: push, logger: logger}
}

func (s *notificationService) Send(ctx context.Context, userID int, kind models.NotificationType, title, message string) error {
	n := &models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   strings.TrimSpace(title),
		Message: strings.TrimSpace(message),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return storeError(fmt.Sprintf("failed to store notification for user %d", userID), err)
	}

	// Пользователь может быть офлайн: тогда уведомление просто ждёт во входящих
	if s.push != nil {
		delivered := s.push.BroadcastToRoom(realtime.UserRoom(userID), string(kind), n)
		s.logger.Debug("notification pushed",
			slog.Int("user_id", userID), slog.String("type", string(kind)), slog.Int("clients", delivered))
	}
	return nil
}

func (s *notificationService) ListForUser(ctx context.Context, userID, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	if limit > maxInboxLimit {
		limit = maxInboxLimit
	}
	list, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, storeError(fmt.Sprintf("failed to list notifications for user %d", userID), err)
	}
	return list, nil
}

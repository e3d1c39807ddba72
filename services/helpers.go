package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/matchday/metrics"
	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/repositories"
)

const notifyTimeout = 5 * time.Second

// Notifier - доставка уведомлений. Вызывающие в ядре не ждут результата.
type Notifier interface {
	Send(ctx context.Context, userID int, kind models.NotificationType, title, message string) error
}

// Clock позволяет подменять время в тестах.
type Clock func() time.Time

// storeError переводит временные сбои репозитория в ErrStoreUnavailable,
// остальные ошибки оборачивает с контекстом операции.
func storeError(op string, err error) error {
	if errors.Is(err, repositories.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// notifyAsync отправляет уведомление в отдельной горутине. Ошибка только логируется:
// сбой доставки не должен ломать основную операцию.
func notifyAsync(ctx context.Context, n Notifier, logger *slog.Logger, userID int, kind models.NotificationType, title, message string) {
	if n == nil {
		return
	}
	base := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(base, notifyTimeout)
		defer cancel()
		if err := n.Send(ctx, userID, kind, title, message); err != nil {
			metrics.NotificationsDropped.Inc()
			logger.Warn("notification dispatch failed",
				slog.Int("user_id", userID),
				slog.String("type", string(kind)),
				slog.Any("error", err))
		}
	}()
}

// runInTx открывает транзакцию и коммитит её, если fn вернула nil; иначе откатывает.
func runInTx(ctx context.Context, db *sql.DB, logger *slog.Logger, fn func(tx *sql.Tx) error) (txErr error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrStoreUnavailable, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Error("rollback failed", slog.Any("error", rbErr), slog.Any("cause", txErr))
			}
		} else if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("%w: failed to commit transaction: %w", ErrStoreUnavailable, cErr)
		}
	}()
	return fn(tx)
}

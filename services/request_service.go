package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/matchday/metrics"
	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/repositories"
)

type PostRequestInput struct {
	ZoneID    int                `json:"zone_id"`
	Type      models.RequestType `json:"type"`
	MatchTime time.Time          `json:"match_time"`
	Venue     string             `json:"venue"`
	Detail    json.RawMessage    `json:"detail"`
}

// RequestService - доска объявлений "нужен игрок/судья" и "я свободен".
type RequestService interface {
	Post(ctx context.Context, userID int, input PostRequestInput) (*models.OperationsRequest, error)
	ListOpen(ctx context.Context, zoneID int) ([]*models.OperationsRequest, error)
	// Accept закрепляет объявление за первым откликнувшимся.
	Accept(ctx context.Context, requestID, responderID int) (*models.OperationsRequest, error)
}

type requestService struct {
	requestRepo repositories.RequestRepository
	notifier    Notifier
	logger      *slog.Logger
}

func NewRequestService(requestRepo repositories.RequestRepository, notifier Notifier, logger *slog.Logger) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

func (s *requestService) Post(ctx context.Context, userID int, input PostRequestInput) (*models.OperationsRequest, error) {
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown request type %q", ErrValidationFailed, input.Type)
	}
	if input.ZoneID <= 0 {
		return nil, fmt.Errorf("%w: zone is required", ErrValidationFailed)
	}
	if input.MatchTime.IsZero() {
		return nil, fmt.Errorf("%w: match time is required", ErrValidationFailed)
	}
	detail, err := models.DecodeRequestDetail(input.Type, input.Detail)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	// Одно открытое "я свободен" на игрока. Индекс в БД страхует от гонки между проверкой и вставкой.
	if input.Type == models.RequestIAmAvailable {
		exists, err := s.requestRepo.ExistsOpenByRequester(ctx, userID, input.Type)
		if err != nil {
			return nil, storeError("failed to check open availability", err)
		}
		if exists {
			return nil, ErrDuplicateAvailability
		}
	}

	req := &models.OperationsRequest{
		RequesterID: userID,
		ZoneID:      input.ZoneID,
		Type:        input.Type,
		MatchTime:   input.MatchTime,
		Venue:       strings.TrimSpace(input.Venue),
		Detail:      detail,
		Status:      models.RequestStatusOpen,
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		if errors.Is(err, repositories.ErrRequestAvailabilityConflict) {
			return nil, ErrDuplicateAvailability
		}
		return nil, storeError("failed to create operations request", err)
	}
	return req, nil
}

func (s *requestService) ListOpen(ctx context.Context, zoneID int) ([]*models.OperationsRequest, error) {
	requests, err := s.requestRepo.ListOpenByZone(ctx, zoneID)
	if err != nil {
		return nil, storeError(fmt.Sprintf("failed to list open requests for zone %d", zoneID), err)
	}
	return requests, nil
}

func (s *requestService) Accept(ctx context.Context, requestID, responderID int) (*models.OperationsRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			metrics.RequestAccepts.WithLabelValues("not_found").Inc()
			return nil, ErrRequestNotFound
		}
		metrics.RequestAccepts.WithLabelValues("error").Inc()
		return nil, storeError(fmt.Sprintf("failed to get request %d", requestID), err)
	}

	if req.RequesterID == responderID {
		metrics.RequestAccepts.WithLabelValues("self").Inc()
		return nil, ErrSelfAccept
	}
	if req.Status != models.RequestStatusOpen {
		metrics.RequestAccepts.WithLabelValues("locked").Inc()
		return nil, ErrRequestAlreadyLocked
	}

	// Прочитанный статус мог устареть: решает условный UPDATE
	if err := s.requestRepo.Lock(ctx, requestID, responderID); err != nil {
		if errors.Is(err, repositories.ErrRequestAlreadyLocked) {
			metrics.RequestAccepts.WithLabelValues("locked").Inc()
			return nil, ErrRequestAlreadyLocked
		}
		metrics.RequestAccepts.WithLabelValues("error").Inc()
		return nil, storeError(fmt.Sprintf("failed to lock request %d", requestID), err)
	}
	metrics.RequestAccepts.WithLabelValues("ok").Inc()

	req.Status = models.RequestStatusLocked
	req.ResponderID = &responderID

	notifyAsync(ctx, s.notifier, s.logger, req.RequesterID, models.NotificationRequestTaken,
		"Your request was accepted",
		fmt.Sprintf("Someone answered your %s post for %s.", requestTypeLabel(req.Type), req.MatchTime.Format("02.01 15:04")))

	return req, nil
}

func requestTypeLabel(t models.RequestType) string {
	switch t {
	case models.RequestWantedJoker:
		return "wanted player"
	case models.RequestWantedRef:
		return "wanted referee"
	default:
		return "availability"
	}
}

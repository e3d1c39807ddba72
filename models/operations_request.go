package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type RequestType string

const (
	RequestWantedJoker  RequestType = "WANTED_JOKER"
	RequestWantedRef    RequestType = "WANTED_REF"
	RequestIAmAvailable RequestType = "I_AM_AVAILABLE"
)

func (t RequestType) Valid() bool {
	switch t {
	case RequestWantedJoker, RequestWantedRef, RequestIAmAvailable:
		return true
	}
	return false
}

type RequestStatus string

const (
	RequestStatusOpen   RequestStatus = "OPEN"
	RequestStatusLocked RequestStatus = "LOCKED"
)

var ErrInvalidRequestDetail = errors.New("invalid request detail")

// RequestDetail - полезная нагрузка объявления, своя для каждого типа.
type RequestDetail interface {
	Kind() RequestType
	Validate() error
}

// WantedJokerDetail - команде нужен игрок на замену.
type WantedJokerDetail struct {
	Position string `json:"position"`
	TeamName string `json:"team_name"`
	Note     string `json:"note,omitempty"`
}

func (WantedJokerDetail) Kind() RequestType { return RequestWantedJoker }

func (d WantedJokerDetail) Validate() error {
	if strings.TrimSpace(d.Position) == "" {
		return fmt.Errorf("%w: position is required", ErrInvalidRequestDetail)
	}
	return nil
}

// WantedRefDetail - матчу нужен судья.
type WantedRefDetail struct {
	TeamAName string `json:"team_a_name"`
	TeamBName string `json:"team_b_name"`
	Note      string `json:"note,omitempty"`
}

func (WantedRefDetail) Kind() RequestType { return RequestWantedRef }

func (d WantedRefDetail) Validate() error {
	if strings.TrimSpace(d.TeamAName) == "" || strings.TrimSpace(d.TeamBName) == "" {
		return fmt.Errorf("%w: both team names are required", ErrInvalidRequestDetail)
	}
	return nil
}

// AvailableDetail - игрок сообщает, что свободен.
type AvailableDetail struct {
	Positions []string `json:"positions,omitempty"`
	Note      string   `json:"note,omitempty"`
}

func (AvailableDetail) Kind() RequestType { return RequestIAmAvailable }

func (d AvailableDetail) Validate() error { return nil }

// DecodeRequestDetail разбирает JSON детали в вариант, соответствующий типу объявления.
func DecodeRequestDetail(t RequestType, raw json.RawMessage) (RequestDetail, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	var detail RequestDetail
	switch t {
	case RequestWantedJoker:
		var d WantedJokerDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequestDetail, err)
		}
		detail = d
	case RequestWantedRef:
		var d WantedRefDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequestDetail, err)
		}
		detail = d
	case RequestIAmAvailable:
		var d AvailableDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequestDetail, err)
		}
		detail = d
	default:
		return nil, fmt.Errorf("%w: unknown request type %q", ErrInvalidRequestDetail, t)
	}
	if err := detail.Validate(); err != nil {
		return nil, err
	}
	return detail, nil
}

type OperationsRequest struct {
	ID          int           `json:"id" db:"id"`
	RequesterID int           `json:"requester_id" db:"requester_id"`
	ZoneID      int           `json:"zone_id" db:"zone_id"`
	Type        RequestType   `json:"type" db:"type"`
	MatchTime   time.Time     `json:"match_time" db:"match_time"`
	Venue       string        `json:"venue" db:"venue"`
	Detail      RequestDetail `json:"detail" db:"detail"`
	Status      RequestStatus `json:"status" db:"status"`
	ResponderID *int          `json:"responder_id,omitempty" db:"responder_id"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

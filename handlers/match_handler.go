package handlers

import (
	"context"
	"net/http"

	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/services"
)

type MatchHandler struct {
	matchService     services.MatchService
	consensusService services.ConsensusService
}

func NewMatchHandler(ms services.MatchService, cs services.ConsensusService) *MatchHandler {
	return &MatchHandler{
		matchService:     ms,
		consensusService: cs,
	}
}

// ReportMatch - капитан команды A сообщает результат.
func (h *MatchHandler) ReportMatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.SubmitMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.CreatorID = userID

	result, err := h.matchService.Report(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{
		"match":    result.Match,
		"warnings": result.Warnings,
		"pending":  result.Pending,
	}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ConfirmMatch(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.consensusService.Confirm)
}

func (h *MatchHandler) RejectMatch(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.consensusService.Reject)
}

type decision func(ctx context.Context, matchID, verifierID int) (*models.Match, error)

func (h *MatchHandler) resolve(w http.ResponseWriter, r *http.Request, decide decision) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := decide(r.Context(), matchID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListVerifications(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	records, err := h.consensusService.History(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"verifications": records}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

package handlers

import (
	"net/http"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/service"
	"github.com/google/uuid"
)

type VoteHandler struct {
	voteService *service.VoteService
}

func NewVoteHandler(voteService *service.VoteService) *VoteHandler {
	return &VoteHandler{voteService: voteService}
}

type BallotRequest struct {
	TargetID string `json:"targetId"`
}

type BallotResponse struct {
	OK            bool                `json:"ok"`
	Weight        int                 `json:"weight"`
	BallotsCast   int                 `json:"ballotsCast"`
	BallotsNeeded int                 `json:"ballotsNeeded"`
	Outcome       *domain.VoteOutcome `json:"outcome,omitempty"`
}

func parseTarget(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req BallotRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return uuid.Nil, false
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		http.Error(w, "Invalid target ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return targetID, true
}

func ballotResponse(result *service.BallotResult) BallotResponse {
	return BallotResponse{
		OK:            true,
		Weight:        result.Weight,
		BallotsCast:   result.BallotsCast,
		BallotsNeeded: result.BallotsNeeded,
		Outcome:       result.Outcome,
	}
}

func (h *VoteHandler) Vote(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionForRoom(w, r)
	if !ok {
		return
	}
	targetID, ok := parseTarget(w, r)
	if !ok {
		return
	}

	result, err := h.voteService.CastVote(r.Context(), claims.RoomCode, claims.Nickname, targetID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ballotResponse(result))
}

func (h *VoteHandler) Accuse(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionForRoom(w, r)
	if !ok {
		return
	}
	targetID, ok := parseTarget(w, r)
	if !ok {
		return
	}

	result, err := h.voteService.CastAccusation(r.Context(), claims.RoomCode, claims.Nickname, targetID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ballotResponse(result))
}

// Resolve closes the vote. Calling it again returns the stored outcome.
func (h *VoteHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionForRoom(w, r)
	if !ok {
		return
	}

	outcome, err := h.voteService.Resolve(r.Context(), claims.RoomCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dom/outsider-party/internal/api/middleware"
	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

var badRequestErrors = []error{
	domain.ErrInvalidNickname,
	domain.ErrInvalidRoomCode,
	domain.ErrDrawingTooLarge,
	domain.ErrEmptyDrawing,
	domain.ErrNotEnoughPlayers,
	domain.ErrGameCannotContinue,
	domain.ErrGameOver,
	domain.ErrSettingsLocked,
	domain.ErrNoTieToRevote,
	domain.ErrRevotePending,
	domain.ErrVotingClosed,
	domain.ErrSelfVote,
	domain.ErrVoterEliminated,
	domain.ErrTargetNotEligible,
	domain.ErrBallotAlreadyCast,
	domain.ErrChameleonCannotAccuse,
	domain.ErrAccusationUsed,
	domain.ErrChameleonDisabled,
	domain.ErrSelfAccusation,
	domain.ErrBallotsPending,
}

var conflictErrors = []error{
	domain.ErrIllegalTransition,
	domain.ErrPlayersStillPresent,
	domain.ErrGameInProgress,
	domain.ErrDrawingsHidden,
}

var notFoundErrors = []error{
	service.ErrRoomNotFound,
	service.ErrPlayerNotFound,
	service.ErrRoundNotFound,
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotHost):
		return http.StatusForbidden
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case isAny(err, conflictErrors):
		return http.StatusConflict
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeError maps a service error to a status and a plain text body.
// Only unexpected failures are logged; their detail stays out of the body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Str("room", chi.URLParam(r, "code")).Msg("request failed")
		http.Error(w, "Internal server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func roomCode(r *http.Request) string {
	return domain.NormalizeRoomCode(chi.URLParam(r, "code"))
}

// sessionForRoom returns the caller's claims when their token belongs to
// the room in the URL.
func sessionForRoom(w http.ResponseWriter, r *http.Request) (*service.SessionClaims, bool) {
	claims, ok := middleware.GetSession(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	if !strings.EqualFold(claims.RoomCode, roomCode(r)) {
		http.Error(w, "Token is not valid for this room", http.StatusForbidden)
		return nil, false
	}
	return claims, true
}

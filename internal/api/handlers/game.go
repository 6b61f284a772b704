package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/service"
)

type GameHandler struct {
	gameService *service.GameService
}

func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

type StartGameRequest struct {
	Settings *domain.SettingsOverride `json:"settings,omitempty"`
}

type StartGameResponse struct {
	OK           bool                `json:"ok"`
	RoundNumber  int                 `json:"roundNumber"`
	TimerSeconds int                 `json:"timerSeconds"`
	Settings     domain.RoomSettings `json:"settings"`
}

type AdvanceRoundResponse struct {
	OK           bool       `json:"ok"`
	RoundNumber  int        `json:"roundNumber"`
	TimerSeconds int        `json:"timerSeconds"`
	DrawStartsAt *time.Time `json:"drawStartsAt,omitempty"`
}

type ReadyResponse struct {
	OK           bool       `json:"ok"`
	AllReady     bool       `json:"allReady"`
	DrawStartsAt *time.Time `json:"drawStartsAt,omitempty"`
}

type DrawStartRequest struct {
	StartsAt *time.Time `json:"startsAt,omitempty"`
}

type DrawStartResponse struct {
	DrawStartsAt time.Time `json:"drawStartsAt"`
}

type SubmitDrawingResponse struct {
	OK           bool `json:"ok"`
	AllSubmitted bool `json:"allSubmitted"`
}

type ResetResponse struct {
	OK    bool `json:"ok"`
	Reset bool `json:"reset"`
}

func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionForRoom(w, r)
	if !ok {
		return
	}

	var req StartGameRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.gameService.StartGame(r.Context(), service.StartGameInput{
		Code:        claims.RoomCode,
		RequestedBy: claims.Nickname,
		Settings:    req.Settings,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StartGameResponse{
		OK:           true,
		RoundNumber:  result.Round.Number,
		TimerSeconds: result.Round.TimerSeconds,
		Settings:     result.Settings,
	})
}

func (h *GameHandler) Advance(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionForRoom(w, r)
	if !ok {
		return
	}

	round, err := h.gameService.AdvanceRound(r.Context(), claims.RoomCode, claims.Nickname)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AdvanceRoundResponse{
		OK:           true,
		RoundNumber:  round.Number,
		TimerSeconds: round.TimerSeconds,
		DrawStartsAt: round.DrawStartsAt,
	})
}

func (h *GameHandler) Ready(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionForRoom(w, r)
	if !ok {
		return
	}

	result, err := h.gameService.MarkReady(r.Context(), claims.RoomCode, claims.Nickname)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReadyResponse{OK: true, AllReady: result.AllReady, DrawStartsAt: result.DrawStartsAt})
}

func (h *GameHandler) DrawStart(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionForRoom(w, r)
	if !ok {
		return
	}

	var req DrawStartRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	starts, err := h.gameService.SetDrawStart(r.Context(), claims.RoomCode, req.StartsAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DrawStartResponse{DrawStartsAt: starts})
}

// SubmitDrawing takes the raw image bytes as the request body.
func (h *GameHandler) SubmitDrawing(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionForRoom(w, r)
	if !ok {
		return
	}

	body := http.MaxBytesReader(w, r.Body, domain.MaxDrawingBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, domain.ErrDrawingTooLarge)
			return
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.gameService.SubmitDrawing(r.Context(), claims.RoomCode, claims.Nickname, r.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SubmitDrawingResponse{OK: true, AllSubmitted: result.AllSubmitted})
}

func (h *GameHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionForRoom(w, r)
	if !ok {
		return
	}

	if err := h.gameService.EnterReveal(r.Context(), claims.RoomCode); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *GameHandler) OpenVote(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionForRoom(w, r)
	if !ok {
		return
	}

	if err := h.gameService.OpenVote(r.Context(), claims.RoomCode, claims.Nickname); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *GameHandler) Reset(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionForRoom(w, r)
	if !ok {
		return
	}

	reset, err := h.gameService.ResetToLobby(r.Context(), claims.RoomCode, claims.Nickname)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResetResponse{OK: true, Reset: reset})
}

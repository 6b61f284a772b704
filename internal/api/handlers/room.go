package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/dom/outsider-party/internal/api/middleware"
	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/service"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

type RoomHandler struct {
	roomService *service.RoomService
	baseURL     string
}

func NewRoomHandler(roomService *service.RoomService, baseURL string) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		baseURL:     baseURL,
	}
}

type JoinRoomRequest struct {
	Nickname string `json:"nickname"`
}

type JoinRoomResponse struct {
	Code      string         `json:"code"`
	Token     string         `json:"token"`
	IsHost    bool           `json:"isHost"`
	IsNewRoom bool           `json:"isNewRoom"`
	JoinURL   string         `json:"joinUrl"`
	Player    *domain.Player `json:"player"`
	Room      *domain.Room   `json:"room"`
}

type LeaveRoomResponse struct {
	OK      bool   `json:"ok"`
	Cleaned bool   `json:"cleaned"`
	NewHost string `json:"newHost,omitempty"`
}

type ReturnToLobbyResponse struct {
	OK      bool `json:"ok"`
	Reset   bool `json:"reset"`
	Waiting int  `json:"waiting"`
}

type DrawingResponse struct {
	Nickname    string `json:"nickname"`
	ContentType string `json:"contentType"`
	DataURL     string `json:"dataUrl"`
}

func (h *RoomHandler) joinURL(code string) string {
	return h.baseURL + "/room/" + code
}

func (h *RoomHandler) joinResponse(result *service.JoinResult) JoinRoomResponse {
	return JoinRoomResponse{
		Code:      result.Room.Code,
		Token:     result.Token,
		IsHost:    result.Room.HostNickname == result.Player.Nickname,
		IsNewRoom: result.IsNewHost,
		JoinURL:   h.joinURL(result.Room.Code),
		Player:    result.Player,
		Room:      result.Room,
	}
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req JoinRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.roomService.CreateRoom(r.Context(), req.Nickname)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.joinResponse(result))
}

func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.roomService.Join(r.Context(), roomCode(r), req.Nickname)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.joinResponse(result))
}

func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionForRoom(w, r)
	if !ok {
		return
	}

	result, err := h.roomService.Leave(r.Context(), claims.RoomCode, claims.Nickname)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LeaveRoomResponse{OK: true, Cleaned: result.RoomDeleted, NewHost: result.NewHost})
}

// Cleanup removes an empty room. It needs no token: there is nobody left
// to hold one.
func (h *RoomHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	if err := h.roomService.CleanupRoom(r.Context(), roomCode(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *RoomHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionForRoom(w, r)
	if !ok {
		return
	}

	var req domain.SettingsOverride
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	room, err := h.roomService.UpdateSettings(r.Context(), claims.RoomCode, claims.Nickname, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room.Settings())
}

// State returns the room as the caller may see it. Without a token only
// public fields are filled in.
func (h *RoomHandler) State(w http.ResponseWriter, r *http.Request) {
	code := roomCode(r)
	snap, err := h.roomService.Snapshot(r.Context(), code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	viewer := ""
	if claims, ok := middleware.GetSession(r.Context()); ok && claims.RoomCode == code {
		viewer = claims.Nickname
	}
	writeJSON(w, http.StatusOK, snap.ViewFor(viewer))
}

func (h *RoomHandler) ReturnToLobby(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionForRoom(w, r)
	if !ok {
		return
	}

	result, err := h.roomService.ReturnToLobby(r.Context(), claims.RoomCode, claims.Nickname)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReturnToLobbyResponse{OK: true, Reset: result.Reset, Waiting: result.Waiting})
}

func (h *RoomHandler) Drawings(w http.ResponseWriter, r *http.Request) {
	if _, ok := sessionForRoom(w, r); !ok {
		return
	}

	drawings, err := h.roomService.Drawings(r.Context(), roomCode(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]DrawingResponse, 0, len(drawings))
	for _, d := range drawings {
		resp = append(resp, DrawingResponse{
			Nickname:    d.Nickname,
			ContentType: d.ContentType,
			DataURL:     "data:" + d.ContentType + ";base64," + base64.StdEncoding.EncodeToString(d.ImageData),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// QRCode renders the room's join link as a PNG.
func (h *RoomHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	code := roomCode(r)
	if _, err := h.roomService.GetRoom(r.Context(), code); err != nil {
		writeError(w, r, err)
		return
	}

	png, err := qrcode.Encode(h.joinURL(code), qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(png)
}

package handlers

import (
	"net/http"

	"github.com/dom/outsider-party/internal/service"
	"github.com/dom/outsider-party/internal/websocket"
	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog/hlog"
)

type WebSocketHandler struct {
	hub      *websocket.Hub
	sessions *service.SessionService
	upgrader ws.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, sessions *service.SessionService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		sessions: sessions,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on the upgrade request.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	claims, err := h.sessions.Validate(token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, claims.RoomCode, claims.Nickname)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

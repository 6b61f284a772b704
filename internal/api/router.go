package api

import (
	"net/http"
	"time"

	"github.com/dom/outsider-party/internal/api/handlers"
	"github.com/dom/outsider-party/internal/api/middleware"
	"github.com/dom/outsider-party/internal/config"
	"github.com/dom/outsider-party/internal/service"
	"github.com/dom/outsider-party/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

func NewRouter(services *service.Services, hub *websocket.Hub, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		level := zerolog.InfoLevel
		if status >= http.StatusInternalServerError {
			level = zerolog.ErrorLevel
		}
		hlog.FromRequest(r).WithLevel(level).
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Initialize handlers
	roomHandler := handlers.NewRoomHandler(services.Room, cfg.PublicBaseURL)
	gameHandler := handlers.NewGameHandler(services.Game)
	voteHandler := handlers.NewVoteHandler(services.Vote)
	wordHandler := handlers.NewWordHandler(services.Words)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Session, cfg.AllowedOrigins)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/themes", wordHandler.Themes)

		r.Route("/rooms", func(r chi.Router) {
			r.With(limiter.Handler).Post("/", roomHandler.Create)

			r.Route("/{code}", func(r chi.Router) {
				// Public room routes
				r.Group(func(r chi.Router) {
					r.Use(middleware.OptionalSession(services.Session))
					r.Get("/state", roomHandler.State)
					r.Get("/qr", roomHandler.QRCode)
				})
				r.Group(func(r chi.Router) {
					r.Use(limiter.Handler)
					r.Post("/join", roomHandler.Join)
					r.Post("/cleanup", roomHandler.Cleanup)
				})

				// Player routes
				r.Group(func(r chi.Router) {
					r.Use(middleware.Session(services.Session))
					r.Get("/drawings", roomHandler.Drawings)

					r.Group(func(r chi.Router) {
						r.Use(limiter.Handler)
						r.Post("/leave", roomHandler.Leave)
						r.Put("/settings", roomHandler.UpdateSettings)
						r.Post("/return-to-lobby", roomHandler.ReturnToLobby)

						// Round lifecycle
						r.Post("/start", gameHandler.Start)
						r.Post("/advance", gameHandler.Advance)
						r.Post("/ready", gameHandler.Ready)
						r.Post("/draw-start", gameHandler.DrawStart)
						r.Put("/drawing", gameHandler.SubmitDrawing)
						r.Post("/reveal", gameHandler.Reveal)
						r.Post("/vote/open", gameHandler.OpenVote)
						r.Post("/reset", gameHandler.Reset)

						// Voting
						r.Post("/votes", voteHandler.Vote)
						r.Post("/accusations", voteHandler.Accuse)
						r.Post("/resolve", voteHandler.Resolve)
					})
				})
			})
		})

		// WebSocket endpoint
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}

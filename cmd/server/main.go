package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/outsider-party/internal/api"
	"github.com/dom/outsider-party/internal/config"
	"github.com/dom/outsider-party/internal/jobs"
	"github.com/dom/outsider-party/internal/logger"
	"github.com/dom/outsider-party/internal/repository/postgres"
	"github.com/dom/outsider-party/internal/service"
	"github.com/dom/outsider-party/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Setup(cfg.LogLevel, cfg.IsDevelopment())

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Initialize repositories and services
	repos := postgres.NewRepositories(db)
	services := service.NewServices(repos, cfg)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	seeded, err := services.Words.SeedCatalog(seedCtx)
	seedCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed word catalog")
	}
	log.Info().Int("pairs", seeded).Msg("word catalog ready")

	// Initialize WebSocket hub, fed by Postgres notifications
	hub := websocket.NewHub(services.Room)
	go hub.Run()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener := postgres.NewListener(cfg.DatabaseURL)
	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		listener.Run(ctx, hub.Refresh)
	}()

	scheduler, err := jobs.NewScheduler(hub, services.Room, jobs.Options{
		ReconcileInterval: cfg.ReconcileInterval,
		SweepSchedule:     cfg.RoomSweepSchedule,
		EmptyRoomIdle:     cfg.EmptyRoomIdle,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to schedule jobs")
	}
	scheduler.Start()

	// Initialize router
	router := api.NewRouter(services, hub, cfg)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Str("environment", cfg.Environment).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	scheduler.Stop(shutdownCtx)
	<-listenerDone
	hub.Stop()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info().Msg("server stopped")
}

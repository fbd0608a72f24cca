// tourney/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matchgrid/tourney/internal/config"
	"github.com/matchgrid/tourney/internal/events"
	"github.com/matchgrid/tourney/internal/httpapi"
	"github.com/matchgrid/tourney/internal/progression"
	"github.com/matchgrid/tourney/internal/registry"
	"github.com/matchgrid/tourney/internal/signup"
	"github.com/matchgrid/tourney/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(2)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.Port), slog.String("database", cfg.DatabasePath))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := store.Open(ctx, cfg.DatabasePath)
	cancel()
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	logger.Info("database ready")

	locks := store.NewLockRegistry()
	tournamentStore := store.NewTournamentStore()
	participantStore := store.NewParticipantStore()
	matchStore := store.NewMatchStore()
	stationStore := store.NewStationStore()
	historyStore := store.NewHistoryStore()
	waitlistStore := store.NewWaitlistStore()

	bus := events.NewBus()
	hub := events.NewHub(bus, logger)

	tournamentRegistry := registry.NewTournamentRegistry(db, tournamentStore, bus, logger)
	participantRegistry := registry.NewParticipantRegistry(db, tournamentStore, participantStore, bus, logger)
	progressionService := progression.NewService(
		db, locks, tournamentStore, participantStore, matchStore, stationStore, historyStore, bus, logger,
		cfg.HistoryRetain,
	)
	signupService := signup.NewService(db, tournamentStore, participantStore, waitlistStore, bus, logger)

	router := httpapi.NewRouter(&httpapi.Handlers{
		Tournaments:  tournamentRegistry,
		Participants: participantRegistry,
		Progression:  progressionService,
		Signup:       signupService,
		Hub:          hub,
		Log:          logger,
		JWTSecret:    []byte(cfg.JWTSecret),
		CORSOrigins:  cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownWait := time.Duration(cfg.ShutdownWaitS) * time.Second
		ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("server exited")
}

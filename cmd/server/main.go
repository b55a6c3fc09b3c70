// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

// Command server runs the TasksManager backend: the HTTP API, the
// websocket hub, and the task event bus, all under a suture
// supervision tree.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/milascristina/TasksManager/internal/api"
	"github.com/milascristina/TasksManager/internal/auth"
	"github.com/milascristina/TasksManager/internal/config"
	"github.com/milascristina/TasksManager/internal/database"
	"github.com/milascristina/TasksManager/internal/events"
	"github.com/milascristina/TasksManager/internal/logging"
	"github.com/milascristina/TasksManager/internal/supervisor"
	"github.com/milascristina/TasksManager/internal/websocket"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Str("events_transport", cfg.Events.Transport).
		Msg("starting TasksManager")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("failed to close database")
		}
	}()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create JWT manager")
	}
	hasher := auth.NewPasswordHasher(cfg.Security.BcryptCost)
	authMW := auth.NewMiddleware(jwtManager)

	bus, err := events.NewBus(&cfg.Events)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create event bus")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("failed to close event bus")
		}
	}()

	hub := websocket.NewHub()
	forwarder := events.NewForwarder(bus, hub)

	handler := api.NewHandler(db, jwtManager, hasher, bus, hub, cfg)
	router := api.NewRouter(handler, authMW)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	tree.AddMessagingService(supervisor.NewHubService(hub))
	tree.AddMessagingService(forwarder)
	tree.AddAPIService(supervisor.NewHTTPService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("shutdown signal received")
		if err := <-errCh; err != nil && err != context.Canceled {
			logging.Error().Err(err).Msg("supervisor stopped with error")
		}
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			logging.Fatal().Err(err).Msg("supervisor exited unexpectedly")
		}
	}

	logging.Info().Msg("TasksManager stopped")
}

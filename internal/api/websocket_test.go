// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/milascristina/TasksManager/internal/auth"
	"github.com/milascristina/TasksManager/internal/config"
	"github.com/milascristina/TasksManager/internal/database"
	"github.com/milascristina/TasksManager/internal/events"
	"github.com/milascristina/TasksManager/internal/models"
	"github.com/milascristina/TasksManager/internal/websocket"
)

// newWSTestServer is like newTestServer but with the hub loop and the
// event forwarder running, so pushed events actually reach clients.
func newWSTestServer(t *testing.T) (*httptest.Server, *events.Bus) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Port: 3000, Environment: "development"},
		Database: config.DatabaseConfig{
			Path:      filepath.Join(t.TempDir(), "test.duckdb"),
			MaxMemory: "256MB",
			Threads:   2,
		},
		Security: config.SecurityConfig{
			JWTSecret:         "test_secret_key_with_at_least_32_characters",
			TokenLifetime:     time.Hour,
			BcryptCost:        4,
			RateLimitDisabled: true,
		},
		API:    config.APIConfig{DefaultPageSize: 10, MaxPageSize: 100},
		Events: config.EventsConfig{Transport: "gochannel"},
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("auth.NewJWTManager() error = %v", err)
	}

	bus, err := events.NewBus(&cfg.Events)
	if err != nil {
		t.Fatalf("events.NewBus() error = %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.RunWithContext(ctx) }()
	go func() { _ = events.NewForwarder(bus, hub).Serve(ctx) }()

	handler := NewHandler(db, jwtManager, auth.NewPasswordHasher(cfg.Security.BcryptCost), bus, hub, cfg)
	server := httptest.NewServer(NewRouter(handler, auth.NewMiddleware(jwtManager)))
	t.Cleanup(server.Close)
	return server, bus
}

func wsURL(server *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws?token=" + token
}

func TestWebSocketRequiresToken(t *testing.T) {
	server, _ := newWSTestServer(t)

	resp, err := http.Get(server.URL + "/api/ws")
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestWebSocketReceivesOwnEvents(t *testing.T) {
	server, _ := newWSTestServer(t)
	token := registerAndLogin(t, server, "alice")

	conn, _, err := gorilla.DefaultDialer.Dial(wsURL(server, token), nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer func() { _ = conn.Close() }()

	// Creating a task over HTTP must arrive as a taskCreated event.
	var created models.Task
	status := doJSON(t, http.MethodPost, server.URL+"/api/tasks", token, map[string]interface{}{
		"title": "notify me",
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d", status)
	}

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}

	var event struct {
		Event string      `json:"event"`
		Data  models.Task `json:"data"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}

	if event.Event != models.EventTaskCreated {
		t.Errorf("event = %q, want %q", event.Event, models.EventTaskCreated)
	}
	if event.Data.ID != created.ID {
		t.Errorf("event task id = %q, want %q", event.Data.ID, created.ID)
	}
}

func TestWebSocketHandshakeFailsWhenHubStopped(t *testing.T) {
	// newTestServer wires the hub without running its loop, so nothing
	// drains the Register channel.
	server := newTestServer(t)
	token := registerAndLogin(t, server, "alice")

	conn, _, err := gorilla.DefaultDialer.Dial(wsURL(server, token), nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer func() { _ = conn.Close() }()

	// The handler must give up and close the connection instead of
	// blocking forever on registration.
	if err := conn.SetReadDeadline(time.Now().Add(10 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection stayed open with no hub loop running")
	}
}

func TestWebSocketRoomIsolation(t *testing.T) {
	server, _ := newWSTestServer(t)
	aliceToken := registerAndLogin(t, server, "alice")
	bobToken := registerAndLogin(t, server, "bob")

	bobConn, _, err := gorilla.DefaultDialer.Dial(wsURL(server, bobToken), nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer func() { _ = bobConn.Close() }()

	// Alice's mutation must never reach bob's connection.
	status := doJSON(t, http.MethodPost, server.URL+"/api/tasks", aliceToken, map[string]interface{}{
		"title": "alice only",
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d", status)
	}

	if err := bobConn.SetReadDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	if _, _, err := bobConn.ReadMessage(); err == nil {
		t.Error("bob received an event for alice's task")
	}
}

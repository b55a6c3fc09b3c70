// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package api

import (
	"errors"
	"net/http"

	"github.com/milascristina/TasksManager/internal/auth"
	"github.com/milascristina/TasksManager/internal/config"
	"github.com/milascristina/TasksManager/internal/database"
	"github.com/milascristina/TasksManager/internal/events"
	"github.com/milascristina/TasksManager/internal/logging"
	"github.com/milascristina/TasksManager/internal/metrics"
	"github.com/milascristina/TasksManager/internal/websocket"
)

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	db     *database.DB
	jwt    *auth.JWTManager
	hasher *auth.PasswordHasher
	bus    *events.Bus
	hub    *websocket.Hub
	cfg    *config.Config
}

// NewHandler creates a handler with its dependencies.
func NewHandler(db *database.DB, jwt *auth.JWTManager, hasher *auth.PasswordHasher, bus *events.Bus, hub *websocket.Hub, cfg *config.Config) *Handler {
	return &Handler{
		db:     db,
		jwt:    jwt,
		hasher: hasher,
		bus:    bus,
		hub:    hub,
		cfg:    cfg,
	}
}

// registerResponse is the body returned on successful registration.
type registerResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Register handles POST /api/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		metrics.RecordAuthAttempt("register", false)
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		metrics.RecordAuthAttempt("register", false)
		writeInternalError(w, r, err, "failed to hash password")
		return
	}

	user, err := h.db.CreateUser(r.Context(), req.Username, hash)
	if err != nil {
		metrics.RecordAuthAttempt("register", false)
		if errors.Is(err, database.ErrDuplicateUsername) {
			writeMessage(w, http.StatusConflict, "Username already exists")
			return
		}
		writeInternalError(w, r, err, "failed to create user")
		return
	}

	metrics.RecordAuthAttempt("register", true)
	logging.Ctx(r.Context()).Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("user registered")

	writeJSON(w, http.StatusCreated, registerResponse{ID: user.ID, Username: user.Username})
}

// loginResponse is the body returned on successful login.
type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	UserID  int64  `json:"userId"`
}

// Login handles POST /api/login. Unknown usernames and wrong passwords
// produce the same 401 so the endpoint does not leak which usernames
// exist.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		metrics.RecordAuthAttempt("login", false)
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		metrics.RecordAuthAttempt("login", false)
		if errors.Is(err, database.ErrNotFound) {
			writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeInternalError(w, r, err, "failed to look up user")
		return
	}

	if err := h.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		metrics.RecordAuthAttempt("login", false)
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Username)
	if err != nil {
		metrics.RecordAuthAttempt("login", false)
		writeInternalError(w, r, err, "failed to sign token")
		return
	}

	metrics.RecordAuthAttempt("login", true)
	logging.Ctx(r.Context()).Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("user logged in")

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		Token:   token,
		UserID:  user.ID,
	})
}

// healthResponse is the body for GET /api/health.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health handles GET /api/health. Reports degraded with a 503 when the
// database does not respond to a ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok"}

	if err := h.db.Ping(r.Context()); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("health check database ping failed")
		resp.Status = "degraded"
		resp.Database = "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package api

import (
	"net/http"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/milascristina/TasksManager/internal/auth"
	"github.com/milascristina/TasksManager/internal/logging"
	"github.com/milascristina/TasksManager/internal/websocket"
)

// hubRegisterTimeout bounds the wait for the hub to accept a new
// client. The hub loop may be down while the supervisor restarts it;
// the handshake must fail instead of parking the handler forever.
const hubRegisterTimeout = 2 * time.Second

// WebSocket handles GET /api/ws. Authentication happens before the
// upgrade via the standard middleware; browser clients pass the token
// as a query parameter since they cannot set headers on a handshake.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "No token provided")
		return
	}

	upgrader := gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, claims.UserID)

	select {
	case h.hub.Register <- client:
	case <-r.Context().Done():
		_ = conn.Close()
		return
	case <-time.After(hubRegisterTimeout):
		logging.Ctx(r.Context()).Warn().
			Int64("user_id", claims.UserID).
			Msg("hub not accepting clients, dropping websocket connection")
		_ = conn.Close()
		return
	}

	client.Start()

	logging.Ctx(r.Context()).Info().
		Int64("user_id", claims.UserID).
		Msg("websocket client connected")
}

// checkOrigin validates the Origin header against the configured CORS
// origins. Requests without an Origin header (non-browser clients) are
// always allowed.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

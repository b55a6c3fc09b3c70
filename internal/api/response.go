// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

// Package api exposes the HTTP surface: registration, login, task CRUD,
// and the websocket upgrade endpoint.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/milascristina/TasksManager/internal/logging"
)

// messageResponse is the body shape for every error and for plain
// acknowledgements. Clients only ever need the message string.
type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON writes data as JSON with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeMessage writes a {"message": ...} body with the given status code.
func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, messageResponse{Message: message})
}

// writeInternalError logs err and writes a generic 500. The concrete
// error never reaches the client.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	logging.Ctx(r.Context()).Error().Err(err).Msg(msg)
	writeMessage(w, http.StatusInternalServerError, "Internal server error")
}

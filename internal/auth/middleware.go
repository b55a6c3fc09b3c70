// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/milascristina/TasksManager/internal/logging"
)

type contextKey string

// ClaimsContextKey carries the validated *Claims through the request
// context once Authenticate has run.
const ClaimsContextKey contextKey = "claims"

var (
	// ErrMissingToken means no token was presented at all (401).
	ErrMissingToken = errors.New("missing token")

	// ErrInvalidToken means a token was presented but failed
	// validation, including expiry (403).
	ErrInvalidToken = errors.New("invalid token")
)

// Middleware enforces JWT authentication on protected routes.
type Middleware struct {
	jwtManager *JWTManager
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(jwtManager *JWTManager) *Middleware {
	return &Middleware{jwtManager: jwtManager}
}

// Authenticate validates the request token and stores the claims in the
// request context. A missing token yields 401; a present but invalid or
// expired token yields 403.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := ExtractToken(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "No token provided")
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("token validation failed")
			writeAuthError(w, http.StatusForbidden, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext retrieves the validated claims stored by
// Authenticate. The boolean is false on unauthenticated requests.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok
}

// ExtractToken pulls the access token from a request, checking the
// Authorization header first, then the "token" cookie, then the "token"
// query parameter. The query parameter exists for WebSocket handshakes,
// where browsers cannot set custom headers.
func ExtractToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", fmt.Errorf("%w: invalid authorization header", ErrMissingToken)
		}
		return parts[1], nil
	}

	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}

	return "", ErrMissingToken
}

// writeAuthError writes the {message} error body used across the API.
func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

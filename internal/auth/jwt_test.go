// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package auth

import (
	"testing"
	"time"

	"github.com/milascristina/TasksManager/internal/config"
)

const testSecret = "this_is_a_very_long_secret_key_with_32_plus_characters"

func TestNewJWTManager(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.SecurityConfig
		wantErr bool
	}{
		{
			name: "valid secret",
			cfg: &config.SecurityConfig{
				JWTSecret:     testSecret,
				TokenLifetime: 24 * time.Hour,
			},
			wantErr: false,
		},
		{
			name: "empty secret",
			cfg: &config.SecurityConfig{
				JWTSecret:     "",
				TokenLifetime: 24 * time.Hour,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := NewJWTManager(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("NewJWTManager() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("NewJWTManager() unexpected error = %v", err)
				return
			}
			if manager == nil {
				t.Error("NewJWTManager() returned nil manager")
			}
		})
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	manager, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:     testSecret,
		TokenLifetime: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	tests := []struct {
		name     string
		userID   int64
		username string
	}{
		{name: "basic user", userID: 1, username: "alice"},
		{name: "large id", userID: 9007199254740993, username: "bob"},
		{name: "unicode username", userID: 3, username: "čríştina"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := manager.GenerateToken(tt.userID, tt.username)
			if err != nil {
				t.Fatalf("GenerateToken() error = %v", err)
			}
			if token == "" {
				t.Fatal("GenerateToken() returned empty token")
			}

			claims, err := manager.ValidateToken(token)
			if err != nil {
				t.Fatalf("ValidateToken() error = %v", err)
			}
			if claims.UserID != tt.userID {
				t.Errorf("UserID = %d, want %d", claims.UserID, tt.userID)
			}
			if claims.Username != tt.username {
				t.Errorf("Username = %q, want %q", claims.Username, tt.username)
			}
		})
	}
}

func TestValidateTokenRejects(t *testing.T) {
	manager, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:     testSecret,
		TokenLifetime: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	otherManager, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:     "a_completely_different_secret_key_also_32_plus_chars",
		TokenLifetime: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	expiredManager, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:     testSecret,
		TokenLifetime: -time.Minute,
	})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	wrongSecretToken, err := otherManager.GenerateToken(1, "alice")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	expiredToken, err := expiredManager.GenerateToken(1, "alice")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not.a.token"},
		{name: "empty", token: ""},
		{name: "wrong secret", token: wrongSecretToken},
		{name: "expired", token: expiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := manager.ValidateToken(tt.token); err == nil {
				t.Error("ValidateToken() expected error, got nil")
			}
		})
	}
}

func TestTokenLifetime(t *testing.T) {
	manager, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:     testSecret,
		TokenLifetime: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	token, err := manager.GenerateToken(1, "alice")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}

	lifetime := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time)
	if lifetime != 24*time.Hour {
		t.Errorf("token lifetime = %v, want 24h", lifetime)
	}
}

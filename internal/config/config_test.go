// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 3000, Host: "0.0.0.0", Environment: "development"},
		Database: DatabaseConfig{
			Path:      "/tmp/test.duckdb",
			MaxMemory: "256MB",
		},
		Security: SecurityConfig{
			JWTSecret:     "a_sufficiently_long_secret_key_1234567890",
			TokenLifetime: 24 * time.Hour,
			BcryptCost:    10,
		},
		API:    APIConfig{DefaultPageSize: 10, MaxPageSize: 100},
		Events: EventsConfig{Transport: "gochannel"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "nats transport", mutate: func(c *Config) { c.Events.Transport = "nats" }},
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "port too high", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "missing secret", mutate: func(c *Config) { c.Security.JWTSecret = "" }, wantErr: true},
		{name: "short secret", mutate: func(c *Config) { c.Security.JWTSecret = "short" }, wantErr: true},
		{name: "zero lifetime", mutate: func(c *Config) { c.Security.TokenLifetime = 0 }, wantErr: true},
		{name: "bcrypt cost too low", mutate: func(c *Config) { c.Security.BcryptCost = 3 }, wantErr: true},
		{name: "bcrypt cost too high", mutate: func(c *Config) { c.Security.BcryptCost = 32 }, wantErr: true},
		{name: "zero page size", mutate: func(c *Config) { c.API.DefaultPageSize = 0 }, wantErr: true},
		{name: "max below default", mutate: func(c *Config) { c.API.MaxPageSize = 5 }, wantErr: true},
		{name: "unknown transport", mutate: func(c *Config) { c.Events.Transport = "kafka" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	cfg := validConfig()
	if cfg.IsProduction() {
		t.Error("development config reports production")
	}
	cfg.Server.Environment = "production"
	if !cfg.IsProduction() {
		t.Error("production config not detected")
	}
}

func TestLoadWithKoanfDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "a_sufficiently_long_secret_key_1234567890")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("default port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Security.TokenLifetime != 24*time.Hour {
		t.Errorf("default token lifetime = %v, want 24h", cfg.Security.TokenLifetime)
	}
	if cfg.Security.BcryptCost != 10 {
		t.Errorf("default bcrypt cost = %d, want 10", cfg.Security.BcryptCost)
	}
	if cfg.Events.Transport != "gochannel" {
		t.Errorf("default transport = %q, want gochannel", cfg.Events.Transport)
	}
}

func TestLoadWithKoanfEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "a_sufficiently_long_secret_key_1234567890")
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080 from env", cfg.Server.Port)
	}
	if cfg.Security.BcryptCost != 12 {
		t.Errorf("bcrypt cost = %d, want 12 from env", cfg.Security.BcryptCost)
	}
	if len(cfg.Security.CORSOrigins) != 2 {
		t.Errorf("CORS origins = %v, want two entries", cfg.Security.CORSOrigins)
	}
}

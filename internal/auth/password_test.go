// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndCompare(t *testing.T) {
	// Minimum cost keeps the test fast; production cost comes from config.
	hasher := NewPasswordHasher(4)

	tests := []struct {
		name     string
		password string
	}{
		{name: "simple", password: "secret123"},
		{name: "unicode", password: "pässwörd-日本語"},
		{name: "spaces", password: "correct horse battery staple"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if hash == tt.password {
				t.Fatal("Hash() returned the plaintext password")
			}
			if !strings.HasPrefix(hash, "$2") {
				t.Errorf("Hash() = %q, want bcrypt format", hash)
			}

			if err := hasher.Compare(hash, tt.password); err != nil {
				t.Errorf("Compare() with correct password error = %v", err)
			}

			err = hasher.Compare(hash, tt.password+"x")
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Compare() with wrong password error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestHashIsSalted(t *testing.T) {
	hasher := NewPasswordHasher(4)

	first, err := hasher.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	second, err := hasher.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if first == second {
		t.Error("two hashes of the same password are identical, salt missing")
	}
}

func TestCompareMalformedHash(t *testing.T) {
	hasher := NewPasswordHasher(4)

	if err := hasher.Compare("not-a-bcrypt-hash", "secret123"); err == nil {
		t.Error("Compare() with malformed hash expected error, got nil")
	}
}

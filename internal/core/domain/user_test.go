package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{in: "USER", want: RoleUser, wantOK: true},
		{in: "admin", want: RoleAdmin, wantOK: true},
		{in: " Admin ", want: RoleAdmin, wantOK: true},
		{in: "root", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseRole(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestUser_WithPasswordHashReturnsCopy(t *testing.T) {
	u := User{Login: "alice", PasswordHash: "old", Role: RoleUser}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	updated := u.WithPasswordHash("new", at)

	if u.PasswordHash != "old" {
		t.Errorf("original mutated: %q", u.PasswordHash)
	}
	if updated.PasswordHash != "new" || !updated.UpdatedAt.Equal(at) {
		t.Errorf("unexpected updated user: %+v", updated)
	}
}

func TestUser_Sanitized(t *testing.T) {
	u := User{Login: "admin", PasswordHash: "hash", Role: RoleAdmin}
	s := u.Sanitized()
	if s.PasswordHash != "" {
		t.Error("expected hash to be stripped")
	}
	if !s.IsAdmin() {
		t.Error("expected role to survive sanitizing")
	}
}

func TestStorageError_MatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("load user: %w", NewStorageError("find user", cause))

	if !errors.Is(err, ErrStorage) {
		t.Error("expected errors.Is(err, ErrStorage)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the cause to be reachable")
	}
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "find user" {
		t.Errorf("expected StorageError with op, got %v", err)
	}
	if NewStorageError("noop", nil) != nil {
		t.Error("nil cause must yield nil")
	}
}

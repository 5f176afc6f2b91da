// Package creds provides the current-user accessor the sync engine
// consumes. Authentication itself happens elsewhere; the engine only
// needs an id, or its absence.
package creds

import (
	"encoding/json"
	"fmt"
	"os"
)

// CurrentUser resolves the id of the signed-in user. An empty id means
// no user is authenticated.
type CurrentUser interface {
	ID() string
}

// TokenInfo is the persisted authentication record.
type TokenInfo struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// LoadToken reads the token file.
func LoadToken(path string) (*TokenInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var info TokenInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &info, nil
}

// SaveToken writes the token file with owner-only permissions.
func SaveToken(path string, info *TokenInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// FileUser resolves the user id from the token file on each call, so a
// login or logout takes effect without restarting the engine.
type FileUser struct {
	path string
}

// NewFileUser creates a token-file-backed accessor.
func NewFileUser(path string) *FileUser {
	return &FileUser{path: path}
}

func (u *FileUser) ID() string {
	info, err := LoadToken(u.path)
	if err != nil {
		return ""
	}
	return info.UserID
}

// StaticUser is a fixed-id accessor, for tests.
type StaticUser string

func (u StaticUser) ID() string { return string(u) }

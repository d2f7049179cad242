// Package session owns the bearer token and user identity for the current
// sign-in. The session is persisted to a small JSON file so it survives
// restarts, and is passed explicitly to whoever needs it rather than read
// from package state.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSession = errors.New("no active session")

type Session struct {
	mu     sync.RWMutex
	path   string
	token  string
	userID string
}

type fileData struct {
	AuthToken string `json:"auth_token"`
	UserID    string `json:"user_id"`
}

// Load reads a persisted session from path. A missing file yields an empty,
// unauthenticated session rather than an error.
func Load(path string) (*Session, error) {
	s := &Session{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	var stored fileData
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	s.token = stored.AuthToken
	s.userID = stored.UserID
	return s, nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Set records a new token and user id and persists them.
func (s *Session) Set(token, userID string) error {
	s.mu.Lock()
	s.token = token
	s.userID = userID
	s.mu.Unlock()
	return s.save()
}

// Clear forgets the session and removes the persisted file. Clearing an
// already empty session is a no-op.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.userID = ""
	path := s.path
	s.mu.Unlock()

	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ExpiresAt reads the exp claim from the token without verifying the
// signature. The token is otherwise treated as opaque; verification is the
// backend's job.
func (s *Session) ExpiresAt() (time.Time, error) {
	token := s.Token()
	if token == "" {
		return time.Time{}, ErrNoSession
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("token has no expiry")
	}
	return exp.Time, nil
}

func (s *Session) save() error {
	s.mu.RLock()
	stored := fileData{AuthToken: s.token, UserID: s.userID}
	path := s.path
	s.mu.RUnlock()

	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

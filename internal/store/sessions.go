package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cofound/internal/types"
)

// =============================================================================
// SESSIONS (verified identity bindings)
// =============================================================================

// CreateSession binds an opaque token to a profile. The login flow that
// produces the token lives outside this service; we only store the binding.
func (s *Store) CreateSession(token, profileID string, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		return types.Validationf("token", "required")
	}
	_, err := s.db.Exec(
		"INSERT INTO sessions (token, profile_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		token, profileID, time.Now().UTC(), expiresAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("session token already exists: %w", types.ErrConflict)
	}
	return err
}

// SessionProfileID resolves a session token to a profile id. Expired or
// unknown tokens resolve to ErrNotFound.
func (s *Store) SessionProfileID(token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var profileID string
	var expires sql.NullTime
	err := s.db.QueryRow(
		"SELECT profile_id, expires_at FROM sessions WHERE token = ?", token,
	).Scan(&profileID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("session: %w", types.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	if expires.Valid && expires.Time.Before(time.Now()) {
		return "", fmt.Errorf("session expired: %w", types.ErrNotFound)
	}
	return profileID, nil
}

// DeleteSession removes a session binding. Missing tokens are not an error.
func (s *Store) DeleteSession(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cofound/internal/logging"
	"cofound/internal/types"

	"github.com/google/uuid"
)

// =============================================================================
// MATCHES (connection requests)
// =============================================================================

// pairKey normalizes a profile pair so that A->B and B->A share one key.
func pairKey(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}

const matchColumns = "id, initiator_id, receiver_id, status, message, created_at, responded_at"

// CreateMatch inserts a connection request. The duplicate-pending check and
// the insert run in one transaction; the partial unique index on
// (pair_key WHERE pending) backs it up against anything that slips past.
func (s *Store) CreateMatch(m *types.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Status = types.MatchPending
	m.CreatedAt = time.Now().UTC()
	m.RespondedAt = nil

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	key := pairKey(m.InitiatorID, m.ReceiverID)

	var pending int
	if err := tx.QueryRow(
		"SELECT COUNT(*) FROM matches WHERE pair_key = ? AND status = 'pending'", key,
	).Scan(&pending); err != nil {
		return err
	}
	if pending > 0 {
		return fmt.Errorf("pending match already exists for pair: %w", types.ErrConflict)
	}

	_, err = tx.Exec(
		`INSERT INTO matches (id, initiator_id, receiver_id, pair_key, status, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.InitiatorID, m.ReceiverID, key, string(m.Status), m.Message, m.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("pending match already exists for pair: %w", types.ErrConflict)
	}
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logging.StoreDebug("Match created: %s -> %s", m.InitiatorID, m.ReceiverID)
	return nil
}

func scanMatch(row interface{ Scan(...interface{}) error }) (*types.Match, error) {
	var m types.Match
	var status string
	var responded sql.NullTime
	if err := row.Scan(&m.ID, &m.InitiatorID, &m.ReceiverID, &status,
		&m.Message, &m.CreatedAt, &responded); err != nil {
		return nil, err
	}
	m.Status = types.MatchStatus(status)
	if responded.Valid {
		m.RespondedAt = &responded.Time
	}
	return &m, nil
}

// GetMatch fetches a match by id.
func (s *Store) GetMatch(id string) (*types.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT "+matchColumns+" FROM matches WHERE id = ?", id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", id, types.ErrNotFound)
	}
	return m, err
}

// ListMatchesForProfile returns every match touching the profile, newest
// first, in either direction and any status.
func (s *Store) ListMatchesForProfile(profileID string) ([]types.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT `+matchColumns+` FROM matches
		 WHERE initiator_id = ? OR receiver_id = ?
		 ORDER BY created_at DESC`,
		profileID, profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// ConnectedProfileIDs returns the set of profiles already connected to the
// given profile: any match row in either direction, any status. The matching
// pipeline excludes these from candidates.
func (s *Store) ConnectedProfileIDs(profileID string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT initiator_id, receiver_id FROM matches WHERE initiator_id = ? OR receiver_id = ?",
		profileID, profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	connected := make(map[string]bool)
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return nil, err
		}
		if a != profileID {
			connected[a] = true
		}
		if b != profileID {
			connected[b] = true
		}
	}
	return connected, rows.Err()
}

// RespondMatch transitions a pending match to accepted or rejected. Only the
// receiver may respond; responded_at is written exactly once, here.
func (s *Store) RespondMatch(matchID, responderID string, accept bool) (*types.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRow("SELECT "+matchColumns+" FROM matches WHERE id = ?", matchID)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", matchID, types.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if m.ReceiverID != responderID {
		return nil, fmt.Errorf("only the receiver may respond: %w", types.ErrPermissionDenied)
	}
	if m.Status != types.MatchPending {
		return nil, fmt.Errorf("match already %s: %w", m.Status, types.ErrConflict)
	}

	now := time.Now().UTC()
	status := types.MatchRejected
	if accept {
		status = types.MatchAccepted
	}

	if _, err := tx.Exec(
		"UPDATE matches SET status = ?, responded_at = ? WHERE id = ? AND status = 'pending'",
		string(status), now, matchID,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	m.Status = status
	m.RespondedAt = &now
	logging.StoreDebug("Match %s responded: %s", matchID, status)
	return m, nil
}

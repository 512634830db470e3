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
// PROFILES
// =============================================================================

// CreateProfile inserts a new profile. The id and timestamps are assigned
// here when unset. A second profile for the same subject is a conflict.
func (s *Store) CreateProfile(p *types.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	logging.StoreDebug("Creating profile: id=%s role=%s", p.ID, p.Role)

	_, err := s.db.Exec(
		`INSERT INTO profiles (id, subject, name, role, tagline, location, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Subject, p.Name, string(p.Role), p.Tagline, p.Location,
		marshalStrings(p.Tags), p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("profile for subject already exists: %w", types.ErrConflict)
	}
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to create profile %s: %v", p.ID, err)
		return err
	}
	return nil
}

func scanProfile(row interface{ Scan(...interface{}) error }) (*types.Profile, error) {
	var p types.Profile
	var role, tags string
	if err := row.Scan(&p.ID, &p.Subject, &p.Name, &role, &p.Tagline, &p.Location,
		&tags, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Role = types.Role(role)
	p.Tags = unmarshalStrings(tags)
	return &p, nil
}

const profileColumns = "id, subject, name, role, tagline, location, tags, created_at, updated_at"

// GetProfile fetches a profile by id.
func (s *Store) GetProfile(id string) (*types.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT "+profileColumns+" FROM profiles WHERE id = ?", id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, types.ErrNotFound)
	}
	return p, err
}

// GetProfileBySubject fetches the profile bound to an identity subject.
func (s *Store) GetProfileBySubject(subject string) (*types.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT "+profileColumns+" FROM profiles WHERE subject = ?", subject)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile for subject: %w", types.ErrNotFound)
	}
	return p, err
}

// ProfileFilter narrows ListProfiles.
type ProfileFilter struct {
	Role     types.Role // Empty means any
	Location string     // Exact match when set
}

// ListProfiles returns profiles matching the filter, newest first.
func (s *Store) ListProfiles(f ProfileFilter) ([]types.Profile, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ListProfiles")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + profileColumns + " FROM profiles WHERE 1=1"
	var args []interface{}
	if f.Role != "" {
		query += " AND role = ?"
		args = append(args, string(f.Role))
	}
	if f.Location != "" {
		query += " AND location = ?"
		args = append(args, f.Location)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdateProfile writes the mutable profile fields and bumps updated_at.
// The subject binding is immutable.
func (s *Store) UpdateProfile(p *types.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()

	res, err := s.db.Exec(
		`UPDATE profiles SET name = ?, role = ?, tagline = ?, location = ?, tags = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, string(p.Role), p.Tagline, p.Location, marshalStrings(p.Tags), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("profile %s: %w", p.ID, types.ErrNotFound)
	}
	return nil
}

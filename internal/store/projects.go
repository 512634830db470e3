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
// PROJECTS & MEMBERSHIPS
// =============================================================================

const projectColumns = "id, owner_id, name, description, stage, funding_goal, desired_roles, created_at, updated_at"

// CreateProject inserts a new project owned by a builder profile.
func (s *Store) CreateProject(p *types.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	logging.StoreDebug("Creating project: id=%s owner=%s", p.ID, p.OwnerID)

	_, err := s.db.Exec(
		`INSERT INTO projects (id, owner_id, name, description, stage, funding_goal, desired_roles, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Name, p.Description, p.Stage, p.FundingGoal,
		marshalStrings(p.DesiredRoles), p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func scanProject(row interface{ Scan(...interface{}) error }) (*types.Project, error) {
	var p types.Project
	var roles string
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Stage,
		&p.FundingGoal, &roles, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.DesiredRoles = unmarshalStrings(roles)
	return &p, nil
}

// GetProject fetches a project by id.
func (s *Store) GetProject(id string) (*types.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, types.ErrNotFound)
	}
	return p, err
}

// ListProjects returns projects, optionally restricted to one owner,
// newest first.
func (s *Store) ListProjects(ownerID string) ([]types.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + projectColumns + " FROM projects"
	var args []interface{}
	if ownerID != "" {
		query += " WHERE owner_id = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListProjectsForProfile returns projects the profile owns or is a member of.
// Used to assemble the requester context for the suggestion prompt.
func (s *Store) ListProjectsForProfile(profileID string) ([]types.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT `+projectColumns+` FROM projects
		 WHERE owner_id = ?
		    OR id IN (SELECT project_id FROM project_members WHERE profile_id = ?)
		 ORDER BY created_at DESC`,
		profileID, profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdateProject writes the mutable project fields. Ownership never changes.
func (s *Store) UpdateProject(p *types.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()

	res, err := s.db.Exec(
		`UPDATE projects SET name = ?, description = ?, stage = ?, funding_goal = ?,
		        desired_roles = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Description, p.Stage, p.FundingGoal,
		marshalStrings(p.DesiredRoles), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("project %s: %w", p.ID, types.ErrNotFound)
	}
	return nil
}

const memberColumns = "id, project_id, profile_id, role, compensation_amount, equity_percent, has_access, joined_at"

// AddMember inserts a membership row. A profile can join a project once.
func (s *Store) AddMember(m *types.ProjectMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO project_members (id, project_id, profile_id, role, compensation_amount, equity_percent, has_access, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, m.ProfileID, string(m.Role),
		m.CompensationAmount, m.EquityPercent, m.HasAccess, m.JoinedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("profile already a member of project: %w", types.ErrConflict)
	}
	return err
}

func scanMember(row interface{ Scan(...interface{}) error }) (*types.ProjectMember, error) {
	var m types.ProjectMember
	var role string
	var amount, equity sql.NullFloat64
	if err := row.Scan(&m.ID, &m.ProjectID, &m.ProfileID, &role,
		&amount, &equity, &m.HasAccess, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.Role = types.Role(role)
	if amount.Valid {
		m.CompensationAmount = &amount.Float64
	}
	if equity.Valid {
		m.EquityPercent = &equity.Float64
	}
	return &m, nil
}

// ListMembers returns all membership rows for a project.
func (s *Store) ListMembers(projectID string) ([]types.ProjectMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT "+memberColumns+" FROM project_members WHERE project_id = ? ORDER BY joined_at",
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ProjectMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// GetMember returns the membership row binding a profile to a project.
func (s *Store) GetMember(projectID, profileID string) (*types.ProjectMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		"SELECT "+memberColumns+" FROM project_members WHERE project_id = ? AND profile_id = ?",
		projectID, profileID,
	)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("membership: %w", types.ErrNotFound)
	}
	return m, err
}

// SetMemberAccess flips the dashboard-visibility flag on one membership row.
// In-place update, no cascades. Caller authorization happens above the store.
func (s *Store) SetMemberAccess(projectID, profileID string, hasAccess bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"UPDATE project_members SET has_access = ? WHERE project_id = ? AND profile_id = ?",
		hasAccess, projectID, profileID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("membership: %w", types.ErrNotFound)
	}
	logging.StoreDebug("Member access set: project=%s profile=%s access=%v", projectID, profileID, hasAccess)
	return nil
}

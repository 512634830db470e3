package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cofound/internal/types"

	"github.com/google/uuid"
)

// =============================================================================
// PROJECT SUB-RESOURCES: tasks, contributions, repositories, documents
// =============================================================================

const taskColumns = "id, project_id, title, description, status, assignee_id, due_date, created_at, updated_at"

// CreateTask inserts a task under a project.
func (s *Store) CreateTask(t *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = types.TaskTodo
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.Exec(
		`INSERT INTO tasks (id, project_id, title, description, status, assignee_id, due_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Title, t.Description, string(t.Status), t.AssigneeID,
		t.DueDate, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func scanTask(row interface{ Scan(...interface{}) error }) (*types.Task, error) {
	var t types.Task
	var status string
	var due sql.NullTime
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &status,
		&t.AssigneeID, &due, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = types.TaskStatus(status)
	if due.Valid {
		t.DueDate = &due.Time
	}
	return &t, nil
}

// GetTask fetches a task by id.
func (s *Store) GetTask(id string) (*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	return t, err
}

// ListTasks returns tasks for a project. When assigneeID is non-empty the
// result is restricted to tasks assigned to that profile (the limited-member
// view — this filter runs here, at the storage boundary, not in a client).
func (s *Store) ListTasks(projectID, assigneeID string) ([]types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + taskColumns + " FROM tasks WHERE project_id = ?"
	args := []interface{}{projectID}
	if assigneeID != "" {
		query += " AND assignee_id = ?"
		args = append(args, assigneeID)
	}
	query += " ORDER BY created_at"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateTask writes the mutable task fields and bumps updated_at.
func (s *Store) UpdateTask(t *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := t.Validate(); err != nil {
		return err
	}
	t.UpdatedAt = time.Now().UTC()

	res, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, status = ?, assignee_id = ?, due_date = ?, updated_at = ?
		 WHERE id = ?`,
		t.Title, t.Description, string(t.Status), t.AssigneeID, t.DueDate, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("task %s: %w", t.ID, types.ErrNotFound)
	}
	return nil
}

// CreateContribution records credited work on a project.
func (s *Store) CreateContribution(c *types.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO contributions (id, project_id, profile_id, description, value_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.ProfileID, c.Description, c.ValueScore, c.CreatedAt,
	)
	return err
}

// ListContributions returns contributions for a project, oldest first.
func (s *Store) ListContributions(projectID string) ([]types.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, project_id, profile_id, description, value_score, created_at
		 FROM contributions WHERE project_id = ? ORDER BY created_at`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Contribution
	for rows.Next() {
		var c types.Contribution
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.ProfileID, &c.Description,
			&c.ValueScore, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ContributionShares aggregates per-contributor value into percentages of the
// project total. Returns an empty slice when the project has no scored work.
func (s *Store) ContributionShares(projectID string) ([]types.ContributionShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT profile_id, SUM(value_score) AS total
		 FROM contributions WHERE project_id = ?
		 GROUP BY profile_id ORDER BY total DESC`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shares := []types.ContributionShare{}
	var grand float64
	for rows.Next() {
		var sh types.ContributionShare
		if err := rows.Scan(&sh.ProfileID, &sh.Total); err != nil {
			return nil, err
		}
		grand += sh.Total
		shares = append(shares, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if grand > 0 {
		for i := range shares {
			shares[i].Percent = shares[i].Total / grand * 100
		}
	}
	return shares, nil
}

// CreateRepository links a source repository to a project.
func (s *Store) CreateRepository(r *types.CodeRepository) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := r.Validate(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(
		"INSERT INTO code_repositories (id, project_id, name, url, created_at) VALUES (?, ?, ?, ?, ?)",
		r.ID, r.ProjectID, r.Name, r.URL, r.CreatedAt,
	)
	return err
}

// ListRepositories returns a project's linked repositories.
func (s *Store) ListRepositories(projectID string) ([]types.CodeRepository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, project_id, name, url, created_at FROM code_repositories WHERE project_id = ? ORDER BY created_at",
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.CodeRepository
	for rows.Next() {
		var r types.CodeRepository
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Name, &r.URL, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateDocument attaches a document to a project.
func (s *Store) CreateDocument(d *types.ProjectDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := d.Validate(); err != nil {
		return err
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := s.db.Exec(
		"INSERT INTO project_documents (id, project_id, title, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		d.ID, d.ProjectID, d.Title, d.Content, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

// GetDocument fetches a document by id.
func (s *Store) GetDocument(id string) (*types.ProjectDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		"SELECT id, project_id, title, content, created_at, updated_at FROM project_documents WHERE id = ?", id)
	var d types.ProjectDocument
	err := row.Scan(&d.ID, &d.ProjectID, &d.Title, &d.Content, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDocuments returns a project's documents.
func (s *Store) ListDocuments(projectID string) ([]types.ProjectDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, project_id, title, content, created_at, updated_at FROM project_documents WHERE project_id = ? ORDER BY created_at",
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ProjectDocument
	for rows.Next() {
		var d types.ProjectDocument
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Title, &d.Content, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDocument writes a document's title and content.
func (s *Store) UpdateDocument(d *types.ProjectDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := d.Validate(); err != nil {
		return err
	}
	d.UpdatedAt = time.Now().UTC()

	res, err := s.db.Exec(
		"UPDATE project_documents SET title = ?, content = ?, updated_at = ? WHERE id = ?",
		d.Title, d.Content, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %s: %w", d.ID, types.ErrNotFound)
	}
	return nil
}

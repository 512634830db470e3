// Package store is the SQLite persistence layer for cofound. One Store owns
// one database handle; callers get typed CRUD and aggregate queries and never
// see SQL. Writes are serialized through a single connection with WAL mode,
// which is plenty for the single-request-per-operation model this service runs.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cofound/internal/logging"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at the given path and creates the
// schema if missing. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.Open")
	defer timer.Stop()

	logging.Store("Opening store at path: %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logging.StoreDebug("Failed to enable sqlite foreign_keys: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("Store initialization complete")
	return s, nil
}

// initialize creates the required tables. Idempotent.
func (s *Store) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			subject TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			role TEXT NOT NULL,
			tagline TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_profiles_role ON profiles(role);
		CREATE INDEX IF NOT EXISTS idx_profiles_location ON profiles(location);`,

		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL REFERENCES profiles(id),
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			stage TEXT NOT NULL DEFAULT '',
			funding_goal REAL NOT NULL DEFAULT 0,
			desired_roles TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id);`,

		`CREATE TABLE IF NOT EXISTS project_members (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id),
			profile_id TEXT NOT NULL REFERENCES profiles(id),
			role TEXT NOT NULL,
			compensation_amount REAL,
			equity_percent REAL,
			has_access INTEGER NOT NULL DEFAULT 0,
			joined_at DATETIME NOT NULL,
			UNIQUE(project_id, profile_id)
		);
		CREATE INDEX IF NOT EXISTS idx_members_project ON project_members(project_id);
		CREATE INDEX IF NOT EXISTS idx_members_profile ON project_members(profile_id);`,

		// pair_key is the unordered profile pair (lexicographically ordered
		// ids joined with ':'). The partial unique index closes the
		// check-then-act race on duplicate pending matches at the storage
		// layer; CreateMatch additionally checks inside its transaction so
		// callers get a clean conflict error.
		`CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			initiator_id TEXT NOT NULL REFERENCES profiles(id),
			receiver_id TEXT NOT NULL REFERENCES profiles(id),
			pair_key TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			message TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			responded_at DATETIME
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_pending_pair
			ON matches(pair_key) WHERE status = 'pending';
		CREATE INDEX IF NOT EXISTS idx_matches_initiator ON matches(initiator_id);
		CREATE INDEX IF NOT EXISTS idx_matches_receiver ON matches(receiver_id);`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id),
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'todo',
			assignee_id TEXT NOT NULL DEFAULT '',
			due_date DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id);`,

		`CREATE TABLE IF NOT EXISTS contributions (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id),
			profile_id TEXT NOT NULL REFERENCES profiles(id),
			description TEXT NOT NULL DEFAULT '',
			value_score REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_contributions_project ON contributions(project_id);`,

		`CREATE TABLE IF NOT EXISTS code_repositories (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id),
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_repositories_project ON code_repositories(project_id);`,

		`CREATE TABLE IF NOT EXISTS project_documents (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id),
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_documents_project ON project_documents(project_id);`,

		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL REFERENCES profiles(id),
			created_at DATETIME NOT NULL,
			expires_at DATETIME
		);`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// DB exposes the raw handle for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// marshalStrings encodes a string slice as the JSON stored in TEXT columns.
func marshalStrings(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	data, err := json.Marshal(ss)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// unmarshalStrings decodes the JSON string-array TEXT column form.
func unmarshalStrings(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var ss []string
	if err := json.Unmarshal([]byte(raw), &ss); err != nil {
		return []string{}
	}
	return ss
}

// isUniqueViolation reports whether err is a sqlite uniqueness failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package store

import (
	"time"

	"cofound/internal/logging"
	"cofound/internal/types"
)

// =============================================================================
// AGGREGATE QUERIES (analytics surface)
// =============================================================================

// CountProfilesByRole returns profile counts keyed by role.
func (s *Store) CountProfilesByRole() (map[types.Role]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT role, COUNT(*) FROM profiles GROUP BY role")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[types.Role]int)
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		counts[types.Role(role)] = n
	}
	return counts, rows.Err()
}

// CountMatchesByStatus returns match counts keyed by lifecycle status.
func (s *Store) CountMatchesByStatus() (map[types.MatchStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT status, COUNT(*) FROM matches GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[types.MatchStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[types.MatchStatus(status)] = n
	}
	return counts, rows.Err()
}

// ValueCount is one histogram bucket.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// TopLocations returns the most common non-empty profile locations.
func (s *Store) TopLocations(limit int) ([]ValueCount, error) {
	timer := logging.StartTimer(logging.CategoryStore, "TopLocations")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT location, COUNT(*) AS n FROM profiles
		 WHERE location != '' GROUP BY location ORDER BY n DESC, location LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ValueCount
	for rows.Next() {
		var vc ValueCount
		if err := rows.Scan(&vc.Value, &vc.Count); err != nil {
			return nil, err
		}
		out = append(out, vc)
	}
	return out, rows.Err()
}

// TopTags returns the most common skill/interest tags across profiles.
// Tags are stored as JSON arrays; json_each unpacks them in-database.
func (s *Store) TopTags(limit int) ([]ValueCount, error) {
	timer := logging.StartTimer(logging.CategoryStore, "TopTags")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT je.value, COUNT(*) AS n
		 FROM profiles, json_each(profiles.tags) AS je
		 GROUP BY je.value ORDER BY n DESC, je.value LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ValueCount
	for rows.Next() {
		var vc ValueCount
		if err := rows.Scan(&vc.Value, &vc.Count); err != nil {
			return nil, err
		}
		out = append(out, vc)
	}
	return out, rows.Err()
}

// CountProfilesCreatedBetween counts signups in [from, to).
func (s *Store) CountProfilesCreatedBetween(from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM profiles WHERE created_at >= ? AND created_at < ?",
		from.UTC(), to.UTC(),
	).Scan(&n)
	return n, err
}

// CountMatchesCreatedBetween counts connection requests in [from, to).
func (s *Store) CountMatchesCreatedBetween(from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM matches WHERE created_at >= ? AND created_at < ?",
		from.UTC(), to.UTC(),
	).Scan(&n)
	return n, err
}

// CountProjects counts all projects.
func (s *Store) CountProjects() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM projects").Scan(&n)
	return n, err
}

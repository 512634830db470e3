// Package analytics exposes the read-only aggregate queries behind the
// dashboard: counts by role and status, location and tag histograms, and
// date-range activity counts.
package analytics

import (
	"time"

	"cofound/internal/logging"
	"cofound/internal/store"
	"cofound/internal/types"
)

// Service answers aggregate queries over the store.
type Service struct {
	store *store.Store
}

// NewService wraps the store.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Overview is the headline dashboard payload.
type Overview struct {
	ProfilesByRole  map[types.Role]int        `json:"profilesByRole"`
	MatchesByStatus map[types.MatchStatus]int `json:"matchesByStatus"`
	ProjectCount    int                       `json:"projectCount"`
	TopLocations    []store.ValueCount        `json:"topLocations"`
	TopTags         []store.ValueCount        `json:"topTags"`
}

// Overview assembles the headline aggregates in one call.
func (s *Service) Overview(histogramLimit int) (*Overview, error) {
	timer := logging.StartTimer(logging.CategoryAnalytics, "Overview")
	defer timer.Stop()

	byRole, err := s.store.CountProfilesByRole()
	if err != nil {
		return nil, err
	}
	byStatus, err := s.store.CountMatchesByStatus()
	if err != nil {
		return nil, err
	}
	projects, err := s.store.CountProjects()
	if err != nil {
		return nil, err
	}
	locations, err := s.store.TopLocations(histogramLimit)
	if err != nil {
		return nil, err
	}
	tags, err := s.store.TopTags(histogramLimit)
	if err != nil {
		return nil, err
	}

	return &Overview{
		ProfilesByRole:  byRole,
		MatchesByStatus: byStatus,
		ProjectCount:    projects,
		TopLocations:    locations,
		TopTags:         tags,
	}, nil
}

// ActivityCounts are the date-range activity aggregates.
type ActivityCounts struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Profiles int       `json:"profiles"`
	Matches  int       `json:"matches"`
}

// Activity counts profiles and matches created in [from, to).
func (s *Service) Activity(from, to time.Time) (*ActivityCounts, error) {
	profiles, err := s.store.CountProfilesCreatedBetween(from, to)
	if err != nil {
		return nil, err
	}
	matches, err := s.store.CountMatchesCreatedBetween(from, to)
	if err != nil {
		return nil, err
	}
	return &ActivityCounts{From: from, To: to, Profiles: profiles, Matches: matches}, nil
}

package store

import (
	"testing"
	"time"

	"cofound/internal/types"
)

func TestCountProfilesByRole(t *testing.T) {
	s := newTestStore(t)
	mustCreateProfile(t, s, "s1", "Ada", types.RoleBuilder, nil, "")
	mustCreateProfile(t, s, "s2", "Eve", types.RoleBuilder, nil, "")
	mustCreateProfile(t, s, "s3", "Grace", types.RoleInvestor, nil, "")

	counts, err := s.CountProfilesByRole()
	if err != nil {
		t.Fatalf("CountProfilesByRole: %v", err)
	}
	if counts[types.RoleBuilder] != 2 || counts[types.RoleInvestor] != 1 || counts[types.RoleTechnical] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestCountMatchesByStatus(t *testing.T) {
	s := newTestStore(t)
	a := mustCreateProfile(t, s, "s1", "Ada", types.RoleBuilder, nil, "")
	b := mustCreateProfile(t, s, "s2", "Grace", types.RoleInvestor, nil, "")
	c := mustCreateProfile(t, s, "s3", "Linus", types.RoleTechnical, nil, "")

	pending := &types.Match{InitiatorID: a.ID, ReceiverID: b.ID}
	if err := s.CreateMatch(pending); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	accepted := &types.Match{InitiatorID: a.ID, ReceiverID: c.ID}
	if err := s.CreateMatch(accepted); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if _, err := s.RespondMatch(accepted.ID, c.ID, true); err != nil {
		t.Fatalf("RespondMatch: %v", err)
	}

	counts, err := s.CountMatchesByStatus()
	if err != nil {
		t.Fatalf("CountMatchesByStatus: %v", err)
	}
	if counts[types.MatchPending] != 1 || counts[types.MatchAccepted] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestTopLocationsAndTags(t *testing.T) {
	s := newTestStore(t)
	mustCreateProfile(t, s, "s1", "Ada", types.RoleBuilder, []string{"AI", "Go"}, "Berlin")
	mustCreateProfile(t, s, "s2", "Grace", types.RoleInvestor, []string{"AI", "Fintech"}, "Berlin")
	mustCreateProfile(t, s, "s3", "Linus", types.RoleTechnical, []string{"AI"}, "Helsinki")
	mustCreateProfile(t, s, "s4", "Eve", types.RoleBuilder, nil, "")

	locations, err := s.TopLocations(5)
	if err != nil {
		t.Fatalf("TopLocations: %v", err)
	}
	// Empty locations never count.
	if len(locations) != 2 || locations[0].Value != "Berlin" || locations[0].Count != 2 {
		t.Errorf("locations = %v", locations)
	}

	tags, err := s.TopTags(2)
	if err != nil {
		t.Fatalf("TopTags: %v", err)
	}
	if len(tags) != 2 || tags[0].Value != "AI" || tags[0].Count != 3 {
		t.Errorf("tags = %v", tags)
	}
}

func TestActivityCounts(t *testing.T) {
	s := newTestStore(t)
	a := mustCreateProfile(t, s, "s1", "Ada", types.RoleBuilder, nil, "")
	b := mustCreateProfile(t, s, "s2", "Grace", types.RoleInvestor, nil, "")
	if err := s.CreateMatch(&types.Match{InitiatorID: a.ID, ReceiverID: b.ID}); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	now := time.Now().UTC()

	profiles, err := s.CountProfilesCreatedBetween(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil || profiles != 2 {
		t.Errorf("profiles in window = %d, %v, want 2", profiles, err)
	}
	matches, err := s.CountMatchesCreatedBetween(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil || matches != 1 {
		t.Errorf("matches in window = %d, %v, want 1", matches, err)
	}

	// A window in the past sees nothing.
	profiles, err = s.CountProfilesCreatedBetween(now.Add(-2*time.Hour), now.Add(-time.Hour))
	if err != nil || profiles != 0 {
		t.Errorf("profiles in past window = %d, %v, want 0", profiles, err)
	}
}

func TestCountProjects(t *testing.T) {
	s := newTestStore(t)
	owner := mustCreateProfile(t, s, "s1", "Ada", types.RoleBuilder, nil, "")
	for _, name := range []string{"One", "Two"} {
		if err := s.CreateProject(&types.Project{OwnerID: owner.ID, Name: name}); err != nil {
			t.Fatalf("CreateProject: %v", err)
		}
	}
	n, err := s.CountProjects()
	if err != nil || n != 2 {
		t.Errorf("CountProjects = %d, %v, want 2", n, err)
	}
}

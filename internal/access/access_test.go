package access

import (
	"errors"
	"testing"

	"cofound/internal/types"

	"github.com/google/go-cmp/cmp"
)

func project(ownerID string) *types.Project {
	return &types.Project{ID: "proj", OwnerID: ownerID}
}

func member(profileID string, hasAccess bool) types.ProjectMember {
	return types.ProjectMember{ProjectID: "proj", ProfileID: profileID, Role: types.RoleTechnical, HasAccess: hasAccess}
}

func TestResolve(t *testing.T) {
	members := []types.ProjectMember{
		member("full", true),
		member("limited", false),
	}

	tests := []struct {
		name      string
		requester string
		want      Tier
	}{
		{"Owner", "owner", TierOwner},
		{"FullMember", "full", TierFull},
		{"LimitedMember", "limited", TierLimited},
		{"NonMember", "stranger", TierNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.requester, project("owner"), members)
			if got != tt.want {
				t.Errorf("Resolve(%s) = %v, want %v", tt.requester, got, tt.want)
			}
		})
	}
}

func TestResolveOwnerBeatsMembership(t *testing.T) {
	// An owner who also appears in the member list resolves as owner.
	members := []types.ProjectMember{member("owner", false)}
	if got := Resolve("owner", project("owner"), members); got != TierOwner {
		t.Errorf("Resolve = %v, want TierOwner", got)
	}
}

func TestTierCapabilities(t *testing.T) {
	tests := []struct {
		tier         Tier
		readRepos    bool
		contribute   bool
		mutate       bool
		toggleAccess bool
	}{
		{TierOwner, true, true, true, true},
		{TierFull, true, true, false, false},
		{TierLimited, false, false, false, false},
		{TierNone, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			if got := tt.tier.CanReadRepositories(); got != tt.readRepos {
				t.Errorf("CanReadRepositories = %v, want %v", got, tt.readRepos)
			}
			if got := tt.tier.CanContribute(); got != tt.contribute {
				t.Errorf("CanContribute = %v, want %v", got, tt.contribute)
			}
			if got := tt.tier.CanMutateProject(); got != tt.mutate {
				t.Errorf("CanMutateProject = %v, want %v", got, tt.mutate)
			}
			if got := tt.tier.CanToggleMemberAccess(); got != tt.toggleAccess {
				t.Errorf("CanToggleMemberAccess = %v, want %v", got, tt.toggleAccess)
			}
		})
	}
}

func TestTaskAssigneeFilter(t *testing.T) {
	tests := []struct {
		name         string
		tier         Tier
		wantAssignee string
		wantOK       bool
	}{
		{"OwnerUnrestricted", TierOwner, "", true},
		{"FullUnrestricted", TierFull, "", true},
		{"LimitedOwnTasksOnly", TierLimited, "me", true},
		{"NonMemberDenied", TierNone, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assignee, ok := TaskAssigneeFilter(tt.tier, "me")
			if ok != tt.wantOK || assignee != tt.wantAssignee {
				t.Errorf("TaskAssigneeFilter = (%q, %v), want (%q, %v)", assignee, ok, tt.wantAssignee, tt.wantOK)
			}
		})
	}
}

func TestFilterMembers(t *testing.T) {
	members := []types.ProjectMember{
		member("alice", true),
		member("bob", false),
	}

	t.Run("FullSeesAll", func(t *testing.T) {
		got := FilterMembers(TierFull, "alice", members)
		if diff := cmp.Diff(members, got); diff != "" {
			t.Errorf("unexpected member list (-want +got):\n%s", diff)
		}
	})

	t.Run("LimitedSeesOwnRowOnly", func(t *testing.T) {
		got := FilterMembers(TierLimited, "bob", members)
		if len(got) != 1 || got[0].ProfileID != "bob" {
			t.Errorf("limited member saw %v, want only their own row", got)
		}
	})

	t.Run("NonMemberSeesNothing", func(t *testing.T) {
		if got := FilterMembers(TierNone, "stranger", members); len(got) != 0 {
			t.Errorf("non-member saw %v, want nothing", got)
		}
	})
}

func TestDeniedErr(t *testing.T) {
	err := DeniedErr("tasks")
	if !errors.Is(err, types.ErrPermissionDenied) {
		t.Errorf("DeniedErr should wrap ErrPermissionDenied, got %v", err)
	}
}

// Package access resolves a requester's visibility tier for a project and
// filters project sub-resources to that tier. All filtering happens here,
// before data leaves the server boundary; handlers return what this package
// hands back and nothing more.
package access

import (
	"fmt"

	"cofound/internal/types"
)

// Tier is a project visibility level. Higher values grant strictly more.
type Tier int

const (
	// TierNone is a non-member: every project sub-resource is denied.
	TierNone Tier = iota
	// TierLimited is a member with has_access=false: tasks assigned to them
	// and their own membership row only.
	TierLimited
	// TierFull is a member with has_access=true: full read of sub-resources,
	// no member-access mutation rights.
	TierFull
	// TierOwner is the project owner: full read/write including access toggles.
	TierOwner
)

func (t Tier) String() string {
	switch t {
	case TierOwner:
		return "owner"
	case TierFull:
		return "full_member"
	case TierLimited:
		return "limited_member"
	default:
		return "non_member"
	}
}

// Resolve determines the requester's tier from the project record and its
// member list, in priority order: owner, then membership access flag.
func Resolve(requesterID string, project *types.Project, members []types.ProjectMember) Tier {
	if project.OwnerID == requesterID {
		return TierOwner
	}
	for _, m := range members {
		if m.ProfileID != requesterID {
			continue
		}
		if m.HasAccess {
			return TierFull
		}
		return TierLimited
	}
	return TierNone
}

// DeniedErr builds the explicit denial a non-member must receive, so callers
// can distinguish "no data" from "no permission".
func DeniedErr(resource string) error {
	return fmt.Errorf("%s: %w", resource, types.ErrPermissionDenied)
}

// CanReadRepositories reports whether the tier may read repositories and
// contributions. Limited members may not.
func (t Tier) CanReadRepositories() bool {
	return t >= TierFull
}

// CanContribute reports whether the tier may create or update project work
// items (tasks, contributions, repositories, documents). Full-access members
// collaborate; limited members only observe their own slice.
func (t Tier) CanContribute() bool {
	return t >= TierFull
}

// CanMutateProject reports whether the tier may modify the project record
// and its sub-resources.
func (t Tier) CanMutateProject() bool {
	return t == TierOwner
}

// CanToggleMemberAccess reports whether the tier may flip has_access flags.
func (t Tier) CanToggleMemberAccess() bool {
	return t == TierOwner
}

// TaskAssigneeFilter returns the assignee id the task query must be
// restricted to for this tier; empty means unrestricted. The bool result is
// false when the tier may not read tasks at all.
func TaskAssigneeFilter(tier Tier, requesterID string) (string, bool) {
	switch {
	case tier >= TierFull:
		return "", true
	case tier == TierLimited:
		return requesterID, true
	default:
		return "", false
	}
}

// FilterMembers narrows the member list to what the tier may see: everything
// for full members and owners, only the requester's own row for limited
// members, nothing for non-members.
func FilterMembers(tier Tier, requesterID string, members []types.ProjectMember) []types.ProjectMember {
	switch {
	case tier >= TierFull:
		return members
	case tier == TierLimited:
		own := make([]types.ProjectMember, 0, 1)
		for _, m := range members {
			if m.ProfileID == requesterID {
				own = append(own, m)
			}
		}
		return own
	default:
		return nil
	}
}

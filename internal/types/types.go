// Package types defines the shared domain entities for cofound:
// profiles, projects, memberships, matches, and project sub-resources.
// All packages depend on types; types depends on nothing internal.
package types

import (
	"time"
)

// Role identifies which side of the platform a profile is on.
type Role string

const (
	RoleBuilder   Role = "builder"
	RoleInvestor  Role = "investor"
	RoleTechnical Role = "technical"
)

// ValidRole reports whether r is one of the three platform roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleBuilder, RoleInvestor, RoleTechnical:
		return true
	}
	return false
}

// MatchStatus is the lifecycle state of a connection request.
// Transitions: pending -> accepted | rejected, driven by the receiver only.
type MatchStatus string

const (
	MatchPending  MatchStatus = "pending"
	MatchAccepted MatchStatus = "accepted"
	MatchRejected MatchStatus = "rejected"
)

// MatchType is the categorical label attached to a suggestion.
type MatchType string

const (
	MatchTypeCollaboration MatchType = "collaboration"
	MatchTypeInvestment    MatchType = "investment"
	MatchTypeTechnical     MatchType = "technical"
	MatchTypeMentorship    MatchType = "mentorship"
)

// ValidMatchType reports whether t is one of the four suggestion labels.
func ValidMatchType(t MatchType) bool {
	switch t {
	case MatchTypeCollaboration, MatchTypeInvestment, MatchTypeTechnical, MatchTypeMentorship:
		return true
	}
	return false
}

// Profile is the identity record for one user in exactly one role.
// Subject is the opaque identity-provider subject the profile is bound to;
// there is at most one profile per subject.
type Profile struct {
	ID        string    `json:"id"`
	Subject   string    `json:"-"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Tagline   string    `json:"tagline,omitempty"`
	Location  string    `json:"location,omitempty"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Project is owned by exactly one builder profile. Projects are never
// hard-deleted.
type Project struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Stage        string    `json:"stage,omitempty"`
	FundingGoal  float64   `json:"fundingGoal,omitempty"`
	DesiredRoles []string  `json:"desiredRoles"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProjectMember links a profile to a project. Compensation is either a
// monetary amount or an equity percentage; setting both is rejected at
// creation time. HasAccess gates dashboard visibility (see access package).
type ProjectMember struct {
	ID                 string    `json:"id"`
	ProjectID          string    `json:"projectId"`
	ProfileID          string    `json:"profileId"`
	Role               Role      `json:"role"`
	CompensationAmount *float64  `json:"compensationAmount,omitempty"`
	EquityPercent      *float64  `json:"equityPercent,omitempty"`
	HasAccess          bool      `json:"hasAccess"`
	JoinedAt           time.Time `json:"joinedAt"`
}

// Match is a directed connection request between two profiles.
// RespondedAt is set exactly once, when the receiver leaves pending.
type Match struct {
	ID          string      `json:"id"`
	InitiatorID string      `json:"initiatorId"`
	ReceiverID  string      `json:"receiverId"`
	Status      MatchStatus `json:"status"`
	Message     string      `json:"message,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	RespondedAt *time.Time  `json:"respondedAt,omitempty"`
}

// TaskStatus is the workflow state of a project task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Task is a unit of project work, optionally assigned to a member profile.
type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Contribution records work credited to a profile on a project.
// ValueScore feeds the display-time percentage aggregation only.
type Contribution struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	ProfileID   string    `json:"profileId"`
	Description string    `json:"description"`
	ValueScore  float64   `json:"valueScore"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ContributionShare is the per-contributor slice of a project's total
// contribution value: sum of the contributor's scores over the project total.
type ContributionShare struct {
	ProfileID string  `json:"profileId"`
	Total     float64 `json:"total"`
	Percent   float64 `json:"percent"`
}

// CodeRepository is a linked source repository for a project.
type CodeRepository struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProjectDocument is a free-form document attached to a project.
type ProjectDocument struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Suggestion is one ranked entry from the match-suggestion pipeline:
// a candidate profile annotated with the scored explanation.
type Suggestion struct {
	Profile     Profile   `json:"profile"`
	MatchScore  int       `json:"matchScore"`
	MatchReason string    `json:"matchReason"`
	MatchType   MatchType `json:"matchType"`
}

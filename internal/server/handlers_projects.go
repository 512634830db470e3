package server

import (
	"net/http"

	"cofound/internal/access"
	"cofound/internal/types"
)

// projectTier loads a project, its member list, and the caller's resolved
// visibility tier. Every sub-resource handler goes through here.
func (s *Server) projectTier(r *http.Request, projectID string) (*types.Project, []types.ProjectMember, access.Tier, error) {
	caller := callerProfile(r)
	project, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, nil, access.TierNone, err
	}
	members, err := s.store.ListMembers(projectID)
	if err != nil {
		return nil, nil, access.TierNone, err
	}
	tier := access.Resolve(caller.ID, project, members)
	return project, members, tier, nil
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.URL.Query().Get("owner"))
	if err != nil {
		writeError(w, err)
		return
	}
	if projects == nil {
		projects = []types.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// projectRequest is the write payload for project create/patch.
type projectRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Stage        *string  `json:"stage"`
	FundingGoal  *float64 `json:"fundingGoal"`
	DesiredRoles []string `json:"desiredRoles"`
}

func applyProjectRequest(p *types.Project, req *projectRequest) {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Stage != nil {
		p.Stage = *req.Stage
	}
	if req.FundingGoal != nil {
		p.FundingGoal = *req.FundingGoal
	}
	if req.DesiredRoles != nil {
		p.DesiredRoles = req.DesiredRoles
	}
}

// handleCreateProject creates a project owned by the caller, who must be a
// builder.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	caller := callerProfile(r)
	if caller.Role != types.RoleBuilder {
		writeError(w, types.Validationf("ownerId", "only builders can create projects"))
		return
	}

	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p := &types.Project{OwnerID: caller.ID}
	applyProjectRequest(p, &req)
	if err := s.store.CreateProject(p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// handleGetProject returns the project record. Project metadata is browsable
// by any authenticated profile; the tiers gate sub-resources, not the card.
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProject(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePatchProject mutates project metadata, owner only.
func (s *Server) handlePatchProject(w http.ResponseWriter, r *http.Request) {
	project, _, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !tier.CanMutateProject() {
		writeError(w, access.DeniedErr("project"))
		return
	}

	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	applyProjectRequest(project, &req)
	if err := s.store.UpdateProject(project); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// handleListMembers returns the team filtered to the caller's tier: full
// members and the owner see everyone, limited members see only their own
// row, non-members are denied outright.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	caller := callerProfile(r)
	_, members, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if tier == access.TierNone {
		writeError(w, access.DeniedErr("members"))
		return
	}
	filtered := access.FilterMembers(tier, caller.ID, members)
	if filtered == nil {
		filtered = []types.ProjectMember{}
	}
	writeJSON(w, http.StatusOK, filtered)
}

// handleAddMember adds a profile to the team, owner only.
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	project, _, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !tier.CanMutateProject() {
		writeError(w, access.DeniedErr("members"))
		return
	}

	var req struct {
		ProfileID          string   `json:"profileId"`
		Role               string   `json:"role"`
		CompensationAmount *float64 `json:"compensationAmount"`
		EquityPercent      *float64 `json:"equityPercent"`
		HasAccess          bool     `json:"hasAccess"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.store.GetProfile(req.ProfileID); err != nil {
		writeError(w, err)
		return
	}

	m := &types.ProjectMember{
		ProjectID:          project.ID,
		ProfileID:          req.ProfileID,
		Role:               types.Role(req.Role),
		CompensationAmount: req.CompensationAmount,
		EquityPercent:      req.EquityPercent,
		HasAccess:          req.HasAccess,
	}
	if err := s.store.AddMember(m); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// handleSetMemberAccess toggles one member's dashboard visibility. A single
// owner-only operation: the row is updated in place, nothing cascades.
func (s *Server) handleSetMemberAccess(w http.ResponseWriter, r *http.Request) {
	project, _, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !tier.CanToggleMemberAccess() {
		writeError(w, access.DeniedErr("member access"))
		return
	}

	var req struct {
		HasAccess *bool `json:"hasAccess"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.HasAccess == nil {
		writeError(w, types.Validationf("hasAccess", "required"))
		return
	}

	if err := s.store.SetMemberAccess(project.ID, r.PathValue("profileId"), *req.HasAccess); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.store.GetMember(project.ID, r.PathValue("profileId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleListTasks returns tasks filtered to the caller's tier. The limited-
// member restriction is applied in the store query, before data crosses the
// server boundary.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	caller := callerProfile(r)
	project, _, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	assignee, ok := access.TaskAssigneeFilter(tier, caller.ID)
	if !ok {
		writeError(w, access.DeniedErr("tasks"))
		return
	}
	tasks, err := s.store.ListTasks(project.ID, assignee)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []types.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

type taskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	AssigneeID  *string `json:"assigneeId"`
}

func applyTaskRequest(t *types.Task, req *taskRequest) {
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Status != nil {
		t.Status = types.TaskStatus(*req.Status)
	}
	if req.AssigneeID != nil {
		t.AssigneeID = *req.AssigneeID
	}
}

// handleCreateTask creates a task; full-access members and the owner may.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	project, _, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !tier.CanContribute() {
		writeError(w, access.DeniedErr("tasks"))
		return
	}

	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t := &types.Task{ProjectID: project.ID}
	applyTaskRequest(t, &req)
	if err := s.store.CreateTask(t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handlePatchTask updates a task; full-access members and the owner may.
func (s *Server) handlePatchTask(w http.ResponseWriter, r *http.Request) {
	project, _, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !tier.CanContribute() {
		writeError(w, access.DeniedErr("tasks"))
		return
	}

	task, err := s.store.GetTask(r.PathValue("taskId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if task.ProjectID != project.ID {
		writeError(w, types.ErrNotFound)
		return
	}

	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	applyTaskRequest(task, &req)
	if err := s.store.UpdateTask(task); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleListRepositories: repositories are invisible below full access.
func (s *Server) handleListRepositories(w http.ResponseWriter, r *http.Request) {
	project, _, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !tier.CanReadRepositories() {
		writeError(w, access.DeniedErr("repositories"))
		return
	}
	repos, err := s.store.ListRepositories(project.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if repos == nil {
		repos = []types.CodeRepository{}
	}
	writeJSON(w, http.StatusOK, repos)
}

func (s *Server) handleCreateRepository(w http.ResponseWriter, r *http.Request) {
	project, _, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !tier.CanContribute() {
		writeError(w, access.DeniedErr("repositories"))
		return
	}

	var req struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	repo := &types.CodeRepository{ProjectID: project.ID, Name: req.Name, URL: req.URL}
	if err := s.store.CreateRepository(repo); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, repo)
}

// handleListContributions: contributions are invisible below full access.
func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	project, _, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !tier.CanReadRepositories() {
		writeError(w, access.DeniedErr("contributions"))
		return
	}
	contributions, err := s.store.ListContributions(project.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if contributions == nil {
		contributions = []types.Contribution{}
	}
	writeJSON(w, http.StatusOK, contributions)
}

func (s *Server) handleCreateContribution(w http.ResponseWriter, r *http.Request) {
	project, _, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !tier.CanContribute() {
		writeError(w, access.DeniedErr("contributions"))
		return
	}

	var req struct {
		ProfileID   string  `json:"profileId"`
		Description string  `json:"description"`
		ValueScore  float64 `json:"valueScore"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c := &types.Contribution{
		ProjectID:   project.ID,
		ProfileID:   req.ProfileID,
		Description: req.Description,
		ValueScore:  req.ValueScore,
	}
	if err := s.store.CreateContribution(c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// handleContributionShares returns the display-time percentage aggregation.
func (s *Server) handleContributionShares(w http.ResponseWriter, r *http.Request) {
	project, _, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !tier.CanReadRepositories() {
		writeError(w, access.DeniedErr("contributions"))
		return
	}
	shares, err := s.store.ContributionShares(project.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

// handleListDocuments: documents follow the repository visibility rule.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	project, _, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !tier.CanReadRepositories() {
		writeError(w, access.DeniedErr("documents"))
		return
	}
	docs, err := s.store.ListDocuments(project.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []types.ProjectDocument{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	project, _, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !tier.CanContribute() {
		writeError(w, access.DeniedErr("documents"))
		return
	}

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	doc := &types.ProjectDocument{ProjectID: project.ID, Title: req.Title, Content: req.Content}
	if err := s.store.CreateDocument(doc); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handlePatchDocument(w http.ResponseWriter, r *http.Request) {
	project, _, tier, err := s.projectTier(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !tier.CanContribute() {
		writeError(w, access.DeniedErr("documents"))
		return
	}

	doc, err := s.store.GetDocument(r.PathValue("docId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if doc.ProjectID != project.ID {
		writeError(w, types.ErrNotFound)
		return
	}

	var req struct {
		Title   *string `json:"title"`
		Content *string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Title != nil {
		doc.Title = *req.Title
	}
	if req.Content != nil {
		doc.Content = *req.Content
	}
	if err := s.store.UpdateDocument(doc); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

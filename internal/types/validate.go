package types

// Validate checks the fields a profile must carry at creation time.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return Validationf("name", "required")
	}
	if !ValidRole(p.Role) {
		return Validationf("role", "must be one of builder, investor, technical")
	}
	return nil
}

// Validate checks the fields a project must carry at creation time.
func (p *Project) Validate() error {
	if p.Name == "" {
		return Validationf("name", "required")
	}
	if p.OwnerID == "" {
		return Validationf("ownerId", "required")
	}
	if p.FundingGoal < 0 {
		return Validationf("fundingGoal", "must not be negative")
	}
	for _, r := range p.DesiredRoles {
		if !ValidRole(Role(r)) {
			return Validationf("desiredRoles", "unknown role %q", r)
		}
	}
	return nil
}

// Validate checks a membership record. Compensation is an amount or an
// equity percentage, never both.
func (m *ProjectMember) Validate() error {
	if m.ProfileID == "" {
		return Validationf("profileId", "required")
	}
	if m.Role != RoleInvestor && m.Role != RoleTechnical {
		return Validationf("role", "must be investor or technical")
	}
	if m.CompensationAmount != nil && m.EquityPercent != nil {
		return Validationf("compensation", "set compensationAmount or equityPercent, not both")
	}
	if m.CompensationAmount != nil && *m.CompensationAmount < 0 {
		return Validationf("compensationAmount", "must not be negative")
	}
	if m.EquityPercent != nil && (*m.EquityPercent < 0 || *m.EquityPercent > 100) {
		return Validationf("equityPercent", "must be between 0 and 100")
	}
	return nil
}

// Validate checks a connection request before insertion.
func (m *Match) Validate() error {
	if m.InitiatorID == "" {
		return Validationf("initiatorId", "required")
	}
	if m.ReceiverID == "" {
		return Validationf("receiverId", "required")
	}
	if m.InitiatorID == m.ReceiverID {
		return Validationf("receiverId", "cannot match a profile with itself")
	}
	return nil
}

// Validate checks a task record.
func (t *Task) Validate() error {
	if t.Title == "" {
		return Validationf("title", "required")
	}
	switch t.Status {
	case "", TaskTodo, TaskInProgress, TaskDone:
	default:
		return Validationf("status", "must be todo, in_progress, or done")
	}
	return nil
}

// Validate checks a contribution record.
func (c *Contribution) Validate() error {
	if c.ProfileID == "" {
		return Validationf("profileId", "required")
	}
	if c.ValueScore < 0 {
		return Validationf("valueScore", "must not be negative")
	}
	return nil
}

// Validate checks a repository link.
func (r *CodeRepository) Validate() error {
	if r.Name == "" {
		return Validationf("name", "required")
	}
	if r.URL == "" {
		return Validationf("url", "required")
	}
	return nil
}

// Validate checks a project document.
func (d *ProjectDocument) Validate() error {
	if d.Title == "" {
		return Validationf("title", "required")
	}
	return nil
}

package server

import (
	"net/http"
	"strconv"

	"cofound/internal/store"
	"cofound/internal/types"
)

// profileRequest is the write payload for profile create/update.
type profileRequest struct {
	Name     *string  `json:"name"`
	Role     *string  `json:"role"`
	Tagline  *string  `json:"tagline"`
	Location *string  `json:"location"`
	Tags     []string `json:"tags"`
}

func applyProfileRequest(p *types.Profile, req *profileRequest) {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Role != nil {
		p.Role = types.Role(*req.Role)
	}
	if req.Tagline != nil {
		p.Tagline = *req.Tagline
	}
	if req.Location != nil {
		p.Location = *req.Location
	}
	if req.Tags != nil {
		p.Tags = req.Tags
	}
}

// handleListProfiles browses profiles, optionally filtered by role and
// location query parameters.
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	f := store.ProfileFilter{
		Role:     types.Role(r.URL.Query().Get("role")),
		Location: r.URL.Query().Get("location"),
	}
	if f.Role != "" && !types.ValidRole(f.Role) {
		writeError(w, types.Validationf("role", "unknown role %q", f.Role))
		return
	}
	profiles, err := s.store.ListProfiles(f)
	if err != nil {
		writeError(w, err)
		return
	}
	if profiles == nil {
		profiles = []types.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

// handleUpsertProfile completes or updates the caller's own profile. Profile
// existence is established at identity-provisioning time (login flow or
// harness auto-provision); this endpoint only writes the caller's record.
func (s *Server) handleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	caller := callerProfile(r)

	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	updated := *caller
	applyProfileRequest(&updated, &req)
	if err := s.store.UpdateProfile(&updated); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProfile(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePatchProfile updates a profile; only the profile's own user may.
func (s *Server) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	caller := callerProfile(r)
	id := r.PathValue("id")
	if caller.ID != id {
		writeError(w, types.ErrPermissionDenied)
		return
	}

	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	updated := *caller
	applyProfileRequest(&updated, &req)
	if err := s.store.UpdateProfile(&updated); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleSuggestions runs the match-suggestion pipeline for the caller's own
// profile. Upstream generation failures surface as an empty list, not an
// error.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	caller := callerProfile(r)
	id := r.PathValue("id")
	if caller.ID != id {
		writeError(w, types.ErrPermissionDenied)
		return
	}

	roleFilter := types.Role(r.URL.Query().Get("role"))
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, types.Validationf("limit", "must be an integer"))
			return
		}
		limit = n
	}

	suggestions, err := s.matcher.Suggest(r.Context(), id, roleFilter, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// handleListMatches lists the caller's own connection requests.
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	caller := callerProfile(r)
	id := r.PathValue("id")
	if caller.ID != id {
		writeError(w, types.ErrPermissionDenied)
		return
	}

	matches, err := s.store.ListMatchesForProfile(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if matches == nil {
		matches = []types.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

// handleCreateMatch sends a connection request from the caller.
func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	caller := callerProfile(r)

	var req struct {
		ReceiverID string `json:"receiverId"`
		Message    string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if _, err := s.store.GetProfile(req.ReceiverID); err != nil {
		writeError(w, err)
		return
	}

	m := &types.Match{
		InitiatorID: caller.ID,
		ReceiverID:  req.ReceiverID,
		Message:     req.Message,
	}
	if err := s.store.CreateMatch(m); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// handleGetMatch returns a match to its participants only.
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	caller := callerProfile(r)
	m, err := s.store.GetMatch(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if m.InitiatorID != caller.ID && m.ReceiverID != caller.ID {
		writeError(w, types.ErrPermissionDenied)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleRespondMatch transitions a pending match; the store enforces that
// only the receiver may respond and that respondedAt is written once.
func (s *Server) handleRespondMatch(w http.ResponseWriter, r *http.Request) {
	caller := callerProfile(r)

	var req struct {
		Accept *bool `json:"accept"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Accept == nil {
		writeError(w, types.Validationf("accept", "required"))
		return
	}

	m, err := s.store.RespondMatch(r.PathValue("id"), caller.ID, *req.Accept)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

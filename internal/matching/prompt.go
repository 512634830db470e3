package matching

import (
	"encoding/json"
	"fmt"
	"strings"

	"cofound/internal/types"
)

// matchSystemInstruction is the fixed instruction set for the generation
// service. The response contract is JSON only; anything else is discarded by
// parseSuggestions.
const matchSystemInstruction = `You are a matchmaking analyst for a startup collaboration platform connecting builders, investors, and technical leads.

Given a requesting profile, their projects, and a list of candidate profiles, select the candidates worth suggesting and score each one.

Return ONLY a JSON object of the form:
{"matches":[{"profileId":"<candidate id>","matchScore":<0-100 integer>,"matchReason":"<1-2 sentence reason>","matchType":"collaboration|investment|technical|mentorship"}]}

Rules:
- profileId must be one of the candidate ids, never the requester.
- matchScore reflects overall compatibility: shared interests, complementary skills, stage fit, location.
- matchReason is concrete and references the profiles, not generic praise.
- Omit candidates that are poor fits rather than giving them low scores.`

// promptProfile is the subset of a profile sent to the generation service.
type promptProfile struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Tagline  string   `json:"tagline,omitempty"`
	Location string   `json:"location,omitempty"`
	Tags     []string `json:"tags"`
}

type promptProject struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Stage        string   `json:"stage,omitempty"`
	DesiredRoles []string `json:"desiredRoles,omitempty"`
}

func toPromptProfile(p *types.Profile) promptProfile {
	return promptProfile{
		ID:       p.ID,
		Name:     p.Name,
		Role:     string(p.Role),
		Tagline:  p.Tagline,
		Location: p.Location,
		Tags:     p.Tags,
	}
}

// buildPrompt assembles the bounded request payload: the requester, their
// projects, and at most the pre-rank cap of candidates.
func buildPrompt(requester *types.Profile, projects []types.Project, candidates []types.Profile) string {
	payload := struct {
		Requester  promptProfile   `json:"requester"`
		Projects   []promptProject `json:"projects"`
		Candidates []promptProfile `json:"candidates"`
	}{
		Requester: toPromptProfile(requester),
	}
	for _, pr := range projects {
		payload.Projects = append(payload.Projects, promptProject{
			Name:         pr.Name,
			Description:  pr.Description,
			Stage:        pr.Stage,
			DesiredRoles: pr.DesiredRoles,
		})
	}
	for i := range candidates {
		payload.Candidates = append(payload.Candidates, toPromptProfile(&candidates[i]))
	}

	data, _ := json.Marshal(payload)
	return string(data)
}

// rawSuggestion mirrors the generation service's response contract.
type rawSuggestion struct {
	ProfileID   string `json:"profileId"`
	MatchScore  int    `json:"matchScore"`
	MatchReason string `json:"matchReason"`
	MatchType   string `json:"matchType"`
}

type rawResponse struct {
	Matches []rawSuggestion `json:"matches"`
}

// stripCodeFences removes a surrounding markdown code fence if present.
// Models wrap JSON in fences despite instructions often enough to handle it.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseSuggestions validates the untrusted generation response against the
// candidate set: unknown profile ids are dropped, scores are clamped to
// [0, 100], unknown match types fall back to collaboration, and each
// surviving entry is joined to its full profile record.
func parseSuggestions(raw string, candidates map[string]types.Profile) ([]types.Suggestion, error) {
	cleaned := stripCodeFences(raw)

	var resp rawResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil || resp.Matches == nil {
		// Some responses come back as a bare array.
		var arr []rawSuggestion
		if err2 := json.Unmarshal([]byte(cleaned), &arr); err2 != nil {
			return nil, fmt.Errorf("response is neither a matches object nor an array: %w", err2)
		}
		resp.Matches = arr
	}

	seen := make(map[string]bool, len(resp.Matches))
	out := make([]types.Suggestion, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		profile, ok := candidates[m.ProfileID]
		if !ok || seen[m.ProfileID] {
			continue
		}
		seen[m.ProfileID] = true

		score := m.MatchScore
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}

		mt := types.MatchType(m.MatchType)
		if !types.ValidMatchType(mt) {
			mt = types.MatchTypeCollaboration
		}

		out = append(out, types.Suggestion{
			Profile:     profile,
			MatchScore:  score,
			MatchReason: m.MatchReason,
			MatchType:   mt,
		})
	}
	return out, nil
}

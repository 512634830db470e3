package matching

import (
	"encoding/json"
	"strings"
	"testing"

	"cofound/internal/types"
)

func candidateMap(ids ...string) map[string]types.Profile {
	m := make(map[string]types.Profile, len(ids))
	for _, id := range ids {
		m[id] = types.Profile{ID: id, Name: "Profile " + id, Role: types.RoleInvestor}
	}
	return m
}

func TestParseSuggestions(t *testing.T) {
	candidates := candidateMap("c1", "c2")

	tests := []struct {
		name    string
		raw     string
		wantIDs []string
	}{
		{
			"PlainObject",
			`{"matches":[{"profileId":"c1","matchScore":80,"matchReason":"good","matchType":"investment"}]}`,
			[]string{"c1"},
		},
		{
			"CodeFenced",
			"```json\n{\"matches\":[{\"profileId\":\"c1\",\"matchScore\":80,\"matchReason\":\"good\",\"matchType\":\"investment\"}]}\n```",
			[]string{"c1"},
		},
		{
			"BareArray",
			`[{"profileId":"c2","matchScore":70,"matchReason":"ok","matchType":"collaboration"}]`,
			[]string{"c2"},
		},
		{
			"UnknownIDDropped",
			`{"matches":[{"profileId":"intruder","matchScore":99},{"profileId":"c1","matchScore":60}]}`,
			[]string{"c1"},
		},
		{
			"DuplicateDropped",
			`{"matches":[{"profileId":"c1","matchScore":60},{"profileId":"c1","matchScore":90}]}`,
			[]string{"c1"},
		},
		{
			"EmptyMatches",
			`{"matches":[]}`,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSuggestions(tt.raw, candidates)
			if err != nil {
				t.Fatalf("parseSuggestions: %v", err)
			}
			var ids []string
			for _, s := range got {
				ids = append(ids, s.Profile.ID)
			}
			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("ids = %v, want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
				}
			}
		})
	}
}

func TestParseSuggestionsRejectsGarbage(t *testing.T) {
	if _, err := parseSuggestions("not json at all", candidateMap("c1")); err == nil {
		t.Error("expected an error for non-JSON input")
	}
}

func TestParseSuggestionsClampsAndDefaults(t *testing.T) {
	candidates := candidateMap("c1", "c2", "c3")
	raw := `{"matches":[
		{"profileId":"c1","matchScore":150,"matchType":"investment"},
		{"profileId":"c2","matchScore":-4,"matchType":"collaboration"},
		{"profileId":"c3","matchScore":55,"matchType":"soulmates"}
	]}`

	got, err := parseSuggestions(raw, candidates)
	if err != nil {
		t.Fatalf("parseSuggestions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d suggestions, want 3", len(got))
	}
	if got[0].MatchScore != 100 {
		t.Errorf("over-range score = %d, want clamped to 100", got[0].MatchScore)
	}
	if got[1].MatchScore != 0 {
		t.Errorf("negative score = %d, want clamped to 0", got[1].MatchScore)
	}
	if got[2].MatchType != types.MatchTypeCollaboration {
		t.Errorf("unknown type = %q, want collaboration fallback", got[2].MatchType)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.in); got != tt.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildPromptIsBoundedJSON(t *testing.T) {
	requester := &types.Profile{ID: "r1", Name: "Ada", Role: types.RoleBuilder, Tags: []string{"AI"}}
	projects := []types.Project{{Name: "Rocket", Stage: "seed", DesiredRoles: []string{"technical"}}}
	candidates := []types.Profile{
		{ID: "c1", Name: "Grace", Role: types.RoleInvestor},
		{ID: "c2", Name: "Linus", Role: types.RoleTechnical},
	}

	prompt := buildPrompt(requester, projects, candidates)

	var payload struct {
		Requester  promptProfile   `json:"requester"`
		Projects   []promptProject `json:"projects"`
		Candidates []promptProfile `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(prompt), &payload); err != nil {
		t.Fatalf("prompt is not valid JSON: %v", err)
	}
	if payload.Requester.ID != "r1" || len(payload.Projects) != 1 || len(payload.Candidates) != 2 {
		t.Errorf("unexpected payload: %+v", payload)
	}
	// The requester's opaque identity fields never reach the prompt.
	if strings.Contains(prompt, "subject") {
		t.Error("prompt leaks identity fields")
	}
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cofound/internal/auth"
	"cofound/internal/config"
	"cofound/internal/llm"
	"cofound/internal/matching"
	"cofound/internal/store"
	"cofound/internal/types"

	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// opencensus (a transitive dependency of google.golang.org/genai)
		// starts a background worker goroutine at package init that can
		// never be stopped; it is not a leak from code under test.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// scriptedLLM is the generation-service stand-in for handler tests.
type scriptedLLM struct {
	raw string
	err error
}

func (c *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *scriptedLLM) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.raw, nil
}

type fixture struct {
	t       *testing.T
	store   *store.Store
	handler http.Handler
	llm     *scriptedLLM
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultConfig()
	cfg.Auth.Mode = "harness"

	client := &scriptedLLM{err: llm.ErrDisabled}
	engine := matching.NewEngine(st, client, cfg.Matching)
	authn := auth.NewHarnessAuthenticator(st, cfg.Auth.SubjectHeader)
	srv := New(cfg, st, authn, engine, zap.NewNop())

	return &fixture{t: t, store: st, handler: srv.Handler(), llm: client}
}

// do issues a request as the given subject. An empty subject sends no
// identity at all.
func (f *fixture) do(method, path, subject string, body interface{}) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			f.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if subject != "" {
		req.Header.Set("X-Auth-Subject", subject)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func (f *fixture) addProfile(subject, name string, role types.Role) *types.Profile {
	f.t.Helper()
	p := &types.Profile{Subject: subject, Name: name, Role: role}
	if err := f.store.CreateProfile(p); err != nil {
		f.t.Fatalf("CreateProfile(%s): %v", name, err)
	}
	return p
}

// tierFixture builds one project with the four access situations: owner,
// full-access member, limited member, and a stranger.
type tierFixture struct {
	*fixture
	project                    *types.Project
	owner, full, lim, stranger *types.Profile
}

func newTierFixture(t *testing.T) *tierFixture {
	f := newFixture(t)
	tf := &tierFixture{
		fixture:  f,
		owner:    f.addProfile("own", "Owner", types.RoleBuilder),
		full:     f.addProfile("ful", "Full", types.RoleTechnical),
		lim:      f.addProfile("lim", "Limited", types.RoleTechnical),
		stranger: f.addProfile("out", "Stranger", types.RoleInvestor),
	}
	tf.project = &types.Project{OwnerID: tf.owner.ID, Name: "Rocket"}
	if err := f.store.CreateProject(tf.project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	for _, m := range []*types.ProjectMember{
		{ProjectID: tf.project.ID, ProfileID: tf.full.ID, Role: types.RoleTechnical, HasAccess: true},
		{ProjectID: tf.project.ID, ProfileID: tf.lim.ID, Role: types.RoleTechnical},
	} {
		if err := f.store.AddMember(m); err != nil {
			t.Fatalf("AddMember: %v", err)
		}
	}
	return tf
}

func TestHealthNeedsNoAuth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health = %d, want 200", rec.Code)
	}
}

func TestMissingIdentityIs401(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/profiles", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	body := decode[errorBody](t, rec)
	if body.Error.Code != "unauthenticated" {
		t.Errorf("error code = %q", body.Error.Code)
	}
}

func TestHarnessProvisionAndProfileUpsert(t *testing.T) {
	f := newFixture(t)

	// First sighting of the subject provisions a minimal builder profile.
	rec := f.do(http.MethodGet, "/api/profiles", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d: %s", rec.Code, rec.Body.String())
	}
	profiles := decode[[]types.Profile](t, rec)
	if len(profiles) != 1 || profiles[0].Role != types.RoleBuilder {
		t.Fatalf("profiles = %+v, want one provisioned builder", profiles)
	}

	// The caller completes their own profile.
	rec = f.do(http.MethodPost, "/api/profiles", "alice", map[string]interface{}{
		"name":     "Alice",
		"role":     "investor",
		"location": "Berlin",
		"tags":     []string{"Fintech"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert = %d: %s", rec.Code, rec.Body.String())
	}
	updated := decode[types.Profile](t, rec)
	if updated.Role != types.RoleInvestor || updated.Location != "Berlin" {
		t.Errorf("updated = %+v", updated)
	}
}

func TestPatchProfileSelfOnly(t *testing.T) {
	f := newFixture(t)
	other := f.addProfile("bob", "Bob", types.RoleBuilder)
	f.addProfile("alice", "Alice", types.RoleBuilder)

	rec := f.do(http.MethodPatch, "/api/profiles/"+other.ID, "alice", map[string]string{"name": "Hijacked"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("patching another profile = %d, want 403", rec.Code)
	}
}

func TestProfileValidationSurfacesField(t *testing.T) {
	f := newFixture(t)
	f.addProfile("alice", "Alice", types.RoleBuilder)

	rec := f.do(http.MethodPost, "/api/profiles", "alice", map[string]string{"role": "wizard"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decode[errorBody](t, rec)
	if body.Error.Code != "validation" || body.Error.Field != "role" {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestOnlyBuildersCreateProjects(t *testing.T) {
	f := newFixture(t)
	f.addProfile("inv", "Grace", types.RoleInvestor)

	rec := f.do(http.MethodPost, "/api/projects", "inv", map[string]string{"name": "Fund"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("investor project create = %d, want 400", rec.Code)
	}

	f.addProfile("bld", "Ada", types.RoleBuilder)
	rec = f.do(http.MethodPost, "/api/projects", "bld", map[string]string{"name": "Rocket"})
	if rec.Code != http.StatusCreated {
		t.Errorf("builder project create = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTaskVisibilityByTier(t *testing.T) {
	tf := newTierFixture(t)

	for _, task := range []*types.Task{
		{ProjectID: tf.project.ID, Title: "For limited", AssigneeID: tf.lim.ID},
		{ProjectID: tf.project.ID, Title: "For full", AssigneeID: tf.full.ID},
		{ProjectID: tf.project.ID, Title: "Unassigned"},
	} {
		if err := tf.store.CreateTask(task); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
	}

	path := "/api/projects/" + tf.project.ID + "/tasks"

	tests := []struct {
		name      string
		subject   string
		wantCode  int
		wantTasks int
	}{
		{"OwnerSeesAll", "own", http.StatusOK, 3},
		{"FullSeesAll", "ful", http.StatusOK, 3},
		{"LimitedSeesOwnOnly", "lim", http.StatusOK, 1},
		{"StrangerDenied", "out", http.StatusForbidden, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tf.do(http.MethodGet, path, tt.subject, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			tasks := decode[[]types.Task](t, rec)
			if len(tasks) != tt.wantTasks {
				t.Errorf("tasks = %d, want %d", len(tasks), tt.wantTasks)
			}
			if tt.name == "LimitedSeesOwnOnly" && tasks[0].AssigneeID != tf.lim.ID {
				t.Errorf("limited member saw someone else's task: %+v", tasks[0])
			}
		})
	}
}

func TestMemberListByTier(t *testing.T) {
	tf := newTierFixture(t)
	path := "/api/projects/" + tf.project.ID + "/members"

	rec := tf.do(http.MethodGet, path, "ful", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("full member list = %d", rec.Code)
	}
	if members := decode[[]types.ProjectMember](t, rec); len(members) != 2 {
		t.Errorf("full member saw %d rows, want 2", len(members))
	}

	rec = tf.do(http.MethodGet, path, "lim", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("limited member list = %d", rec.Code)
	}
	members := decode[[]types.ProjectMember](t, rec)
	if len(members) != 1 || members[0].ProfileID != tf.lim.ID {
		t.Errorf("limited member saw %+v, want only their own row", members)
	}

	if rec := tf.do(http.MethodGet, path, "out", nil); rec.Code != http.StatusForbidden {
		t.Errorf("stranger member list = %d, want 403", rec.Code)
	}
}

func TestRepositoriesInvisibleBelowFullAccess(t *testing.T) {
	tf := newTierFixture(t)
	if err := tf.store.CreateRepository(&types.CodeRepository{ProjectID: tf.project.ID, Name: "core", URL: "https://example.com/core"}); err != nil {
		t.Fatalf("CreateRepository: %v", err)
	}
	path := "/api/projects/" + tf.project.ID + "/repositories"

	if rec := tf.do(http.MethodGet, path, "ful", nil); rec.Code != http.StatusOK {
		t.Errorf("full member repos = %d, want 200", rec.Code)
	}
	if rec := tf.do(http.MethodGet, path, "lim", nil); rec.Code != http.StatusForbidden {
		t.Errorf("limited member repos = %d, want 403", rec.Code)
	}
	if rec := tf.do(http.MethodGet, path, "out", nil); rec.Code != http.StatusForbidden {
		t.Errorf("stranger repos = %d, want 403", rec.Code)
	}
}

func TestAccessToggleOwnerOnly(t *testing.T) {
	tf := newTierFixture(t)
	path := "/api/projects/" + tf.project.ID + "/members/" + tf.lim.ID + "/access"
	body := map[string]bool{"hasAccess": true}

	if rec := tf.do(http.MethodPatch, path, "ful", body); rec.Code != http.StatusForbidden {
		t.Errorf("member toggling access = %d, want 403", rec.Code)
	}

	rec := tf.do(http.MethodPatch, path, "own", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner toggle = %d: %s", rec.Code, rec.Body.String())
	}
	m := decode[types.ProjectMember](t, rec)
	if !m.HasAccess {
		t.Error("hasAccess not set")
	}

	// The promoted member can now read repositories.
	if rec := tf.do(http.MethodGet, "/api/projects/"+tf.project.ID+"/repositories", "lim", nil); rec.Code != http.StatusOK {
		t.Errorf("promoted member repos = %d, want 200", rec.Code)
	}
}

func TestLimitedMemberCannotWrite(t *testing.T) {
	tf := newTierFixture(t)
	rec := tf.do(http.MethodPost, "/api/projects/"+tf.project.ID+"/tasks", "lim", map[string]string{"title": "Sneaky"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("limited member task create = %d, want 403", rec.Code)
	}
}

func TestMatchLifecycle(t *testing.T) {
	f := newFixture(t)
	f.addProfile("ada", "Ada", types.RoleBuilder)
	grace := f.addProfile("grc", "Grace", types.RoleInvestor)

	rec := f.do(http.MethodPost, "/api/matches", "ada", map[string]string{
		"receiverId": grace.ID,
		"message":    "let's talk",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create match = %d: %s", rec.Code, rec.Body.String())
	}
	m := decode[types.Match](t, rec)
	if m.Status != types.MatchPending {
		t.Fatalf("match = %+v, want pending", m)
	}

	// Duplicate pending request for the pair, either direction, conflicts.
	if rec := f.do(http.MethodPost, "/api/matches", "grc", map[string]string{"receiverId": m.InitiatorID}); rec.Code != http.StatusConflict {
		t.Errorf("duplicate match = %d, want 409", rec.Code)
	}

	// Only the receiver can respond.
	if rec := f.do(http.MethodPost, "/api/matches/"+m.ID+"/respond", "ada", map[string]bool{"accept": true}); rec.Code != http.StatusForbidden {
		t.Errorf("initiator respond = %d, want 403", rec.Code)
	}

	rec = f.do(http.MethodPost, "/api/matches/"+m.ID+"/respond", "grc", map[string]bool{"accept": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("respond = %d: %s", rec.Code, rec.Body.String())
	}
	responded := decode[types.Match](t, rec)
	if responded.Status != types.MatchAccepted || responded.RespondedAt == nil {
		t.Errorf("responded = %+v", responded)
	}

	// A resolved match stays resolved.
	if rec := f.do(http.MethodPost, "/api/matches/"+m.ID+"/respond", "grc", map[string]bool{"accept": false}); rec.Code != http.StatusConflict {
		t.Errorf("double respond = %d, want 409", rec.Code)
	}

	// Outsiders cannot read the match.
	f.addProfile("eve", "Eve", types.RoleBuilder)
	if rec := f.do(http.MethodGet, "/api/matches/"+m.ID, "eve", nil); rec.Code != http.StatusForbidden {
		t.Errorf("outsider get match = %d, want 403", rec.Code)
	}
}

func TestSuggestionsSelfOnly(t *testing.T) {
	f := newFixture(t)
	other := f.addProfile("bob", "Bob", types.RoleBuilder)
	f.addProfile("ada", "Ada", types.RoleBuilder)

	rec := f.do(http.MethodGet, "/api/profiles/"+other.ID+"/suggestions", "ada", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign suggestions = %d, want 403", rec.Code)
	}
}

func TestSuggestionsDegradeWhenGenerationUnavailable(t *testing.T) {
	f := newFixture(t)
	ada := f.addProfile("ada", "Ada", types.RoleBuilder)
	f.addProfile("grc", "Grace", types.RoleInvestor)

	// The scripted client fails every call; the endpoint still answers.
	rec := f.do(http.MethodGet, "/api/profiles/"+ada.ID+"/suggestions", "ada", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("suggestions = %d: %s", rec.Code, rec.Body.String())
	}
	suggestions := decode[[]types.Suggestion](t, rec)
	if len(suggestions) != 0 {
		t.Errorf("suggestions = %v, want empty", suggestions)
	}
}

func TestSuggestionsScoredPath(t *testing.T) {
	f := newFixture(t)
	ada := f.addProfile("ada", "Ada", types.RoleBuilder)
	grace := f.addProfile("grc", "Grace", types.RoleInvestor)

	f.llm.err = nil
	f.llm.raw = `{"matches":[{"profileId":"` + grace.ID + `","matchScore":88,"matchReason":"complementary","matchType":"investment"}]}`

	rec := f.do(http.MethodGet, "/api/profiles/"+ada.ID+"/suggestions?limit=5", "ada", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("suggestions = %d: %s", rec.Code, rec.Body.String())
	}
	suggestions := decode[[]types.Suggestion](t, rec)
	if len(suggestions) != 1 || suggestions[0].Profile.ID != grace.ID || suggestions[0].MatchScore != 88 {
		t.Errorf("suggestions = %+v", suggestions)
	}
}

func TestContributionFlow(t *testing.T) {
	tf := newTierFixture(t)
	base := "/api/projects/" + tf.project.ID + "/contributions"

	rec := tf.do(http.MethodPost, base, "ful", map[string]interface{}{
		"profileId":   tf.full.ID,
		"description": "shipped auth",
		"valueScore":  60,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create contribution = %d: %s", rec.Code, rec.Body.String())
	}
	rec = tf.do(http.MethodPost, base, "own", map[string]interface{}{
		"profileId":  tf.owner.ID,
		"valueScore": 20,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create contribution = %d: %s", rec.Code, rec.Body.String())
	}

	rec = tf.do(http.MethodGet, base+"/shares", "own", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("shares = %d: %s", rec.Code, rec.Body.String())
	}
	shares := decode[[]types.ContributionShare](t, rec)
	if len(shares) != 2 || shares[0].Percent != 75 {
		t.Errorf("shares = %+v", shares)
	}

	if rec := tf.do(http.MethodGet, base, "lim", nil); rec.Code != http.StatusForbidden {
		t.Errorf("limited member contributions = %d, want 403", rec.Code)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	f := newFixture(t)
	f.addProfile("ada", "Ada", types.RoleBuilder)
	f.addProfile("grc", "Grace", types.RoleInvestor)

	rec := f.do(http.MethodGet, "/api/analytics/overview", "ada", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("overview = %d: %s", rec.Code, rec.Body.String())
	}
	var overview struct {
		ProfilesByRole map[string]int `json:"profilesByRole"`
		ProjectCount   int            `json:"projectCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &overview); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if overview.ProfilesByRole["builder"] != 1 || overview.ProfilesByRole["investor"] != 1 {
		t.Errorf("overview = %+v", overview)
	}

	rec = f.do(http.MethodGet, "/api/analytics/activity", "ada", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("activity = %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(http.MethodGet, "/api/analytics/activity?from=yesterday", "ada", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad from = %d, want 400", rec.Code)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	f := newFixture(t)
	f.addProfile("ada", "Ada", types.RoleBuilder)

	rec := f.do(http.MethodPost, "/api/profiles", "ada", map[string]string{"nmae": "typo"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field = %d, want 400", rec.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("request id = %q, want echoed", got)
	}
}

func TestInternalErrorsDoNotLeak(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("sqlite: disk I/O error at /var/lib/secret.db"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[errorBody](t, rec)
	if body.Error.Message != "internal error" {
		t.Errorf("leaked detail: %q", body.Error.Message)
	}
}

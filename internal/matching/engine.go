// Package matching implements the suggestion pipeline: a cheap local
// pre-ranking bounds the candidate set, the external generation service
// scores and explains it, and the response is validated, filtered, and
// enriched. The expensive step never sees more than the configured cap of
// candidates; the pre-rank score is a proxy that guarantees boundedness,
// not final-ranking optimality.
package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cofound/internal/config"
	"cofound/internal/llm"
	"cofound/internal/logging"
	"cofound/internal/store"
	"cofound/internal/types"

	"golang.org/x/sync/singleflight"
)

// Engine produces ranked suggestions for a profile.
type Engine struct {
	store  *store.Store
	client llm.Client

	mu  sync.RWMutex
	cfg config.MatchingConfig

	group singleflight.Group
}

// NewEngine wires the pipeline.
func NewEngine(st *store.Store, client llm.Client, cfg config.MatchingConfig) *Engine {
	return &Engine{store: st, client: client, cfg: cfg}
}

// SetConfig swaps the pipeline bounds (config hot-reload path).
func (e *Engine) SetConfig(cfg config.MatchingConfig) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

func (e *Engine) config() config.MatchingConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// compatibleRoles returns the roles a requester is matched against:
// builders see investors and technical leads; both of those see builders.
func compatibleRoles(r types.Role) []types.Role {
	switch r {
	case types.RoleBuilder:
		return []types.Role{types.RoleInvestor, types.RoleTechnical}
	case types.RoleInvestor, types.RoleTechnical:
		return []types.Role{types.RoleBuilder}
	default:
		return nil
	}
}

// PreRankScore is the local heuristic: 10 per shared tag plus 5 for an
// identical non-empty location. Tags compare case-insensitively.
func PreRankScore(a, b *types.Profile) int {
	tags := make(map[string]bool, len(a.Tags))
	for _, t := range a.Tags {
		tags[strings.ToLower(t)] = true
	}
	score := 0
	for _, t := range b.Tags {
		if tags[strings.ToLower(t)] {
			score += 10
		}
	}
	if a.Location != "" && a.Location == b.Location {
		score += 5
	}
	return score
}

// clampLimit normalizes the caller's requested result count into [1, max],
// substituting the default when unset.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// Suggest returns up to limit ranked suggestions for the profile. roleFilter
// optionally narrows candidates to one role. A requester whose profile does
// not exist is an error; a failing or unparsable generation call is not — the
// pipeline degrades to an empty result set on this best-effort feature.
func (e *Engine) Suggest(ctx context.Context, profileID string, roleFilter types.Role, limit int) ([]types.Suggestion, error) {
	cfg := e.config()
	limit = clampLimit(limit, cfg.DefaultLimit, cfg.MaxLimit)

	// Concurrent identical requests collapse into one pipeline run; the
	// generation call is the only expensive step in the service. The run is
	// shared, so it must not die with whichever caller happened to start it:
	// the client's own timeout bounds the detached call.
	key := fmt.Sprintf("%s|%s|%d", profileID, roleFilter, limit)
	v, err, _ := e.group.Do(key, func() (interface{}, error) {
		return e.suggest(context.WithoutCancel(ctx), profileID, roleFilter, limit, cfg)
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.Suggestion), nil
}

func (e *Engine) suggest(ctx context.Context, profileID string, roleFilter types.Role, limit int, cfg config.MatchingConfig) ([]types.Suggestion, error) {
	timer := logging.StartTimer(logging.CategoryMatching, "Suggest")
	defer timer.Stop()

	requester, err := e.store.GetProfile(profileID)
	if err != nil {
		return nil, err
	}

	// Step 1: role-compatibility filter, narrowed by the optional role filter.
	roles := compatibleRoles(requester.Role)
	if roleFilter != "" {
		if !types.ValidRole(roleFilter) {
			return nil, types.Validationf("role", "unknown role %q", roleFilter)
		}
		narrowed := roles[:0:0]
		for _, r := range roles {
			if r == roleFilter {
				narrowed = append(narrowed, r)
			}
		}
		roles = narrowed
	}
	if len(roles) == 0 {
		return []types.Suggestion{}, nil
	}

	// Step 2: exclude self and anything already connected, either direction,
	// any status.
	connected, err := e.store.ConnectedProfileIDs(profileID)
	if err != nil {
		return nil, err
	}

	var candidates []types.Profile
	for _, role := range roles {
		batch, err := e.store.ListProfiles(store.ProfileFilter{Role: role})
		if err != nil {
			return nil, err
		}
		for _, p := range batch {
			if p.ID == profileID || connected[p.ID] {
				continue
			}
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return []types.Suggestion{}, nil
	}

	// Step 3: heuristic pre-ranking, truncated to the cap. The bound keeps
	// the generation request small; it does not promise the best final
	// ranking, only that the most promising candidates are considered.
	sort.SliceStable(candidates, func(i, j int) bool {
		si := PreRankScore(requester, &candidates[i])
		sj := PreRankScore(requester, &candidates[j])
		if si != sj {
			return si > sj
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > cfg.PreRankCap {
		candidates = candidates[:cfg.PreRankCap]
	}
	logging.Matching("Pre-ranked %d candidates for %s", len(candidates), profileID)

	// Step 4: external scoring and explanation. Fail-soft from here on.
	projects, err := e.store.ListProjectsForProfile(profileID)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(requester, projects, candidates)
	raw, err := e.client.CompleteWithSystem(ctx, matchSystemInstruction, prompt)
	if err != nil {
		logging.Get(logging.CategoryMatching).Warn("generation call failed, degrading to empty results: %v", err)
		return []types.Suggestion{}, nil
	}

	byID := make(map[string]types.Profile, len(candidates))
	for _, p := range candidates {
		byID[p.ID] = p
	}

	scored, err := parseSuggestions(raw, byID)
	if err != nil {
		logging.Get(logging.CategoryMatching).Warn("unparsable generation response, degrading to empty results: %v", err)
		return []types.Suggestion{}, nil
	}

	// Step 5: post-filter and truncate.
	filtered := scored[:0]
	for _, s := range scored {
		if s.MatchScore >= cfg.MinScore {
			filtered = append(filtered, s)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].MatchScore > filtered[j].MatchScore
	})
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	// Step 6: enrichment happened during parse (full profile records joined
	// from the candidate set).
	logging.Matching("Returning %d suggestions for %s", len(filtered), profileID)
	return filtered, nil
}

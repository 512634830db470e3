// Package server is the HTTP surface of cofound: resource endpoints per
// entity, the suggestion endpoint, and the analytics reads. Authorization is
// resolved per request by the injected auth strategy and the access package;
// nothing is filtered client-side.
package server

import (
	"context"
	"net/http"

	"cofound/internal/analytics"
	"cofound/internal/auth"
	"cofound/internal/config"
	"cofound/internal/matching"
	"cofound/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server wires the handlers to their collaborators.
type Server struct {
	cfg       *config.Config
	store     *store.Store
	auth      auth.Authenticator
	matcher   *matching.Engine
	analytics *analytics.Service
	logger    *zap.Logger
	http      *http.Server
}

// New assembles the server. The authenticator is injected, never derived
// from the environment here.
func New(cfg *config.Config, st *store.Store, authn auth.Authenticator, matcher *matching.Engine, logger *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		store:     st,
		auth:      authn,
		matcher:   matcher,
		analytics: analytics.NewService(st),
		logger:    logger,
	}
	s.http = &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: s.Handler(),
	}
	return s
}

// Handler builds the routed, middleware-wrapped handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Profiles and discovery
	mux.HandleFunc("GET /api/profiles", s.requireAuth(s.handleListProfiles))
	mux.HandleFunc("POST /api/profiles", s.requireAuth(s.handleUpsertProfile))
	mux.HandleFunc("GET /api/profiles/{id}", s.requireAuth(s.handleGetProfile))
	mux.HandleFunc("PATCH /api/profiles/{id}", s.requireAuth(s.handlePatchProfile))
	mux.HandleFunc("GET /api/profiles/{id}/suggestions", s.requireAuth(s.handleSuggestions))
	mux.HandleFunc("GET /api/profiles/{id}/matches", s.requireAuth(s.handleListMatches))

	// Matches
	mux.HandleFunc("POST /api/matches", s.requireAuth(s.handleCreateMatch))
	mux.HandleFunc("GET /api/matches/{id}", s.requireAuth(s.handleGetMatch))
	mux.HandleFunc("POST /api/matches/{id}/respond", s.requireAuth(s.handleRespondMatch))

	// Projects
	mux.HandleFunc("GET /api/projects", s.requireAuth(s.handleListProjects))
	mux.HandleFunc("POST /api/projects", s.requireAuth(s.handleCreateProject))
	mux.HandleFunc("GET /api/projects/{id}", s.requireAuth(s.handleGetProject))
	mux.HandleFunc("PATCH /api/projects/{id}", s.requireAuth(s.handlePatchProject))

	// Project sub-resources, tier-gated
	mux.HandleFunc("GET /api/projects/{id}/members", s.requireAuth(s.handleListMembers))
	mux.HandleFunc("POST /api/projects/{id}/members", s.requireAuth(s.handleAddMember))
	mux.HandleFunc("PATCH /api/projects/{id}/members/{profileId}/access", s.requireAuth(s.handleSetMemberAccess))
	mux.HandleFunc("GET /api/projects/{id}/tasks", s.requireAuth(s.handleListTasks))
	mux.HandleFunc("POST /api/projects/{id}/tasks", s.requireAuth(s.handleCreateTask))
	mux.HandleFunc("PATCH /api/projects/{id}/tasks/{taskId}", s.requireAuth(s.handlePatchTask))
	mux.HandleFunc("GET /api/projects/{id}/repositories", s.requireAuth(s.handleListRepositories))
	mux.HandleFunc("POST /api/projects/{id}/repositories", s.requireAuth(s.handleCreateRepository))
	mux.HandleFunc("GET /api/projects/{id}/contributions", s.requireAuth(s.handleListContributions))
	mux.HandleFunc("POST /api/projects/{id}/contributions", s.requireAuth(s.handleCreateContribution))
	mux.HandleFunc("GET /api/projects/{id}/contributions/shares", s.requireAuth(s.handleContributionShares))
	mux.HandleFunc("GET /api/projects/{id}/documents", s.requireAuth(s.handleListDocuments))
	mux.HandleFunc("POST /api/projects/{id}/documents", s.requireAuth(s.handleCreateDocument))
	mux.HandleFunc("PATCH /api/projects/{id}/documents/{docId}", s.requireAuth(s.handlePatchDocument))

	// Analytics
	mux.HandleFunc("GET /api/analytics/overview", s.requireAuth(s.handleAnalyticsOverview))
	mux.HandleFunc("GET /api/analytics/activity", s.requireAuth(s.handleAnalyticsActivity))

	var h http.Handler = mux
	h = s.withRecovery(h)
	h = s.withLogging(h)
	h = withRequestID(h)
	return h
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeoutDuration())
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// ApplyConfig absorbs a hot-reloaded config: only the matching bounds are
// live-tunable, everything else needs a restart.
func (s *Server) ApplyConfig(cfg *config.Config) {
	s.matcher.SetConfig(cfg.Matching)
	s.logger.Info("applied reloaded config", zap.Int("matching_max_limit", cfg.Matching.MaxLimit))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

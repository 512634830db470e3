package server

import (
	"net/http"
	"strconv"
	"time"

	"cofound/internal/types"
)

const defaultHistogramLimit = 5

// handleAnalyticsOverview serves the dashboard headline aggregates.
// GET /api/analytics/overview?limit=N
func (s *Server) handleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistogramLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			writeError(w, types.Validationf("limit", "limit must be an integer between 1 and 50"))
			return
		}
		limit = n
	}

	overview, err := s.analytics.Overview(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// handleAnalyticsActivity counts profiles and matches created in a window.
// GET /api/analytics/activity?from=RFC3339&to=RFC3339 (default: last 30 days)
func (s *Server) handleAnalyticsActivity(w http.ResponseWriter, r *http.Request) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)

	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, types.Validationf("from", "from must be an RFC 3339 timestamp"))
			return
		}
		from = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, types.Validationf("to", "to must be an RFC 3339 timestamp"))
			return
		}
		to = t
	}
	if !from.Before(to) {
		writeError(w, types.Validationf("from", "from must be earlier than to"))
		return
	}

	activity, err := s.analytics.Activity(from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

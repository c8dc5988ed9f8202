package http

import "net/http"

// DefaultActivityLimit is used when recent-activity is called without a limit.
const DefaultActivityLimit = 10

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.dashboard.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(stats).Write(w)
}

// GET /api/dashboard/recent-activity?limit=1..50
func (s *Server) handleRecentActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r.URL.Query(), "limit", DefaultActivityLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.dashboard.RecentActivity(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(items).Count(len(items)).Write(w)
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.dashboard.Summary(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(summary).Write(w)
}

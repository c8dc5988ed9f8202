package http

import (
	"context"
	"net/http"
	"time"
)

type endpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

var apiEndpoints = []endpoint{
	{"GET", "/api/materials"},
	{"POST", "/api/materials"},
	{"GET", "/api/materials/active"},
	{"GET", "/api/materials/stats"},
	{"GET", "/api/materials/{id}"},
	{"PUT", "/api/materials/{id}"},
	{"DELETE", "/api/materials/{id}"},
	{"GET", "/api/quotes"},
	{"POST", "/api/quotes"},
	{"GET", "/api/quotes/stats"},
	{"GET", "/api/quotes/recent"},
	{"GET", "/api/quotes/client/{client}"},
	{"GET", "/api/quotes/number/{number}"},
	{"GET", "/api/quotes/{id}"},
	{"PUT", "/api/quotes/{id}"},
	{"PATCH", "/api/quotes/{id}/status"},
	{"DELETE", "/api/quotes/{id}"},
	{"GET", "/api/dashboard/stats"},
	{"GET", "/api/dashboard/recent-activity"},
	{"GET", "/api/dashboard/summary"},
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Message("cotizador API").
		Data(map[string]any{"endpoints": apiEndpoints}).
		Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Message("ok").
		Data(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"uptime":    time.Since(s.started).Round(time.Second).String(),
		}).
		Write(w)
}

// handleReady fails with 503 while the database is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			ErrorResponse(http.StatusServiceUnavailable, "database unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Message("ready").Write(w)
}

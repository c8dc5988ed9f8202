package http

import (
	"net/http"
	"strings"

	"cotizador/internal/core"
	"cotizador/internal/services"
	"cotizador/internal/storage"
)

// GET /api/quotes?search=&status=|estado=&client=|cliente=&sort=&page=&limit=
func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := ParsePageParams(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items, total, err := s.quotes.List(r.Context(), storage.QuoteFilter{
		Search: queryParam(q, "search"),
		Status: core.Status(queryParam(q, "status", "estado")),
		Client: queryParam(q, "client", "cliente"),
		Sort:   queryParam(q, "sort"),
		Page:   page.Storage(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(items).Page(page, len(items), total).Write(w)
}

func (s *Server) handleQuoteStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.quotes.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(stats).Write(w)
}

// GET /api/quotes/recent?limit=
func (s *Server) handleRecentQuotes(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r.URL.Query(), "limit", services.DefaultRecentQuotes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.quotes.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(items).Count(len(items)).Write(w)
}

func (s *Server) handleQuotesByClient(w http.ResponseWriter, r *http.Request) {
	items, err := s.quotes.ListByClient(r.Context(), sanitizeInput(r.PathValue("client")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(items).Count(len(items)).Write(w)
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := s.quotes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(quote).Write(w)
}

func (s *Server) handleGetQuoteByNumber(w http.ResponseWriter, r *http.Request) {
	quote, err := s.quotes.GetByNumber(r.Context(), r.PathValue("number"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(quote).Write(w)
}

func (s *Server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var in services.QuoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	quote, err := s.quotes.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/quotes/"+quote.ID).
		Message("Quote " + quote.Number + " created").
		Data(quote).
		Write(w)
}

// PUT /api/quotes/{id}. Any number or totals in the body are ignored.
func (s *Server) handleUpdateQuote(w http.ResponseWriter, r *http.Request) {
	var in services.QuoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	quote, err := s.quotes.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("Quote updated").Data(quote).Write(w)
}

type statusRequest struct {
	Status core.Status `json:"status"`
	Estado core.Status `json:"estado"`
}

// PATCH /api/quotes/{id}/status with {"status": "..."}
func (s *Server) handleUpdateQuoteStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	status := body.Status
	if status == "" {
		status = body.Estado
	}
	status = core.Status(strings.ToLower(strings.TrimSpace(string(status))))
	if status == "" {
		s.writeError(w, r, core.NewValidationError("status", "is required"))
		return
	}

	quote, err := s.quotes.UpdateStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("Quote status updated").Data(quote).Write(w)
}

func (s *Server) handleDeleteQuote(w http.ResponseWriter, r *http.Request) {
	if err := s.quotes.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("Quote deleted").Write(w)
}

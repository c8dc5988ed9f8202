package http

import (
	"net/http"

	"cotizador/internal/services"
	"cotizador/internal/storage"
)

// GET /api/materials?search=&active=|activo=&page=&limit=
func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := ParsePageParams(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	active, err := parseOptionalBool(q, "active", "activo")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items, total, err := s.materials.List(r.Context(), storage.MaterialFilter{
		Search: queryParam(q, "search"),
		Active: active,
		Page:   page.Storage(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(items).Page(page, len(items), total).Write(w)
}

func (s *Server) handleActiveMaterials(w http.ResponseWriter, r *http.Request) {
	items, err := s.materials.Active(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(items).Count(len(items)).Write(w)
}

func (s *Server) handleMaterialStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.materials.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(stats).Write(w)
}

func (s *Server) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	m, err := s.materials.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(m).Write(w)
}

func (s *Server) handleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var in services.MaterialInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.materials.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Message("Material created").Data(m).Write(w)
}

func (s *Server) handleUpdateMaterial(w http.ResponseWriter, r *http.Request) {
	var in services.MaterialInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.materials.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("Material updated").Data(m).Write(w)
}

func (s *Server) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	if err := s.materials.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("Material deleted").Write(w)
}

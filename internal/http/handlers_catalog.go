package http

import (
	"io"
	"net/http"
	"strings"

	"tesoreria/internal/core"
)

type createCatalogEntryRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	GeneralID   string `json:"generalId"`
	ConceptID   string `json:"conceptId"`
	Description string `json:"description"`
}

func (s *Server) handleListGenerals(w http.ResponseWriter, r *http.Request) {
	generals, err := s.catalog.ListGenerals(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]catalogEntryDTO, 0, len(generals))
	for _, g := range generals {
		out = append(out, catalogEntryDTO{ID: g.ID, Name: g.Name, Type: string(g.Type), Description: g.Description})
	}
	respondJSON(w, http.StatusOK, map[string]any{"generals": out})
}

func (s *Server) handleCreateGeneral(w http.ResponseWriter, r *http.Request) {
	var req createCatalogEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	g, err := s.catalog.CreateGeneral(r.Context(), core.General{
		Name:        strings.TrimSpace(req.Name),
		Type:        core.TransactionType(req.Type),
		Description: req.Description,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, catalogEntryDTO{ID: g.ID, Name: g.Name, Type: string(g.Type), Description: g.Description})
}

func (s *Server) handleDeleteGeneral(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteGeneral(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListConcepts(w http.ResponseWriter, r *http.Request) {
	concepts, err := s.catalog.ListConcepts(r.Context(), r.URL.Query().Get("generalId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]catalogEntryDTO, 0, len(concepts))
	for _, c := range concepts {
		out = append(out, catalogEntryDTO{ID: c.ID, Name: c.Name, ParentID: c.GeneralID, Description: c.Description})
	}
	respondJSON(w, http.StatusOK, map[string]any{"concepts": out})
}

func (s *Server) handleCreateConcept(w http.ResponseWriter, r *http.Request) {
	var req createCatalogEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	c, err := s.catalog.CreateConcept(r.Context(), core.Concept{
		GeneralID:   req.GeneralID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, catalogEntryDTO{ID: c.ID, Name: c.Name, ParentID: c.GeneralID, Description: c.Description})
}

func (s *Server) handleDeleteConcept(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteConcept(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListSubconcepts(w http.ResponseWriter, r *http.Request) {
	subconcepts, err := s.catalog.ListSubconcepts(r.Context(), r.URL.Query().Get("conceptId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]catalogEntryDTO, 0, len(subconcepts))
	for _, sc := range subconcepts {
		out = append(out, catalogEntryDTO{ID: sc.ID, Name: sc.Name, ParentID: sc.ConceptID, Description: sc.Description})
	}
	respondJSON(w, http.StatusOK, map[string]any{"subconcepts": out})
}

func (s *Server) handleCreateSubconcept(w http.ResponseWriter, r *http.Request) {
	var req createCatalogEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	sc, err := s.catalog.CreateSubconcept(r.Context(), core.Subconcept{
		ConceptID:   req.ConceptID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, catalogEntryDTO{ID: sc.ID, Name: sc.Name, ParentID: sc.ConceptID, Description: sc.Description})
}

func (s *Server) handleDeleteSubconcept(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteSubconcept(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.catalog.ListProviders(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]catalogEntryDTO, 0, len(providers))
	for _, p := range providers {
		out = append(out, catalogEntryDTO{ID: p.ID, Name: p.Name})
	}
	respondJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func (s *Server) handleCreateProvider(w http.ResponseWriter, r *http.Request) {
	var req createCatalogEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	p, err := s.catalog.CreateProvider(r.Context(), core.Provider{Name: strings.TrimSpace(req.Name)})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, catalogEntryDTO{ID: p.ID, Name: p.Name})
}

func (s *Server) handleDeleteProvider(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteProvider(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleImportCatalog accepts a CSV body (or multipart "file" field) and
// loads the catalog hierarchy from it.
func (s *Server) handleImportCatalog(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, 5<<20)
	defer body.Close()

	var reader io.Reader = body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(5 << 20); err != nil {
			respondError(w, r, &core.ValidationError{Field: "file", Message: "invalid multipart form"})
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			respondError(w, r, &core.ValidationError{Field: "file", Message: "missing file field"})
			return
		}
		defer f.Close()
		reader = f
	}

	result, err := s.importer.Import(r.Context(), reader)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

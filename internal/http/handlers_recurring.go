package http

import (
	"net/http"
	"strings"

	"tesoreria/internal/core"
)

type createRecurringRequest struct {
	GeneralID    string `json:"generalId"`
	ConceptID    string `json:"conceptId"`
	SubconceptID string `json:"subconceptId"`
	Description  string `json:"description"`
	Amount       string `json:"amount"`
	ProviderID   string `json:"providerId"`
	Division     string `json:"division"`
	Frequency    string `json:"frequency"`
	StartDate    string `json:"startDate"`
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req createRecurringRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		respondError(w, r, err)
		return
	}

	re, err := s.storage.CreateRecurringExpense(r.Context(), core.RecurringExpense{
		GeneralID:    req.GeneralID,
		ConceptID:    req.ConceptID,
		SubconceptID: req.SubconceptID,
		Description:  strings.TrimSpace(req.Description),
		Amount:       amount,
		ProviderID:   req.ProviderID,
		Division:     req.Division,
		Frequency:    core.Frequency(req.Frequency),
		StartDate:    start,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toRecurringDTO(re))
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	res, err := s.storage.ListRecurringExpenses(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]recurringDTO, 0, len(res))
	for _, re := range res {
		out = append(out, toRecurringDTO(re))
	}
	respondJSON(w, http.StatusOK, map[string]any{"recurringExpenses": out})
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	re, err := s.storage.GetRecurringExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toRecurringDTO(re))
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// handleSetRecurringActive pauses or resumes a template. A paused template
// keeps its history; resuming continues from where generation left off.
func (s *Server) handleSetRecurringActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	id := r.PathValue("id")
	if err := s.storage.SetRecurringExpenseActive(r.Context(), id, req.Active); err != nil {
		respondError(w, r, err)
		return
	}

	re, err := s.storage.GetRecurringExpense(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toRecurringDTO(re))
}

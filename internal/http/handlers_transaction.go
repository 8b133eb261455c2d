package http

import (
	"net/http"
	"strings"

	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

type createTransactionRequest struct {
	Type         string `json:"type"`
	Amount       string `json:"amount"`
	Date         string `json:"date"`
	Description  string `json:"description"`
	GeneralID    string `json:"generalId"`
	ConceptID    string `json:"conceptId"`
	SubconceptID string `json:"subconceptId"`
	ProviderID   string `json:"providerId"`
	Division     string `json:"division"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		respondError(w, r, err)
		return
	}

	tx, err := s.transactions.Create(r.Context(), core.Transaction{
		Type:         core.TransactionType(req.Type),
		Amount:       amount,
		Date:         date,
		Description:  strings.TrimSpace(req.Description),
		GeneralID:    req.GeneralID,
		ConceptID:    req.ConceptID,
		SubconceptID: req.SubconceptID,
		ProviderID:   req.ProviderID,
		Division:     req.Division,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.transactions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionDTO(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.TransactionFilter{
		Type:      core.TransactionType(q.Get("type")),
		Status:    core.Status(q.Get("status")),
		GeneralID: q.Get("generalId"),
		ConceptID: q.Get("conceptId"),
	}
	if v := q.Get("from"); v != "" {
		from, err := parseDate("from", v)
		if err != nil {
			respondError(w, r, err)
			return
		}
		filter.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := parseDate("to", v)
		if err != nil {
			respondError(w, r, err)
			return
		}
		filter.To = to
	}

	txs, err := s.transactions.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transactions": toTransactionDTOs(txs)})
}

type deleteTransactionRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	var req deleteTransactionRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
	}

	if err := s.transactions.Delete(r.Context(), r.PathValue("id"), req.Reason); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleTransactionSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toSummaryDTO(summary))
}

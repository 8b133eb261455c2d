package http

import (
	"net/http"
	"strings"

	"tesoreria/internal/core"
)

type addPaymentRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
	Notes  string `json:"notes"`
}

func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	var req addPaymentRequest
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

	payment, summary, err := s.ledger.AddPayment(r.Context(), core.Payment{
		TransactionID: r.PathValue("id"),
		Amount:        amount,
		Date:          date,
		Notes:         strings.TrimSpace(req.Notes),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"payment": toPaymentDTO(payment),
		"summary": toSummaryDTO(summary),
	})
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.ledger.ListPayments(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]paymentDTO, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentDTO(p))
	}
	respondJSON(w, http.StatusOK, map[string]any{"payments": out})
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.RemovePayment(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "deleted",
		"summary": toSummaryDTO(summary),
	})
}

package http

import (
	"time"

	"tesoreria/internal/core"
)

// Wire representations. Amounts travel as decimal strings ("1234.50") plus
// raw cents, dates as YYYY-MM-DD.

type transactionDTO struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Amount       string `json:"amount"`
	AmountCents  int64  `json:"amountCents"`
	Date         string `json:"date"`
	Description  string `json:"description"`
	GeneralID    string `json:"generalId"`
	ConceptID    string `json:"conceptId"`
	SubconceptID string `json:"subconceptId,omitempty"`
	ProviderID   string `json:"providerId,omitempty"`
	Division     string `json:"division,omitempty"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt"`
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:           t.ID,
		Type:         string(t.Type),
		Amount:       t.Amount.String(),
		AmountCents:  t.Amount.Cents,
		Date:         t.Date.Format("2006-01-02"),
		Description:  t.Description,
		GeneralID:    t.GeneralID,
		ConceptID:    t.ConceptID,
		SubconceptID: t.SubconceptID,
		ProviderID:   t.ProviderID,
		Division:     t.Division,
		Status:       string(t.Status),
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTOs(ts []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionDTO(t))
	}
	return out
}

type paymentDTO struct {
	ID            string `json:"id"`
	TransactionID string `json:"transactionId"`
	Amount        string `json:"amount"`
	AmountCents   int64  `json:"amountCents"`
	Date          string `json:"date"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

func toPaymentDTO(p core.Payment) paymentDTO {
	return paymentDTO{
		ID:            p.ID,
		TransactionID: p.TransactionID,
		Amount:        p.Amount.String(),
		AmountCents:   p.Amount.Cents,
		Date:          p.Date.Format("2006-01-02"),
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

type summaryDTO struct {
	TransactionID string       `json:"transactionId"`
	TotalAmount   string       `json:"totalAmount"`
	TotalPaid     string       `json:"totalPaid"`
	Balance       string       `json:"balance"`
	Status        string       `json:"status"`
	Payments      []paymentDTO `json:"payments"`
}

func toSummaryDTO(s core.PaymentSummary) summaryDTO {
	payments := make([]paymentDTO, 0, len(s.Payments))
	for _, p := range s.Payments {
		payments = append(payments, toPaymentDTO(p))
	}
	return summaryDTO{
		TransactionID: s.TransactionID,
		TotalAmount:   s.TotalAmount.String(),
		TotalPaid:     s.TotalPaid.String(),
		Balance:       s.Balance.String(),
		Status:        string(s.Status),
		Payments:      payments,
	}
}

type recurringDTO struct {
	ID            string `json:"id"`
	GeneralID     string `json:"generalId"`
	ConceptID     string `json:"conceptId"`
	SubconceptID  string `json:"subconceptId,omitempty"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	AmountCents   int64  `json:"amountCents"`
	ProviderID    string `json:"providerId"`
	Division      string `json:"division,omitempty"`
	Frequency     string `json:"frequency"`
	StartDate     string `json:"startDate"`
	IsActive      bool   `json:"isActive"`
	LastGenerated string `json:"lastGenerated,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

func toRecurringDTO(re core.RecurringExpense) recurringDTO {
	dto := recurringDTO{
		ID:           re.ID,
		GeneralID:    re.GeneralID,
		ConceptID:    re.ConceptID,
		SubconceptID: re.SubconceptID,
		Description:  re.Description,
		Amount:       re.Amount.String(),
		AmountCents:  re.Amount.Cents,
		ProviderID:   re.ProviderID,
		Division:     re.Division,
		Frequency:    string(re.Frequency),
		StartDate:    re.StartDate.Format("2006-01-02"),
		IsActive:     re.IsActive,
		CreatedAt:    re.CreatedAt.Format(time.RFC3339),
	}
	if !re.LastGenerated.IsZero() {
		dto.LastGenerated = re.LastGenerated.Format("2006-01-02")
	}
	return dto
}

type attachmentDTO struct {
	ID         string `json:"id"`
	FileName   string `json:"fileName"`
	FileType   string `json:"fileType"`
	FileSize   int64  `json:"fileSize"`
	UploadedAt string `json:"uploadedAt"`
}

func toAttachmentDTO(a core.Attachment) attachmentDTO {
	return attachmentDTO{
		ID:         a.ID,
		FileName:   a.FileName,
		FileType:   a.FileType,
		FileSize:   a.FileSize,
		UploadedAt: a.UploadedAt.Format(time.RFC3339),
	}
}

type catalogEntryDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	ParentID    string `json:"parentId,omitempty"`
	Description string `json:"description,omitempty"`
}

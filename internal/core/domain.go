package core

import (
	"strings"
	"time"
)

const (
	Entrada TransactionType = "entrada"
	Salida  TransactionType = "salida"
)

const (
	StatusPendiente Status = "pendiente"
	StatusParcial   Status = "parcial"
	StatusPagado    Status = "pagado"
)

const (
	Daily    Frequency = "daily"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
)

type (
	TransactionType string

	Status string

	Frequency string

	// Transaction is a single income (entrada) or expense (salida) record.
	// Status is always derived from the payments recorded against it and is
	// never set directly by callers.
	Transaction struct {
		ID           string
		Type         TransactionType
		Amount       Money
		Date         time.Time
		Description  string
		GeneralID    string
		ConceptID    string
		SubconceptID string
		ProviderID   string // required when Type is Salida
		Division     string
		Status       Status
		IsActive     bool
		CreatedAt    time.Time
	}

	// Payment is an append-only partial payment against a transaction.
	Payment struct {
		ID            string
		TransactionID string
		Amount        Money
		Date          time.Time
		Notes         string
		CreatedAt     time.Time
	}

	// RecurringExpense is a template that periodically materializes new
	// pending salida transactions.
	RecurringExpense struct {
		ID            string
		GeneralID     string
		ConceptID     string
		SubconceptID  string
		Description   string
		Amount        Money
		ProviderID    string
		Division      string
		Frequency     Frequency
		StartDate     time.Time
		IsActive      bool
		LastGenerated time.Time // zero when never generated
		CreatedAt     time.Time
	}

	// Attachment describes a stored receipt or supporting document.
	Attachment struct {
		ID         string
		FileName   string
		FileURL    string
		FileType   string
		FileSize   int64
		UploadedAt time.Time
	}

	General struct {
		ID          string
		Name        string
		Type        TransactionType
		Description string
		IsActive    bool
		CreatedAt   time.Time
	}

	Concept struct {
		ID          string
		GeneralID   string
		Name        string
		Description string
		IsActive    bool
		CreatedAt   time.Time
	}

	Subconcept struct {
		ID          string
		ConceptID   string
		Name        string
		Description string
		IsActive    bool
		CreatedAt   time.Time
	}

	Provider struct {
		ID        string
		Name      string
		IsActive  bool
		CreatedAt time.Time
	}

	// PaymentSummary is the result of recomputing a transaction's payment
	// state against its ledger.
	PaymentSummary struct {
		TransactionID string
		TotalAmount   Money
		TotalPaid     Money
		Balance       Money
		Status        Status
		Payments      []Payment
	}
)

// ValidFrequency reports whether f is a supported scheduling frequency.
func ValidFrequency(f Frequency) bool {
	switch f {
	case Daily, Weekly, Biweekly, Monthly:
		return true
	}
	return false
}

func (t Transaction) Validate() error {
	switch t.Type {
	case Entrada, Salida:
	default:
		return &ValidationError{Field: "type", Message: "type must be entrada or salida"}
	}
	if t.Amount.Cents < 0 {
		return &ValidationError{Field: "amount", Message: "amount cannot be negative"}
	}
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "date is required"}
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return &ValidationError{Field: "description", Message: "description is required"}
	}
	if len(t.Description) > 200 {
		return &ValidationError{Field: "description", Message: "description too long (max 200 characters)"}
	}
	if strings.TrimSpace(t.GeneralID) == "" {
		return &ValidationError{Field: "generalId", Message: "general is required"}
	}
	if strings.TrimSpace(t.ConceptID) == "" {
		return &ValidationError{Field: "conceptId", Message: "concept is required"}
	}
	if t.Type == Salida && strings.TrimSpace(t.ProviderID) == "" {
		return &ValidationError{Field: "providerId", Message: "provider is required for salida transactions"}
	}
	return nil
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.TransactionID) == "" {
		return &ValidationError{Field: "transactionId", Message: "transaction is required"}
	}
	if p.Amount.Cents <= 0 {
		return &ValidationError{Field: "amount", Message: "amount must be greater than zero"}
	}
	if p.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "date is required"}
	}
	if len(p.Notes) > 500 {
		return &ValidationError{Field: "notes", Message: "notes too long (max 500 characters)"}
	}
	return nil
}

func (re RecurringExpense) Validate() error {
	if strings.TrimSpace(re.GeneralID) == "" {
		return &ValidationError{Field: "generalId", Message: "general is required"}
	}
	if strings.TrimSpace(re.ConceptID) == "" {
		return &ValidationError{Field: "conceptId", Message: "concept is required"}
	}
	if len(strings.TrimSpace(re.Description)) == 0 {
		return &ValidationError{Field: "description", Message: "description is required"}
	}
	if len(re.Description) > 200 {
		return &ValidationError{Field: "description", Message: "description too long (max 200 characters)"}
	}
	if re.Amount.Cents <= 0 {
		return &ValidationError{Field: "amount", Message: "amount must be greater than zero"}
	}
	if strings.TrimSpace(re.ProviderID) == "" {
		return &ValidationError{Field: "providerId", Message: "provider is required"}
	}
	if !ValidFrequency(re.Frequency) {
		return &ValidationError{Field: "frequency", Message: "frequency must be daily, weekly, biweekly or monthly"}
	}
	if re.StartDate.IsZero() {
		return &ValidationError{Field: "startDate", Message: "start date is required"}
	}
	return nil
}

func (g General) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	switch g.Type {
	case Entrada, Salida:
	default:
		return &ValidationError{Field: "type", Message: "type must be entrada or salida"}
	}
	return nil
}

func (c Concept) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(c.GeneralID) == "" {
		return &ValidationError{Field: "generalId", Message: "general is required"}
	}
	return nil
}

func (s Subconcept) Validate() error {
	if len(strings.TrimSpace(s.Name)) == 0 {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(s.ConceptID) == "" {
		return &ValidationError{Field: "conceptId", Message: "concept is required"}
	}
	return nil
}

func (p Provider) Validate() error {
	if len(strings.TrimSpace(p.Name)) == 0 {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	return nil
}

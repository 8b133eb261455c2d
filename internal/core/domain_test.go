package core

import (
	"errors"
	"testing"
	"time"
)

func validTransaction() Transaction {
	return Transaction{
		Type:        Salida,
		Amount:      Money{Cents: 50000},
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: "alquiler cancha",
		GeneralID:   "gen-1",
		ConceptID:   "con-1",
		ProviderID:  "prov-1",
	}
}

func TestTransactionValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Transaction)
		wantField string
	}{
		{"valid", func(tx *Transaction) {}, ""},
		{"entrada without provider", func(tx *Transaction) { tx.Type = Entrada; tx.ProviderID = "" }, ""},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, "type"},
		{"negative amount", func(tx *Transaction) { tx.Amount.Cents = -1 }, "amount"},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }, "date"},
		{"empty description", func(tx *Transaction) { tx.Description = "  " }, "description"},
		{"missing general", func(tx *Transaction) { tx.GeneralID = "" }, "generalId"},
		{"missing concept", func(tx *Transaction) { tx.ConceptID = "" }, "conceptId"},
		{"salida without provider", func(tx *Transaction) { tx.ProviderID = "" }, "providerId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Validate() field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestPaymentValidate(t *testing.T) {
	valid := Payment{
		TransactionID: "tx-1",
		Amount:        Money{Cents: 100},
		Date:          time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	zeroAmount := valid
	zeroAmount.Amount.Cents = 0
	if err := zeroAmount.Validate(); !IsValidation(err) {
		t.Errorf("zero amount: Validate() = %v, want ValidationError", err)
	}

	negAmount := valid
	negAmount.Amount.Cents = -100
	if err := negAmount.Validate(); !IsValidation(err) {
		t.Errorf("negative amount: Validate() = %v, want ValidationError", err)
	}

	noTx := valid
	noTx.TransactionID = ""
	if err := noTx.Validate(); !IsValidation(err) {
		t.Errorf("missing transaction: Validate() = %v, want ValidationError", err)
	}
}

func TestRecurringExpenseValidate(t *testing.T) {
	valid := RecurringExpense{
		GeneralID:   "gen-1",
		ConceptID:   "con-1",
		Description: "limpieza mensual",
		Amount:      Money{Cents: 50000},
		ProviderID:  "prov-1",
		Frequency:   Monthly,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	badFreq := valid
	badFreq.Frequency = "yearly"
	if err := badFreq.Validate(); !IsValidation(err) {
		t.Errorf("bad frequency: Validate() = %v, want ValidationError", err)
	}

	noStart := valid
	noStart.StartDate = time.Time{}
	if err := noStart.Validate(); !IsValidation(err) {
		t.Errorf("missing start date: Validate() = %v, want ValidationError", err)
	}
}

func TestValidFrequency(t *testing.T) {
	for _, f := range []Frequency{Daily, Weekly, Biweekly, Monthly} {
		if !ValidFrequency(f) {
			t.Errorf("ValidFrequency(%s) = false, want true", f)
		}
	}
	if ValidFrequency("yearly") {
		t.Error("ValidFrequency(yearly) = true, want false")
	}
}

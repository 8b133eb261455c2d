package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tesoreria/internal/core"
)

func testTransaction(description string) core.Transaction {
	return core.Transaction{
		ID:          "tx-1",
		Type:        core.Salida,
		Amount:      core.Money{Cents: 100000},
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: description,
	}
}

func TestPaymentReceived(t *testing.T) {
	var got emailPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := New(srv.URL, "tesoreria@club.example")
	summary := core.PaymentSummary{
		TransactionID: "tx-1",
		TotalAmount:   core.Money{Cents: 100000},
		TotalPaid:     core.Money{Cents: 40000},
		Balance:       core.Money{Cents: 60000},
		Status:        core.StatusParcial,
	}
	err := n.PaymentReceived(context.Background(), "tesorero@club.example",
		testTransaction("mantenimiento de canchas"),
		core.Payment{Amount: core.Money{Cents: 40000}}, summary)
	if err != nil {
		t.Fatalf("PaymentReceived: %v", err)
	}

	if got.From != "tesoreria@club.example" || got.To != "tesorero@club.example" {
		t.Errorf("addresses = %q -> %q", got.From, got.To)
	}
	if !strings.Contains(got.HTML, "parcial") {
		t.Errorf("body missing status: %s", got.HTML)
	}
	if !strings.Contains(got.Subject, "mantenimiento de canchas") {
		t.Errorf("subject = %q", got.Subject)
	}
}

func TestPaymentReceivedStripsHTML(t *testing.T) {
	var got emailPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	n := New(srv.URL, "tesoreria@club.example")
	err := n.PaymentReceived(context.Background(), "a@b.example",
		testTransaction(`pago <script>alert("x")</script> mensual`),
		core.Payment{Amount: core.Money{Cents: 100}}, core.PaymentSummary{Status: core.StatusParcial})
	if err != nil {
		t.Fatalf("PaymentReceived: %v", err)
	}
	if strings.Contains(got.HTML, "<script>") || strings.Contains(got.Subject, "<script>") {
		t.Errorf("script tag survived sanitization: %q / %q", got.Subject, got.HTML)
	}
}

func TestRecurringGenerated(t *testing.T) {
	var got emailPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	n := New(srv.URL, "tesoreria@club.example")
	if err := n.RecurringGenerated(context.Background(), "a@b.example", testTransaction("limpieza mensual")); err != nil {
		t.Fatalf("RecurringGenerated: %v", err)
	}
	if !strings.Contains(got.HTML, "2024-03-01") {
		t.Errorf("body missing occurrence date: %s", got.HTML)
	}
}

func TestSendFailureIsExternalServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(srv.URL, "tesoreria@club.example")
	err := n.RecurringGenerated(context.Background(), "a@b.example", testTransaction("limpieza"))

	var extErr *core.ExternalServiceError
	if !errors.As(err, &extErr) {
		t.Fatalf("err = %v, want ExternalServiceError", err)
	}
	if extErr.Service != "email" {
		t.Errorf("service = %s, want email", extErr.Service)
	}
}

func TestDisabledNotifierIsNoop(t *testing.T) {
	n := New("", "tesoreria@club.example")
	if n.Enabled() {
		t.Error("notifier without endpoint reports enabled")
	}
	if err := n.RecurringGenerated(context.Background(), "a@b.example", testTransaction("limpieza")); err != nil {
		t.Errorf("disabled send: %v", err)
	}
}

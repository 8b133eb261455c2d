// Package notify delivers email notifications through the club's mail
// endpoint. Deliveries are best effort: callers log failures and move on, a
// missed email never blocks a ledger write.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"tesoreria/internal/core"
)

// Notifier posts rendered emails to an HTTP endpoint that accepts
// {"from", "to", "subject", "html"} payloads.
type Notifier struct {
	endpoint string
	from     string
	client   *http.Client
	policy   *bluemonday.Policy
}

func New(endpoint, from string) *Notifier {
	return &Notifier{
		endpoint: endpoint,
		from:     from,
		client:   &http.Client{Timeout: 10 * time.Second},
		policy:   bluemonday.StrictPolicy(),
	}
}

// Enabled reports whether an endpoint is configured. Callers skip rendering
// entirely when it is not.
func (n *Notifier) Enabled() bool {
	return n != nil && n.endpoint != ""
}

type emailPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

var paymentReceivedTmpl = template.Must(template.New("payment_received").Parse(`<p>Se registró un pago de <strong>{{.Amount}}</strong> para la transacción "{{.Description}}".</p>
<p>Total pagado: {{.TotalPaid}} de {{.TotalAmount}}. Estado actual: <strong>{{.Status}}</strong>.</p>`))

var recurringGeneratedTmpl = template.Must(template.New("recurring_generated").Parse(`<p>Se generó el gasto recurrente "{{.Description}}" por <strong>{{.Amount}}</strong> con fecha {{.Date}}.</p>
<p>La transacción quedó registrada como pendiente de pago.</p>`))

// PaymentReceived notifies that a payment was recorded against a transaction.
// Free-text fields are stripped of HTML before templating.
func (n *Notifier) PaymentReceived(ctx context.Context, to string, tx core.Transaction, p core.Payment, summary core.PaymentSummary) error {
	data := struct {
		Amount      string
		Description string
		TotalPaid   string
		TotalAmount string
		Status      string
	}{
		Amount:      p.Amount.String(),
		Description: n.policy.Sanitize(tx.Description),
		TotalPaid:   summary.TotalPaid.String(),
		TotalAmount: summary.TotalAmount.String(),
		Status:      string(summary.Status),
	}

	var body bytes.Buffer
	if err := paymentReceivedTmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render payment notification: %w", err)
	}

	subject := fmt.Sprintf("Pago registrado: %s", data.Description)
	return n.send(ctx, to, subject, body.String())
}

// RecurringGenerated notifies that the scheduler materialized an occurrence.
func (n *Notifier) RecurringGenerated(ctx context.Context, to string, tx core.Transaction) error {
	data := struct {
		Description string
		Amount      string
		Date        string
	}{
		Description: n.policy.Sanitize(tx.Description),
		Amount:      tx.Amount.String(),
		Date:        tx.Date.Format("2006-01-02"),
	}

	var body bytes.Buffer
	if err := recurringGeneratedTmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render recurring notification: %w", err)
	}

	subject := fmt.Sprintf("Gasto recurrente generado: %s", data.Description)
	return n.send(ctx, to, subject, body.String())
}

func (n *Notifier) send(ctx context.Context, to, subject, html string) error {
	if !n.Enabled() {
		return nil
	}

	payload, err := json.Marshal(emailPayload{
		From:    n.from,
		To:      to,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return &core.ExternalServiceError{Service: "email", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &core.ExternalServiceError{
			Service: "email",
			Err:     fmt.Errorf("endpoint returned %s", resp.Status),
		}
	}
	return nil
}

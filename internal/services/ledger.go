package services

import (
	"context"
	"log/slog"

	"tesoreria/internal/attach"
	"tesoreria/internal/auth"
	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

// LedgerService orchestrates payment writes: the repository keeps the
// amounts and status consistent, this layer adds authorization, blob
// cleanup and the best-effort side effects (sync queue, email).
type LedgerService struct {
	storage   *storage.SQLiteRepository
	blobs     *attach.Store
	publisher SyncPublisher
	notifier  Notifier
	notifyTo  string
}

func NewLedgerService(st *storage.SQLiteRepository, blobs *attach.Store, publisher SyncPublisher, notifier Notifier, notifyTo string) *LedgerService {
	return &LedgerService{storage: st, blobs: blobs, publisher: publisher, notifier: notifier, notifyTo: notifyTo}
}

// AddPayment records a payment against a transaction. The repository rejects
// overpayment and rederives the status atomically; side effects run after
// the write and never fail the call.
func (s *LedgerService) AddPayment(ctx context.Context, p core.Payment) (core.Payment, core.PaymentSummary, error) {
	payment, summary, err := s.storage.AddPayment(ctx, p)
	if err != nil {
		return core.Payment{}, core.PaymentSummary{}, err
	}

	slog.InfoContext(ctx, "Payment recorded",
		"payment_id", payment.ID,
		"transaction_id", payment.TransactionID,
		"amount_cents", payment.Amount.Cents,
		"status", summary.Status)

	s.publishSync(ctx, payment.TransactionID)

	if s.notifier != nil && s.notifyTo != "" {
		tx, err := s.storage.GetTransaction(ctx, payment.TransactionID)
		if err == nil {
			if err := s.notifier.PaymentReceived(ctx, s.notifyTo, tx, payment, summary); err != nil {
				slog.ErrorContext(ctx, "Failed to send payment notification",
					"payment_id", payment.ID, "error", err)
			}
		}
	}

	return payment, summary, nil
}

// RemovePayment deletes a payment and its receipts. The caller needs the
// payments:delete capability.
func (s *LedgerService) RemovePayment(ctx context.Context, id string) (core.PaymentSummary, error) {
	if !auth.PrincipalFrom(ctx).Can(auth.CapPaymentsDelete) {
		return core.PaymentSummary{}, core.ErrPermissionDenied
	}

	payment, attachments, summary, err := s.storage.DeletePayment(ctx, id)
	if err != nil {
		return core.PaymentSummary{}, err
	}

	slog.InfoContext(ctx, "Payment removed",
		"payment_id", payment.ID,
		"transaction_id", payment.TransactionID,
		"amount_cents", payment.Amount.Cents,
		"status", summary.Status)

	if s.blobs != nil {
		for _, a := range attachments {
			if err := s.blobs.Delete(a.FileURL); err != nil {
				slog.ErrorContext(ctx, "Failed to delete receipt blob",
					"attachment_id", a.ID, "path", a.FileURL, "error", err)
			}
		}
	}

	s.publishSync(ctx, payment.TransactionID)
	return summary, nil
}

// ListPayments returns the payments of a transaction, newest first.
func (s *LedgerService) ListPayments(ctx context.Context, transactionID string) ([]core.Payment, error) {
	return s.storage.ListPayments(ctx, transactionID)
}

// Summary recomputes and returns the paid/balance/status view of a
// transaction, repairing a drifted stored status on the way.
func (s *LedgerService) Summary(ctx context.Context, transactionID string) (core.PaymentSummary, error) {
	summary, wrote, err := s.storage.RecomputeTransactionStatus(ctx, transactionID)
	if err != nil {
		return core.PaymentSummary{}, err
	}
	if wrote {
		slog.WarnContext(ctx, "Repaired drifted transaction status",
			"transaction_id", transactionID, "status", summary.Status)
		s.publishSync(ctx, transactionID)
	}
	return summary, nil
}

func (s *LedgerService) publishSync(ctx context.Context, transactionID string) {
	if s.publisher == nil {
		return
	}
	version, err := s.storage.TransactionVersion(ctx, transactionID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read transaction version",
			"transaction_id", transactionID, "error", err)
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, transactionID, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"transaction_id", transactionID, "error", err)
	}
}

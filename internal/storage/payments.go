package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tesoreria/internal/core"
)

func listPaymentsTx(ctx context.Context, tx *sql.Tx, transactionID string) ([]core.Payment, int64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, transaction_id, amount_cents, date, notes, created_at
		   FROM payments WHERE transaction_id = ?
		  ORDER BY date DESC, created_at DESC`, transactionID)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	var total int64
	for rows.Next() {
		var p core.Payment
		var date string
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.Amount.Cents, &date, &p.Notes, &p.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan payment: %w", err)
		}
		if p.Date, err = parseStoredDate(date); err != nil {
			return nil, 0, err
		}
		payments = append(payments, p)
		total += p.Amount.Cents
	}
	return payments, total, rows.Err()
}

// ListPayments returns all payments for a transaction, newest first. An
// unknown transaction id yields an empty slice, not an error.
func (r *SQLiteRepository) ListPayments(ctx context.Context, transactionID string) ([]core.Payment, error) {
	var payments []core.Payment
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		payments, _, err = listPaymentsTx(ctx, tx, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// GetPayment returns a payment by id.
func (r *SQLiteRepository) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	var p core.Payment
	var date string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, transaction_id, amount_cents, date, notes, created_at FROM payments WHERE id = ?`, id).
		Scan(&p.ID, &p.TransactionID, &p.Amount.Cents, &date, &p.Notes, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return core.Payment{}, core.ErrNotFound
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	if p.Date, err = parseStoredDate(date); err != nil {
		return core.Payment{}, err
	}
	return p, nil
}

// AddPayment records a payment and re-derives the owning transaction's
// status in one SQL transaction. The remaining-balance check and the insert
// are atomic: two concurrent submissions cannot both read the same
// pre-mutation balance and overpay the transaction.
func (r *SQLiteRepository) AddPayment(ctx context.Context, p core.Payment) (core.Payment, core.PaymentSummary, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, core.PaymentSummary{}, err
	}

	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()

	var summary core.PaymentSummary
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var amountCents int64
		err := tx.QueryRowContext(ctx,
			`SELECT amount_cents FROM transactions WHERE id = ? AND is_active = 1`, p.TransactionID).
			Scan(&amountCents)
		if err == sql.ErrNoRows {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load transaction: %w", err)
		}

		var paid int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE transaction_id = ?`, p.TransactionID).
			Scan(&paid); err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}

		if p.Amount.Cents > amountCents-paid {
			return &core.ValidationError{
				Field:   "amount",
				Message: fmt.Sprintf("amount %s exceeds remaining balance %s", p.Amount, core.Money{Cents: amountCents - paid}),
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO payments (id, transaction_id, amount_cents, date, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.TransactionID, p.Amount.Cents, formatDate(p.Date), p.Notes, p.CreatedAt); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		newPaid := paid + p.Amount.Cents
		derived := core.DeriveStatus(core.Money{Cents: amountCents}, core.Money{Cents: newPaid})
		if _, err := tx.ExecContext(ctx,
			`UPDATE transactions SET status = ?, version = version + 1, sync_status = 'pending' WHERE id = ? AND status != ?`,
			string(derived), p.TransactionID, string(derived)); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		payments, _, err := listPaymentsTx(ctx, tx, p.TransactionID)
		if err != nil {
			return err
		}
		summary = core.PaymentSummary{
			TransactionID: p.TransactionID,
			TotalAmount:   core.Money{Cents: amountCents},
			TotalPaid:     core.Money{Cents: newPaid},
			Balance:       core.Money{Cents: amountCents - newPaid},
			Status:        derived,
			Payments:      payments,
		}
		return nil
	})
	if err != nil {
		return core.Payment{}, core.PaymentSummary{}, err
	}

	slog.InfoContext(ctx, "Payment recorded",
		"id", p.ID,
		"transaction_id", p.TransactionID,
		"amount_cents", p.Amount.Cents,
		"status", summary.Status,
		"balance_cents", summary.Balance.Cents)

	return p, summary, nil
}

// DeletePayment removes a payment and re-derives the owning transaction's
// status in the same SQL transaction. The deleted payment and its attachment
// records are returned so the caller can clean up blobs best-effort.
func (r *SQLiteRepository) DeletePayment(ctx context.Context, id string) (core.Payment, []core.Attachment, core.PaymentSummary, error) {
	var (
		deleted     core.Payment
		attachments []core.Attachment
		summary     core.PaymentSummary
	)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var date string
		err := tx.QueryRowContext(ctx,
			`SELECT id, transaction_id, amount_cents, date, notes, created_at FROM payments WHERE id = ?`, id).
			Scan(&deleted.ID, &deleted.TransactionID, &deleted.Amount.Cents, &date, &deleted.Notes, &deleted.CreatedAt)
		if err == sql.ErrNoRows {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}
		if deleted.Date, err = parseStoredDate(date); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT id, file_name, file_url, file_type, file_size, uploaded_at FROM payment_attachments WHERE payment_id = ?`, id)
		if err != nil {
			return fmt.Errorf("list payment attachments: %w", err)
		}
		for rows.Next() {
			var a core.Attachment
			if err := rows.Scan(&a.ID, &a.FileName, &a.FileURL, &a.FileType, &a.FileSize, &a.UploadedAt); err != nil {
				rows.Close()
				return fmt.Errorf("scan payment attachment: %w", err)
			}
			attachments = append(attachments, a)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM payment_attachments WHERE payment_id = ?`, id); err != nil {
			return fmt.Errorf("delete payment attachments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}

		var amountCents int64
		err = tx.QueryRowContext(ctx,
			`SELECT amount_cents FROM transactions WHERE id = ? AND is_active = 1`, deleted.TransactionID).
			Scan(&amountCents)
		if err == sql.ErrNoRows {
			// Owning transaction was soft-deleted; nothing left to recompute.
			return nil
		}
		if err != nil {
			return fmt.Errorf("load transaction: %w", err)
		}

		payments, paid, err := listPaymentsTx(ctx, tx, deleted.TransactionID)
		if err != nil {
			return err
		}
		derived := core.DeriveStatus(core.Money{Cents: amountCents}, core.Money{Cents: paid})
		if _, err := tx.ExecContext(ctx,
			`UPDATE transactions SET status = ?, version = version + 1, sync_status = 'pending' WHERE id = ? AND status != ?`,
			string(derived), deleted.TransactionID, string(derived)); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		summary = core.PaymentSummary{
			TransactionID: deleted.TransactionID,
			TotalAmount:   core.Money{Cents: amountCents},
			TotalPaid:     core.Money{Cents: paid},
			Balance:       core.Money{Cents: amountCents - paid},
			Status:        derived,
			Payments:      payments,
		}
		return nil
	})
	if err != nil {
		return core.Payment{}, nil, core.PaymentSummary{}, err
	}

	slog.InfoContext(ctx, "Payment deleted",
		"id", id,
		"transaction_id", deleted.TransactionID,
		"amount_cents", deleted.Amount.Cents,
		"status", summary.Status)

	return deleted, attachments, summary, nil
}

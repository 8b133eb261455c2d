package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tesoreria/internal/core"
)

// CreateTransaction persists a new transaction. The initial status is always
// pendiente regardless of what the caller set.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	t.ID = uuid.NewString()
	t.Status = core.StatusPendiente
	t.IsActive = true
	t.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		   (id, type, amount_cents, date, description, general_id, concept_id, subconcept_id, provider_id, division, status, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		t.ID, string(t.Type), t.Amount.Cents, formatDate(t.Date), t.Description,
		t.GeneralID, t.ConceptID, t.SubconceptID, t.ProviderID, t.Division,
		string(t.Status), t.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", t.ID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"date", formatDate(t.Date))

	return t, nil
}

const transactionColumns = `id, type, amount_cents, date, description, general_id, concept_id, subconcept_id, provider_id, division, status, is_active, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t        core.Transaction
		typ      string
		status   string
		date     string
		isActive int64
	)
	err := row.Scan(&t.ID, &typ, &t.Amount.Cents, &date, &t.Description,
		&t.GeneralID, &t.ConceptID, &t.SubconceptID, &t.ProviderID, &t.Division,
		&status, &isActive, &t.CreatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Status = core.Status(status)
	t.IsActive = isActive != 0
	if t.Date, err = parseStoredDate(date); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// GetTransaction returns an active transaction by id, core.ErrNotFound when
// missing or soft-deleted.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND is_active = 1`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	Type      core.TransactionType
	Status    core.Status
	GeneralID string
	ConceptID string
	From      time.Time
	To        time.Time
}

// ListTransactions returns active transactions matching the filter, newest
// date first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	where := []string{"is_active = 1"}
	var args []any

	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.GeneralID != "" {
		where = append(where, "general_id = ?")
		args = append(args, f.GeneralID)
	}
	if f.ConceptID != "" {
		where = append(where, "concept_id = ?")
		args = append(args, f.ConceptID)
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, formatDate(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, formatDate(f.To))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTransaction removes a transaction. The decision between hard delete
// (no payments recorded) and soft delete (payments exist) is taken inside the
// same SQL transaction as the delete itself, so a payment arriving between
// the check and the delete cannot orphan the ledger. The audit reason is
// mandatory either way.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, reason, actor string) error {
	if strings.TrimSpace(reason) == "" {
		return &core.ValidationError{Field: "reason", Message: "a deletion reason is required"}
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		var isActive int64
		err := tx.QueryRowContext(ctx, `SELECT is_active FROM transactions WHERE id = ?`, id).Scan(&isActive)
		if err == sql.ErrNoRows {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load transaction: %w", err)
		}
		if isActive == 0 {
			return core.ErrNotFound
		}

		var paymentCount int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM payments WHERE transaction_id = ?`, id).Scan(&paymentCount); err != nil {
			return fmt.Errorf("count payments: %w", err)
		}

		if paymentCount > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE transactions SET is_active = 0, version = version + 1 WHERE id = ?`, id); err != nil {
				return fmt.Errorf("deactivate transaction: %w", err)
			}
			if err := appendAudit(ctx, tx, "transaction", id, "soft_delete", reason, actor); err != nil {
				return err
			}
			slog.InfoContext(ctx, "Transaction deactivated (payments exist)", "id", id, "payments", paymentCount)
			return nil
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_attachments WHERE transaction_id = ?`, id); err != nil {
			return fmt.Errorf("delete transaction attachments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		if err := appendAudit(ctx, tx, "transaction", id, "delete", reason, actor); err != nil {
			return err
		}
		slog.InfoContext(ctx, "Transaction deleted", "id", id)
		return nil
	})
}

// RecomputeTransactionStatus re-derives a transaction's status from its
// payments inside one SQL transaction. The status row is written only when
// it actually changed; the returned bool reports whether a write happened.
func (r *SQLiteRepository) RecomputeTransactionStatus(ctx context.Context, id string) (core.PaymentSummary, bool, error) {
	var summary core.PaymentSummary
	var wrote bool

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var amountCents int64
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT amount_cents, status FROM transactions WHERE id = ? AND is_active = 1`, id).
			Scan(&amountCents, &status)
		if err == sql.ErrNoRows {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load transaction: %w", err)
		}

		payments, paid, err := listPaymentsTx(ctx, tx, id)
		if err != nil {
			return err
		}

		derived := core.DeriveStatus(core.Money{Cents: amountCents}, core.Money{Cents: paid})
		if string(derived) != status {
			if _, err := tx.ExecContext(ctx,
				`UPDATE transactions SET status = ?, version = version + 1, sync_status = 'pending' WHERE id = ?`,
				string(derived), id); err != nil {
				return fmt.Errorf("update status: %w", err)
			}
			wrote = true
		}

		summary = core.PaymentSummary{
			TransactionID: id,
			TotalAmount:   core.Money{Cents: amountCents},
			TotalPaid:     core.Money{Cents: paid},
			Balance:       core.Money{Cents: amountCents - paid},
			Status:        derived,
			Payments:      payments,
		}
		return nil
	})
	if err != nil {
		return core.PaymentSummary{}, false, err
	}
	return summary, wrote, nil
}

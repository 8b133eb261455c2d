package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tesoreria/internal/core"
)

// AddTransactionAttachment records an uploaded attachment against a
// transaction. The blob itself is stored by the attach package; this only
// keeps the metadata row.
func (r *SQLiteRepository) AddTransactionAttachment(ctx context.Context, transactionID string, a core.Attachment) (core.Attachment, error) {
	if _, err := r.GetTransaction(ctx, transactionID); err != nil {
		return core.Attachment{}, err
	}

	a.ID = uuid.NewString()
	a.UploadedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transaction_attachments (id, transaction_id, file_name, file_url, file_type, file_size, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, transactionID, a.FileName, a.FileURL, a.FileType, a.FileSize, a.UploadedAt)
	if err != nil {
		return core.Attachment{}, fmt.Errorf("insert transaction attachment: %w", err)
	}
	return a, nil
}

// ListTransactionAttachments returns attachment metadata for a transaction.
func (r *SQLiteRepository) ListTransactionAttachments(ctx context.Context, transactionID string) ([]core.Attachment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, file_name, file_url, file_type, file_size, uploaded_at
		   FROM transaction_attachments WHERE transaction_id = ? ORDER BY uploaded_at DESC`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list transaction attachments: %w", err)
	}
	defer rows.Close()

	var out []core.Attachment
	for rows.Next() {
		var a core.Attachment
		if err := rows.Scan(&a.ID, &a.FileName, &a.FileURL, &a.FileType, &a.FileSize, &a.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan transaction attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddPaymentAttachment records an uploaded receipt against a payment.
func (r *SQLiteRepository) AddPaymentAttachment(ctx context.Context, paymentID string, a core.Attachment) (core.Attachment, error) {
	p, err := r.GetPayment(ctx, paymentID)
	if err != nil {
		return core.Attachment{}, err
	}

	a.ID = uuid.NewString()
	a.UploadedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO payment_attachments (id, payment_id, transaction_id, file_name, file_url, file_type, file_size, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, paymentID, p.TransactionID, a.FileName, a.FileURL, a.FileType, a.FileSize, a.UploadedAt)
	if err != nil {
		return core.Attachment{}, fmt.Errorf("insert payment attachment: %w", err)
	}
	return a, nil
}

// ListPaymentAttachments returns attachment metadata for a payment.
func (r *SQLiteRepository) ListPaymentAttachments(ctx context.Context, paymentID string) ([]core.Attachment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, file_name, file_url, file_type, file_size, uploaded_at
		   FROM payment_attachments WHERE payment_id = ? ORDER BY uploaded_at DESC`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list payment attachments: %w", err)
	}
	defer rows.Close()

	var out []core.Attachment
	for rows.Next() {
		var a core.Attachment
		if err := rows.Scan(&a.ID, &a.FileName, &a.FileURL, &a.FileType, &a.FileSize, &a.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan payment attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

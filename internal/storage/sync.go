package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// PendingSyncTransaction is the minimal data carried by board-sync queue
// messages; the worker fetches the full row when it processes one.
type PendingSyncTransaction struct {
	ID        string
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncTransactions returns transactions not yet appended to the
// board spreadsheet, oldest first.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, created_at FROM transactions
		  WHERE sync_status = 'pending' AND is_active = 1
		  ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync transaction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TransactionVersion returns the current version counter for a transaction.
func (r *SQLiteRepository) TransactionVersion(ctx context.Context, id string) (int64, error) {
	var v int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT version FROM transactions WHERE id = ?`, id).Scan(&v); err != nil {
		return 0, fmt.Errorf("get transaction version: %w", err)
	}
	return v, nil
}

// MarkTransactionSynced marks a transaction as appended to the board sheet,
// but only if its version has not moved since the sync message was produced.
// A newer version stays pending and is picked up again.
func (r *SQLiteRepository) MarkTransactionSynced(ctx context.Context, id string, version int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced' WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.InfoContext(ctx, "Transaction changed while syncing, left pending", "id", id, "version", version)
		return nil
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id, "version", version)
	return nil
}

// MarkTransactionSyncError flags a transaction whose sheet append failed.
func (r *SQLiteRepository) MarkTransactionSyncError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

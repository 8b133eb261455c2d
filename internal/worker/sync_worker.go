// Package worker syncs ledger transactions to the board committee's
// spreadsheet. Changes arrive over AMQP; a periodic database sweep catches
// anything a lost message leaves behind.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tesoreria/internal/amqp"
	"tesoreria/internal/core"
	"tesoreria/internal/sheets"
	"tesoreria/internal/storage"
)

type SyncWorker struct {
	storage   *storage.SQLiteRepository
	board     sheets.BoardWriter
	batchSize int
}

func NewSyncWorker(st *storage.SQLiteRepository, board sheets.BoardWriter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SyncWorker{storage: st, board: board, batchSize: batchSize}
}

// HandleSyncMessage processes one AMQP sync message. Returning an error
// nacks the message back onto the queue.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	return w.syncTransaction(ctx, msg.ID)
}

// syncTransaction appends the current state of a transaction to the board
// sheet and marks it synced at the version it read. A transaction deleted
// since the message was queued is dropped silently.
func (w *SyncWorker) syncTransaction(ctx context.Context, id string) error {
	tx, err := w.storage.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Transaction gone before sync, skipping", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	version, err := w.storage.TransactionVersion(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction version: %w", err)
	}

	general, concept, subconcept, provider, err := w.storage.CatalogNames(
		ctx, tx.GeneralID, tx.ConceptID, tx.SubconceptID, tx.ProviderID)
	if err != nil {
		return fmt.Errorf("resolve catalog names: %w", err)
	}

	row := sheets.BoardRow{
		TransactionID: tx.ID,
		Date:          tx.Date.Format("2006-01-02"),
		Type:          string(tx.Type),
		General:       general,
		Concept:       concept,
		Subconcept:    subconcept,
		Provider:      provider,
		Description:   tx.Description,
		Amount:        tx.Amount.Float(),
		Status:        string(tx.Status),
		Division:      tx.Division,
		Version:       version,
	}

	ref, err := w.board.Append(ctx, row)
	if err != nil {
		if markErr := w.storage.MarkTransactionSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to flag sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append board row: %w", err)
	}

	if err := w.storage.MarkTransactionSynced(ctx, id, version); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction synced to board sheet",
		"id", id,
		"version", version,
		"status", tx.Status,
		"row_ref", ref)
	return nil
}

// ProcessPendingTransactions sweeps the database for rows still pending and
// syncs them, returning how many it handled. Per-row failures are logged and
// do not stop the batch.
func (w *SyncWorker) ProcessPendingTransactions(ctx context.Context) (int, error) {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Sweeping pending transactions", "count", len(pending))

	processed := 0
	for _, p := range pending {
		if err := w.syncTransaction(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending transaction",
				"id", p.ID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

// RunSweeper runs the pending-transaction sweep on a fixed interval until
// ctx is cancelled. It runs once immediately on start.
func (w *SyncWorker) RunSweeper(ctx context.Context, interval time.Duration) error {
	if _, err := w.ProcessPendingTransactions(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial pending sweep failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessPendingTransactions(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
			}
		}
	}
}

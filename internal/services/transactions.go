package services

import (
	"context"
	"log/slog"

	"tesoreria/internal/attach"
	"tesoreria/internal/auth"
	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

// TransactionService handles transaction CRUD plus the side effects that do
// not belong in the repository: board-sync publication and blob cleanup.
type TransactionService struct {
	storage   *storage.SQLiteRepository
	blobs     *attach.Store
	publisher SyncPublisher
}

func NewTransactionService(st *storage.SQLiteRepository, blobs *attach.Store, publisher SyncPublisher) *TransactionService {
	return &TransactionService{storage: st, blobs: blobs, publisher: publisher}
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", created.ID,
		"type", created.Type,
		"amount_cents", created.Amount.Cents)

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionSync(ctx, created.ID, 1); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message",
				"transaction_id", created.ID, "error", err)
		}
	}
	return created, nil
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.storage.GetTransaction(ctx, id)
}

func (s *TransactionService) List(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, f)
}

// Delete removes a transaction. With payments on record the repository soft
// deletes and the blobs stay for the audit trail; otherwise the row and its
// blobs go away.
func (s *TransactionService) Delete(ctx context.Context, id, reason string) error {
	principal := auth.PrincipalFrom(ctx)
	if !principal.Can(auth.CapTransactionsDelete) {
		return core.ErrPermissionDenied
	}

	payments, err := s.storage.ListPayments(ctx, id)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteTransaction(ctx, id, reason, principal.Subject); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"transaction_id", id,
		"reason", reason,
		"actor", principal.Subject,
		"soft", len(payments) > 0)

	if len(payments) == 0 && s.blobs != nil {
		if err := s.blobs.DeleteAll(id); err != nil {
			slog.ErrorContext(ctx, "Failed to delete attachment blobs",
				"transaction_id", id, "error", err)
		}
	}
	return nil
}

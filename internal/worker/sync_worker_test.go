package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tesoreria/internal/amqp"
	"tesoreria/internal/core"
	"tesoreria/internal/sheets/memory"
	"tesoreria/internal/storage"
)

func newTestWorker(t *testing.T) (*SyncWorker, *storage.SQLiteRepository, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	board := memory.New()
	return NewSyncWorker(repo, board, 10), repo, board
}

func seedWorkerTransaction(t *testing.T, repo *storage.SQLiteRepository) core.Transaction {
	t.Helper()
	ctx := context.Background()
	g, err := repo.CreateGeneral(ctx, core.General{Name: "Gastos Operativos", Type: core.Salida})
	if err != nil {
		t.Fatalf("CreateGeneral: %v", err)
	}
	c, err := repo.CreateConcept(ctx, core.Concept{GeneralID: g.ID, Name: "Mantenimiento"})
	if err != nil {
		t.Fatalf("CreateConcept: %v", err)
	}
	p, err := repo.CreateProvider(ctx, core.Provider{Name: "Servicios del Norte"})
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		Type:        core.Salida,
		Amount:      core.Money{Cents: 123450},
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: "mantenimiento de canchas",
		GeneralID:   g.ID,
		ConceptID:   c.ID,
		ProviderID:  p.ID,
		Division:    "futbol",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	return tx
}

func TestHandleSyncMessageAppendsRow(t *testing.T) {
	w, repo, board := newTestWorker(t)
	tx := seedWorkerTransaction(t, repo)
	ctx := context.Background()

	msg := amqp.NewTransactionSyncMessage(tx.ID, 1)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}

	rows := board.Rows()
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.TransactionID != tx.ID {
		t.Errorf("row transaction id = %s", row.TransactionID)
	}
	if row.General != "Gastos Operativos" || row.Concept != "Mantenimiento" || row.Provider != "Servicios del Norte" {
		t.Errorf("catalog names not resolved: %+v", row)
	}
	if row.Amount != 1234.50 {
		t.Errorf("amount = %v, want 1234.50", row.Amount)
	}
	if row.Status != "pendiente" {
		t.Errorf("status = %s, want pendiente", row.Status)
	}

	// Queue is drained.
	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after sync = %+v", pending)
	}
}

func TestHandleSyncMessageSkipsDeleted(t *testing.T) {
	w, _, board := newTestWorker(t)

	msg := amqp.NewTransactionSyncMessage("missing", 1)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage for deleted transaction: %v", err)
	}
	if len(board.Rows()) != 0 {
		t.Error("row appended for missing transaction")
	}
}

func TestProcessPendingTransactionsSweep(t *testing.T) {
	w, repo, board := newTestWorker(t)
	seedWorkerTransaction(t, repo)
	ctx := context.Background()

	processed, err := w.ProcessPendingTransactions(ctx)
	if err != nil {
		t.Fatalf("ProcessPendingTransactions: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1", processed)
	}
	if len(board.Rows()) != 1 {
		t.Errorf("len(rows) = %d, want 1", len(board.Rows()))
	}

	// Second sweep finds nothing.
	processed, err = w.ProcessPendingTransactions(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if processed != 0 {
		t.Errorf("second sweep processed = %d, want 0", processed)
	}
}

func TestSweepResyncsAfterStatusChange(t *testing.T) {
	w, repo, board := newTestWorker(t)
	tx := seedWorkerTransaction(t, repo)
	ctx := context.Background()

	if _, err := w.ProcessPendingTransactions(ctx); err != nil {
		t.Fatalf("first sweep: %v", err)
	}

	if _, _, err := repo.AddPayment(ctx, core.Payment{
		TransactionID: tx.ID,
		Amount:        core.Money{Cents: 123450},
		Date:          time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}

	processed, err := w.ProcessPendingTransactions(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1 after status change", processed)
	}

	rows := board.Rows()
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[1].Status != "pagado" {
		t.Errorf("resynced status = %s, want pagado", rows[1].Status)
	}
	if rows[1].Version <= rows[0].Version {
		t.Errorf("versions not increasing: %d then %d", rows[0].Version, rows[1].Version)
	}
}

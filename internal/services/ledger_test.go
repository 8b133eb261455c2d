package services

import (
	"context"
	"errors"
	"testing"

	"tesoreria/internal/auth"
	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

func seedLedgerTransaction(t *testing.T, repo *storage.SQLiteRepository, cents int64) core.Transaction {
	t.Helper()
	general, concept, provider := seedServiceCatalog(t, repo)
	tx, err := repo.CreateTransaction(context.Background(), core.Transaction{
		Type:        core.Salida,
		Amount:      core.Money{Cents: cents},
		Date:        day(2024, 3, 1),
		Description: "mantenimiento",
		GeneralID:   general.ID,
		ConceptID:   concept.ID,
		ProviderID:  provider.ID,
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	return tx
}

func ctxWithCaps(caps ...string) context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{
		Subject:      "tesorero",
		Capabilities: caps,
	})
}

func TestLedgerAddPaymentPublishesAndNotifies(t *testing.T) {
	repo := newTestStorage(t)
	tx := seedLedgerTransaction(t, repo, 100000)

	pub := &fakePublisher{}
	notif := &fakeNotifier{}
	ledger := NewLedgerService(repo, nil, pub, notif, "tesorero@club.example")

	payment, summary, err := ledger.AddPayment(context.Background(), core.Payment{
		TransactionID: tx.ID,
		Amount:        core.Money{Cents: 40000},
		Date:          day(2024, 3, 5),
	})
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if payment.ID == "" {
		t.Error("payment id not assigned")
	}
	if summary.Status != core.StatusParcial {
		t.Errorf("status = %s, want parcial", summary.Status)
	}
	if len(pub.ids) != 1 || pub.ids[0] != tx.ID {
		t.Errorf("published sync ids = %v", pub.ids)
	}
	if notif.payments != 1 {
		t.Errorf("payment notifications = %d, want 1", notif.payments)
	}
}

func TestLedgerAddPaymentRejectionsSkipSideEffects(t *testing.T) {
	repo := newTestStorage(t)
	tx := seedLedgerTransaction(t, repo, 1000)

	pub := &fakePublisher{}
	notif := &fakeNotifier{}
	ledger := NewLedgerService(repo, nil, pub, notif, "tesorero@club.example")

	_, _, err := ledger.AddPayment(context.Background(), core.Payment{
		TransactionID: tx.ID,
		Amount:        core.Money{Cents: 2000},
		Date:          day(2024, 3, 5),
	})
	if !core.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(pub.ids) != 0 || notif.payments != 0 {
		t.Error("side effects ran for a rejected payment")
	}
}

func TestLedgerRemovePaymentRequiresCapability(t *testing.T) {
	repo := newTestStorage(t)
	tx := seedLedgerTransaction(t, repo, 100000)
	ledger := NewLedgerService(repo, nil, nil, nil, "")

	payment, _, err := repo.AddPayment(context.Background(), core.Payment{
		TransactionID: tx.ID,
		Amount:        core.Money{Cents: 40000},
		Date:          day(2024, 3, 5),
	})
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}

	// No principal at all.
	if _, err := ledger.RemovePayment(context.Background(), payment.ID); !errors.Is(err, core.ErrPermissionDenied) {
		t.Errorf("no principal: err = %v, want ErrPermissionDenied", err)
	}
	// Principal without the capability.
	if _, err := ledger.RemovePayment(ctxWithCaps(), payment.ID); !errors.Is(err, core.ErrPermissionDenied) {
		t.Errorf("missing capability: err = %v, want ErrPermissionDenied", err)
	}

	summary, err := ledger.RemovePayment(ctxWithCaps(auth.CapPaymentsDelete), payment.ID)
	if err != nil {
		t.Fatalf("RemovePayment: %v", err)
	}
	if summary.Status != core.StatusPendiente {
		t.Errorf("status after removal = %s, want pendiente", summary.Status)
	}
}

func TestLedgerSummaryRepairsDrift(t *testing.T) {
	repo := newTestStorage(t)
	tx := seedLedgerTransaction(t, repo, 100000)
	ledger := NewLedgerService(repo, nil, nil, nil, "")

	summary, err := ledger.Summary(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Status != core.StatusPendiente || summary.Balance.Cents != 100000 {
		t.Errorf("summary = %+v", summary)
	}

	if _, err := ledger.Summary(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTransactionServiceCreateValidates(t *testing.T) {
	repo := newTestStorage(t)
	general, concept, _ := seedServiceCatalog(t, repo)
	pub := &fakePublisher{}
	svc := NewTransactionService(repo, nil, pub)

	// salida without provider is invalid
	_, err := svc.Create(context.Background(), core.Transaction{
		Type:        core.Salida,
		Amount:      core.Money{Cents: 1000},
		Date:        day(2024, 3, 1),
		Description: "gasto",
		GeneralID:   general.ID,
		ConceptID:   concept.ID,
	})
	if !core.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(pub.ids) != 0 {
		t.Error("sync published for invalid transaction")
	}

	created, err := svc.Create(context.Background(), core.Transaction{
		Type:        core.Entrada,
		Amount:      core.Money{Cents: 1000},
		Date:        day(2024, 3, 1),
		Description: "cuota mensual",
		GeneralID:   general.ID,
		ConceptID:   concept.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != core.StatusPendiente {
		t.Errorf("status = %s, want pendiente", created.Status)
	}
	if len(pub.ids) != 1 {
		t.Errorf("published = %v, want one id", pub.ids)
	}
}

func TestTransactionServiceDeleteRequiresCapability(t *testing.T) {
	repo := newTestStorage(t)
	tx := seedLedgerTransaction(t, repo, 1000)
	svc := NewTransactionService(repo, nil, nil)

	if err := svc.Delete(ctxWithCaps(), tx.ID, "duplicate"); !errors.Is(err, core.ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
	if err := svc.Delete(ctxWithCaps(auth.CapTransactionsDelete), tx.ID, "duplicate"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetTransaction(context.Background(), tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("transaction still readable after delete: %v", err)
	}
}

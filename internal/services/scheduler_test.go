package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedServiceCatalog(t *testing.T, repo *storage.SQLiteRepository) (general core.General, concept core.Concept, provider core.Provider) {
	t.Helper()
	ctx := context.Background()
	general, err := repo.CreateGeneral(ctx, core.General{Name: "Gastos Operativos", Type: core.Salida})
	if err != nil {
		t.Fatalf("CreateGeneral: %v", err)
	}
	concept, err = repo.CreateConcept(ctx, core.Concept{GeneralID: general.ID, Name: "Mantenimiento"})
	if err != nil {
		t.Fatalf("CreateConcept: %v", err)
	}
	provider, err = repo.CreateProvider(ctx, core.Provider{Name: "Servicios del Norte"})
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	return general, concept, provider
}

type fakePublisher struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakePublisher) PublishTransactionSync(_ context.Context, id string, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	payments  int
	recurring int
}

func (f *fakeNotifier) PaymentReceived(context.Context, string, core.Transaction, core.Payment, core.PaymentSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments++
	return nil
}

func (f *fakeNotifier) RecurringGenerated(context.Context, string, core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recurring++
	return nil
}

func createTemplate(t *testing.T, repo *storage.SQLiteRepository, frequency core.Frequency, start time.Time) core.RecurringExpense {
	t.Helper()
	general, concept, provider := seedServiceCatalog(t, repo)
	re, err := repo.CreateRecurringExpense(context.Background(), core.RecurringExpense{
		GeneralID:   general.ID,
		ConceptID:   concept.ID,
		Description: "limpieza",
		Amount:      core.Money{Cents: 50000},
		ProviderID:  provider.ID,
		Frequency:   frequency,
		StartDate:   start,
	})
	if err != nil {
		t.Fatalf("CreateRecurringExpense: %v", err)
	}
	return re
}

// A monthly template starting January 1st, first processed March 1st, yields
// one transaction per month boundary in the window.
func TestSchedulerBackfillsMissedWindow(t *testing.T) {
	repo := newTestStorage(t)
	createTemplate(t, repo, core.Monthly, day(2024, 1, 1))
	ctx := context.Background()

	pub := &fakePublisher{}
	notif := &fakeNotifier{}
	sched := NewScheduler(repo, pub, notif, "tesorero@club.example")

	created, err := sched.Run(ctx, day(2024, 3, 1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if created != 3 {
		t.Errorf("created = %d, want 3 (Jan 1, Feb 1, Mar 1)", created)
	}

	txs, err := repo.ListTransactions(ctx, storage.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("len(transactions) = %d, want 3", len(txs))
	}
	for _, tx := range txs {
		if tx.Status != core.StatusPendiente || tx.Type != core.Salida {
			t.Errorf("generated transaction = %+v, want pendiente salida", tx)
		}
	}
	if len(pub.ids) != 3 {
		t.Errorf("published = %d sync messages, want 3", len(pub.ids))
	}
	if notif.recurring != 3 {
		t.Errorf("notified = %d, want 3", notif.recurring)
	}

	lastRun, err := repo.GetSetting(ctx, "scheduler_last_run")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if lastRun == "" {
		t.Error("scheduler_last_run not recorded")
	}
}

func TestSchedulerRerunCreatesNothing(t *testing.T) {
	repo := newTestStorage(t)
	createTemplate(t, repo, core.Monthly, day(2024, 1, 1))
	ctx := context.Background()
	sched := NewScheduler(repo, nil, nil, "")

	if _, err := sched.Run(ctx, day(2024, 3, 1)); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	created, err := sched.Run(ctx, day(2024, 3, 1))
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if created != 0 {
		t.Errorf("second run created %d transactions, want 0", created)
	}

	txs, err := repo.ListTransactions(ctx, storage.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 3 {
		t.Errorf("len(transactions) = %d after rerun, want 3", len(txs))
	}
}

func TestSchedulerAdvancesWindow(t *testing.T) {
	repo := newTestStorage(t)
	createTemplate(t, repo, core.Monthly, day(2024, 1, 1))
	ctx := context.Background()
	sched := NewScheduler(repo, nil, nil, "")

	if _, err := sched.Run(ctx, day(2024, 3, 1)); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	created, err := sched.Run(ctx, day(2024, 4, 2))
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1 (Apr 1 only)", created)
	}
}

func TestSchedulerSkipsFutureTemplates(t *testing.T) {
	repo := newTestStorage(t)
	createTemplate(t, repo, core.Daily, day(2024, 6, 1))
	sched := NewScheduler(repo, nil, nil, "")

	created, err := sched.Run(context.Background(), day(2024, 3, 1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d for future template, want 0", created)
	}
}

func TestSchedulerSkipsInactiveTemplates(t *testing.T) {
	repo := newTestStorage(t)
	re := createTemplate(t, repo, core.Daily, day(2024, 3, 1))
	ctx := context.Background()
	if err := repo.SetRecurringExpenseActive(ctx, re.ID, false); err != nil {
		t.Fatalf("SetRecurringExpenseActive: %v", err)
	}

	sched := NewScheduler(repo, nil, nil, "")
	created, err := sched.Run(ctx, day(2024, 3, 5))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d for paused template, want 0", created)
	}
}

func TestSchedulerWeeklyGeneratesMondays(t *testing.T) {
	repo := newTestStorage(t)
	// 2024-03-01 is a Friday; Mondays in window: Mar 4, 11, 18.
	createTemplate(t, repo, core.Weekly, day(2024, 3, 1))
	sched := NewScheduler(repo, nil, nil, "")

	created, err := sched.Run(context.Background(), day(2024, 3, 18))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if created != 3 {
		t.Errorf("created = %d, want 3 Mondays", created)
	}
}

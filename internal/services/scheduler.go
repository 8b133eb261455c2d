package services

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

// templateConcurrency bounds how many templates are processed in parallel.
const templateConcurrency = 4

// SyncPublisher enqueues a board-sync request for a changed transaction.
// A nil publisher disables publishing; the sync worker's database sweep
// still picks the change up.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, id string, version int64) error
}

// Notifier sends the treasurer-facing emails. A nil notifier disables them.
type Notifier interface {
	PaymentReceived(ctx context.Context, to string, tx core.Transaction, p core.Payment, summary core.PaymentSummary) error
	RecurringGenerated(ctx context.Context, to string, tx core.Transaction) error
}

// Scheduler materializes pending transactions from recurring expense
// templates. Each run covers the window a template has not been generated
// for yet, so a run after downtime backfills every missed occurrence.
type Scheduler struct {
	storage   *storage.SQLiteRepository
	publisher SyncPublisher
	notifier  Notifier
	notifyTo  string
}

func NewScheduler(st *storage.SQLiteRepository, publisher SyncPublisher, notifier Notifier, notifyTo string) *Scheduler {
	return &Scheduler{storage: st, publisher: publisher, notifier: notifier, notifyTo: notifyTo}
}

// Run processes every active template whose start date has been reached and
// returns the number of transactions created. Failures on one template are
// logged and do not stop the others.
func (s *Scheduler) Run(ctx context.Context, now time.Time) (int, error) {
	templates, err := s.storage.ListDueRecurringExpenses(ctx, now)
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Processing recurring expenses",
		"total_active", len(templates),
		"processing_date", now.Format("2006-01-02"))

	created := make([]int, len(templates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(templateConcurrency)

	for i, re := range templates {
		g.Go(func() error {
			n, err := s.processTemplate(gctx, re, now)
			if err != nil {
				slog.ErrorContext(gctx, "Failed to process recurring template",
					"template_id", re.ID,
					"description", re.Description,
					"error", err)
				return nil
			}
			created[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range created {
		total += n
	}
	slog.InfoContext(ctx, "Recurring expense processing complete",
		"created", total,
		"templates_checked", len(templates))

	if err := s.storage.SetSetting(ctx, "scheduler_last_run", now.Format(time.RFC3339)); err != nil {
		slog.WarnContext(ctx, "Failed to record scheduler run", "error", err)
	}
	return total, nil
}

func (s *Scheduler) processTemplate(ctx context.Context, re core.RecurringExpense, now time.Time) (int, error) {
	rule, err := GetOccurrenceRule(re.Frequency)
	if err != nil {
		return 0, err
	}

	// The window starts the day after the last covered date; a fresh
	// template starts at its start date. The start date itself counts when
	// the rule matches it.
	from := re.StartDate
	if !re.LastGenerated.IsZero() {
		from = re.LastGenerated.AddDate(0, 0, 1)
	}

	created := 0
	for _, due := range DueDatesBetween(rule, from, now) {
		tx, ok, err := s.storage.MaterializeOccurrence(ctx, re, due)
		if err != nil {
			return created, err
		}
		if !ok {
			continue
		}
		created++
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"template_id", re.ID,
			"transaction_id", tx.ID,
			"description", re.Description,
			"amount_cents", re.Amount.Cents,
			"due_date", due.Format("2006-01-02"),
			"frequency", re.Frequency)

		if s.publisher != nil {
			if err := s.publisher.PublishTransactionSync(ctx, tx.ID, 1); err != nil {
				slog.ErrorContext(ctx, "Failed to publish sync message",
					"transaction_id", tx.ID, "error", err)
			}
		}
		if s.notifier != nil && s.notifyTo != "" {
			if err := s.notifier.RecurringGenerated(ctx, s.notifyTo, tx); err != nil {
				slog.ErrorContext(ctx, "Failed to send recurring notification",
					"transaction_id", tx.ID, "error", err)
			}
		}
	}

	if err := s.storage.SetRecurringLastGenerated(ctx, re.ID, now); err != nil {
		// The generated-dates ledger keeps reruns idempotent either way.
		slog.ErrorContext(ctx, "Failed to update last generated date",
			"template_id", re.ID, "error", err)
	}
	return created, nil
}

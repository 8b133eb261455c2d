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

const recurringColumns = `id, general_id, concept_id, subconcept_id, description, amount_cents, provider_id, division, frequency, start_date, is_active, last_generated, created_at`

func scanRecurring(row interface{ Scan(...any) error }) (core.RecurringExpense, error) {
	var (
		re            core.RecurringExpense
		frequency     string
		startDate     string
		isActive      int64
		lastGenerated sql.NullString
	)
	err := row.Scan(&re.ID, &re.GeneralID, &re.ConceptID, &re.SubconceptID, &re.Description,
		&re.Amount.Cents, &re.ProviderID, &re.Division, &frequency, &startDate,
		&isActive, &lastGenerated, &re.CreatedAt)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	re.Frequency = core.Frequency(frequency)
	re.IsActive = isActive != 0
	if re.StartDate, err = parseStoredDate(startDate); err != nil {
		return core.RecurringExpense{}, err
	}
	if lastGenerated.Valid && lastGenerated.String != "" {
		if re.LastGenerated, err = parseStoredDate(lastGenerated.String); err != nil {
			return core.RecurringExpense{}, err
		}
	}
	return re, nil
}

// CreateRecurringExpense persists a new recurring expense template.
func (r *SQLiteRepository) CreateRecurringExpense(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error) {
	if err := re.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}

	re.ID = uuid.NewString()
	re.IsActive = true
	re.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_expenses
		   (id, general_id, concept_id, subconcept_id, description, amount_cents, provider_id, division, frequency, start_date, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		re.ID, re.GeneralID, re.ConceptID, re.SubconceptID, re.Description,
		re.Amount.Cents, re.ProviderID, re.Division, string(re.Frequency),
		formatDate(re.StartDate), re.CreatedAt)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("insert recurring expense: %w", err)
	}

	slog.InfoContext(ctx, "Recurring expense created",
		"id", re.ID,
		"frequency", re.Frequency,
		"amount_cents", re.Amount.Cents,
		"start_date", formatDate(re.StartDate))

	return re, nil
}

// GetRecurringExpense returns a template by id, active or not.
func (r *SQLiteRepository) GetRecurringExpense(ctx context.Context, id string) (core.RecurringExpense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses WHERE id = ?`, id)
	re, err := scanRecurring(row)
	if err == sql.ErrNoRows {
		return core.RecurringExpense{}, core.ErrNotFound
	}
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("get recurring expense: %w", err)
	}
	return re, nil
}

// ListRecurringExpenses returns every template, newest first.
func (r *SQLiteRepository) ListRecurringExpenses(ctx context.Context) ([]core.RecurringExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringExpense
	for rows.Next() {
		re, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

// ListDueRecurringExpenses returns active templates whose start date is not
// after now, the set the scheduler evaluates on each run.
func (r *SQLiteRepository) ListDueRecurringExpenses(ctx context.Context, now time.Time) ([]core.RecurringExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses WHERE is_active = 1 AND start_date <= ?`,
		formatDate(now))
	if err != nil {
		return nil, fmt.Errorf("list due recurring expenses: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringExpense
	for rows.Next() {
		re, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

// SetRecurringExpenseActive activates or suspends a template. Suspension
// stops future generation; already-generated transactions are unaffected.
func (r *SQLiteRepository) SetRecurringExpenseActive(ctx context.Context, id string, active bool) error {
	v := 0
	if active {
		v = 1
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET is_active = ? WHERE id = ?`, v, id)
	if err != nil {
		return fmt.Errorf("set recurring expense active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// GeneratedDates returns the occurrence dates already materialized for a
// template.
func (r *SQLiteRepository) GeneratedDates(ctx context.Context, templateID string) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT due_date FROM recurring_generated_dates WHERE template_id = ? ORDER BY due_date`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list generated dates: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan generated date: %w", err)
		}
		d, err := parseStoredDate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MaterializeOccurrence creates the pending transaction for one due date of
// a template. The generated-dates marker and the transaction row are written
// in the same SQL transaction, keyed by (template id, due date): a retry or
// an overlapping scheduler run that hits an already-materialized date is a
// no-op, which is what makes generation at-least-once safe.
func (r *SQLiteRepository) MaterializeOccurrence(ctx context.Context, re core.RecurringExpense, due time.Time) (core.Transaction, bool, error) {
	t := core.Transaction{
		ID:           uuid.NewString(),
		Type:         core.Salida,
		Amount:       re.Amount,
		Date:         due,
		Description:  re.Description,
		GeneralID:    re.GeneralID,
		ConceptID:    re.ConceptID,
		SubconceptID: re.SubconceptID,
		ProviderID:   re.ProviderID,
		Division:     re.Division,
		Status:       core.StatusPendiente,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	var created bool
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO recurring_generated_dates (template_id, due_date, transaction_id, created_at)
			 VALUES (?, ?, ?, ?) ON CONFLICT (template_id, due_date) DO NOTHING`,
			re.ID, formatDate(due), t.ID, t.CreatedAt)
		if err != nil {
			return fmt.Errorf("mark generated date: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			// Already materialized for this period.
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions
			   (id, type, amount_cents, date, description, general_id, concept_id, subconcept_id, provider_id, division, status, is_active, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
			t.ID, string(t.Type), t.Amount.Cents, formatDate(t.Date), t.Description,
			t.GeneralID, t.ConceptID, t.SubconceptID, t.ProviderID, t.Division,
			string(t.Status), t.CreatedAt); err != nil {
			return fmt.Errorf("insert generated transaction: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return core.Transaction{}, false, err
	}

	if created {
		slog.InfoContext(ctx, "Occurrence materialized",
			"template_id", re.ID,
			"due_date", formatDate(due),
			"transaction_id", t.ID,
			"amount_cents", t.Amount.Cents)
	}

	return t, created, nil
}

// SetRecurringLastGenerated records the instant of the scheduler run that
// last evaluated the template.
func (r *SQLiteRepository) SetRecurringLastGenerated(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET last_generated = ? WHERE id = ?`, formatDate(at), id)
	if err != nil {
		return fmt.Errorf("set last generated: %w", err)
	}
	return nil
}

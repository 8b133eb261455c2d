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

// Catalog entities are reference data. Deletion follows one rule, applied
// inside a single SQL transaction: hard delete when nothing references the
// row, deactivate otherwise.

func (r *SQLiteRepository) CreateGeneral(ctx context.Context, g core.General) (core.General, error) {
	if err := g.Validate(); err != nil {
		return core.General{}, err
	}
	g.ID = uuid.NewString()
	g.IsActive = true
	g.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO generals (id, name, type, description, is_active, created_at) VALUES (?, ?, ?, ?, 1, ?)`,
		g.ID, g.Name, string(g.Type), g.Description, g.CreatedAt)
	if err != nil {
		return core.General{}, fmt.Errorf("insert general: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGenerals(ctx context.Context) ([]core.General, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, description, is_active, created_at FROM generals WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list generals: %w", err)
	}
	defer rows.Close()

	var out []core.General
	for rows.Next() {
		var g core.General
		var typ string
		var isActive int64
		if err := rows.Scan(&g.ID, &g.Name, &typ, &g.Description, &isActive, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan general: %w", err)
		}
		g.Type = core.TransactionType(typ)
		g.IsActive = isActive != 0
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetGeneral(ctx context.Context, id string) (core.General, error) {
	var g core.General
	var typ string
	var isActive int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, description, is_active, created_at FROM generals WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &typ, &g.Description, &isActive, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return core.General{}, core.ErrNotFound
	}
	if err != nil {
		return core.General{}, fmt.Errorf("get general: %w", err)
	}
	g.Type = core.TransactionType(typ)
	g.IsActive = isActive != 0
	return g, nil
}

// FindGeneralByName is used by the CSV importer to resolve references.
func (r *SQLiteRepository) FindGeneralByName(ctx context.Context, name string) (core.General, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM generals WHERE name = ? AND is_active = 1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return core.General{}, core.ErrNotFound
	}
	if err != nil {
		return core.General{}, fmt.Errorf("find general by name: %w", err)
	}
	return r.GetGeneral(ctx, id)
}

// DeleteGeneral hard-deletes when no concept, transaction or template
// references the row, otherwise deactivates it. Check and delete share one
// SQL transaction.
func (r *SQLiteRepository) DeleteGeneral(ctx context.Context, id string) error {
	return r.deleteCatalogEntry(ctx, "generals", id, `
		SELECT (SELECT COUNT(*) FROM concepts WHERE general_id = ?1)
		     + (SELECT COUNT(*) FROM transactions WHERE general_id = ?1)
		     + (SELECT COUNT(*) FROM recurring_expenses WHERE general_id = ?1)`)
}

func (r *SQLiteRepository) CreateConcept(ctx context.Context, c core.Concept) (core.Concept, error) {
	if err := c.Validate(); err != nil {
		return core.Concept{}, err
	}
	c.ID = uuid.NewString()
	c.IsActive = true
	c.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO concepts (id, general_id, name, description, is_active, created_at) VALUES (?, ?, ?, ?, 1, ?)`,
		c.ID, c.GeneralID, c.Name, c.Description, c.CreatedAt)
	if err != nil {
		return core.Concept{}, fmt.Errorf("insert concept: %w", err)
	}
	return c, nil
}

// ListConcepts returns active concepts, optionally filtered by general.
func (r *SQLiteRepository) ListConcepts(ctx context.Context, generalID string) ([]core.Concept, error) {
	query := `SELECT id, general_id, name, description, is_active, created_at FROM concepts WHERE is_active = 1`
	var args []any
	if generalID != "" {
		query += ` AND general_id = ?`
		args = append(args, generalID)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}
	defer rows.Close()

	var out []core.Concept
	for rows.Next() {
		var c core.Concept
		var isActive int64
		if err := rows.Scan(&c.ID, &c.GeneralID, &c.Name, &c.Description, &isActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan concept: %w", err)
		}
		c.IsActive = isActive != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindConceptByName resolves a concept within a general by name.
func (r *SQLiteRepository) FindConceptByName(ctx context.Context, generalID, name string) (core.Concept, error) {
	var c core.Concept
	var isActive int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, general_id, name, description, is_active, created_at
		   FROM concepts WHERE general_id = ? AND name = ? AND is_active = 1`, generalID, name).
		Scan(&c.ID, &c.GeneralID, &c.Name, &c.Description, &isActive, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return core.Concept{}, core.ErrNotFound
	}
	if err != nil {
		return core.Concept{}, fmt.Errorf("find concept by name: %w", err)
	}
	c.IsActive = isActive != 0
	return c, nil
}

// FindAnyConceptByName resolves a concept by name across all generals,
// returning the first match by name order. Used by the CSV importer, where
// subconcept rows reference their parent concept by name only.
func (r *SQLiteRepository) FindAnyConceptByName(ctx context.Context, name string) (core.Concept, error) {
	var c core.Concept
	var isActive int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, general_id, name, description, is_active, created_at
		   FROM concepts WHERE name = ? AND is_active = 1 ORDER BY name LIMIT 1`, name).
		Scan(&c.ID, &c.GeneralID, &c.Name, &c.Description, &isActive, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return core.Concept{}, core.ErrNotFound
	}
	if err != nil {
		return core.Concept{}, fmt.Errorf("find concept by name: %w", err)
	}
	c.IsActive = isActive != 0
	return c, nil
}

func (r *SQLiteRepository) DeleteConcept(ctx context.Context, id string) error {
	return r.deleteCatalogEntry(ctx, "concepts", id, `
		SELECT (SELECT COUNT(*) FROM subconcepts WHERE concept_id = ?1)
		     + (SELECT COUNT(*) FROM transactions WHERE concept_id = ?1)
		     + (SELECT COUNT(*) FROM recurring_expenses WHERE concept_id = ?1)`)
}

func (r *SQLiteRepository) CreateSubconcept(ctx context.Context, s core.Subconcept) (core.Subconcept, error) {
	if err := s.Validate(); err != nil {
		return core.Subconcept{}, err
	}
	s.ID = uuid.NewString()
	s.IsActive = true
	s.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subconcepts (id, concept_id, name, description, is_active, created_at) VALUES (?, ?, ?, ?, 1, ?)`,
		s.ID, s.ConceptID, s.Name, s.Description, s.CreatedAt)
	if err != nil {
		return core.Subconcept{}, fmt.Errorf("insert subconcept: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListSubconcepts(ctx context.Context, conceptID string) ([]core.Subconcept, error) {
	query := `SELECT id, concept_id, name, description, is_active, created_at FROM subconcepts WHERE is_active = 1`
	var args []any
	if conceptID != "" {
		query += ` AND concept_id = ?`
		args = append(args, conceptID)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subconcepts: %w", err)
	}
	defer rows.Close()

	var out []core.Subconcept
	for rows.Next() {
		var s core.Subconcept
		var isActive int64
		if err := rows.Scan(&s.ID, &s.ConceptID, &s.Name, &s.Description, &isActive, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subconcept: %w", err)
		}
		s.IsActive = isActive != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) FindSubconceptByName(ctx context.Context, conceptID, name string) (core.Subconcept, error) {
	var s core.Subconcept
	var isActive int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, concept_id, name, description, is_active, created_at
		   FROM subconcepts WHERE concept_id = ? AND name = ? AND is_active = 1`, conceptID, name).
		Scan(&s.ID, &s.ConceptID, &s.Name, &s.Description, &isActive, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return core.Subconcept{}, core.ErrNotFound
	}
	if err != nil {
		return core.Subconcept{}, fmt.Errorf("find subconcept by name: %w", err)
	}
	s.IsActive = isActive != 0
	return s, nil
}

func (r *SQLiteRepository) DeleteSubconcept(ctx context.Context, id string) error {
	return r.deleteCatalogEntry(ctx, "subconcepts", id, `
		SELECT (SELECT COUNT(*) FROM transactions WHERE subconcept_id = ?1)
		     + (SELECT COUNT(*) FROM recurring_expenses WHERE subconcept_id = ?1)`)
}

func (r *SQLiteRepository) CreateProvider(ctx context.Context, p core.Provider) (core.Provider, error) {
	if err := p.Validate(); err != nil {
		return core.Provider{}, err
	}
	p.ID = uuid.NewString()
	p.IsActive = true
	p.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO providers (id, name, is_active, created_at) VALUES (?, ?, 1, ?)`,
		p.ID, p.Name, p.CreatedAt)
	if err != nil {
		return core.Provider{}, fmt.Errorf("insert provider: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListProviders(ctx context.Context) ([]core.Provider, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, is_active, created_at FROM providers WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var out []core.Provider
	for rows.Next() {
		var p core.Provider
		var isActive int64
		if err := rows.Scan(&p.ID, &p.Name, &isActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		p.IsActive = isActive != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteProvider(ctx context.Context, id string) error {
	return r.deleteCatalogEntry(ctx, "providers", id, `
		SELECT (SELECT COUNT(*) FROM transactions WHERE provider_id = ?1)
		     + (SELECT COUNT(*) FROM recurring_expenses WHERE provider_id = ?1)`)
}

// CatalogNames resolves the display names a transaction references. Empty
// IDs and dangling references come back as empty strings; the caller renders
// whatever is available.
func (r *SQLiteRepository) CatalogNames(ctx context.Context, generalID, conceptID, subconceptID, providerID string) (general, concept, subconcept, provider string, err error) {
	lookup := func(table, id string) (string, error) {
		if id == "" {
			return "", nil
		}
		var name string
		err := r.db.QueryRowContext(ctx, `SELECT name FROM `+table+` WHERE id = ?`, id).Scan(&name)
		if err == sql.ErrNoRows {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("lookup %s name: %w", table, err)
		}
		return name, nil
	}

	if general, err = lookup("generals", generalID); err != nil {
		return
	}
	if concept, err = lookup("concepts", conceptID); err != nil {
		return
	}
	if subconcept, err = lookup("subconcepts", subconceptID); err != nil {
		return
	}
	provider, err = lookup("providers", providerID)
	return
}

// deleteCatalogEntry implements "delete if unreferenced, else deactivate" in
// one SQL transaction. refQuery must count references with ?1 bound to the
// entry id.
func (r *SQLiteRepository) deleteCatalogEntry(ctx context.Context, table, id, refQuery string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var isActive int64
		err := tx.QueryRowContext(ctx, `SELECT is_active FROM `+table+` WHERE id = ?`, id).Scan(&isActive)
		if err == sql.ErrNoRows {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load %s entry: %w", table, err)
		}
		if isActive == 0 {
			return core.ErrNotFound
		}

		var refs int64
		if err := tx.QueryRowContext(ctx, refQuery, id).Scan(&refs); err != nil {
			return fmt.Errorf("count references: %w", err)
		}

		if refs > 0 {
			if _, err := tx.ExecContext(ctx, `UPDATE `+table+` SET is_active = 0 WHERE id = ?`, id); err != nil {
				return fmt.Errorf("deactivate %s entry: %w", table, err)
			}
			slog.InfoContext(ctx, "Catalog entry deactivated (still referenced)",
				"table", table, "id", id, "references", refs)
			return nil
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete %s entry: %w", table, err)
		}
		slog.InfoContext(ctx, "Catalog entry deleted", "table", table, "id", id)
		return nil
	})
}

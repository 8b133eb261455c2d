package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

// ImportResult summarizes a catalog CSV import. Row numbers in Errors are
// 1-based and count the header.
type ImportResult struct {
	GeneralsCreated    int      `json:"generalsCreated"`
	ConceptsCreated    int      `json:"conceptsCreated"`
	SubconceptsCreated int      `json:"subconceptsCreated"`
	RowsSkipped        int      `json:"rowsSkipped"`
	Errors             []string `json:"errors,omitempty"`
}

// CatalogImporter loads catalog entries from a CSV with columns
// tipo, nombre, descripcion, general_nombre, concepto_nombre. Each row
// declares one entry: tipo "general" (nombre, descripcion), "concepto"
// (plus general_nombre for the parent) or "subconcepto" (plus
// concepto_nombre). Rows are applied in three passes so a concepto may
// appear before its general in the file. Existing entries are reused, so
// re-importing the same file is a no-op.
type CatalogImporter struct {
	storage *storage.SQLiteRepository
}

func NewCatalogImporter(st *storage.SQLiteRepository) *CatalogImporter {
	return &CatalogImporter{storage: st}
}

type importRow struct {
	line        int
	kind        string
	name        string
	description string
	parent      string
}

func (imp *CatalogImporter) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var result ImportResult
	var rows []importRow

	field := func(record []string, i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			result.RowsSkipped++
			continue
		}
		if line == 1 && isHeaderRow(record) {
			continue
		}

		row := importRow{
			line:        line,
			kind:        strings.ToLower(field(record, 0)),
			name:        field(record, 1),
			description: field(record, 2),
		}
		switch row.kind {
		case "general":
		case "concepto":
			row.parent = field(record, 3)
		case "subconcepto":
			row.parent = field(record, 4)
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: tipo %q must be general, concepto or subconcepto", line, row.kind))
			result.RowsSkipped++
			continue
		}

		switch {
		case row.name == "":
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: nombre is empty", line))
			result.RowsSkipped++
		case row.kind == "concepto" && row.parent == "":
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: concepto %q has no general_nombre", line, row.name))
			result.RowsSkipped++
		case row.kind == "subconcepto" && row.parent == "":
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: subconcepto %q has no concepto_nombre", line, row.name))
			result.RowsSkipped++
		default:
			rows = append(rows, row)
		}
	}

	// Three passes: generals, then concepts, then subconcepts, so parent
	// references resolve regardless of file order.
	generalIDs := make(map[string]string)
	for _, row := range rows {
		if row.kind != "general" {
			continue
		}
		id, err := imp.ensureGeneral(ctx, row.name, row.description, &result)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: general %q: %v", row.line, row.name, err))
			result.RowsSkipped++
			continue
		}
		generalIDs[row.name] = id
	}

	conceptIDs := make(map[string]string)
	for _, row := range rows {
		if row.kind != "concepto" {
			continue
		}
		generalID, ok := generalIDs[row.parent]
		if !ok {
			existing, err := imp.storage.FindGeneralByName(ctx, row.parent)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: concepto %q: general %q not found", row.line, row.name, row.parent))
				result.RowsSkipped++
				continue
			}
			generalID = existing.ID
			generalIDs[row.parent] = generalID
		}
		id, err := imp.ensureConcept(ctx, generalID, row.name, row.description, &result)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: concepto %q: %v", row.line, row.name, err))
			result.RowsSkipped++
			continue
		}
		conceptIDs[row.name] = id
	}

	for _, row := range rows {
		if row.kind != "subconcepto" {
			continue
		}
		conceptID, ok := conceptIDs[row.parent]
		if !ok {
			existing, err := imp.storage.FindAnyConceptByName(ctx, row.parent)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: subconcepto %q: concepto %q not found", row.line, row.name, row.parent))
				result.RowsSkipped++
				continue
			}
			conceptID = existing.ID
			conceptIDs[row.parent] = conceptID
		}
		if err := imp.ensureSubconcept(ctx, conceptID, row.name, row.description, &result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: subconcepto %q: %v", row.line, row.name, err))
			result.RowsSkipped++
		}
	}

	return result, nil
}

// ensureGeneral reuses an existing active general by name or creates one.
// The CSV carries no entrada/salida classification; new generals default
// to salida.
func (imp *CatalogImporter) ensureGeneral(ctx context.Context, name, description string, result *ImportResult) (string, error) {
	existing, err := imp.storage.FindGeneralByName(ctx, name)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return "", err
	}
	created, err := imp.storage.CreateGeneral(ctx, core.General{Name: name, Type: core.Salida, Description: description})
	if err != nil {
		return "", err
	}
	result.GeneralsCreated++
	return created.ID, nil
}

func (imp *CatalogImporter) ensureConcept(ctx context.Context, generalID, name, description string, result *ImportResult) (string, error) {
	existing, err := imp.storage.FindConceptByName(ctx, generalID, name)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return "", err
	}
	created, err := imp.storage.CreateConcept(ctx, core.Concept{GeneralID: generalID, Name: name, Description: description})
	if err != nil {
		return "", err
	}
	result.ConceptsCreated++
	return created.ID, nil
}

func (imp *CatalogImporter) ensureSubconcept(ctx context.Context, conceptID, name, description string, result *ImportResult) error {
	_, err := imp.storage.FindSubconceptByName(ctx, conceptID, name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return err
	}
	if _, err := imp.storage.CreateSubconcept(ctx, core.Subconcept{ConceptID: conceptID, Name: name, Description: description}); err != nil {
		return err
	}
	result.SubconceptsCreated++
	return nil
}

func isHeaderRow(record []string) bool {
	if len(record) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(record[0]), "tipo")
}

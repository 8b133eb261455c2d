package services

import (
	"context"
	"strings"
	"testing"

	"tesoreria/internal/core"
)

const sampleCSV = `tipo,nombre,descripcion,general_nombre,concepto_nombre
general,Gastos Operativos,Gastos del club,,
concepto,Mantenimiento,,Gastos Operativos,
subconcepto,Canchas,,,Mantenimiento
subconcepto,Iluminacion,,,Mantenimiento
concepto,Limpieza,,Gastos Operativos,
general,Cuotas,,,
concepto,Cuota Social,,Cuotas,
`

func TestImportCatalog(t *testing.T) {
	repo := newTestStorage(t)
	imp := NewCatalogImporter(repo)
	ctx := context.Background()

	result, err := imp.Import(ctx, strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected row errors: %v", result.Errors)
	}
	if result.GeneralsCreated != 2 {
		t.Errorf("GeneralsCreated = %d, want 2", result.GeneralsCreated)
	}
	if result.ConceptsCreated != 3 {
		t.Errorf("ConceptsCreated = %d, want 3", result.ConceptsCreated)
	}
	if result.SubconceptsCreated != 2 {
		t.Errorf("SubconceptsCreated = %d, want 2", result.SubconceptsCreated)
	}

	generals, err := repo.ListGenerals(ctx)
	if err != nil {
		t.Fatalf("ListGenerals: %v", err)
	}
	if len(generals) != 2 {
		t.Errorf("len(generals) = %d, want 2", len(generals))
	}
}

// Children may appear before their parents; the three-pass application
// resolves forward references.
func TestImportResolvesForwardReferences(t *testing.T) {
	repo := newTestStorage(t)
	imp := NewCatalogImporter(repo)

	csv := `tipo,nombre,descripcion,general_nombre,concepto_nombre
subconcepto,Canchas,,,Mantenimiento
concepto,Mantenimiento,,Gastos,
general,Gastos,,,
`
	result, err := imp.Import(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected row errors: %v", result.Errors)
	}
	if result.GeneralsCreated != 1 || result.ConceptsCreated != 1 || result.SubconceptsCreated != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	repo := newTestStorage(t)
	imp := NewCatalogImporter(repo)
	ctx := context.Background()

	if _, err := imp.Import(ctx, strings.NewReader(sampleCSV)); err != nil {
		t.Fatalf("first Import: %v", err)
	}
	result, err := imp.Import(ctx, strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if result.GeneralsCreated != 0 || result.ConceptsCreated != 0 || result.SubconceptsCreated != 0 {
		t.Errorf("second import created entries: %+v", result)
	}
}

// Importing concepts under a general that already exists in the database
// reuses it rather than failing or duplicating.
func TestImportAgainstExistingCatalog(t *testing.T) {
	repo := newTestStorage(t)
	imp := NewCatalogImporter(repo)
	ctx := context.Background()

	if _, err := repo.CreateGeneral(ctx, core.General{Name: "Gastos", Type: core.Salida}); err != nil {
		t.Fatalf("CreateGeneral: %v", err)
	}

	csv := "concepto,Mantenimiento,,Gastos,\n"
	result, err := imp.Import(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected row errors: %v", result.Errors)
	}
	if result.GeneralsCreated != 0 || result.ConceptsCreated != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestImportCollectsRowErrors(t *testing.T) {
	repo := newTestStorage(t)
	imp := NewCatalogImporter(repo)

	csv := `tipo,nombre,descripcion,general_nombre,concepto_nombre
general,,,,
categoria,Otros,,,
concepto,Mantenimiento,,,
subconcepto,Canchas,,,Inexistente
general,Gastos,,,
concepto,Limpieza,,Gastos,
`
	result, err := imp.Import(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.RowsSkipped != 4 {
		t.Errorf("RowsSkipped = %d, want 4; errors: %v", result.RowsSkipped, result.Errors)
	}
	if len(result.Errors) != 4 {
		t.Errorf("len(Errors) = %d, want 4: %v", len(result.Errors), result.Errors)
	}
	// The valid rows still land.
	if result.GeneralsCreated != 1 || result.ConceptsCreated != 1 {
		t.Errorf("valid rows not imported: %+v", result)
	}
}

func TestImportWithoutHeader(t *testing.T) {
	repo := newTestStorage(t)
	imp := NewCatalogImporter(repo)

	result, err := imp.Import(context.Background(), strings.NewReader("general,Cuotas,,,\n"))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.GeneralsCreated != 1 {
		t.Errorf("headerless import = %+v", result)
	}
}

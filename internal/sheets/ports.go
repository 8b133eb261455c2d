package sheets

import "context"

// BoardRow is one line of the board committee's spreadsheet. The sync worker
// resolves catalog names before handing the row to an adapter, so adapters
// never touch the database.
type BoardRow struct {
	TransactionID string
	Date          string // YYYY-MM-DD
	Type          string // entrada or salida
	General       string
	Concept       string
	Subconcept    string
	Provider      string
	Description   string
	Amount        float64
	Status        string
	Division      string
	Version       int64
}

// BoardWriter appends rows to the board spreadsheet.
type BoardWriter interface {
	Append(ctx context.Context, row BoardRow) (rowRef string, err error)
}

package sheets

import (
	"context"

	"organify/internal/core"
	"organify/internal/sanitize"
)

// Ports for outbound adapters.
type (
	// TransactionMirror keeps a copy of each transaction in an external
	// spreadsheet, one row per transaction keyed by its id.
	TransactionMirror interface {
		// Upsert writes t, replacing an existing row with the same id.
		Upsert(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// Delete removes the row of id. Missing rows are not an error.
		Delete(ctx context.Context, id string) error
	}
)

// Header is the column layout of the mirror sheet.
var Header = []string{"ID", "Date", "Type", "Description", "Amount", "Status", "Category"}

// Row renders t in Header order. Amounts are major units with two decimals
// and free text is escaped against formula evaluation.
func Row(t core.Transaction) []string {
	category := ""
	if t.Category != nil {
		category = sanitize.Cell(t.Category.Name)
	}
	return []string{
		t.ID,
		t.Date.String(),
		string(t.Type),
		sanitize.Cell(t.Description),
		t.Amount.String(),
		string(t.Status),
		category,
	}
}

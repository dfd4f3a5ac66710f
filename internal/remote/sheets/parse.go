package sheets

import (
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

const dateLayout = "2006-01-02"

// parseRow turns a spreadsheet row into a transaction. Rows are often
// hand-edited, so everything past the id is coerced rather than rejected:
// a bad amount reads as zero, a bad date as the zero time. Only a missing
// id or owner disqualifies the row.
func parseRow(row []any) (core.Transaction, bool) {
	var t core.Transaction

	t.ID = strings.TrimSpace(cell(row, 0))
	t.OwnerID = strings.TrimSpace(cell(row, 1))
	if t.ID == "" || t.OwnerID == "" {
		return core.Transaction{}, false
	}

	t.Kind = core.Kind(strings.ToLower(strings.TrimSpace(cell(row, 2))))
	if !t.Kind.Valid() {
		return core.Transaction{}, false
	}

	t.Label = strings.TrimSpace(cell(row, 3))
	t.Amount = core.ParseAmount(cell(row, 4))
	t.Category = strings.TrimSpace(cell(row, 5))

	if raw := strings.TrimSpace(cell(row, 6)); raw != "" {
		if d, err := time.Parse(dateLayout, raw); err == nil {
			t.Date = d
		}
	}
	return t, true
}

func formatRow(t core.Transaction) []any {
	date := ""
	if !t.Date.IsZero() {
		date = t.Date.Format(dateLayout)
	}
	return []any{
		t.ID,
		t.OwnerID,
		string(t.Kind),
		t.Label,
		t.Amount.String(),
		t.Category,
		date,
	}
}

func cell(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

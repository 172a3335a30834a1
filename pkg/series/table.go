package series

import (
	"github.com/bacendata/sgs-client/pkg/dates"
)

// Table is the outer join of several series on their dates. Rows are
// sorted by date ascending; columns are the caller's labels in sorted
// order. A date present in any series produces a row, with absent and
// missing observations leaving the cell unset.
type Table struct {
	Labels []string
	Rows   []Row
}

// Row is one date of a Table. Values holds the cells that are present;
// a label absent from the map has no observation on this date.
type Row struct {
	Date   dates.Date
	Values map[string]float64
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return len(t.Rows) == 0 }

// Value returns the cell for a label on a given row, with ok=false for
// an unset cell.
func (r Row) Value(label string) (float64, bool) {
	v, ok := r.Values[label]
	return v, ok
}

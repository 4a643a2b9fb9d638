package schema

import (
	"strings"

	"github.com/JonMunkholm/listingclean/internal/table"
)

// indexNames are column labels that export tools give to a written-out row index.
var indexNames = map[string]struct{}{
	"index":      {},
	"row":        {},
	"unnamed: 0": {},
}

// RemoveIndexLikeColumns drops columns that look like an exported row index:
// either the name is a known index label, or the column is an integer counter
// equal to 0..n-1 or 1..n.
//
// This is a heuristic. A real business column that happens to be a perfect
// counter (an invoice number starting at 0, say) is dropped too.
func RemoveIndexLikeColumns(t table.Table) table.Table {
	var drop []string
	for i, c := range t.Columns() {
		if IsIndexLike(t, i) {
			drop = append(drop, c.Name)
		}
	}
	return t.DropColumns(drop...)
}

// IsIndexLike reports whether column col would be removed by RemoveIndexLikeColumns.
func IsIndexLike(t table.Table, col int) bool {
	c := t.Columns()[col]
	if _, ok := indexNames[strings.ToLower(strings.TrimSpace(c.Name))]; ok {
		return true
	}
	if c.Kind != table.KindInteger || t.Len() == 0 {
		return false
	}
	return isCounterFrom(t, col, 0) || isCounterFrom(t, col, 1)
}

// isCounterFrom reports whether column col holds start, start+1, ... with no nulls.
func isCounterFrom(t table.Table, col int, start int64) bool {
	for i := 0; i < t.Len(); i++ {
		v := t.Cell(i, col)
		if v.Null || v.Int != start+int64(i) {
			return false
		}
	}
	return true
}

package table

import (
	"fmt"
	"slices"
	"strings"
)

// Table is an immutable, ordered collection of rows over a fixed column set.
//
// Methods that change the shape or content of a table return a new Table.
// Rows that a transform does not touch are shared between the old and the new
// table, which is safe because no method writes into an existing row.
type Table struct {
	columns []Column
	rows    []Row
}

// New builds a table, checking that every row has one value per column and
// that column names are unique.
func New(columns []Column, rows []Row) (Table, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c.Name]; dup {
			return Table{}, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}

	for i, r := range rows {
		if len(r) != len(columns) {
			return Table{}, fmt.Errorf("row %d has %d values, want %d", i, len(r), len(columns))
		}
	}

	return Table{
		columns: slices.Clone(columns),
		rows:    slices.Clone(rows),
	}, nil
}

// MustNew is like New but panics on error. Intended for tests and literals.
func MustNew(columns []Column, rows []Row) Table {
	t, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t Table) Width() int { return len(t.columns) }

// Columns returns a copy of the column definitions in order.
func (t Table) Columns() []Column { return slices.Clone(t.columns) }

// ColumnNames returns the column names in order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column definition.
func (t Table) Column(name string) (Column, bool) {
	if i := t.Index(name); i >= 0 {
		return t.columns[i], true
	}
	return Column{}, false
}

// Row returns a copy of row i.
func (t Table) Row(i int) Row { return slices.Clone(t.rows[i]) }

// Cell returns the value at row i, column col.
func (t Table) Cell(i, col int) Value { return t.rows[i][col] }

// Filter returns a table holding the rows for which keep returns true,
// in their original order.
func (t Table) Filter(keep func(Row) bool) Table {
	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return Table{columns: t.columns, rows: out}
}

// MapColumn returns a table whose column col has been rewritten by fn.
// Every row is copied; the receiver is unchanged.
func (t Table) MapColumn(col int, fn func(Value) Value) Table {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := slices.Clone(r)
		nr[col] = fn(r[col])
		out[i] = nr
	}
	return Table{columns: t.columns, rows: out}
}

// AsString returns a table in which column col has string kind. Numeric cells
// are replaced by their written form; nulls stay null.
func (t Table) AsString(col int) Table {
	kind := t.columns[col].Kind
	if kind == KindString {
		return t
	}

	cols := slices.Clone(t.columns)
	cols[col].Kind = KindString
	out := t.MapColumn(col, func(v Value) Value {
		if v.Null {
			return v
		}
		return StringValue(v.Format(kind))
	})
	out.columns = cols
	return out
}

// DropColumns returns a table without the named columns. Unknown names are ignored.
func (t Table) DropColumns(names ...string) Table {
	if len(names) == 0 {
		return t
	}

	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}

	var keep []int
	cols := make([]Column, 0, len(t.columns))
	for i, c := range t.columns {
		if _, ok := drop[c.Name]; ok {
			continue
		}
		keep = append(keep, i)
		cols = append(cols, c)
	}

	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := make(Row, len(keep))
		for j, k := range keep {
			nr[j] = r[k]
		}
		rows[i] = nr
	}
	return Table{columns: cols, rows: rows}
}

// Equal reports whether two tables have the same columns, kinds and cells.
func (t Table) Equal(o Table) bool {
	if !slices.Equal(t.columns, o.columns) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.rows {
		if !slices.Equal(t.rows[i], o.rows[i]) {
			return false
		}
	}
	return true
}

// RowKey returns a string that is equal for two rows exactly when every
// cell is equal. Used for duplicate detection.
func (t Table) RowKey(r Row) string {
	var b strings.Builder
	for i, v := range r {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		if v.Null {
			b.WriteString("\x00null")
			continue
		}
		s := v.Format(t.columns[i].Kind)
		fmt.Fprintf(&b, "%d:%s", len(s), s)
	}
	return b.String()
}

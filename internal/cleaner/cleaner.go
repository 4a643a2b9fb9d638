// Package cleaner turns a raw listings table into one that is safe to load.
//
// Clean runs a fixed sequence of steps. The order matters: the null drop
// guarantees the review filter never sees a missing count, and name
// normalization runs after the duplicate drop so that two raw rows differing
// only in name spelling are both kept.
//
//  1. drop exact duplicate rows (first occurrence wins)
//  2. drop rows with any null cell
//  3. normalize host_name
//  4. drop rows with number_of_reviews <= 0
//  5. strip double quotes from string cells
//
// Every step is a pure function of its input table and is exported so it can
// be tested or reused on its own.
package cleaner

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/listingclean/internal/table"
	"github.com/spf13/cast"
)

// Column names the cleaner depends on.
const (
	HostNameColumn = "host_name"
	ReviewsColumn  = "number_of_reviews"
)

// Step names as they appear in reports, logs and metrics.
const (
	StepDropDuplicates = "drop_duplicates"
	StepDropIncomplete = "drop_incomplete"
	StepNormalizeHost  = "normalize_host_name"
	StepDropNoReviews  = "drop_zero_reviews"
	StepStripQuotes    = "strip_quotes"
)

// Cleaner applies the cleaning steps and reports each step's row delta.
type Cleaner struct {
	reporter Reporter
}

// New returns a Cleaner that sends step reports to r. A nil r discards them.
func New(r Reporter) *Cleaner {
	if r == nil {
		r = Discard
	}
	return &Cleaner{reporter: r}
}

type step struct {
	name string
	fn   func(table.Table) (table.Table, error)
}

var steps = []step{
	{StepDropDuplicates, lift(DropDuplicates)},
	{StepDropIncomplete, lift(DropIncomplete)},
	{StepNormalizeHost, NormalizeHostNames},
	{StepDropNoReviews, DropZeroReviews},
	{StepStripQuotes, lift(StripQuotes)},
}

func lift(fn func(table.Table) table.Table) func(table.Table) (table.Table, error) {
	return func(t table.Table) (table.Table, error) { return fn(t), nil }
}

// Clean runs every step in order. On error no partial table is returned.
func (c *Cleaner) Clean(t table.Table) (table.Table, error) {
	for _, s := range steps {
		before := t.Len()
		out, err := s.fn(t)
		if err != nil {
			return table.Table{}, fmt.Errorf("%s: %w", s.name, err)
		}
		c.reporter.Report(StepReport{Step: s.name, RowsBefore: before, RowsAfter: out.Len()})
		t = out
	}
	return t, nil
}

// Clean runs the pipeline without reporting.
func Clean(t table.Table) (table.Table, error) {
	return New(nil).Clean(t)
}

// DropDuplicates removes rows identical to an earlier row.
func DropDuplicates(t table.Table) table.Table {
	seen := make(map[string]struct{}, t.Len())
	return t.Filter(func(r table.Row) bool {
		key := t.RowKey(r)
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		return true
	})
}

// DropIncomplete removes every row holding a null in any column.
func DropIncomplete(t table.Table) table.Table {
	return t.Filter(func(r table.Row) bool {
		for _, v := range r {
			if v.Null {
				return false
			}
		}
		return true
	})
}

// NormalizeHostNames applies NormalizeHostName to every host_name cell.
// A non-string host_name column is converted to strings first.
func NormalizeHostNames(t table.Table) (table.Table, error) {
	col := t.Index(HostNameColumn)
	if col < 0 {
		return table.Table{}, &table.MissingColumnError{Column: HostNameColumn, Step: StepNormalizeHost}
	}

	return t.AsString(col).MapColumn(col, func(v table.Value) table.Value {
		if v.Null {
			return v
		}
		return table.StringValue(NormalizeHostName(v.Str))
	}), nil
}

// DropZeroReviews keeps rows whose number_of_reviews is strictly positive.
// It must run after DropIncomplete; a null or non-numeric count is an error.
func DropZeroReviews(t table.Table) (table.Table, error) {
	c, ok := t.Column(ReviewsColumn)
	if !ok {
		return table.Table{}, &table.MissingColumnError{Column: ReviewsColumn, Step: StepDropNoReviews}
	}
	col := t.Index(ReviewsColumn)

	var convErr error
	out := t.Filter(func(r table.Row) bool {
		if convErr != nil {
			return false
		}
		n, err := cast.ToFloat64E(r[col].Any(c.Kind))
		if r[col].Null || err != nil {
			convErr = fmt.Errorf("non-numeric %s value %q", ReviewsColumn, r[col].Format(c.Kind))
			return false
		}
		return n > 0
	})
	if convErr != nil {
		return table.Table{}, convErr
	}
	return out, nil
}

// StripQuotes removes every literal double quote from string-kind columns.
func StripQuotes(t table.Table) table.Table {
	for i, c := range t.Columns() {
		if c.Kind != table.KindString {
			continue
		}
		t = t.MapColumn(i, func(v table.Value) table.Value {
			if v.Null || !strings.Contains(v.Str, `"`) {
				return v
			}
			return table.StringValue(strings.ReplaceAll(v.Str, `"`, ""))
		})
	}
	return t
}

// Package table holds the in-memory representation of a delimited listings file.
//
// A Table is an ordered set of rows over a fixed, ordered set of columns. Each
// column carries a Kind inferred once when the file is read; later steps consult
// the kind instead of re-inspecting cell values.
//
// Tables are values. Every transform in this module takes a Table and returns a
// new one, leaving its input untouched.
package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the inferred data type of a column.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	default:
		return "string"
	}
}

// Column is a named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Value is a single cell. Exactly one of Str, Int or Float is meaningful,
// selected by the owning column's kind. Null marks a missing value.
type Value struct {
	Null  bool
	Str   string
	Int   int64
	Float float64
}

// NullValue returns a null cell.
func NullValue() Value { return Value{Null: true} }

// StringValue returns a string cell.
func StringValue(s string) Value { return Value{Str: s} }

// IntValue returns an integer cell.
func IntValue(i int64) Value { return Value{Int: i} }

// FloatValue returns a float cell.
func FloatValue(f float64) Value { return Value{Float: f} }

// Any returns the cell as a Go scalar for the given kind, or nil when null.
func (v Value) Any(kind Kind) any {
	if v.Null {
		return nil
	}
	switch kind {
	case KindInteger:
		return v.Int
	case KindFloat:
		return v.Float
	default:
		return v.Str
	}
}

// Format renders the cell as it is written to the output file.
// Nulls are written as empty cells.
func (v Value) Format(kind Kind) string {
	if v.Null {
		return ""
	}
	switch kind {
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return formatFloat(v.Float)
	default:
		return v.Str
	}
}

// formatFloat writes the shortest round-trip form and keeps a ".0" on whole
// values so the column is read back as float, not integer.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Row is one record. Values are aligned with the table's columns.
type Row []Value

// MissingColumnError is returned when a step needs a column the table lacks.
type MissingColumnError struct {
	Column string
	Step   string
}

func (e *MissingColumnError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("missing required column %q (needed by %s)", e.Column, e.Step)
	}
	return fmt.Sprintf("missing required column %q", e.Column)
}

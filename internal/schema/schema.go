// Package schema checks a cleaned table against the expected warehouse layout.
//
// A Schema is an ordered list of column names loaded from a small document:
//
//	{"columns": ["id", "name", "host_id", "host_name", ...]}
//
// or the same thing in YAML. Column order is significant: the warehouse load
// maps fields by position, so ValidateColumns compares positionally.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/JonMunkholm/listingclean/internal/table"
	"gopkg.in/yaml.v3"
)

// Schema is the ordered list of expected column names.
type Schema struct {
	Columns []string `yaml:"columns" json:"columns"`
}

// ConfigurationError reports a schema document that is missing or unusable.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("schema config %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// MismatchError reports a table whose columns differ from the schema.
type MismatchError struct {
	Expected []string
	Actual   []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("column mismatch: expected %d columns %v, got %d columns %v",
		len(e.Expected), e.Expected, len(e.Actual), e.Actual)
}

// Missing returns expected columns absent from the table.
func (e *MismatchError) Missing() []string { return difference(e.Expected, e.Actual) }

// Unexpected returns table columns the schema does not list.
func (e *MismatchError) Unexpected() []string { return difference(e.Actual, e.Expected) }

func difference(a, b []string) []string {
	var out []string
	for _, s := range a {
		if !slices.Contains(b, s) {
			out = append(out, s)
		}
	}
	return out
}

// Load reads a schema document in JSON or YAML.
func Load(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, &ConfigurationError{Path: path, Err: err}
	}
	s, err := Parse(data)
	if err != nil {
		return Schema{}, &ConfigurationError{Path: path, Err: err}
	}
	return s, nil
}

// Parse decodes a schema document and checks that it lists unique, non-empty
// column names.
func Parse(data []byte) (Schema, error) {
	var doc struct {
		Columns *[]string `yaml:"columns" json:"columns"`
	}
	if err := decode(data, &doc); err != nil {
		return Schema{}, fmt.Errorf("malformed document: %w", err)
	}
	if doc.Columns == nil {
		return Schema{}, errors.New(`missing "columns" field`)
	}
	if len(*doc.Columns) == 0 {
		return Schema{}, errors.New(`"columns" is empty`)
	}

	seen := make(map[string]struct{}, len(*doc.Columns))
	for i, c := range *doc.Columns {
		if strings.TrimSpace(c) == "" {
			return Schema{}, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := seen[c]; dup {
			return Schema{}, fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = struct{}{}
	}

	return Schema{Columns: *doc.Columns}, nil
}

// decode reads JSON objects with encoding/json, which tolerates tab
// indentation, and everything else as YAML.
func decode(data []byte, v any) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return json.Unmarshal(trimmed, v)
	}
	return yaml.Unmarshal(data, v)
}

// ValidateColumns checks that the table's columns equal the schema's, in order.
// It never modifies the table.
func ValidateColumns(t table.Table, s Schema) error {
	actual := t.ColumnNames()
	if slices.Equal(actual, s.Columns) {
		return nil
	}
	return &MismatchError{
		Expected: slices.Clone(s.Columns),
		Actual:   actual,
	}
}

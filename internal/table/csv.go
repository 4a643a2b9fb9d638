package table

// csv.go reads and writes delimited files with a header row.
//
// Reading happens in two passes over the whole file: the first parses raw
// records, the second infers one Kind per column and converts every cell.
// Null markers follow the conventions of common dataframe tooling so files
// exported by those tools round-trip without surprises.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultNullMarkers are the cell values treated as missing.
var DefaultNullMarkers = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// ErrEmptyFile is returned when the input has no header row.
var ErrEmptyFile = errors.New("empty file: no header row")

// ErrFileTooLarge is returned when the input exceeds CSVOptions.MaxBytes.
var ErrFileTooLarge = errors.New("file too large")

// CSVOptions controls parsing and formatting.
type CSVOptions struct {
	Delimiter   rune     // Field delimiter (default ',')
	NullMarkers []string // Cell values read as null (default DefaultNullMarkers)
	MaxBytes    int64    // Reject inputs larger than this; 0 means unlimited
}

func (o CSVOptions) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

func (o CSVOptions) nullSet() map[string]struct{} {
	markers := o.NullMarkers
	if markers == nil {
		markers = DefaultNullMarkers
	}
	set := make(map[string]struct{}, len(markers))
	for _, m := range markers {
		set[m] = struct{}{}
	}
	return set
}

// ReadCSV loads a whole delimited file into a Table.
func ReadCSV(r io.Reader, opts CSVOptions) (Table, error) {
	data, err := readAll(r, opts.MaxBytes)
	if err != nil {
		return Table{}, err
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = opts.delimiter()
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, ErrEmptyFile
	}
	if err != nil {
		return Table{}, fmt.Errorf("invalid csv header: %w", err)
	}
	names := headerNames(header)

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("invalid csv: %w", err)
		}
		if len(rec) > len(names) {
			line, _ := cr.FieldPos(0)
			return Table{}, fmt.Errorf("invalid csv: line %d has %d fields, header has %d", line, len(rec), len(names))
		}
		records = append(records, rec)
	}

	nulls := opts.nullSet()
	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name, Kind: inferKind(records, i, nulls)}
	}

	rows := make([]Row, len(records))
	for i, rec := range records {
		row := make(Row, len(columns))
		for j, col := range columns {
			if j >= len(rec) {
				row[j] = NullValue()
				continue
			}
			row[j] = parseCell(rec[j], col.Kind, nulls)
		}
		rows[i] = row
	}

	return Table{columns: columns, rows: rows}, nil
}

// WriteCSV writes the table with a header row. The header is written even
// when the table has no rows.
func WriteCSV(w io.Writer, t Table, opts CSVOptions) error {
	cw := csv.NewWriter(w)
	cw.Comma = opts.delimiter()

	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rec := make([]string, len(t.columns))
	for _, r := range t.rows {
		for i, v := range r {
			rec[i] = v.Format(t.columns[i].Kind)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// readAll reads the input, drops a UTF-8 byte order mark and replaces invalid
// UTF-8 sequences with U+FFFD.
func readAll(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, maxBytes)
	}

	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	return bytes.ToValidUTF8(data, []byte("\uFFFD")), nil
}

// headerNames names blank header cells "Unnamed: <pos>" and suffixes repeated
// names with ".1", ".2", ... so every column name is unique.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]int, len(header))
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := used[name]; dup {
			base := name
			for {
				n++
				name = base + "." + strconv.Itoa(n)
				if _, taken := used[name]; !taken {
					break
				}
			}
			used[base] = n
		}
		used[name] = 0
		names[i] = name
	}
	return names
}

// inferKind picks the narrowest kind that every non-null cell of column col fits.
func inferKind(records [][]string, col int, nulls map[string]struct{}) Kind {
	kind := KindInteger
	seen := false
	for _, rec := range records {
		if col >= len(rec) {
			continue
		}
		s := rec[col]
		if _, isNull := nulls[s]; isNull {
			continue
		}
		seen = true
		if kind == KindInteger {
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				continue
			}
			kind = KindFloat
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return KindString
		}
	}
	if !seen {
		return KindString
	}
	return kind
}

func parseCell(s string, kind Kind, nulls map[string]struct{}) Value {
	if _, isNull := nulls[s]; isNull {
		return NullValue()
	}
	switch kind {
	case KindInteger:
		i, _ := strconv.ParseInt(s, 10, 64)
		return IntValue(i)
	case KindFloat:
		f, _ := strconv.ParseFloat(s, 64)
		return FloatValue(f)
	default:
		return StringValue(s)
	}
}

package table

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestReadCSV_InfersKinds(t *testing.T) {
	input := "id,host_name,price,number_of_reviews\n" +
		"1,Amy,10.5,5\n" +
		"2,Bob,20,\n" +
		"3,Cy,NaN,7\n"

	tbl, err := ReadCSV(strings.NewReader(input), CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	want := []Column{
		{Name: "id", Kind: KindInteger},
		{Name: "host_name", Kind: KindString},
		{Name: "price", Kind: KindFloat},
		{Name: "number_of_reviews", Kind: KindInteger},
	}
	got := tbl.Columns()
	if len(got) != len(want) {
		t.Fatalf("len(Columns()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Columns()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if tbl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tbl.Len())
	}
	if !tbl.Cell(1, 3).Null {
		t.Errorf("empty cell should be null")
	}
	if !tbl.Cell(2, 2).Null {
		t.Errorf("NaN cell should be null")
	}
	if got := tbl.Cell(0, 2).Float; got != 10.5 {
		t.Errorf("price[0] = %v, want 10.5", got)
	}
}

func TestReadCSV_HeaderNames(t *testing.T) {
	input := ",name,name,\n0,a,b,x\n"

	tbl, err := ReadCSV(strings.NewReader(input), CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	want := []string{"Unnamed: 0", "name", "name.1", "Unnamed: 3"}
	got := tbl.ColumnNames()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ColumnNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReadCSV_BOMAndShortRows(t *testing.T) {
	input := "\xEF\xBB\xBFa,b\n1\n2,3\n"

	tbl, err := ReadCSV(strings.NewReader(input), CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if names := tbl.ColumnNames(); names[0] != "a" {
		t.Errorf("first column = %q, want BOM stripped", names[0])
	}
	if !tbl.Cell(0, 1).Null {
		t.Errorf("missing trailing field should read as null")
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    CSVOptions
		wantErr error
		wantMsg string
	}{
		{name: "empty", input: "", wantErr: ErrEmptyFile},
		{name: "too many fields", input: "a,b\n1,2,3\n", wantMsg: "invalid csv"},
		{name: "too large", input: "a,b\n1,2\n", opts: CSVOptions{MaxBytes: 4}, wantErr: ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), tt.opts)
			if err == nil {
				t.Fatal("ReadCSV() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadCSV() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("ReadCSV() error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestReadCSV_CustomDelimiterAndMarkers(t *testing.T) {
	input := "a;b\n-;x\n1;y\n"

	tbl, err := ReadCSV(strings.NewReader(input), CSVOptions{Delimiter: ';', NullMarkers: []string{"-"}})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if col, _ := tbl.Column("a"); col.Kind != KindInteger {
		t.Errorf("a kind = %v, want integer", col.Kind)
	}
	if !tbl.Cell(0, 0).Null {
		t.Errorf("custom marker should read as null")
	}
}

func TestWriteCSV(t *testing.T) {
	tbl := MustNew(
		[]Column{{Name: "id", Kind: KindInteger}, {Name: "note", Kind: KindString}, {Name: "price", Kind: KindFloat}},
		[]Row{
			{IntValue(1), StringValue("a, b"), FloatValue(2.5)},
			{IntValue(2), NullValue(), FloatValue(3)},
		},
	)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl, CSVOptions{}); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	want := "id,note,price\n1,\"a, b\",2.5\n2,,3.0\n"
	if buf.String() != want {
		t.Errorf("WriteCSV() = %q, want %q", buf.String(), want)
	}
}

func TestWriteCSV_EmptyTableKeepsHeader(t *testing.T) {
	tbl := MustNew([]Column{{Name: "id", Kind: KindInteger}, {Name: "name"}}, nil)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl, CSVOptions{}); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if buf.String() != "id,name\n" {
		t.Errorf("WriteCSV() = %q, want header only", buf.String())
	}
}

func TestWriteCSV_WholeFloatsKeepKind(t *testing.T) {
	tbl := MustNew(
		[]Column{{Name: "price", Kind: KindFloat}},
		[]Row{{FloatValue(1)}, {FloatValue(-20)}, {FloatValue(0)}},
	)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl, CSVOptions{}); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if want := "price\n1.0\n-20.0\n0.0\n"; buf.String() != want {
		t.Errorf("WriteCSV() = %q, want %q", buf.String(), want)
	}

	back, err := ReadCSV(&buf, CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if col, _ := back.Column("price"); col.Kind != KindFloat {
		t.Errorf("price kind after round trip = %v, want float", col.Kind)
	}
}

func TestValueFormat_Float(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2.5, "2.5"},
		{3, "3.0"},
		{1e21, "1000000000000000000000.0"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "+Inf"},
		{math.Inf(-1), "-Inf"},
	}

	for _, tt := range tests {
		if got := FloatValue(tt.in).Format(KindFloat); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

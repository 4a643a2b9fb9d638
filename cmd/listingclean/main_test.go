package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/listingclean/internal/config"
	"github.com/JonMunkholm/listingclean/internal/schema"
	"github.com/JonMunkholm/listingclean/internal/storage"
)

const rawListings = `id,host_name,number_of_reviews,neighbourhood
1,johnSmith,10,"Down ""town"""
1,johnSmith,10,"Down ""town"""
2,mary and bob,0,Uptown
3,,5,Midtown
4,  aliceJones ,3,Eastside
`

const cleanListings = `id,host_name,number_of_reviews,neighbourhood
1,John Smith,10,Down town
4,Alice Jones,3,Eastside
`

// run executes the CLI with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := rootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCleanCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "listings.csv")
	out := filepath.Join(dir, "cleaned_listings.csv")
	writeFile(t, in, rawListings)

	stdout, err := run(t, "clean", "--input", in, "--output", out)
	if err != nil {
		t.Fatalf("clean error = %v", err)
	}
	if !strings.Contains(stdout, `"rows_out": 2`) {
		t.Errorf("stdout = %s, want run summary", stdout)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != cleanListings {
		t.Errorf("output =\n%s\nwant\n%s", got, cleanListings)
	}
}

func TestCleanCommand_SchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "listings.csv")
	out := filepath.Join(dir, "cleaned.csv")
	sch := filepath.Join(dir, "schema.yaml")
	writeFile(t, in, rawListings)
	writeFile(t, sch, "columns:\n  - id\n  - host_name\n")

	_, err := run(t, "clean", "--input", in, "--output", out, "--schema", sch)

	var mismatch *schema.MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("clean error = %v, want MismatchError", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("output written despite schema mismatch")
	}
}

func TestCleanCommand_DropIndexColumns(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "listings.csv")
	out := filepath.Join(dir, "cleaned.csv")
	writeFile(t, in, ",host_name,number_of_reviews\n0,ann,5\n1,bob,7\n")

	if _, err := run(t, "clean", "-i", in, "-o", out, "--drop-index-columns"); err != nil {
		t.Fatalf("clean error = %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if want := "host_name,number_of_reviews\nAnn,5\nBob,7\n"; string(got) != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestCleanCommand_RequiresFlags(t *testing.T) {
	if _, err := run(t, "clean", "--input", "x.csv"); err == nil {
		t.Error("clean without --output should fail")
	}
}

func TestProcessCommand_LocalStore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "raw", "listings.csv"), rawListings)
	t.Setenv("STORAGE_LOCAL_ROOT", root)
	t.Setenv("CLEAN_BUCKET", "clean")
	t.Setenv("WORK_DIR", t.TempDir())

	if _, err := run(t, "process", "--bucket", "raw", "--object", "listings.csv"); err != nil {
		t.Fatalf("process error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, "clean", "listings.csv"))
	if err != nil {
		t.Fatalf("cleaned object missing: %v", err)
	}
	if string(got) != cleanListings {
		t.Errorf("cleaned object =\n%s\nwant\n%s", got, cleanListings)
	}
}

func TestSweepCommand_ReportsFailures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "raw", "good.csv"), rawListings)
	writeFile(t, filepath.Join(root, "raw", "bad.csv"), "id,name\n1,x\n")
	t.Setenv("STORAGE_LOCAL_ROOT", root)
	t.Setenv("CLEAN_BUCKET", "clean")
	t.Setenv("RAW_BUCKET", "raw")

	stdout, err := run(t, "sweep")
	if err == nil || !strings.Contains(err.Error(), "1 failed") {
		t.Fatalf("sweep error = %v, want one failure", err)
	}
	if !strings.Contains(stdout, `"COL001"`) {
		t.Errorf("stdout = %s, want failure code COL001", stdout)
	}
	if _, err := os.Stat(filepath.Join(root, "clean", "good.csv")); err != nil {
		t.Errorf("good.csv not processed: %v", err)
	}
}

func TestPipelineOptions(t *testing.T) {
	dir := t.TempDir()
	sch := filepath.Join(dir, "schema.json")
	writeFile(t, sch, `{"columns": ["id", "host_name"]}`)

	cfg := &config.Config{Pipeline: config.PipelineConfig{
		SchemaPath:       sch,
		DropIndexColumns: true,
		Delimiter:        ";",
		NullMarkers:      []string{"NA"},
		MaxFileSize:      1024,
	}}

	opts, err := pipelineOptions(cfg)
	if err != nil {
		t.Fatalf("pipelineOptions() error = %v", err)
	}
	if opts.Schema == nil || len(opts.Schema.Columns) != 2 {
		t.Errorf("Schema = %+v, want 2 columns", opts.Schema)
	}
	if !opts.DropIndexColumns || opts.CSV.Delimiter != ';' || opts.CSV.MaxBytes != 1024 {
		t.Errorf("options = %+v", opts)
	}

	cfg.Pipeline.SchemaPath = filepath.Join(dir, "missing.yaml")
	var cfgErr *schema.ConfigurationError
	if _, err := pipelineOptions(cfg); !errors.As(err, &cfgErr) {
		t.Errorf("pipelineOptions() error = %v, want ConfigurationError", err)
	}
}

func TestOpenStore_Local(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{LocalRoot: t.TempDir()}}
	store, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	if _, ok := store.(*storage.DirStore); !ok {
		t.Errorf("openStore() = %T, want *storage.DirStore", store)
	}
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, &schema.MismatchError{Expected: []string{"a"}, Actual: []string{"b"}})
	if !strings.Contains(buf.String(), "SCH001") {
		t.Errorf("reportError output = %q, want code", buf.String())
	}
}

package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/listingclean/internal/cleaner"
	"github.com/JonMunkholm/listingclean/internal/logging"
	"github.com/JonMunkholm/listingclean/internal/metrics"
	"github.com/JonMunkholm/listingclean/internal/schema"
	"github.com/JonMunkholm/listingclean/internal/storage"
	"github.com/JonMunkholm/listingclean/internal/table"
	"github.com/JonMunkholm/listingclean/internal/warehouse"
)

// ErrNoCleanBucket is returned when object processing is requested without a
// destination bucket.
var ErrNoCleanBucket = errors.New("clean bucket not configured")

// TableLoader writes a cleaned table to the warehouse.
// Satisfied by *warehouse.Loader.
type TableLoader interface {
	Load(ctx context.Context, t table.Table) (int64, error)
	Target() warehouse.Target
}

// ServiceConfig wires a Service. Only Pipeline is needed for local files;
// Store and CleanBucket are needed for object processing.
type ServiceConfig struct {
	Pipeline    PipelineOptions
	Store       storage.ObjectStore
	CleanBucket string
	Loader      TableLoader        // nil disables the warehouse load
	Metrics     *metrics.Collector // nil disables metrics
	WorkDir     string             // defaults to the system temp dir
	LoadTimeout time.Duration      // zero means no extra deadline
}

// Service runs the cleaning pipeline for every entry point.
type Service struct {
	pipeline    PipelineOptions
	store       storage.ObjectStore
	cleanBucket string
	loader      TableLoader
	metrics     *metrics.Collector
	workDir     string
	loadTimeout time.Duration
}

// NewService creates a Service from cfg.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		pipeline:    cfg.Pipeline,
		store:       cfg.Store,
		cleanBucket: cfg.CleanBucket,
		loader:      cfg.Loader,
		metrics:     cfg.Metrics,
		workDir:     cfg.WorkDir,
		loadTimeout: cfg.LoadTimeout,
	}
}

// Pipeline returns the service's default pipeline options.
func (s *Service) Pipeline() PipelineOptions { return s.pipeline }

// LoadSchema reads the schema at path. An empty path returns nil, which
// leaves validation disabled.
func LoadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return nil, nil
	}
	sch, err := schema.Load(path)
	if err != nil {
		return nil, err
	}
	return &sch, nil
}

// CleanTable applies the cleaning pipeline to t. The returned table is only
// valid when err is nil.
func (s *Service) CleanTable(ctx context.Context, t table.Table, opts PipelineOptions) (table.Table, *RunResult, error) {
	result := &RunResult{RunID: logging.RunID(ctx), RowsIn: t.Len()}
	logger := logging.FromContext(ctx)

	rec := &cleaner.Recorder{}
	reporters := []cleaner.Reporter{rec, cleaner.LogReporter{Logger: logger}}
	if s.metrics != nil {
		reporters = append(reporters, s.metrics)
	}

	out, err := cleaner.New(cleaner.Multi(reporters...)).Clean(t)
	result.Steps = stepResults(rec.Reports)
	if err != nil {
		return table.Table{}, result, fmt.Errorf("clean: %w", err)
	}

	if opts.DropIndexColumns {
		before := out.ColumnNames()
		out = schema.RemoveIndexLikeColumns(out)
		result.DroppedColumns = removedNames(before, out.ColumnNames())
		if len(result.DroppedColumns) > 0 {
			logger.Info("removed index-like columns", "columns", result.DroppedColumns)
		}
	}

	if opts.Schema != nil {
		if err := schema.ValidateColumns(out, *opts.Schema); err != nil {
			return table.Table{}, result, err
		}
	}

	result.RowsOut = out.Len()
	result.Columns = out.ColumnNames()
	return out, result, nil
}

// CleanFile reads in, cleans it and writes the result to out. Nothing is
// written to out unless every step succeeds.
func (s *Service) CleanFile(ctx context.Context, in, out string, opts PipelineOptions) (*RunResult, error) {
	_, result, err := s.cleanFile(ensureRunID(ctx), in, out, opts)
	return result, err
}

func (s *Service) cleanFile(ctx context.Context, in, out string, opts PipelineOptions) (table.Table, *RunResult, error) {
	start := time.Now()
	logger := logging.FromContext(ctx)

	f, err := os.Open(in)
	if err != nil {
		return table.Table{}, nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	t, err := table.ReadCSV(f, opts.CSV)
	if err != nil {
		return table.Table{}, nil, fmt.Errorf("read %s: %w", in, err)
	}
	logger.Info("input loaded", "path", in, "rows", t.Len(), "columns", t.Width())

	if err := ctx.Err(); err != nil {
		return table.Table{}, nil, err
	}

	cleaned, result, err := s.CleanTable(ctx, t, opts)
	if err != nil {
		return table.Table{}, result, err
	}
	result.Input = in
	result.Output = out

	if err := writeFileAtomic(out, func(f *os.File) error {
		return table.WriteCSV(f, cleaned, opts.CSV)
	}); err != nil {
		return table.Table{}, result, fmt.Errorf("write %s: %w", out, err)
	}

	result.DurationMS = time.Since(start).Milliseconds()
	logger.Info("cleaned file written",
		"path", out,
		"rows_in", result.RowsIn,
		"rows_out", result.RowsOut,
		"duration_ms", result.DurationMS,
	)
	return cleaned, result, nil
}

// RunFile is CleanFile with metrics recorded under the CLI trigger.
func (s *Service) RunFile(ctx context.Context, in, out string, opts PipelineOptions) (*RunResult, error) {
	done := s.runStarted(TriggerCLI)
	result, err := s.CleanFile(ctx, in, out, opts)
	done(err)
	return result, err
}

func (s *Service) runStarted(trigger string) func(error) {
	if s.metrics == nil {
		return func(error) {}
	}
	return s.metrics.RunStarted(trigger)
}

func (s *Service) tempDir() string {
	if s.workDir != "" {
		return s.workDir
	}
	return os.TempDir()
}

// ensureRunID gives ctx a fresh run id unless it already carries one.
func ensureRunID(ctx context.Context) context.Context {
	if logging.RunID(ctx) != "" {
		return ctx
	}
	return newRunContext(ctx)
}

func newRunContext(ctx context.Context) context.Context {
	return logging.WithRunID(ctx, uuid.NewString())
}

// writeFileAtomic writes through a temp file in path's directory and renames
// it over path once write returns nil.
func writeFileAtomic(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func removedNames(before, after []string) []string {
	kept := make(map[string]bool, len(after))
	for _, n := range after {
		kept[n] = true
	}
	var out []string
	for _, n := range before {
		if !kept[n] {
			out = append(out, n)
		}
	}
	return out
}

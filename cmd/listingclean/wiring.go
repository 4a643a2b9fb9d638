package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/JonMunkholm/listingclean/internal/config"
	"github.com/JonMunkholm/listingclean/internal/core"
	"github.com/JonMunkholm/listingclean/internal/metrics"
	"github.com/JonMunkholm/listingclean/internal/storage"
	"github.com/JonMunkholm/listingclean/internal/table"
	"github.com/JonMunkholm/listingclean/internal/warehouse"
)

// pipelineOptions builds the per-run options from cfg, loading the schema
// document if one is configured.
func pipelineOptions(cfg *config.Config) (core.PipelineOptions, error) {
	sch, err := core.LoadSchema(cfg.Pipeline.SchemaPath)
	if err != nil {
		return core.PipelineOptions{}, err
	}
	return core.PipelineOptions{
		Schema:           sch,
		DropIndexColumns: cfg.Pipeline.DropIndexColumns,
		CSV: table.CSVOptions{
			Delimiter:   cfg.Pipeline.Comma(),
			NullMarkers: cfg.Pipeline.NullMarkers,
			MaxBytes:    cfg.Pipeline.MaxFileSize,
		},
	}, nil
}

// openStore returns a directory store when STORAGE_LOCAL_ROOT is set and a
// GCS store otherwise.
func openStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.Storage.LocalRoot != "" {
		slog.Info("using local object store", "root", cfg.Storage.LocalRoot)
		return storage.NewDirStore(cfg.Storage.LocalRoot), nil
	}
	store, err := storage.NewGCSStore(ctx, storage.GCSOptions{
		Project:      cfg.Storage.Project,
		Credentials:  cfg.Storage.Credentials,
		QuotaProject: cfg.Storage.QuotaProject,
		Impersonate:  cfg.Storage.Impersonate,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// objectService wires a Service for object processing. The returned close
// function releases the store and the warehouse pool.
func objectService(ctx context.Context, cfg *config.Config, collector *metrics.Collector) (*core.Service, func(), error) {
	opts, err := pipelineOptions(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open object store: %w", err)
	}
	closers := []func(){func() { store.Close() }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	svcCfg := core.ServiceConfig{
		Pipeline:    opts,
		Store:       store,
		CleanBucket: cfg.Storage.CleanBucket,
		Metrics:     collector,
		WorkDir:     cfg.Pipeline.WorkDir,
		LoadTimeout: cfg.Warehouse.LoadTimeout,
	}

	if cfg.WarehouseEnabled() {
		pool, err := warehouse.Connect(ctx, warehouse.PoolOptions{
			URL:      cfg.Warehouse.URL,
			MaxConns: cfg.Warehouse.MaxConns,
			MinConns: cfg.Warehouse.MinConns,
		})
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, pool.Close)

		target := warehouse.Target{Schema: cfg.Warehouse.Schema, Table: cfg.Warehouse.Table}
		svcCfg.Loader = warehouse.NewLoader(pool, target)
		slog.Info("warehouse load enabled", "target", target.String())
	}

	return core.NewService(svcCfg), closeAll, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reportError prints the operator-facing form of err followed by its
// technical text.
func reportError(w io.Writer, err error) {
	if core.IsUserFacing(err) {
		fmt.Fprintf(w, "Error: %s\n", core.FormatUserError(err))
		fmt.Fprintf(w, "Detail: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

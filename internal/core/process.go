package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/JonMunkholm/listingclean/internal/logging"
	"github.com/JonMunkholm/listingclean/internal/storage"
)

// ErrNoObjectStore is returned when object processing is requested on a
// service built without a store.
var ErrNoObjectStore = errors.New("object store not configured")

// ProcessObject cleans one object from the raw bucket and uploads the result
// to the clean bucket under the same name. When a warehouse loader is
// configured the cleaned rows replace the target table's contents.
//
// Objects without a .csv suffix are skipped; that is not an error.
func (s *Service) ProcessObject(ctx context.Context, ev Event) (*ObjectResult, error) {
	return s.processObject(ensureRunID(ctx), ev, TriggerEvent)
}

func (s *Service) processObject(ctx context.Context, ev Event, trigger string) (result *ObjectResult, err error) {
	logger := logging.WithFields(ctx, "bucket", ev.Bucket, "object", ev.Name)
	result = &ObjectResult{Bucket: ev.Bucket, Name: ev.Name}

	if ev.Bucket == "" || ev.Name == "" {
		return nil, errors.New("invalid event: bucket and name are required")
	}
	if !storage.IsCSV(ev.Name) {
		logger.Info("skipped non-CSV object")
		result.Skipped = true
		result.SkipReason = "not a .csv object"
		return result, nil
	}
	if s.cleanBucket == "" {
		return nil, ErrNoCleanBucket
	}
	if s.store == nil {
		return nil, ErrNoObjectStore
	}

	done := s.runStarted(trigger)
	defer func() { done(err) }()

	dir, err := os.MkdirTemp(s.tempDir(), "listingclean-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	base := path.Base(ev.Name)
	input := filepath.Join(dir, base)
	output := filepath.Join(dir, "cleaned_"+base)

	if err := s.store.Download(ctx, ev.Bucket, ev.Name, input); err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	logger.Info("downloaded object")

	cleaned, run, err := s.cleanFile(ctx, input, output, s.pipeline)
	if err != nil {
		return nil, err
	}
	result.Run = run

	if err := s.store.Upload(ctx, output, s.cleanBucket, ev.Name); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	result.CleanBucket = s.cleanBucket
	logger.Info("uploaded cleaned object", "clean_bucket", s.cleanBucket)

	if s.loader == nil {
		return result, nil
	}

	loadCtx := ctx
	if s.loadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, s.loadTimeout)
		defer cancel()
	}

	n, err := s.loader.Load(loadCtx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("warehouse load: %w", err)
	}
	result.RowsLoaded = n
	result.Target = s.loader.Target().String()
	if s.metrics != nil {
		s.metrics.RowsLoaded(n)
	}
	logger.Info("loaded rows into warehouse", "rows", n, "target", result.Target)

	return result, nil
}

// Sweep processes every .csv object under prefix in bucket that has no
// counterpart in the clean bucket yet. A failing object is recorded and the
// sweep moves on; only listing failures and cancellation abort it.
func (s *Service) Sweep(ctx context.Context, bucket, prefix string) (*SweepResult, error) {
	if s.store == nil {
		return nil, ErrNoObjectStore
	}
	if s.cleanBucket == "" {
		return nil, ErrNoCleanBucket
	}
	if bucket == s.cleanBucket {
		return nil, fmt.Errorf("invalid sweep: bucket %q is the clean bucket", bucket)
	}

	logger := logging.WithFields(ctx, "bucket", bucket, "prefix", prefix)

	objects, err := s.store.List(ctx, bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	result := &SweepResult{
		Bucket:    bucket,
		Prefix:    prefix,
		Processed: []ObjectResult{},
		Skipped:   []string{},
		Failed:    []SweepFailure{},
	}

	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !storage.IsCSV(obj.Name) {
			continue
		}

		done, err := s.store.Exists(ctx, s.cleanBucket, obj.Name)
		if err != nil {
			return result, fmt.Errorf("check clean bucket: %w", err)
		}
		if done {
			result.Skipped = append(result.Skipped, obj.Name)
			continue
		}

		runCtx := newRunContext(ctx)
		res, err := s.processObject(runCtx, Event{Bucket: bucket, Name: obj.Name}, TriggerSweep)
		if err != nil {
			logging.FromContext(runCtx).Error("sweep object failed", "object", obj.Name, "error", err)
			result.Failed = append(result.Failed, SweepFailure{
				Name:  obj.Name,
				Error: err.Error(),
				Code:  MapError(err).Code,
			})
			continue
		}
		result.Processed = append(result.Processed, *res)
	}

	logger.Info("sweep finished",
		"processed", len(result.Processed),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
	)
	return result, nil
}

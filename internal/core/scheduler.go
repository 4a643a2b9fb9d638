package core

// scheduler.go runs sweeps of the raw bucket on a cron schedule.
//
// Scheduled sweeps pick up objects whose storage events were lost or whose
// processing failed. A sweep that is still running when the next tick fires
// causes that tick to be skipped, so sweeps never overlap.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepSchedule configures StartSweepScheduler.
type SweepSchedule struct {
	Spec   string // standard 5-field cron expression
	Bucket string
	Prefix string
}

// StartSweepScheduler registers a sweep job and starts the cron runner. The
// runner stops when ctx is cancelled; the returned channel is closed once
// any in-flight sweep has finished.
func (s *Service) StartSweepScheduler(ctx context.Context, sched SweepSchedule) (<-chan struct{}, error) {
	c := cron.New(
		cron.WithLogger(cronLogger{slog.Default()}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{slog.Default()})),
	)

	if _, err := c.AddFunc(sched.Spec, func() { s.runSweepJob(ctx, sched) }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", sched.Spec, err)
	}

	c.Start()
	slog.Info("sweep scheduler started",
		"schedule", sched.Spec,
		"bucket", sched.Bucket,
		"prefix", sched.Prefix,
	)

	stopped := make(chan struct{})
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		slog.Info("sweep scheduler stopped")
		close(stopped)
	}()

	return stopped, nil
}

// runSweepJob performs one scheduled sweep and logs its outcome. Failures
// are logged, never propagated, so the schedule keeps running.
func (s *Service) runSweepJob(ctx context.Context, sched SweepSchedule) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()

	result, err := s.Sweep(ctx, sched.Bucket, sched.Prefix)
	if err != nil {
		slog.Error("scheduled sweep failed",
			"bucket", sched.Bucket,
			"error", err,
			"code", MapError(err).Code,
		)
		return
	}

	slog.Info("scheduled sweep completed",
		"bucket", sched.Bucket,
		"processed", len(result.Processed),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

package cleaner

import "log/slog"

// StepReport describes the effect of one cleaning step.
type StepReport struct {
	Step       string
	RowsBefore int
	RowsAfter  int
}

// Dropped returns how many rows the step removed.
func (r StepReport) Dropped() int { return r.RowsBefore - r.RowsAfter }

// Reporter receives one StepReport per executed step. Reports are advisory;
// a Reporter cannot fail a run.
type Reporter interface {
	Report(StepReport)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(StepReport)

func (f ReporterFunc) Report(r StepReport) { f(r) }

// Discard ignores all reports.
var Discard Reporter = ReporterFunc(func(StepReport) {})

// LogReporter writes each report to a structured logger.
type LogReporter struct {
	Logger *slog.Logger
}

func (l LogReporter) Report(r StepReport) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("cleaning step finished",
		"step", r.Step,
		"rows_before", r.RowsBefore,
		"rows_after", r.RowsAfter,
		"rows_dropped", r.Dropped(),
	)
}

// Recorder keeps every report it receives, in order.
type Recorder struct {
	Reports []StepReport
}

func (rec *Recorder) Report(r StepReport) { rec.Reports = append(rec.Reports, r) }

// Dropped returns the rows dropped by the named step, or 0 if it did not run.
func (rec *Recorder) Dropped(step string) int {
	for _, r := range rec.Reports {
		if r.Step == step {
			return r.Dropped()
		}
	}
	return 0
}

// Multi fans each report out to every reporter.
func Multi(reporters ...Reporter) Reporter {
	return ReporterFunc(func(r StepReport) {
		for _, rep := range reporters {
			if rep != nil {
				rep.Report(r)
			}
		}
	})
}

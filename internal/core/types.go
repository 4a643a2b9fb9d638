package core

import (
	"github.com/JonMunkholm/listingclean/internal/cleaner"
	"github.com/JonMunkholm/listingclean/internal/schema"
	"github.com/JonMunkholm/listingclean/internal/table"
)

// Trigger names what started a run. Used as a metrics label.
const (
	TriggerCLI   = "cli"
	TriggerEvent = "event"
	TriggerSweep = "sweep"
)

// PipelineOptions controls a single cleaning run.
type PipelineOptions struct {
	// Schema, when set, is checked against the cleaned table's columns.
	Schema *schema.Schema

	// DropIndexColumns removes exported row-index columns after cleaning.
	DropIndexColumns bool

	// CSV controls how input is parsed and output is written.
	CSV table.CSVOptions
}

// Event identifies an object that was written to the raw bucket.
type Event struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// StepResult is the JSON form of a cleaner.StepReport.
type StepResult struct {
	Step        string `json:"step"`
	RowsBefore  int    `json:"rows_before"`
	RowsAfter   int    `json:"rows_after"`
	RowsDropped int    `json:"rows_dropped"`
}

// RunResult summarizes one cleaning run.
type RunResult struct {
	RunID          string       `json:"run_id"`
	Input          string       `json:"input"`
	Output         string       `json:"output"`
	RowsIn         int          `json:"rows_in"`
	RowsOut        int          `json:"rows_out"`
	Columns        []string     `json:"columns"`
	DroppedColumns []string     `json:"dropped_columns,omitempty"`
	Steps          []StepResult `json:"steps"`
	DurationMS     int64        `json:"duration_ms"`
}

// Dropped returns the rows removed by the named step, or 0.
func (r *RunResult) Dropped(step string) int {
	for _, s := range r.Steps {
		if s.Step == step {
			return s.RowsDropped
		}
	}
	return 0
}

func stepResults(reports []cleaner.StepReport) []StepResult {
	out := make([]StepResult, len(reports))
	for i, r := range reports {
		out[i] = StepResult{
			Step:        r.Step,
			RowsBefore:  r.RowsBefore,
			RowsAfter:   r.RowsAfter,
			RowsDropped: r.Dropped(),
		}
	}
	return out
}

// ObjectResult summarizes the processing of one stored object.
type ObjectResult struct {
	Bucket      string     `json:"bucket"`
	Name        string     `json:"name"`
	Skipped     bool       `json:"skipped"`
	SkipReason  string     `json:"skip_reason,omitempty"`
	CleanBucket string     `json:"clean_bucket,omitempty"`
	Run         *RunResult `json:"run,omitempty"`
	RowsLoaded  int64      `json:"rows_loaded"`
	Target      string     `json:"target,omitempty"`
}

// SweepFailure records an object a sweep could not process.
type SweepFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// SweepResult summarizes a sweep over a bucket prefix.
type SweepResult struct {
	Bucket    string         `json:"bucket"`
	Prefix    string         `json:"prefix"`
	Processed []ObjectResult `json:"processed"`
	Skipped   []string       `json:"skipped"`
	Failed    []SweepFailure `json:"failed"`
}

package pipeline

import (
	"time"

	"github.com/David-Botos/sales-stack/pkg/model"
)

// RunResult represents the outcome of one pipeline run
type RunResult struct {
	RunID              string
	Table              string
	DryRun             bool
	Success            bool
	RowsRead           int64
	RowsWritten        int64
	CleaningOperations []model.CleaningOperation
	Verified           bool
	FailedStage        Stage
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

// NewRunResult initializes a result for a run
func NewRunResult(runID, table string, dryRun bool) *RunResult {
	return &RunResult{
		RunID:              runID,
		Table:              table,
		DryRun:             dryRun,
		StartTime:          time.Now(),
		CleaningOperations: make([]model.CleaningOperation, 0),
	}
}

// Complete marks the run as complete and calculates duration
func (r *RunResult) Complete(success bool) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success
}

// CleaningCount returns the number of cleaned values across all columns
func (r *RunResult) CleaningCount() int {
	total := 0
	for _, op := range r.CleaningOperations {
		total += op.Count
	}
	return total
}

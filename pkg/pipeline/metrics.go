package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-stack/pkg/model"
)

// StageMetrics holds timing for a single stage
type StageMetrics struct {
	Stage     Stage
	StartTime time.Time
	EndTime   time.Time
	Success   bool
	Error     string
}

// Duration returns how long the stage ran
func (sm *StageMetrics) Duration() time.Duration {
	if sm.EndTime.IsZero() {
		return time.Since(sm.StartTime)
	}
	return sm.EndTime.Sub(sm.StartTime)
}

// RunMetrics tracks timings and counts for one run
type RunMetrics struct {
	mu     sync.Mutex
	logger *zap.Logger

	RunID            string
	Table            string
	StartTime        time.Time
	EndTime          time.Time
	Stages           []*StageMetrics
	TotalRowsRead    int64
	TotalRowsWritten int64
	CleaningOps      []model.CleaningOperation
	ErrorCounts      map[ErrorCategory]int
}

// NewRunMetrics creates a new RunMetrics instance
func NewRunMetrics(runID, table string, logger *zap.Logger) *RunMetrics {
	return &RunMetrics{
		logger:      logger,
		RunID:       runID,
		Table:       table,
		StartTime:   time.Now(),
		Stages:      make([]*StageMetrics, 0, 5),
		ErrorCounts: make(map[ErrorCategory]int),
	}
}

// StartStage begins tracking a stage
func (rm *RunMetrics) StartStage(stage Stage) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.Stages = append(rm.Stages, &StageMetrics{Stage: stage, StartTime: time.Now()})
}

// EndStage completes tracking for stage and returns its duration
func (rm *RunMetrics) EndStage(stage Stage, err error) time.Duration {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	sm := rm.stage(stage)
	if sm == nil {
		return 0
	}
	sm.EndTime = time.Now()
	sm.Success = err == nil
	if err != nil {
		sm.Error = err.Error()
	}

	if rm.logger != nil {
		rm.logger.Debug("Stage finished",
			zap.String("stage", string(stage)),
			zap.Bool("success", sm.Success),
			zap.Duration("duration", sm.Duration()))
	}
	return sm.Duration()
}

// stage returns the latest metrics entry for stage; callers hold mu
func (rm *RunMetrics) stage(stage Stage) *StageMetrics {
	for i := len(rm.Stages) - 1; i >= 0; i-- {
		if rm.Stages[i].Stage == stage {
			return rm.Stages[i]
		}
	}
	return nil
}

// RecordRowsRead records the size of the aggregate
func (rm *RunMetrics) RecordRowsRead(n int64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.TotalRowsRead = n
}

// RecordRowsWritten records how many rows reached the destination
func (rm *RunMetrics) RecordRowsWritten(n int64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.TotalRowsWritten = n
}

// RecordCleaning records the cleaning operations of the transform
func (rm *RunMetrics) RecordCleaning(ops []model.CleaningOperation) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.CleaningOps = ops
}

// RecordError counts an error of the given category
func (rm *RunMetrics) RecordError(category ErrorCategory) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.ErrorCounts[category]++
}

// Complete marks the run as finished
func (rm *RunMetrics) Complete() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.EndTime = time.Now()

	if rm.logger != nil {
		rm.logger.Info("Run metrics",
			zap.Duration("duration", rm.duration()),
			zap.Int64("rowsRead", rm.TotalRowsRead),
			zap.Int64("rowsWritten", rm.TotalRowsWritten),
			zap.Int("cleaningOps", rm.cleaningTotal()),
			zap.Float64("rowsPerSecond", rm.throughput()))
	}
}

func (rm *RunMetrics) duration() time.Duration {
	if rm.EndTime.IsZero() {
		return time.Since(rm.StartTime)
	}
	return rm.EndTime.Sub(rm.StartTime)
}

func (rm *RunMetrics) throughput() float64 {
	secs := rm.duration().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(rm.TotalRowsWritten) / secs
}

func (rm *RunMetrics) cleaningTotal() int {
	total := 0
	for _, op := range rm.CleaningOps {
		total += op.Count
	}
	return total
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// Report creates a human readable summary of the run
func (rm *RunMetrics) Report() string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, `
Sales Stack Summary Run
=======================
Run ID:                  %s
Destination Table:       %s
Duration:                %s

Data Summary
------------
Rows Read:               %d
Rows Written:            %d
Cleaning Ops:            %d
Average Throughput:      %.2f rows/sec
`,
		rm.RunID,
		rm.Table,
		formatDuration(rm.duration()),
		rm.TotalRowsRead,
		rm.TotalRowsWritten,
		rm.cleaningTotal(),
		rm.throughput(),
	)

	b.WriteString("\nStages\n------\n")
	for _, sm := range rm.Stages {
		status := "ok"
		if !sm.Success {
			status = "failed: " + sm.Error
		}
		fmt.Fprintf(&b, "- %-10s %10s  %s\n", sm.Stage, formatDuration(sm.Duration()), status)
	}

	if len(rm.CleaningOps) > 0 {
		b.WriteString("\nCleaning Operations\n-------------------\n")
		for _, op := range rm.CleaningOps {
			fmt.Fprintf(&b, "- %s %s (%s): %d\n",
				op.ColumnName, op.CleaningOperation, op.CleaningReason, op.Count)
		}
	}

	if len(rm.ErrorCounts) > 0 {
		b.WriteString("\nErrors\n------\n")
		categories := make([]ErrorCategory, 0, len(rm.ErrorCounts))
		for category := range rm.ErrorCounts {
			categories = append(categories, category)
		}
		sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
		for _, category := range categories {
			fmt.Fprintf(&b, "- %s: %d\n", category, rm.ErrorCounts[category])
		}
	}

	return b.String()
}

// ToJSON serializes metrics to JSON
func (rm *RunMetrics) ToJSON() ([]byte, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	type stageJSON struct {
		Stage    Stage   `json:"stage"`
		Seconds  float64 `json:"seconds"`
		Success  bool    `json:"success"`
		ErrorMsg string  `json:"error,omitempty"`
	}
	stages := make([]stageJSON, 0, len(rm.Stages))
	for _, sm := range rm.Stages {
		stages = append(stages, stageJSON{
			Stage:    sm.Stage,
			Seconds:  sm.Duration().Seconds(),
			Success:  sm.Success,
			ErrorMsg: sm.Error,
		})
	}

	return json.Marshal(struct {
		RunID            string                    `json:"runId"`
		Table            string                    `json:"table"`
		Duration         string                    `json:"duration"`
		TotalRowsRead    int64                     `json:"totalRowsRead"`
		TotalRowsWritten int64                     `json:"totalRowsWritten"`
		CleaningOps      int                       `json:"cleaningOps"`
		Throughput       float64                   `json:"throughput"`
		Stages           []stageJSON               `json:"stages"`
		ErrorCounts      map[ErrorCategory]int     `json:"errorCounts,omitempty"`
		Cleaning         []model.CleaningOperation `json:"cleaning,omitempty"`
	}{
		RunID:            rm.RunID,
		Table:            rm.Table,
		Duration:         formatDuration(rm.duration()),
		TotalRowsRead:    rm.TotalRowsRead,
		TotalRowsWritten: rm.TotalRowsWritten,
		CleaningOps:      rm.cleaningTotal(),
		Throughput:       rm.throughput(),
		Stages:           stages,
		ErrorCounts:      rm.ErrorCounts,
		Cleaning:         rm.CleaningOps,
	})
}

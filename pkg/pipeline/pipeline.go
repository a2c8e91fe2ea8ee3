// Package pipeline runs the sales stack summary end to end: read the
// aggregate, clean it, replace the destination table and check the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-stack/pkg/aggregator"
	"github.com/David-Botos/sales-stack/pkg/cleaner"
	"github.com/David-Botos/sales-stack/pkg/config"
	"github.com/David-Botos/sales-stack/pkg/connector"
	"github.com/David-Botos/sales-stack/pkg/model"
	"github.com/David-Botos/sales-stack/pkg/writer"
)

// MetricsSink receives run telemetry. Flush is called once per run.
type MetricsSink interface {
	RecordStage(stage string, err error, d time.Duration)
	AddRows(kind string, n int64)
	Flush() error
}

// Options controls a run
type Options struct {
	Table        string
	BatchSize    int
	QueryTimeout time.Duration
	Preflight    bool
	Verify       bool
	DryRun       bool
}

// OptionsFromConfig builds run options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Table:        cfg.DestinationTable,
		BatchSize:    cfg.BatchSize,
		QueryTimeout: cfg.QueryTimeout,
		Preflight:    cfg.Preflight,
		Verify:       cfg.Verify,
	}
}

// Pipeline wires the stages of a run to one store connection
type Pipeline struct {
	conn    connector.DatabaseConnector
	opts    Options
	logger  *zap.Logger
	sink    MetricsSink
	metrics *RunMetrics
}

// New creates a pipeline over conn
func New(conn connector.DatabaseConnector, opts Options, logger *zap.Logger) (*Pipeline, error) {
	if conn == nil {
		return nil, errors.New("database connector cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if opts.Table == "" {
		opts.Table = config.DefaultDestinationTable
	}
	if err := config.ValidateTableName(opts.Table); err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = writer.DefaultBatchSize
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = aggregator.DefaultTimeout
	}

	return &Pipeline{
		conn:   conn,
		opts:   opts,
		logger: logger.Named("pipeline"),
	}, nil
}

// WithMetricsSink attaches a sink that receives stage and row telemetry
func (p *Pipeline) WithMetricsSink(sink MetricsSink) *Pipeline {
	p.sink = sink
	return p
}

// Metrics returns the metrics of the latest run, or nil before the first run
func (p *Pipeline) Metrics() *RunMetrics {
	return p.metrics
}

// run carries the per-run collaborators, all logging with the run ID
type run struct {
	p       *Pipeline
	logger  *zap.Logger
	metrics *RunMetrics
	result  *RunResult
}

// Run executes preflight, aggregate, transform, write and verify in order.
// The first failing stage aborts the run with a *StageError; the returned
// result is populated either way.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("runID", runID))

	r := &run{
		p:       p,
		logger:  logger,
		metrics: NewRunMetrics(runID, p.opts.Table, logger),
		result:  NewRunResult(runID, p.opts.Table, p.opts.DryRun),
	}
	p.metrics = r.metrics

	logger.Info("Starting sales stack summary run",
		zap.String("table", p.opts.Table),
		zap.String("dialect", string(p.conn.Dialect())),
		zap.Bool("dryRun", p.opts.DryRun))

	err := r.execute(ctx)

	r.metrics.Complete()
	r.result.Complete(err == nil)
	p.flush(logger, r.result)

	if err != nil {
		logger.Error("Run failed", zap.Error(err))
		return r.result, err
	}

	logger.Info("Completed",
		zap.Int64("rowsRead", r.result.RowsRead),
		zap.Int64("rowsWritten", r.result.RowsWritten),
		zap.Duration("duration", r.result.Duration))
	return r.result, nil
}

func (r *run) execute(ctx context.Context) error {
	opts := r.p.opts
	agg := aggregator.NewAggregator(r.p.conn, r.logger, opts.QueryTimeout)

	if opts.Preflight {
		if err := r.stage(ctx, StagePreflight, func(ctx context.Context) error {
			return preflight(ctx, r.p.conn, agg)
		}); err != nil {
			return err
		}
	}

	var rows []model.StackRow
	if err := r.stage(ctx, StageAggregate, func(ctx context.Context) error {
		r.logger.Info("Creating sales stack summary")
		var err error
		rows, err = agg.Aggregate(ctx)
		return err
	}); err != nil {
		return err
	}
	r.result.RowsRead = int64(len(rows))
	r.metrics.RecordRowsRead(r.result.RowsRead)

	var summaries []model.Summary
	if err := r.stage(ctx, StageTransform, func(ctx context.Context) error {
		r.logger.Info("Cleaning data")
		dc, err := cleaner.NewDataCleaner(r.logger)
		if err != nil {
			return err
		}
		var log *model.CleaningLog
		summaries, log, err = dc.CleanRows(rows)
		if err != nil {
			return err
		}
		r.result.CleaningOperations = log.Operations()
		r.metrics.RecordCleaning(r.result.CleaningOperations)
		return nil
	}); err != nil {
		return err
	}

	if opts.DryRun {
		r.logger.Info("Dry run, skipping write",
			zap.String("table", opts.Table),
			zap.Int("rows", len(summaries)))
		return nil
	}

	if err := r.stage(ctx, StageWrite, func(ctx context.Context) error {
		r.logger.Info("Ingesting data", zap.String("table", opts.Table))
		w := writer.NewWriter(r.p.conn, r.logger).
			WithBatchSize(opts.BatchSize).
			WithTimeout(opts.QueryTimeout)
		n, err := w.Replace(ctx, opts.Table, summaries)
		if err != nil {
			return err
		}
		r.result.RowsWritten = n
		r.metrics.RecordRowsWritten(n)
		return nil
	}); err != nil {
		return err
	}

	if opts.Verify {
		if err := r.stage(ctx, StageVerify, func(ctx context.Context) error {
			return r.verify(ctx, int64(len(summaries)))
		}); err != nil {
			return err
		}
		r.result.Verified = true
	}

	return nil
}

// stage times fn, reports it to the metrics and wraps a failure
func (r *run) stage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		r.result.FailedStage = stage
		se := newStageError(stage, err)
		r.metrics.RecordError(se.Category)
		return se
	}

	r.metrics.StartStage(stage)
	err := fn(ctx)
	d := r.metrics.EndStage(stage, err)

	if r.p.sink != nil {
		r.p.sink.RecordStage(string(stage), err, d)
	}

	if err != nil {
		r.result.FailedStage = stage
		se := newStageError(stage, err)
		r.metrics.RecordError(se.Category)
		return se
	}
	return nil
}

func (r *run) verify(ctx context.Context, expected int64) error {
	v := NewVerifier(r.p.conn, r.logger).WithTimeout(r.p.opts.QueryTimeout)

	issues, err := v.VerifyTableStructure(ctx, model.SummaryTable(r.p.opts.Table))
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, issues)
	}

	ok, actual, err := v.VerifyRowCount(ctx, r.p.opts.Table, expected)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: expected %d rows in %s, found %d",
			ErrRowCountMismatch, expected, r.p.opts.Table, actual)
	}
	return nil
}

// flush hands the run totals to the sink. A push failure does not fail
// the run.
func (p *Pipeline) flush(logger *zap.Logger, result *RunResult) {
	if p.sink == nil {
		return
	}

	p.sink.AddRows("read", result.RowsRead)
	p.sink.AddRows("written", result.RowsWritten)
	p.sink.AddRows("cleaned", int64(result.CleaningCount()))

	if err := p.sink.Flush(); err != nil {
		logger.Warn("Failed to push run metrics", zap.Error(err))
	}
}

// CheckSources validates the connection and the base tables without
// running the summary
func (p *Pipeline) CheckSources(ctx context.Context) error {
	agg := aggregator.NewAggregator(p.conn, p.logger, p.opts.QueryTimeout)
	if err := preflight(ctx, p.conn, agg); err != nil {
		return newStageError(StagePreflight, err)
	}
	return nil
}

func preflight(ctx context.Context, conn connector.DatabaseConnector, agg *aggregator.Aggregator) error {
	if err := conn.Validate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionValidation, err)
	}
	return agg.CheckSources(ctx)
}

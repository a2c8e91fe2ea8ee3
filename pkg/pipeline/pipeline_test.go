package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/David-Botos/sales-stack/pkg/connector"
	"github.com/David-Botos/sales-stack/pkg/model"
	"github.com/David-Botos/sales-stack/pkg/storetest"
)

type stageCall struct {
	stage string
	ok    bool
}

type fakeSink struct {
	mu       sync.Mutex
	stages   []stageCall
	rows     map[string]int64
	flushes  int
	flushErr error
}

func newFakeSink() *fakeSink {
	return &fakeSink{rows: make(map[string]int64)}
}

func (s *fakeSink) RecordStage(stage string, err error, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, stageCall{stage: stage, ok: err == nil})
}

func (s *fakeSink) AddRows(kind string, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[kind] += n
}

func (s *fakeSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return s.flushErr
}

func defaultOptions() Options {
	return Options{
		Table:        "sales_stack_summary",
		BatchSize:    2,
		QueryTimeout: time.Minute,
		Preflight:    true,
		Verify:       true,
	}
}

func newPipeline(t *testing.T, conn connector.DatabaseConnector, opts Options) *Pipeline {
	t.Helper()
	p, err := New(conn, opts, zap.NewNop())
	require.NoError(t, err)
	return p
}

func readSummary(t *testing.T, conn connector.DatabaseConnector, table string) []model.Summary {
	t.Helper()
	var got []model.Summary
	require.NoError(t, conn.DB().Select(&got, "SELECT * FROM "+table+" ORDER BY rowid"))
	return got
}

func tableExists(t *testing.T, conn connector.DatabaseConnector, table string) bool {
	t.Helper()
	var n int
	require.NoError(t, conn.DB().Get(&n,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table))
	return n > 0
}

func TestRunWritesSummary(t *testing.T) {
	t.Parallel()

	conn := storetest.NewSQLite(t)
	storetest.Seed(t, conn, storetest.DefaultFixture())

	result, err := newPipeline(t, conn, defaultOptions()).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.Verified)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, int64(3), result.RowsRead)
	assert.Equal(t, int64(3), result.RowsWritten)
	assert.Positive(t, result.CleaningCount())

	got := readSummary(t, conn, "sales_stack_summary")
	require.Len(t, got, 3)

	b, a, c := got[0], got[1], got[2]
	assert.Equal(t, "B", b.Brand)
	assert.Equal(t, 1000.0, b.Quantity)
	assert.Equal(t, 40.0, b.GrossProfit)
	assert.InDelta(t, 16.6666667, b.ProfitMargin, 1e-6)
	assert.InDelta(t, 0.8, b.Stocks, 1e-12)
	assert.InDelta(t, 1.2, b.PurchaseToSalesRatio, 1e-12)
	assert.Equal(t, 20.0, b.CostFreight)

	assert.Equal(t, model.Summary{
		SaleNumber:             1,
		SaleName:               "Acme Spirits",
		Brand:                  "A",
		Description:            "Vodka 750ml",
		CostPrice:              10,
		ActualPrice:            14.99,
		Quantity:               750,
		TotalQuantityPurchased: 10,
		TotalDollarsPurchased:  100,
		GrossProfit:            -100,
	}, a)

	assert.Equal(t, "C", c.Brand)
	assert.Equal(t, int64(2), c.SaleNumber)
	assert.Equal(t, -50.0, c.GrossProfit)
	assert.Equal(t, 20.0, c.CostFreight)
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	conn := storetest.NewSQLite(t)
	storetest.Seed(t, conn, storetest.DefaultFixture())
	p := newPipeline(t, conn, defaultOptions())

	first, err := p.Run(ctx)
	require.NoError(t, err)
	before := readSummary(t, conn, "sales_stack_summary")

	second, err := p.Run(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, before, readSummary(t, conn, "sales_stack_summary"))
}

func TestRunFailsPreflightOnMissingTable(t *testing.T) {
	t.Parallel()

	conn := storetest.NewSQLite(t)
	storetest.Seed(t, conn, storetest.DefaultFixture())
	_, err := conn.DB().Exec(`DROP TABLE sales`)
	require.NoError(t, err)

	result, err := newPipeline(t, conn, defaultOptions()).Run(context.Background())
	require.Error(t, err)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StagePreflight, stageErr.Stage)
	assert.Equal(t, ErrorCategoryQuery, stageErr.Category)
	assert.Contains(t, err.Error(), "sales")

	assert.False(t, result.Success)
	assert.Equal(t, StagePreflight, result.FailedStage)
	assert.False(t, tableExists(t, conn, "sales_stack_summary"))
}

func TestRunWithoutPreflightFailsInAggregate(t *testing.T) {
	t.Parallel()

	conn := storetest.NewSQLite(t)
	opts := defaultOptions()
	opts.Preflight = false

	_, err := newPipeline(t, conn, opts).Run(context.Background())

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageAggregate, stageErr.Stage)
	assert.Equal(t, ErrorCategoryQuery, stageErr.Category)
}

func TestRunFailsTransformOnBadQuantity(t *testing.T) {
	t.Parallel()

	fx := storetest.DefaultFixture()
	fx.Costs[0].Volume = "750ml"

	conn := storetest.NewSQLite(t)
	storetest.Seed(t, conn, fx)

	_, err := newPipeline(t, conn, defaultOptions()).Run(context.Background())

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageTransform, stageErr.Stage)
	assert.Equal(t, ErrorCategoryDataConversion, stageErr.Category)
	assert.False(t, tableExists(t, conn, "sales_stack_summary"))
}

func TestRunDryRunSkipsWrite(t *testing.T) {
	t.Parallel()

	conn := storetest.NewSQLite(t)
	storetest.Seed(t, conn, storetest.DefaultFixture())
	opts := defaultOptions()
	opts.DryRun = true

	result, err := newPipeline(t, conn, opts).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, int64(3), result.RowsRead)
	assert.Zero(t, result.RowsWritten)
	assert.False(t, result.Verified)
	assert.False(t, tableExists(t, conn, "sales_stack_summary"))
}

func TestRunReportsToSink(t *testing.T) {
	t.Parallel()

	conn := storetest.NewSQLite(t)
	storetest.Seed(t, conn, storetest.DefaultFixture())
	sink := newFakeSink()
	sink.flushErr = errors.New("gateway down")

	result, err := newPipeline(t, conn, defaultOptions()).WithMetricsSink(sink).Run(context.Background())
	require.NoError(t, err, "a failed push must not fail the run")

	assert.Equal(t, []stageCall{
		{stage: "preflight", ok: true},
		{stage: "aggregate", ok: true},
		{stage: "transform", ok: true},
		{stage: "write", ok: true},
		{stage: "verify", ok: true},
	}, sink.stages)
	assert.Equal(t, int64(3), sink.rows["read"])
	assert.Equal(t, int64(3), sink.rows["written"])
	assert.Equal(t, int64(result.CleaningCount()), sink.rows["cleaned"])
	assert.Equal(t, 1, sink.flushes)
}

func TestRunReportsFailedStageToSink(t *testing.T) {
	t.Parallel()

	conn := storetest.NewSQLite(t)
	sink := newFakeSink()

	_, err := newPipeline(t, conn, defaultOptions()).WithMetricsSink(sink).Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, []stageCall{{stage: "preflight", ok: false}}, sink.stages)
	assert.Equal(t, 1, sink.flushes)
}

func TestRunHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	conn := storetest.NewSQLite(t)
	storetest.Seed(t, conn, storetest.DefaultFixture())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPipeline(t, conn, defaultOptions()).Run(ctx)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, ErrorCategoryCancelled, stageErr.Category)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunLogsEveryStageWithRunID(t *testing.T) {
	t.Parallel()

	conn := storetest.NewSQLite(t)
	storetest.Seed(t, conn, storetest.DefaultFixture())

	core, logs := observer.New(zapcore.InfoLevel)
	p, err := New(conn, defaultOptions(), zap.New(core))
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	for _, msg := range []string{"Creating sales stack summary", "Cleaning data", "Ingesting data", "Completed"} {
		entries := logs.FilterMessage(msg).All()
		require.Len(t, entries, 1, msg)
		assert.Equal(t, result.RunID, entries[0].ContextMap()["runID"], msg)
	}
}

func TestNewValidatesOptions(t *testing.T) {
	t.Parallel()

	conn := storetest.NewSQLite(t)

	_, err := New(conn, Options{Table: "drop table; --"}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(nil, Options{}, zap.NewNop())
	assert.Error(t, err)

	p, err := New(conn, Options{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "sales_stack_summary", p.opts.Table)
	assert.Positive(t, p.opts.BatchSize)
	assert.Positive(t, p.opts.QueryTimeout)
	assert.Nil(t, p.Metrics())
}

func TestCheckSources(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	conn := storetest.NewSQLite(t)
	p := newPipeline(t, conn, defaultOptions())

	err := p.CheckSources(ctx)
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StagePreflight, stageErr.Stage)

	storetest.CreateBaseTables(t, conn)
	assert.NoError(t, p.CheckSources(ctx))
}

func TestRunMetricsReport(t *testing.T) {
	t.Parallel()

	conn := storetest.NewSQLite(t)
	storetest.Seed(t, conn, storetest.DefaultFixture())
	p := newPipeline(t, conn, defaultOptions())

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	m := p.Metrics()
	require.NotNil(t, m)
	report := m.Report()
	assert.Contains(t, report, result.RunID)
	assert.Contains(t, report, "Rows Written:            3")
	assert.Contains(t, report, "ProfitMargin zero_denominator")

	raw, err := m.ToJSON()
	require.NoError(t, err)
	var decoded struct {
		RunID            string `json:"runId"`
		TotalRowsWritten int64  `json:"totalRowsWritten"`
		Stages           []struct {
			Stage   string `json:"stage"`
			Success bool   `json:"success"`
		} `json:"stages"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, result.RunID, decoded.RunID)
	assert.Equal(t, int64(3), decoded.TotalRowsWritten)
	assert.Len(t, decoded.Stages, 5)
}

func TestRunMetricsReportOrdersErrors(t *testing.T) {
	t.Parallel()

	m := NewRunMetrics("run-1", "summary", nil)
	m.RecordError(ErrorCategoryVerification)
	m.RecordError(ErrorCategoryCancelled)
	m.RecordError(ErrorCategoryConnection)
	m.RecordError(ErrorCategoryWrite)
	m.RecordError(ErrorCategoryConnection)

	for i := 0; i < 10; i++ {
		report := m.Report()
		idx := strings.Index(report, "\nErrors\n------\n")
		require.GreaterOrEqual(t, idx, 0)
		assert.Equal(t,
			"- Connection: 2\n- Write: 1\n- Verification: 1\n- Cancelled: 1\n",
			report[idx+len("\nErrors\n------\n"):])
	}
}

package writer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-stack/pkg/model"
	"github.com/David-Botos/sales-stack/pkg/storetest"
)

func summaries(n int) []model.Summary {
	out := make([]model.Summary, n)
	for i := range out {
		out[i] = model.Summary{
			SaleNumber:            int64(i + 1),
			SaleName:              fmt.Sprintf("Vendor %d", i+1),
			Brand:                 fmt.Sprintf("B%d", i),
			Description:           "Gin 1L",
			Quantity:              1000,
			TotalDollarsPurchased: float64(100 * (n - i)),
			GrossProfit:           -float64(100 * (n - i)),
		}
	}
	return out
}

func readBack(t *testing.T, w *Writer, table string) []model.Summary {
	t.Helper()
	var got []model.Summary
	require.NoError(t, w.conn.DB().Select(&got,
		"SELECT * FROM "+table+" ORDER BY TotalDollarsPurchased DESC"))
	return got
}

func TestReplaceCreatesAndLoadsTable(t *testing.T) {
	t.Parallel()

	conn := storetest.NewSQLite(t)
	w := NewWriter(conn, zap.NewNop()).WithBatchSize(2)

	rows := summaries(5)
	n, err := w.Replace(context.Background(), "sales_stack_summary", rows)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	assert.Equal(t, rows, readBack(t, w, "sales_stack_summary"))
}

func TestReplaceOverwritesExistingTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	conn := storetest.NewSQLite(t)
	_, err := conn.DB().Exec(`CREATE TABLE sales_stack_summary (legacy TEXT)`)
	require.NoError(t, err)
	_, err = conn.DB().Exec(`INSERT INTO sales_stack_summary (legacy) VALUES ('stale')`)
	require.NoError(t, err)

	w := NewWriter(conn, zap.NewNop())
	_, err = w.Replace(ctx, "sales_stack_summary", summaries(3))
	require.NoError(t, err)

	var cols []string
	require.NoError(t, conn.DB().Select(&cols,
		`SELECT name FROM pragma_table_info('sales_stack_summary') ORDER BY cid`))
	assert.Equal(t, model.SummaryTable("sales_stack_summary").ColumnNames(), cols)

	var count int
	require.NoError(t, conn.DB().Get(&count, `SELECT COUNT(*) FROM sales_stack_summary`))
	assert.Equal(t, 3, count)
}

func TestReplaceIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	conn := storetest.NewSQLite(t)
	w := NewWriter(conn, zap.NewNop())

	_, err := w.Replace(ctx, "summary", summaries(4))
	require.NoError(t, err)
	first := readBack(t, w, "summary")

	_, err = w.Replace(ctx, "summary", summaries(4))
	require.NoError(t, err)

	assert.Equal(t, first, readBack(t, w, "summary"))
}

func TestReplaceWithNoRowsLeavesEmptyTable(t *testing.T) {
	t.Parallel()

	conn := storetest.NewSQLite(t)
	w := NewWriter(conn, zap.NewNop())

	n, err := w.Replace(context.Background(), "summary", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, readBack(t, w, "summary"))
}

func TestReplaceRollsBackPartialLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	conn := storetest.NewSQLite(t)
	w := NewWriter(conn, zap.NewNop()).WithBatchSize(1)
	_, err := w.Replace(ctx, "summary", summaries(2))
	require.NoError(t, err)

	var pages int
	require.NoError(t, conn.DB().Get(&pages, `PRAGMA page_count`))
	_, err = conn.DB().Exec(fmt.Sprintf(`PRAGMA max_page_count = %d`, pages+3))
	require.NoError(t, err)

	_, err = w.Replace(ctx, "summary", summaries(3000))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert rows")

	assert.Equal(t, summaries(2), readBack(t, w, "summary"))
}

func TestReplaceKeepsOldTableWhenCancelled(t *testing.T) {
	t.Parallel()

	conn := storetest.NewSQLite(t)
	w := NewWriter(conn, zap.NewNop())
	_, err := w.Replace(context.Background(), "summary", summaries(2))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Replace(ctx, "summary", summaries(5))
	require.Error(t, err)

	assert.Len(t, readBack(t, w, "summary"), 2)
}

func TestEffectiveBatchSize(t *testing.T) {
	t.Parallel()

	w := NewWriter(storetest.NewSQLite(t), zap.NewNop())
	cols := len(model.SummaryColumns)

	assert.Equal(t, DefaultBatchSize, w.effectiveBatchSize(cols))
	assert.Equal(t, maxBindParams/cols, w.WithBatchSize(1_000_000).effectiveBatchSize(cols))
	assert.Equal(t, maxBindParams/cols, w.WithBatchSize(0).effectiveBatchSize(cols))
}

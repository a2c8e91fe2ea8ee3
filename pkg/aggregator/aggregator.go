// pkg/aggregator/aggregator.go
package aggregator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-stack/pkg/connector"
	"github.com/David-Botos/sales-stack/pkg/model"
)

// DefaultTimeout bounds the summary query when no timeout is configured
const DefaultTimeout = 5 * time.Minute

// headRows is how many rows are echoed at debug level after a read
const headRows = 5

// Aggregator reads the per vendor and brand summary from the base tables
type Aggregator struct {
	conn    connector.DatabaseConnector
	logger  *zap.Logger
	timeout time.Duration
}

// NewAggregator creates an Aggregator. A zero timeout uses DefaultTimeout.
func NewAggregator(conn connector.DatabaseConnector, logger *zap.Logger, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Aggregator{
		conn:    conn,
		logger:  logger.Named("aggregator"),
		timeout: timeout,
	}
}

// Aggregate runs SummaryQuery and returns every row in query order
func (a *Aggregator) Aggregate(ctx context.Context) ([]model.StackRow, error) {
	start := time.Now()

	var rows []model.StackRow
	if err := a.conn.SelectWithTimeout(ctx, &rows, SummaryQuery, a.timeout); err != nil {
		return nil, fmt.Errorf("summary query failed: %w", err)
	}

	a.logger.Info("Aggregated sales stack summary",
		zap.Int("rows", len(rows)),
		zap.Duration("duration", time.Since(start)))

	for i := 0; i < len(rows) && i < headRows; i++ {
		r := rows[i]
		a.logger.Debug("Summary row",
			zap.Int("index", i),
			zap.Int64("sale_number", r.SaleNumber.Int64),
			zap.String("brand", r.Brand.String),
			zap.Float64("total_dollars_purchased", r.TotalDollarsPurchased.Float64),
			zap.Bool("has_sales", r.TotalDollarsSales.Valid),
			zap.Bool("has_freight", r.CostFreight.Valid))
	}

	return rows, nil
}

// MissingSourcesError lists the base tables and columns the store lacks
type MissingSourcesError struct {
	Tables  []string
	Columns map[string][]string
}

func (e *MissingSourcesError) Error() string {
	var parts []string
	if len(e.Tables) > 0 {
		parts = append(parts, "missing tables: "+strings.Join(e.Tables, ", "))
	}
	for _, t := range SourceTables {
		if cols := e.Columns[t.Name]; len(cols) > 0 {
			parts = append(parts, fmt.Sprintf("missing columns in %s: %s", t.Name, strings.Join(cols, ", ")))
		}
	}
	return "source check failed: " + strings.Join(parts, "; ")
}

// CheckSources verifies every table and column in SourceTables exists.
// All gaps are collected into a *MissingSourcesError; any other failure is
// returned as is.
func (a *Aggregator) CheckSources(ctx context.Context) error {
	missing := &MissingSourcesError{Columns: make(map[string][]string)}

	for _, table := range SourceTables {
		present, err := a.tableColumns(ctx, table.Name)
		if err != nil {
			if isMissingTable(err) {
				a.logger.Warn("Source table not found", zap.String("table", table.Name), zap.Error(err))
				missing.Tables = append(missing.Tables, table.Name)
				continue
			}
			return fmt.Errorf("failed to inspect %s: %w", table.Name, err)
		}

		for _, col := range table.Columns {
			if !present[strings.ToLower(col)] {
				missing.Columns[table.Name] = append(missing.Columns[table.Name], col)
			}
		}
		if cols := missing.Columns[table.Name]; len(cols) > 0 {
			a.logger.Warn("Source columns not found",
				zap.String("table", table.Name),
				zap.Strings("columns", cols))
		}
	}

	if len(missing.Tables) > 0 || len(missing.Columns) > 0 {
		return missing
	}

	a.logger.Info("Source tables verified", zap.Int("tables", len(SourceTables)))
	return nil
}

// tableColumns returns the lower cased column names of table
func (a *Aggregator) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	queryCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	rows, err := a.conn.DB().QueryxContext(queryCtx, fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[strings.ToLower(c)] = true
	}
	return present, rows.Err()
}

// isMissingTable recognises the "no such table" errors of the supported
// drivers
func isMissingTable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"no such table",  // sqlite
		"does not exist", // postgres: relation "x" does not exist
		"not authorized", // snowflake: does not exist or not authorized
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

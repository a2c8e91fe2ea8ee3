// pkg/writer/writer.go
package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-stack/pkg/connector"
	"github.com/David-Botos/sales-stack/pkg/converter"
	"github.com/David-Botos/sales-stack/pkg/model"
)

const (
	// DefaultBatchSize is the number of rows per INSERT statement
	DefaultBatchSize = 500

	// DefaultTimeout bounds the whole replace
	DefaultTimeout = 5 * time.Minute

	// maxBindParams keeps a batch under SQLite's host parameter limit
	maxBindParams = 30000
)

// Writer replaces a destination table with summary rows
type Writer struct {
	conn          connector.DatabaseConnector
	typeConverter *converter.TypeConverter
	logger        *zap.Logger
	batchSize     int
	timeout       time.Duration
}

// NewWriter creates a Writer for the connector's dialect
func NewWriter(conn connector.DatabaseConnector, logger *zap.Logger) *Writer {
	logger = logger.Named("writer")
	return &Writer{
		conn:          conn,
		typeConverter: converter.NewTypeConverter(logger, conn.Dialect()),
		logger:        logger,
		batchSize:     DefaultBatchSize,
		timeout:       DefaultTimeout,
	}
}

// WithBatchSize sets the number of rows per INSERT
func (w *Writer) WithBatchSize(batchSize int) *Writer {
	if batchSize > 0 {
		w.batchSize = batchSize
	}
	return w
}

// WithTimeout sets the deadline for the whole replace
func (w *Writer) WithTimeout(timeout time.Duration) *Writer {
	if timeout > 0 {
		w.timeout = timeout
	}
	return w
}

// Replace drops table, recreates it with the summary columns and loads rows.
// Everything runs in one transaction and returns the number of rows inserted.
func (w *Writer) Replace(ctx context.Context, table string, rows []model.Summary) (inserted int64, err error) {
	metadata := model.SummaryTable(table)

	createSQL, err := w.typeConverter.CreateTableSQL(metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to generate column definitions: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	tx, err := w.conn.DB().BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				w.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.Error(err))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, w.typeConverter.DropTableSQL(table)); err != nil {
		return 0, fmt.Errorf("failed to drop table %s: %w", table, err)
	}
	if _, err = tx.ExecContext(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", table, err)
	}
	w.logger.Info("Recreated destination table", zap.String("table", table))

	batchSize := w.effectiveBatchSize(len(metadata.Columns))
	for offset := 0; offset < len(rows); offset += batchSize {
		end := offset + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		var n int64
		n, err = w.insertBatch(ctx, tx, metadata, rows[offset:end])
		if err != nil {
			return 0, fmt.Errorf("failed to insert rows %d-%d into %s: %w", offset, end-1, table, err)
		}
		inserted += n

		w.logger.Debug("Inserted batch",
			zap.String("table", table),
			zap.Int("offset", offset),
			zap.Int64("rows", n))
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.logger.Info("Replaced destination table",
		zap.String("table", table),
		zap.Int64("rows", inserted),
		zap.Int("batch_size", batchSize),
		zap.Duration("duration", time.Since(start)))

	return inserted, nil
}

// insertBatch writes rows with a single multi-row INSERT
func (w *Writer) insertBatch(
	ctx context.Context,
	tx *sqlx.Tx,
	metadata *model.TableMetadata,
	rows []model.Summary,
) (int64, error) {
	args := make([]interface{}, 0, len(rows)*len(metadata.Columns))
	for _, r := range rows {
		args = append(args, r.Values()...)
	}

	query := tx.Rebind(w.typeConverter.InsertSQL(metadata, len(rows)))
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		// Not every driver reports it; the statement still inserted every row.
		return int64(len(rows)), nil
	}
	return n, nil
}

// effectiveBatchSize caps the batch so one statement stays within the bind
// parameter limit
func (w *Writer) effectiveBatchSize(columns int) int {
	limit := maxBindParams / columns
	if w.batchSize > limit {
		return limit
	}
	return w.batchSize
}

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-stack/pkg/connector"
	"github.com/David-Botos/sales-stack/pkg/model"
)

// Verifier checks the destination table after a write
type Verifier struct {
	conn    connector.DatabaseConnector
	logger  *zap.Logger
	timeout time.Duration
}

// NewVerifier creates a new verifier
func NewVerifier(conn connector.DatabaseConnector, logger *zap.Logger) *Verifier {
	return &Verifier{
		conn:    conn,
		logger:  logger,
		timeout: time.Minute * 5,
	}
}

// WithTimeout sets a custom timeout for verification queries
func (v *Verifier) WithTimeout(timeout time.Duration) *Verifier {
	if timeout > 0 {
		v.timeout = timeout
	}
	return v
}

// VerifyRowCount compares the destination row count with expected
func (v *Verifier) VerifyRowCount(ctx context.Context, table string, expected int64) (bool, int64, error) {
	v.logger.Info("Verifying row count", zap.String("table", table))

	var count int64
	if err := v.conn.GetWithTimeout(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", table), v.timeout); err != nil {
		return false, 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}

	matches := count == expected
	if matches {
		v.logger.Info("Row count verification successful",
			zap.String("table", table),
			zap.Int64("count", count))
	} else {
		v.logger.Warn("Row count mismatch",
			zap.String("table", table),
			zap.Int64("expected", expected),
			zap.Int64("actual", count),
			zap.Int64("difference", expected-count))
	}

	return matches, count, nil
}

// VerifyTableStructure checks the destination has exactly the columns of
// metadata, in order. Names compare case-insensitively since stores fold
// unquoted identifiers.
func (v *Verifier) VerifyTableStructure(ctx context.Context, metadata *model.TableMetadata) ([]string, error) {
	queryCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	rows, err := v.conn.DB().QueryxContext(queryCtx, fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", metadata.Table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", metadata.Table, err)
	}
	defer rows.Close()

	actual, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", metadata.Table, err)
	}

	var issues []string
	expected := metadata.ColumnNames()
	for i, name := range expected {
		if i >= len(actual) {
			issues = append(issues, fmt.Sprintf("missing column %s", name))
			continue
		}
		if strings.EqualFold(actual[i], name) {
			continue
		}
		if metadata.GetColumnByName(actual[i]) != nil {
			issues = append(issues, fmt.Sprintf("column %d is %s, expected %s (out of order)", i+1, actual[i], name))
		} else {
			issues = append(issues, fmt.Sprintf("column %d is %s, expected %s", i+1, actual[i], name))
		}
	}
	for _, extra := range actual[min(len(actual), len(expected)):] {
		issues = append(issues, fmt.Sprintf("unexpected column %s", extra))
	}

	if len(issues) > 0 {
		v.logger.Warn("Destination structure differs",
			zap.String("table", metadata.Table),
			zap.Strings("issues", issues))
	}
	return issues, rows.Err()
}

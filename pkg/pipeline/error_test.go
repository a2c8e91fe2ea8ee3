package pipeline

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/David-Botos/sales-stack/pkg/aggregator"
)

func TestCategorizeError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stage Stage
		err   error
		want  ErrorCategory
	}{
		{"nil", StageWrite, nil, ErrorCategoryNone},
		{"deadline", StageAggregate, fmt.Errorf("query: %w", context.DeadlineExceeded), ErrorCategoryCancelled},
		{"bad conn", StageWrite, fmt.Errorf("exec: %w", driver.ErrBadConn), ErrorCategoryConnection},
		{"refused", StageAggregate, errors.New("dial tcp: connection refused"), ErrorCategoryConnection},
		{"validate", StagePreflight, fmt.Errorf("%w: boom", ErrConnectionValidation), ErrorCategoryConnection},
		{"missing sources", StagePreflight, &aggregator.MissingSourcesError{Tables: []string{"sales"}}, ErrorCategoryQuery},
		{"row count", StageVerify, fmt.Errorf("%w: 1 != 2", ErrRowCountMismatch), ErrorCategoryVerification},
		{"aggregate default", StageAggregate, errors.New("syntax error"), ErrorCategoryQuery},
		{"transform default", StageTransform, errors.New("cannot convert"), ErrorCategoryDataConversion},
		{"write default", StageWrite, errors.New("disk full"), ErrorCategoryWrite},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CategorizeError(tt.stage, tt.err), tt.name)
	}
}

func TestStageErrorWraps(t *testing.T) {
	t.Parallel()

	inner := errors.New("no such table: sales")
	err := newStageError(StageAggregate, inner)

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "aggregate stage failed (Query): no such table: sales", err.Error())
}

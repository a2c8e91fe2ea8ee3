package pipeline

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/David-Botos/sales-stack/pkg/aggregator"
)

// Stage names one step of a run
type Stage string

const (
	StagePreflight Stage = "preflight"
	StageAggregate Stage = "aggregate"
	StageTransform Stage = "transform"
	StageWrite     Stage = "write"
	StageVerify    Stage = "verify"
)

// ErrorCategory classifies what went wrong in a failed stage
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	ErrorCategoryConnection
	ErrorCategoryQuery
	ErrorCategoryDataConversion
	ErrorCategoryWrite
	ErrorCategoryVerification
	ErrorCategoryCancelled
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryConnection:
		return "Connection"
	case ErrorCategoryQuery:
		return "Query"
	case ErrorCategoryDataConversion:
		return "DataConversion"
	case ErrorCategoryWrite:
		return "Write"
	case ErrorCategoryVerification:
		return "Verification"
	case ErrorCategoryCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// MarshalText lets categories key JSON maps by name
func (ec ErrorCategory) MarshalText() ([]byte, error) {
	return []byte(ec.String()), nil
}

// ErrConnectionValidation is returned when the store rejects the
// connection checks run before the summary
var ErrConnectionValidation = errors.New("connection validation failed")

// ErrRowCountMismatch is returned when the destination holds a different
// number of rows than were written
var ErrRowCountMismatch = errors.New("row count mismatch")

// ErrSchemaMismatch is returned when the destination columns differ from
// the summary columns
var ErrSchemaMismatch = errors.New("destination schema mismatch")

// StageError reports the stage a run failed in
type StageError struct {
	Stage    Stage
	Category ErrorCategory
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed (%s): %v", e.Stage, e.Category, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// newStageError wraps err with its stage and category
func newStageError(stage Stage, err error) *StageError {
	return &StageError{
		Stage:    stage,
		Category: CategorizeError(stage, err),
		Err:      err,
	}
}

// CategorizeError determines the category of an error raised in stage
func CategorizeError(stage Stage, err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}

	var missing *aggregator.MissingSourcesError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryCancelled
	case errors.Is(err, ErrConnectionValidation), errors.Is(err, driver.ErrBadConn),
		isConnectionMessage(err.Error()):
		return ErrorCategoryConnection
	case errors.As(err, &missing):
		return ErrorCategoryQuery
	case errors.Is(err, ErrRowCountMismatch), errors.Is(err, ErrSchemaMismatch):
		return ErrorCategoryVerification
	}

	switch stage {
	case StagePreflight, StageAggregate:
		return ErrorCategoryQuery
	case StageTransform:
		return ErrorCategoryDataConversion
	case StageWrite:
		return ErrorCategoryWrite
	case StageVerify:
		return ErrorCategoryVerification
	default:
		return ErrorCategoryNone
	}
}

func isConnectionMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"database is closed",
		"no such host",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

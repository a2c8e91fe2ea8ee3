// pkg/model/cleaning.go
package model

import "sort"

// Cleaning operation names
const (
	OpNullFill        = "null_fill"
	OpWhitespaceTrim  = "whitespace_trim"
	OpZeroDenominator = "zero_denominator"
)

// CleaningOperation counts how often one kind of cleaning touched a column
type CleaningOperation struct {
	ColumnName        string // Column that was cleaned
	CleaningOperation string // Type of cleaning performed (e.g. "null_fill")
	CleaningReason    string // Reason for cleaning (e.g. "missing_value")
	Count             int    // Rows affected
}

type cleaningKey struct {
	column    string
	operation string
	reason    string
}

// CleaningLog accumulates cleaning operations for one transform pass.
// It is not safe for concurrent use.
type CleaningLog struct {
	counts map[cleaningKey]int
}

// NewCleaningLog creates an empty log
func NewCleaningLog() *CleaningLog {
	return &CleaningLog{counts: make(map[cleaningKey]int)}
}

// Record counts one cleaning operation on one row
func (l *CleaningLog) Record(column, operation, reason string) {
	l.counts[cleaningKey{column: column, operation: operation, reason: reason}]++
}

// Count returns how many rows had the operation applied to the column
func (l *CleaningLog) Count(column, operation string) int {
	total := 0
	for k, n := range l.counts {
		if k.column == column && k.operation == operation {
			total += n
		}
	}
	return total
}

// Total returns the number of recorded operations across all columns
func (l *CleaningLog) Total() int {
	total := 0
	for _, n := range l.counts {
		total += n
	}
	return total
}

// Operations returns the aggregated operations sorted by column then operation
func (l *CleaningLog) Operations() []CleaningOperation {
	ops := make([]CleaningOperation, 0, len(l.counts))
	for k, n := range l.counts {
		ops = append(ops, CleaningOperation{
			ColumnName:        k.column,
			CleaningOperation: k.operation,
			CleaningReason:    k.reason,
			Count:             n,
		})
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].ColumnName != ops[j].ColumnName {
			return ops[i].ColumnName < ops[j].ColumnName
		}
		if ops[i].CleaningOperation != ops[j].CleaningOperation {
			return ops[i].CleaningOperation < ops[j].CleaningOperation
		}
		return ops[i].CleaningReason < ops[j].CleaningReason
	})
	return ops
}

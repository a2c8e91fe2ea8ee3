// pkg/cleaner/operations.go
package cleaner

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/David-Botos/sales-stack/pkg/model"
)

const (
	reasonMissingValue          = "missing_value"
	reasonSurroundingWhitespace = "surrounding_whitespace"
)

// coerceQuantity parses the raw volume text as a float. A NULL becomes 0
// like every other outer join gap; anything else that is not a finite
// number is an error.
func coerceQuantity(v sql.NullString, log *model.CleaningLog) (float64, error) {
	if !v.Valid {
		log.Record("Quantity", model.OpNullFill, reasonMissingValue)
		return 0, nil
	}

	raw := strings.TrimSpace(v.String)
	if raw == "" {
		log.Record("Quantity", model.OpNullFill, reasonMissingValue)
		return 0, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot convert Quantity %q to float: %w", v.String, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("cannot convert Quantity %q to float: not a finite number", v.String)
	}
	return f, nil
}

func fillInt(v sql.NullInt64, column string, log *model.CleaningLog) int64 {
	if !v.Valid {
		log.Record(column, model.OpNullFill, reasonMissingValue)
		return 0
	}
	return v.Int64
}

func fillFloat(v sql.NullFloat64, column string, log *model.CleaningLog) float64 {
	if !v.Valid {
		log.Record(column, model.OpNullFill, reasonMissingValue)
		return 0
	}
	return v.Float64
}

func fillString(v sql.NullString, column string, log *model.CleaningLog) string {
	if !v.Valid {
		log.Record(column, model.OpNullFill, reasonMissingValue)
		return ""
	}
	return v.String
}

// trimText strips leading and trailing whitespace, recording a change
func trimText(s, column string, log *model.CleaningLog) string {
	trimmed := strings.TrimSpace(s)
	if trimmed != s {
		log.Record(column, model.OpWhitespaceTrim, reasonSurroundingWhitespace)
	}
	return trimmed
}

// safeDivide returns num/den, or 0 when den is zero. The substitution is
// recorded against the derived column.
func safeDivide(num, den float64, column, denColumn string, log *model.CleaningLog) float64 {
	if den == 0 {
		log.Record(column, model.OpZeroDenominator, denColumn+"_is_zero")
		return 0
	}
	return num / den
}

func describeInt(v sql.NullInt64) string {
	if !v.Valid {
		return "NULL"
	}
	return strconv.FormatInt(v.Int64, 10)
}

func describeString(v sql.NullString) string {
	if !v.Valid {
		return "NULL"
	}
	return strconv.Quote(v.String)
}

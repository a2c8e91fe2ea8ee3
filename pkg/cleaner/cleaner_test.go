package cleaner

import (
	"database/sql"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-stack/pkg/model"
)

func i64(v int64) sql.NullInt64     { return sql.NullInt64{Int64: v, Valid: true} }
func f64(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }
func str(v string) sql.NullString   { return sql.NullString{String: v, Valid: true} }

// unsoldRow is a purchase group with no matching sales or freight
func unsoldRow() model.StackRow {
	return model.StackRow{
		SaleNumber:             i64(1),
		SaleName:               str("  Acme Spirits "),
		Brand:                  str("A"),
		Description:            str(" Vodka 750ml  "),
		CostPrice:              f64(10),
		ActualPrice:            f64(14.99),
		Quantity:               str("750"),
		TotalQuantityPurchased: f64(10),
		TotalDollarsPurchased:  f64(100),
	}
}

func soldRow() model.StackRow {
	return model.StackRow{
		SaleNumber:             i64(2),
		SaleName:               str("Beta Imports"),
		Brand:                  str("B"),
		Description:            str("Gin 1L"),
		CostPrice:              f64(20),
		ActualPrice:            f64(29.99),
		Quantity:               str("1000"),
		TotalQuantityPurchased: f64(10),
		TotalDollarsPurchased:  f64(200),
		TotalQuantitySales:     f64(8),
		TotalDollarsSales:      f64(240),
		TotalPriceSales:        f64(60),
		TotalTax:               f64(1.5),
		CostFreight:            f64(20),
	}
}

func newCleaner(t *testing.T) *DataCleaner {
	t.Helper()
	c, err := NewDataCleaner(zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewDataCleanerRequiresLogger(t *testing.T) {
	t.Parallel()

	_, err := NewDataCleaner(nil)
	assert.Error(t, err)
}

func TestCleanRowsUnmatchedPurchase(t *testing.T) {
	t.Parallel()

	out, log, err := newCleaner(t).CleanRows([]model.StackRow{unsoldRow()})
	require.NoError(t, err)
	require.Len(t, out, 1)

	s := out[0]
	assert.Equal(t, int64(1), s.SaleNumber)
	assert.Equal(t, "Acme Spirits", s.SaleName)
	assert.Equal(t, "Vodka 750ml", s.Description)
	assert.Equal(t, 750.0, s.Quantity)
	assert.Equal(t, 0.0, s.TotalDollarsSales)
	assert.Equal(t, 0.0, s.TotalQuantitySales)
	assert.Equal(t, 0.0, s.CostFreight)
	assert.Equal(t, -100.0, s.GrossProfit)
	assert.Equal(t, 0.0, s.ProfitMargin)
	assert.Equal(t, 0.0, s.Stocks)
	assert.Equal(t, 0.0, s.PurchaseToSalesRatio)

	assert.Equal(t, 1, log.Count("CostFreight", model.OpNullFill))
	assert.Equal(t, 1, log.Count("TotalDollarsSales", model.OpNullFill))
	assert.Equal(t, 1, log.Count("SaleName", model.OpWhitespaceTrim))
	assert.Equal(t, 1, log.Count("Description", model.OpWhitespaceTrim))
	assert.Equal(t, 1, log.Count("ProfitMargin", model.OpZeroDenominator))
	assert.Equal(t, 0, log.Count("Stocks", model.OpZeroDenominator))
	assert.Equal(t, 0, log.Count("PurchaseToSalesRatio", model.OpZeroDenominator))
}

func TestCleanRowsDerivedMetrics(t *testing.T) {
	t.Parallel()

	out, log, err := newCleaner(t).CleanRows([]model.StackRow{soldRow()})
	require.NoError(t, err)
	require.Len(t, out, 1)

	s := out[0]
	assert.Equal(t, 40.0, s.GrossProfit)
	assert.InDelta(t, 16.6666667, s.ProfitMargin, 1e-6)
	assert.InDelta(t, 0.8, s.Stocks, 1e-12)
	assert.InDelta(t, 1.2, s.PurchaseToSalesRatio, 1e-12)
	assert.Equal(t, 0, log.Total())
}

func TestCleanRowsZeroPurchaseDenominators(t *testing.T) {
	t.Parallel()

	row := soldRow()
	row.TotalQuantityPurchased = f64(0)
	row.TotalDollarsPurchased = f64(0)

	out, log, err := newCleaner(t).CleanRows([]model.StackRow{row})
	require.NoError(t, err)

	assert.Equal(t, 240.0, out[0].GrossProfit)
	assert.Equal(t, 100.0, out[0].ProfitMargin)
	assert.Equal(t, 0.0, out[0].Stocks)
	assert.Equal(t, 0.0, out[0].PurchaseToSalesRatio)
	assert.Equal(t, 1, log.Count("Stocks", model.OpZeroDenominator))
	assert.Equal(t, 1, log.Count("PurchaseToSalesRatio", model.OpZeroDenominator))
}

func TestCleanRowsProperties(t *testing.T) {
	t.Parallel()

	allNull := model.StackRow{}
	padded := soldRow()
	padded.SaleName = str("\t Beta Imports\n")
	padded.Description = str("   ")
	sameVendorOtherBrand := unsoldRow()
	sameVendorOtherBrand.Brand = str("C")

	in := []model.StackRow{unsoldRow(), soldRow(), allNull, padded, sameVendorOtherBrand}
	out, _, err := newCleaner(t).CleanRows(in)
	require.NoError(t, err)
	require.Len(t, out, len(in))

	for i, s := range out {
		assert.Equal(t, s.TotalDollarsSales-s.TotalDollarsPurchased, s.GrossProfit, "row %d", i)
		if s.TotalDollarsSales != 0 {
			assert.Equal(t, s.GrossProfit/s.TotalDollarsSales*100, s.ProfitMargin, "row %d", i)
		} else {
			assert.Equal(t, 0.0, s.ProfitMargin, "row %d", i)
		}
		assert.Equal(t, strings.TrimSpace(s.SaleName), s.SaleName, "row %d", i)
		assert.Equal(t, strings.TrimSpace(s.Description), s.Description, "row %d", i)
		for _, v := range []float64{s.ProfitMargin, s.Stocks, s.PurchaseToSalesRatio} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "row %d", i)
		}
	}

	assert.Equal(t, "A", out[0].Brand)
	assert.Equal(t, "C", out[4].Brand)
	assert.Equal(t, out[0].SaleNumber, out[4].SaleNumber)
	assert.Equal(t, "", out[3].Description)
}

func TestCleanRowsFillsEveryNull(t *testing.T) {
	t.Parallel()

	out, log, err := newCleaner(t).CleanRows([]model.StackRow{{}})
	require.NoError(t, err)

	assert.Equal(t, model.Summary{}, out[0])
	for _, col := range model.SummaryColumns[:14] {
		assert.Equal(t, 1, log.Count(col.Name, model.OpNullFill), col.Name)
	}
}

func TestCleanRowsDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []model.StackRow{unsoldRow()}
	_, _, err := newCleaner(t).CleanRows(in)
	require.NoError(t, err)

	assert.Equal(t, unsoldRow(), in[0])
}

func TestCleanRowsQuantityCoercion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     sql.NullString
		want    float64
		wantErr bool
	}{
		{name: "integer text", raw: str("750"), want: 750},
		{name: "decimal text", raw: str(" 1.75 "), want: 1.75},
		{name: "null", raw: sql.NullString{}, want: 0},
		{name: "blank", raw: str(""), want: 0},
		{name: "not a number", raw: str("750mL"), wantErr: true},
		{name: "infinite", raw: str("Inf"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := unsoldRow()
			row.Quantity = tt.raw

			out, _, err := newCleaner(t).CleanRows([]model.StackRow{row})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "SaleNumber=1")
				assert.Contains(t, err.Error(), `Brand="A"`)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out[0].Quantity)
		})
	}
}

package model

import "database/sql"

// StackRow is one aggregated purchase group as returned by the store.
// Columns fed by a LEFT JOIN stay nullable so a missing sale or freight
// record can be told apart from a recorded zero.
type StackRow struct {
	SaleNumber  sql.NullInt64   `db:"SaleNumber"`
	SaleName    sql.NullString  `db:"SaleName"`
	Brand       sql.NullString  `db:"Brand"`
	Description sql.NullString  `db:"Description"`
	CostPrice   sql.NullFloat64 `db:"CostPrice"`
	ActualPrice sql.NullFloat64 `db:"ActualPrice"`

	// Quantity is purchase_cost.Volume as stored; it is text in the vendor
	// extracts and gets coerced to a float by the cleaner.
	Quantity sql.NullString `db:"Quantity"`

	TotalQuantityPurchased sql.NullFloat64 `db:"TotalQuantityPurchased"`
	TotalDollarsPurchased  sql.NullFloat64 `db:"TotalDollarsPurchased"`
	TotalQuantitySales     sql.NullFloat64 `db:"TotalQuantitySales"`
	TotalDollarsSales      sql.NullFloat64 `db:"TotalDollarsSales"`
	TotalPriceSales        sql.NullFloat64 `db:"TotalPriceSales"`
	TotalTax               sql.NullFloat64 `db:"TotalTax"`
	CostFreight            sql.NullFloat64 `db:"CostFreight"`
}

// Summary is a fully cleaned row of the destination table
type Summary struct {
	SaleNumber  int64   `db:"SaleNumber"`
	SaleName    string  `db:"SaleName"`
	Brand       string  `db:"Brand"`
	Description string  `db:"Description"`
	CostPrice   float64 `db:"CostPrice"`
	ActualPrice float64 `db:"ActualPrice"`
	Quantity    float64 `db:"Quantity"`

	TotalQuantityPurchased float64 `db:"TotalQuantityPurchased"`
	TotalDollarsPurchased  float64 `db:"TotalDollarsPurchased"`
	TotalQuantitySales     float64 `db:"TotalQuantitySales"`
	TotalDollarsSales      float64 `db:"TotalDollarsSales"`
	TotalPriceSales        float64 `db:"TotalPriceSales"`
	TotalTax               float64 `db:"TotalTax"`
	CostFreight            float64 `db:"CostFreight"`

	GrossProfit          float64 `db:"GrossProfit"`
	ProfitMargin         float64 `db:"ProfitMargin"`
	Stocks               float64 `db:"Stocks"`
	PurchaseToSalesRatio float64 `db:"PurchaseToSalesRatio"`
}

// Values returns the row in SummaryColumns order
func (s Summary) Values() []any {
	return []any{
		s.SaleNumber,
		s.SaleName,
		s.Brand,
		s.Description,
		s.CostPrice,
		s.ActualPrice,
		s.Quantity,
		s.TotalQuantityPurchased,
		s.TotalDollarsPurchased,
		s.TotalQuantitySales,
		s.TotalDollarsSales,
		s.TotalPriceSales,
		s.TotalTax,
		s.CostFreight,
		s.GrossProfit,
		s.ProfitMargin,
		s.Stocks,
		s.PurchaseToSalesRatio,
	}
}

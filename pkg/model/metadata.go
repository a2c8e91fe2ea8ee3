// pkg/model/metadata.go
package model

import "strings"

// ColumnKind is the storage class of a destination column, independent of
// the SQL dialect that eventually renders it
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInteger
	KindReal
)

// String returns the lowercase kind name
func (k ColumnKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	default:
		return "unknown"
	}
}

// TableMetadata contains the structure information for a database table
type TableMetadata struct {
	Table   string   // Table name, optionally schema qualified
	Columns []Column // Column definitions in insert order
}

// Column represents metadata about a database column
type Column struct {
	Name     string
	Kind     ColumnKind
	Nullable bool
}

// ColumnNames returns the column names in order
func (tm *TableMetadata) ColumnNames() []string {
	names := make([]string, len(tm.Columns))
	for i, col := range tm.Columns {
		names[i] = col.Name
	}
	return names
}

// GetColumnByName returns a column by name (case-insensitive)
// Returns nil if column not found
func (tm *TableMetadata) GetColumnByName(name string) *Column {
	for i, col := range tm.Columns {
		if strings.EqualFold(col.Name, name) {
			return &tm.Columns[i]
		}
	}
	return nil
}

// SummaryColumns lists the destination columns in the order they are written
var SummaryColumns = []Column{
	{Name: "SaleNumber", Kind: KindInteger},
	{Name: "SaleName", Kind: KindText},
	{Name: "Brand", Kind: KindText},
	{Name: "Description", Kind: KindText},
	{Name: "CostPrice", Kind: KindReal},
	{Name: "ActualPrice", Kind: KindReal},
	{Name: "Quantity", Kind: KindReal},
	{Name: "TotalQuantityPurchased", Kind: KindReal},
	{Name: "TotalDollarsPurchased", Kind: KindReal},
	{Name: "TotalQuantitySales", Kind: KindReal},
	{Name: "TotalDollarsSales", Kind: KindReal},
	{Name: "TotalPriceSales", Kind: KindReal},
	{Name: "TotalTax", Kind: KindReal},
	{Name: "CostFreight", Kind: KindReal},
	{Name: "GrossProfit", Kind: KindReal},
	{Name: "ProfitMargin", Kind: KindReal},
	{Name: "Stocks", Kind: KindReal},
	{Name: "PurchaseToSalesRatio", Kind: KindReal},
}

// SummaryTable describes the destination table under the given name
func SummaryTable(name string) *TableMetadata {
	cols := make([]Column, len(SummaryColumns))
	copy(cols, SummaryColumns)
	return &TableMetadata{Table: name, Columns: cols}
}

// pkg/aggregator/query.go
package aggregator

// SourceTable names a base table and the columns the summary query reads
type SourceTable struct {
	Name    string
	Columns []string
}

// SourceTables lists every base table column referenced by SummaryQuery
var SourceTables = []SourceTable{
	{Name: "sales_invoices", Columns: []string{"VendorNumber", "Freight"}},
	{Name: "purchases", Columns: []string{
		"VendorNumber", "VendorName", "Brand", "Description", "PurchasePrice", "Quantity", "Dollars",
	}},
	{Name: "purchase_cost", Columns: []string{"Brand", "Price", "Volume"}},
	{Name: "sales", Columns: []string{
		"VendorNo", "Brand", "SalesQuantity", "SalesDollars", "SalesPrice", "ExciseTax",
	}},
}

// SummaryQuery produces one row per purchased (vendor, brand) with sales and
// freight left joined. Ties on TotalDollarsPurchased are broken by vendor and
// brand so repeated runs write rows in the same order.
const SummaryQuery = `
WITH FreightSummary AS (
    SELECT
        VendorNumber AS SaleNumber,
        SUM(Freight) AS FreightCost
    FROM sales_invoices
    GROUP BY VendorNumber
),

PurchaseSummary AS (
    SELECT
        p.VendorNumber AS SaleNumber,
        p.VendorName AS SaleName,
        p.Brand,
        p.Description,
        p.PurchasePrice AS CostPrice,
        pp.Price AS ActualPrice,
        pp.Volume AS Quantity,
        SUM(p.Quantity) AS TotalQuantityPurchased,
        SUM(p.Dollars) AS TotalDollarsPurchased
    FROM purchases p
    JOIN purchase_cost pp
        ON p.Brand = pp.Brand
    WHERE p.PurchasePrice > 0
    GROUP BY p.VendorNumber, p.VendorName, p.Brand, p.Description, p.PurchasePrice, pp.Price, pp.Volume
),

SalesSummary AS (
    SELECT
        VendorNo AS SaleNumber,
        Brand,
        SUM(SalesQuantity) AS TotalQuantitySales,
        SUM(SalesDollars) AS TotalDollarsSales,
        SUM(SalesPrice) AS TotalPriceSales,
        SUM(ExciseTax) AS TotalTax
    FROM sales
    GROUP BY VendorNo, Brand
)

SELECT
    ps.SaleNumber,
    ps.SaleName,
    ps.Brand,
    ps.Description,
    ps.CostPrice,
    ps.ActualPrice,
    ps.Quantity,
    ps.TotalQuantityPurchased,
    ps.TotalDollarsPurchased,
    ss.TotalQuantitySales,
    ss.TotalDollarsSales,
    ss.TotalPriceSales,
    ss.TotalTax AS TotalTax,
    fs.FreightCost AS CostFreight
FROM PurchaseSummary ps
LEFT JOIN SalesSummary ss
    ON ps.SaleNumber = ss.SaleNumber
    AND ps.Brand = ss.Brand
LEFT JOIN FreightSummary fs
    ON ps.SaleNumber = fs.SaleNumber
ORDER BY ps.TotalDollarsPurchased DESC, ps.SaleNumber ASC, ps.Brand ASC
`

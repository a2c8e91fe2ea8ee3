// pkg/cleaner/cleaner.go
package cleaner

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-stack/pkg/model"
)

// DataCleaner turns aggregated rows into summary rows: it coerces the
// quantity column, fills the gaps left by the outer joins, trims the free
// text columns and derives the profitability ratios.
type DataCleaner struct {
	logger *zap.Logger
}

// NewDataCleaner creates a new DataCleaner instance
func NewDataCleaner(logger *zap.Logger) (*DataCleaner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &DataCleaner{
		logger: logger.Named("cleaner"),
	}, nil
}

// CleanRows cleans every row and returns the summaries in input order along
// with the operations performed. rows is not modified.
func (c *DataCleaner) CleanRows(rows []model.StackRow) ([]model.Summary, *model.CleaningLog, error) {
	log := model.NewCleaningLog()
	cleaned := make([]model.Summary, 0, len(rows))

	for i := range rows {
		summary, err := c.cleanSingleRow(&rows[i], log)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d (SaleNumber=%s, Brand=%s): %w",
				i, describeInt(rows[i].SaleNumber), describeString(rows[i].Brand), err)
		}
		cleaned = append(cleaned, summary)
	}

	if log.Total() > 0 {
		for _, op := range log.Operations() {
			c.logger.Debug("Cleaning operation",
				zap.String("column", op.ColumnName),
				zap.String("operation", op.CleaningOperation),
				zap.String("reason", op.CleaningReason),
				zap.Int("count", op.Count))
		}
	}

	c.logger.Info("Cleaned rows",
		zap.Int("rows", len(cleaned)),
		zap.Int("cleaning_operations", log.Total()))

	return cleaned, log, nil
}

// cleanSingleRow builds the summary for one aggregated row
func (c *DataCleaner) cleanSingleRow(row *model.StackRow, log *model.CleaningLog) (model.Summary, error) {
	quantity, err := coerceQuantity(row.Quantity, log)
	if err != nil {
		return model.Summary{}, err
	}

	s := model.Summary{
		SaleNumber:  fillInt(row.SaleNumber, "SaleNumber", log),
		SaleName:    trimText(fillString(row.SaleName, "SaleName", log), "SaleName", log),
		Brand:       fillString(row.Brand, "Brand", log),
		Description: trimText(fillString(row.Description, "Description", log), "Description", log),
		CostPrice:   fillFloat(row.CostPrice, "CostPrice", log),
		ActualPrice: fillFloat(row.ActualPrice, "ActualPrice", log),
		Quantity:    quantity,

		TotalQuantityPurchased: fillFloat(row.TotalQuantityPurchased, "TotalQuantityPurchased", log),
		TotalDollarsPurchased:  fillFloat(row.TotalDollarsPurchased, "TotalDollarsPurchased", log),
		TotalQuantitySales:     fillFloat(row.TotalQuantitySales, "TotalQuantitySales", log),
		TotalDollarsSales:      fillFloat(row.TotalDollarsSales, "TotalDollarsSales", log),
		TotalPriceSales:        fillFloat(row.TotalPriceSales, "TotalPriceSales", log),
		TotalTax:               fillFloat(row.TotalTax, "TotalTax", log),
		CostFreight:            fillFloat(row.CostFreight, "CostFreight", log),
	}

	deriveMetrics(&s, log)
	return s, nil
}

// deriveMetrics fills the four derived columns of s
func deriveMetrics(s *model.Summary, log *model.CleaningLog) {
	s.GrossProfit = s.TotalDollarsSales - s.TotalDollarsPurchased
	s.ProfitMargin = safeDivide(s.GrossProfit, s.TotalDollarsSales,
		"ProfitMargin", "TotalDollarsSales", log) * 100
	s.Stocks = safeDivide(s.TotalQuantitySales, s.TotalQuantityPurchased,
		"Stocks", "TotalQuantityPurchased", log)
	s.PurchaseToSalesRatio = safeDivide(s.TotalDollarsSales, s.TotalDollarsPurchased,
		"PurchaseToSalesRatio", "TotalDollarsPurchased", log)
}

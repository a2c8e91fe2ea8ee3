// Package storetest provides in-memory SQLite stores seeded with the vendor
// base tables for tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-stack/pkg/config"
	"github.com/David-Botos/sales-stack/pkg/connector"
)

// Invoice is a sales_invoices row
type Invoice struct {
	VendorNumber int64   `db:"VendorNumber"`
	Freight      float64 `db:"Freight"`
}

// Purchase is a purchases row
type Purchase struct {
	VendorNumber  int64   `db:"VendorNumber"`
	VendorName    string  `db:"VendorName"`
	Brand         string  `db:"Brand"`
	Description   string  `db:"Description"`
	PurchasePrice float64 `db:"PurchasePrice"`
	Quantity      int64   `db:"Quantity"`
	Dollars       float64 `db:"Dollars"`
}

// Cost is a purchase_cost row. Volume is text as in the vendor extracts.
type Cost struct {
	Brand  string  `db:"Brand"`
	Price  float64 `db:"Price"`
	Volume string  `db:"Volume"`
}

// Sale is a sales row
type Sale struct {
	VendorNo      int64   `db:"VendorNo"`
	Brand         string  `db:"Brand"`
	SalesQuantity int64   `db:"SalesQuantity"`
	SalesDollars  float64 `db:"SalesDollars"`
	SalesPrice    float64 `db:"SalesPrice"`
	ExciseTax     float64 `db:"ExciseTax"`
}

// Fixture is the content of the four base tables
type Fixture struct {
	Invoices  []Invoice
	Purchases []Purchase
	Costs     []Cost
	Sales     []Sale
}

// BaseTablesDDL creates the four base tables
var BaseTablesDDL = []string{
	`CREATE TABLE sales_invoices (VendorNumber INTEGER, Freight REAL)`,
	`CREATE TABLE purchases (
		VendorNumber INTEGER,
		VendorName TEXT,
		Brand TEXT,
		Description TEXT,
		PurchasePrice REAL,
		Quantity INTEGER,
		Dollars REAL
	)`,
	`CREATE TABLE purchase_cost (Brand TEXT, Price REAL, Volume TEXT)`,
	`CREATE TABLE sales (
		VendorNo INTEGER,
		Brand TEXT,
		SalesQuantity INTEGER,
		SalesDollars REAL,
		SalesPrice REAL,
		ExciseTax REAL
	)`,
}

// NewSQLite opens a private in-memory SQLite store closed with the test
func NewSQLite(t testing.TB) *connector.SQLiteConnector {
	t.Helper()

	conn, err := connector.NewSQLiteConnector(context.Background(),
		&config.SQLiteConfig{Path: ":memory:", BusyTimeout: time.Second}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// CreateBaseTables creates empty base tables
func CreateBaseTables(t testing.TB, conn connector.DatabaseConnector) {
	t.Helper()

	for _, stmt := range BaseTablesDDL {
		_, err := conn.DB().Exec(stmt)
		require.NoError(t, err)
	}
}

// Seed creates the base tables and loads fx into them
func Seed(t testing.TB, conn connector.DatabaseConnector, fx Fixture) {
	t.Helper()
	CreateBaseTables(t, conn)
	Insert(t, conn, fx)
}

// Insert appends fx to existing base tables
func Insert(t testing.TB, conn connector.DatabaseConnector, fx Fixture) {
	t.Helper()
	db := conn.DB()

	for _, r := range fx.Invoices {
		_, err := db.NamedExec(`INSERT INTO sales_invoices (VendorNumber, Freight)
			VALUES (:VendorNumber, :Freight)`, r)
		require.NoError(t, err)
	}
	for _, r := range fx.Purchases {
		_, err := db.NamedExec(`INSERT INTO purchases
			(VendorNumber, VendorName, Brand, Description, PurchasePrice, Quantity, Dollars)
			VALUES (:VendorNumber, :VendorName, :Brand, :Description, :PurchasePrice, :Quantity, :Dollars)`, r)
		require.NoError(t, err)
	}
	for _, r := range fx.Costs {
		_, err := db.NamedExec(`INSERT INTO purchase_cost (Brand, Price, Volume)
			VALUES (:Brand, :Price, :Volume)`, r)
		require.NoError(t, err)
	}
	for _, r := range fx.Sales {
		_, err := db.NamedExec(`INSERT INTO sales
			(VendorNo, Brand, SalesQuantity, SalesDollars, SalesPrice, ExciseTax)
			VALUES (:VendorNo, :Brand, :SalesQuantity, :SalesDollars, :SalesPrice, :ExciseTax)`, r)
		require.NoError(t, err)
	}
}

// DefaultFixture covers the join shapes the summary has to handle.
//
// Vendor 2 brand B has sales and freight. Vendor 1 brand A has neither and
// is split over two purchase lines. Vendor 2 brand C shares the vendor's
// freight but has no sales. Vendor 3 only has a zero priced purchase and
// vendor 9 only has sales, so neither produces a row.
//
// The aggregate is therefore (2,B), (1,A), (2,C) by TotalDollarsPurchased.
func DefaultFixture() Fixture {
	return Fixture{
		Invoices: []Invoice{
			{VendorNumber: 2, Freight: 12.5},
			{VendorNumber: 2, Freight: 7.5},
			{VendorNumber: 9, Freight: 3},
		},
		Purchases: []Purchase{
			{VendorNumber: 1, VendorName: "  Acme Spirits ", Brand: "A", Description: " Vodka 750ml  ",
				PurchasePrice: 10, Quantity: 4, Dollars: 40},
			{VendorNumber: 1, VendorName: "  Acme Spirits ", Brand: "A", Description: " Vodka 750ml  ",
				PurchasePrice: 10, Quantity: 6, Dollars: 60},
			{VendorNumber: 2, VendorName: "Beta Imports", Brand: "B", Description: "Gin 1L",
				PurchasePrice: 20, Quantity: 10, Dollars: 200},
			{VendorNumber: 2, VendorName: "Beta Imports", Brand: "C", Description: "Rum 1L",
				PurchasePrice: 10, Quantity: 5, Dollars: 50},
			{VendorNumber: 3, VendorName: "Gamma Trading", Brand: "D", Description: "Sample",
				PurchasePrice: 0, Quantity: 1, Dollars: 0},
		},
		Costs: []Cost{
			{Brand: "A", Price: 14.99, Volume: "750"},
			{Brand: "B", Price: 29.99, Volume: "1000"},
			{Brand: "C", Price: 12.99, Volume: "1000"},
			{Brand: "D", Price: 0, Volume: "50"},
		},
		Sales: []Sale{
			{VendorNo: 2, Brand: "B", SalesQuantity: 5, SalesDollars: 150, SalesPrice: 30, ExciseTax: 1},
			{VendorNo: 2, Brand: "B", SalesQuantity: 3, SalesDollars: 90, SalesPrice: 30, ExciseTax: 0.5},
			{VendorNo: 9, Brand: "Z", SalesQuantity: 1, SalesDollars: 10, SalesPrice: 10, ExciseTax: 0.1},
		},
	}
}

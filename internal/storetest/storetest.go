// Package storetest provides a sqlite-backed store and seed data for tests.
package storetest

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"order-bench/internal/models"
	"order-bench/internal/store"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a store over a fresh sqlite database with the schema applied
func Open(t testing.TB) *store.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "orders.db")
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	require.NoError(t, err)
	db.SetMaxOpenConns(8)

	orm, err := gorm.Open(sqlite.New(sqlite.Config{Conn: db.DB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, orm.AutoMigrate(&models.Customer{}, &models.Product{}, &models.Order{}))

	s := store.New(db, orm)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Scenario is the seeded reference data set
type Scenario struct {
	Now time.Time
	// DeliveredIDs are the matching DELIVERED orders, newest first
	DeliveredIDs []int64
}

// SeedScenario seeds 3 customers, 2 products and 5 orders: three DELIVERED
// orders within the last 10 days, one PENDING order and one DELIVERED order
// older than 30 days.
func SeedScenario(t testing.TB, s *store.Store, now time.Time) Scenario {
	t.Helper()
	now = now.UTC().Truncate(time.Second)
	day := 24 * time.Hour

	customers := []models.Customer{
		{CustomerID: 1, Email: "alice@example.com", Name: "Alice", Country: "KR"},
		{CustomerID: 2, Email: "bob@example.com", Name: "Bob", Country: "US"},
		{CustomerID: 3, Email: "carol@example.com", Name: "Carol", Country: "DE"},
	}
	products := []models.Product{
		{ProductID: 1, ProductName: "Keyboard", Category: "peripherals", Price: decimal.RequireFromString("49.90")},
		{ProductID: 2, ProductName: "Monitor", Category: "displays", Price: decimal.RequireFromString("229.00")},
	}
	orders := []models.Order{
		{OrderID: 1, CustomerID: 1, ProductID: 1, Quantity: 2, TotalAmount: decimal.RequireFromString("99.80"), OrderStatus: models.OrderStatusDelivered, OrderDate: now.Add(-2 * day)},
		{OrderID: 2, CustomerID: 2, ProductID: 2, Quantity: 1, TotalAmount: decimal.RequireFromString("229.00"), OrderStatus: models.OrderStatusDelivered, OrderDate: now.Add(-5 * day)},
		{OrderID: 3, CustomerID: 3, ProductID: 1, Quantity: 1, TotalAmount: decimal.RequireFromString("49.90"), OrderStatus: models.OrderStatusDelivered, OrderDate: now.Add(-1 * day)},
		{OrderID: 4, CustomerID: 1, ProductID: 2, Quantity: 3, TotalAmount: decimal.RequireFromString("687.00"), OrderStatus: models.OrderStatusPending, OrderDate: now.Add(-3 * day)},
		{OrderID: 5, CustomerID: 2, ProductID: 1, Quantity: 1, TotalAmount: decimal.RequireFromString("49.90"), OrderStatus: models.OrderStatusDelivered, OrderDate: now.Add(-45 * day)},
	}

	orm := s.ORM()
	require.NoError(t, orm.Create(&customers).Error)
	require.NoError(t, orm.Create(&products).Error)
	require.NoError(t, orm.Create(&orders).Error)

	return Scenario{Now: now, DeliveredIDs: []int64{3, 1, 2}}
}

// SeedOrphans adds DELIVERED orders whose customer or product does not
// exist. sqlite does not enforce the foreign keys here.
func SeedOrphans(t testing.TB, s *store.Store, now time.Time) {
	t.Helper()
	now = now.UTC().Truncate(time.Second)

	orphans := []models.Order{
		{OrderID: 900, CustomerID: 999, ProductID: 1, Quantity: 1, TotalAmount: decimal.RequireFromString("1.00"), OrderStatus: models.OrderStatusDelivered, OrderDate: now.Add(-time.Hour)},
		{OrderID: 901, CustomerID: 1, ProductID: 999, Quantity: 1, TotalAmount: decimal.RequireFromString("1.00"), OrderStatus: models.OrderStatusDelivered, OrderDate: now.Add(-time.Hour)},
	}
	require.NoError(t, s.ORM().Create(&orphans).Error)
}

// SeedMany seeds n DELIVERED orders starting at firstID. Every three
// consecutive orders share an order date so the tie-break is exercised.
func SeedMany(t testing.TB, s *store.Store, now time.Time, firstID int64, n int) {
	t.Helper()
	now = now.UTC().Truncate(time.Second)

	var count int64
	require.NoError(t, s.ORM().Model(&models.Customer{}).Where("customer_id = ?", 1000).Count(&count).Error)
	if count == 0 {
		require.NoError(t, s.ORM().Create(&models.Customer{CustomerID: 1000, Email: "bulk@example.com", Name: "Bulk Buyer", Country: "JP"}).Error)
		require.NoError(t, s.ORM().Create(&models.Product{ProductID: 1000, ProductName: "Cable", Category: "accessories", Price: decimal.RequireFromString("3.25")}).Error)
	}

	orders := make([]models.Order, 0, n)
	for i := 0; i < n; i++ {
		qty := i%4 + 1
		orders = append(orders, models.Order{
			OrderID:     firstID + int64(i),
			CustomerID:  1000,
			ProductID:   1000,
			Quantity:    qty,
			TotalAmount: decimal.RequireFromString(fmt.Sprintf("%d.25", qty*3)),
			OrderStatus: models.OrderStatusDelivered,
			OrderDate:   now.Add(-time.Duration(i/3) * time.Hour),
		})
	}
	require.NoError(t, s.ORM().CreateInBatches(&orders, 100).Error)
}

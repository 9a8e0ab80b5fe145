package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer represents a customer row. Seeded externally, read-only here.
type Customer struct {
	CustomerID int64  `db:"customer_id" gorm:"column:customer_id;primaryKey" json:"customerId"`
	Email      string `db:"email" gorm:"column:email;size:255;not null;uniqueIndex:idx_customers_email" json:"email"`
	Name       string `db:"name" gorm:"column:name;size:100;not null" json:"name"`
	Country    string `db:"country" gorm:"column:country;size:50;not null;index:idx_customers_country" json:"country"`
}

// TableName pins the table name used by GORM
func (Customer) TableName() string { return "customers" }

// Product represents a product in the catalog
type Product struct {
	ProductID   int64           `db:"product_id" gorm:"column:product_id;primaryKey" json:"productId"`
	ProductName string          `db:"product_name" gorm:"column:product_name;size:200;not null" json:"productName"`
	Category    string          `db:"category" gorm:"column:category;size:50;not null;index:idx_products_category" json:"category"`
	Price       decimal.Decimal `db:"price" gorm:"column:price;type:numeric(12,2);not null" json:"price"`
}

// TableName pins the table name used by GORM
func (Product) TableName() string { return "products" }

// Order represents a customer order
type Order struct {
	OrderID     int64           `db:"order_id" gorm:"column:order_id;primaryKey" json:"orderId"`
	CustomerID  int64           `db:"customer_id" gorm:"column:customer_id;not null;index:idx_orders_customer_id" json:"customerId"`
	ProductID   int64           `db:"product_id" gorm:"column:product_id;not null;index:idx_orders_product_id" json:"productId"`
	Quantity    int             `db:"quantity" gorm:"column:quantity;not null" json:"quantity"`
	TotalAmount decimal.Decimal `db:"total_amount" gorm:"column:total_amount;type:numeric(12,2);not null" json:"totalAmount"`
	OrderStatus string          `db:"order_status" gorm:"column:order_status;size:20;not null;index:idx_orders_status_date,priority:1" json:"orderStatus"`
	OrderDate   time.Time       `db:"order_date" gorm:"column:order_date;not null;index:idx_orders_status_date,priority:2" json:"orderDate"`
}

// TableName pins the table name used by GORM
func (Order) TableName() string { return "orders" }

// OrderSummary is the read model produced by joining an order with its
// customer and product. It is never built from a single table.
type OrderSummary struct {
	OrderID      int64     `db:"order_id" gorm:"column:order_id" json:"orderId" validate:"gt=0"`
	CustomerName string    `db:"customer_name" gorm:"column:customer_name" json:"customerName" validate:"required"`
	ProductName  string    `db:"product_name" gorm:"column:product_name" json:"productName" validate:"required"`
	Quantity     int       `db:"quantity" gorm:"column:quantity" json:"quantity" validate:"gte=1"`
	TotalAmount  Amount    `db:"total_amount" gorm:"column:total_amount" json:"totalAmount"`
	OrderStatus  string    `db:"order_status" gorm:"column:order_status" json:"orderStatus" validate:"required"`
	OrderDate    time.Time `db:"order_date" gorm:"column:order_date" json:"orderDate" validate:"required"`
}

// PagedResult is one page of summaries plus the totals needed to paginate.
type PagedResult struct {
	Content       []OrderSummary `json:"content"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	TotalElements int64          `json:"totalElements"`
	TotalPages    int            `json:"totalPages"`
}

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// WorkloadReport is the result of a CPU workload run.
type WorkloadReport struct {
	Strategy  string `json:"strategy"`
	Tasks     int    `json:"tasks"`
	WorkMs    int    `json:"workMs"`
	ElapsedMs int64  `json:"elapsedMs"`
	Checksum  uint64 `json:"checksum"`
}

// StrategyStats are the per-strategy aggregates kept in Redis
type StrategyStats struct {
	Strategy       string `json:"strategy"`
	Requests       int64  `json:"requests"`
	Errors         int64  `json:"errors"`
	Rows           int64  `json:"rows"`
	LatencyMsTotal int64  `json:"latencyMsTotal"`
	LatencyMsMax   int64  `json:"latencyMsMax"`
	Workloads      int64  `json:"workloads"`
	WorkloadMs     int64  `json:"workloadMsTotal"`
}

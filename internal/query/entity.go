package query

import (
	"gorm.io/gorm"

	"order-bench/internal/models"
)

const (
	entityProjection = "orders.order_id, customers.name AS customer_name, products.product_name, " +
		"orders.quantity, orders.total_amount, orders.order_status, orders.order_date"
	entityCustomerJoin = "INNER JOIN customers ON customers.customer_id = orders.customer_id"
	entityProductJoin  = "INNER JOIN products ON products.product_id = orders.product_id"
	entityFilter       = "orders.order_status = ? AND orders.order_date >= ?"
)

// EntityStatements is the mapped-entity rendering: GORM builders rooted at the
// Order model. Each builder is a fresh session and may be executed once.
type EntityStatements struct {
	Content *gorm.DB
	Count   *gorm.DB
}

// Entity renders the query with GORM's builder against db
func (q OrderSummaryQuery) Entity(db *gorm.DB) EntityStatements {
	filtered := func() *gorm.DB {
		return db.Model(&models.Order{}).
			Joins(entityCustomerJoin).
			Joins(entityProductJoin).
			Where(entityFilter, q.Status, q.Since)
	}

	return EntityStatements{
		Content: filtered().
			Select(entityProjection).
			Order("orders.order_date DESC").
			Order("orders.order_id ASC").
			Offset(int(q.Offset())).
			Limit(q.Size),
		Count: filtered(),
	}
}

// Package query compiles the order summary request into the content and count
// queries, in both the native SQL rendering and the mapped-entity (GORM)
// rendering. The two renderings share filter, join and ordering semantics.
package query

import (
	"math"
	"strings"
	"time"

	"order-bench/internal/models"
)

// OrderSummaryQuery holds the validated inputs of one order summary request.
type OrderSummaryQuery struct {
	Status string
	Since  time.Time
	Page   int
	Size   int
}

// New validates the inputs and returns a query ready to be rendered
func New(status string, since time.Time, page, size int) (OrderSummaryQuery, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return OrderSummaryQuery{}, models.InvalidArgument("query.New", "status must not be empty")
	}
	if page < 0 {
		return OrderSummaryQuery{}, models.InvalidArgument("query.New", "page must not be negative: %d", page)
	}
	if size <= 0 {
		return OrderSummaryQuery{}, models.InvalidArgument("query.New", "size must be positive: %d", size)
	}
	if int64(page) > math.MaxInt64/int64(size) {
		return OrderSummaryQuery{}, models.InvalidArgument("query.New", "page %d with size %d overflows the row offset", page, size)
	}

	return OrderSummaryQuery{
		Status: status,
		Since:  since.UTC(),
		Page:   page,
		Size:   size,
	}, nil
}

// Offset is the number of matching rows skipped before the page starts
func (q OrderSummaryQuery) Offset() int64 {
	return int64(q.Page) * int64(q.Size)
}

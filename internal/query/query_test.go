package query_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"order-bench/internal/models"
	"order-bench/internal/query"
	"order-bench/internal/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var since = time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("KST", 9*60*60))

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name   string
		status string
		page   int
		size   int
	}{
		{"empty status", "", 0, 10},
		{"blank status", "   ", 0, 10},
		{"negative page", models.OrderStatusDelivered, -1, 10},
		{"zero size", models.OrderStatusDelivered, 0, 0},
		{"negative size", models.OrderStatusDelivered, 0, -3},
		{"offset overflow", models.OrderStatusDelivered, math.MaxInt, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := query.New(tt.status, since, tt.page, tt.size)
			require.Error(t, err)
			assert.Equal(t, models.KindInvalidArgument, models.KindOf(err))
		})
	}
}

func TestNewNormalizesInputs(t *testing.T) {
	q, err := query.New(" DELIVERED ", since, 3, 25)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusDelivered, q.Status)
	assert.Equal(t, time.UTC, q.Since.Location())
	assert.True(t, q.Since.Equal(since))
	assert.Equal(t, int64(75), q.Offset())
}

func TestOffsetIsWide(t *testing.T) {
	q, err := query.New(models.OrderStatusDelivered, since, math.MaxInt32, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt32)*1000, q.Offset())
}

func TestNativeStatements(t *testing.T) {
	q, err := query.New(models.OrderStatusDelivered, since, 2, 10)
	require.NoError(t, err)

	stmts := q.Native()
	content := strings.Join(strings.Fields(stmts.Content.SQL), " ")
	count := strings.Join(strings.Fields(stmts.Count.SQL), " ")

	assert.Contains(t, content, "INNER JOIN customers c ON o.customer_id = c.customer_id")
	assert.Contains(t, content, "INNER JOIN products p ON o.product_id = p.product_id")
	assert.Contains(t, content, "ORDER BY o.order_date DESC, o.order_id ASC LIMIT ? OFFSET ?")
	assert.Equal(t, []any{models.OrderStatusDelivered, since.UTC(), 10, int64(20)}, stmts.Content.Args)

	assert.True(t, strings.HasPrefix(count, "SELECT COUNT(*) FROM orders o"))
	assert.Contains(t, count, "INNER JOIN customers c")
	assert.Contains(t, count, "INNER JOIN products p")
	assert.NotContains(t, count, "ORDER BY")
	assert.Equal(t, []any{models.OrderStatusDelivered, since.UTC()}, stmts.Count.Args)
}

func TestEntityStatements(t *testing.T) {
	s := storetest.Open(t)
	q, err := query.New(models.OrderStatusDelivered, since, 2, 10)
	require.NoError(t, err)

	content := s.ORM().ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []models.OrderSummary
		return q.Entity(tx).Content.Scan(&rows)
	})
	assert.Contains(t, content, "INNER JOIN customers ON customers.customer_id = orders.customer_id")
	assert.Contains(t, content, "INNER JOIN products ON products.product_id = orders.product_id")
	assert.Contains(t, content, "ORDER BY orders.order_date DESC,orders.order_id ASC")
	assert.Contains(t, content, "LIMIT 10 OFFSET 20")

	count := s.ORM().ToSQL(func(tx *gorm.DB) *gorm.DB {
		var total int64
		return q.Entity(tx).Count.Count(&total)
	})
	assert.Contains(t, count, "count(*)")
	assert.Contains(t, count, "INNER JOIN customers")
	assert.Contains(t, count, "INNER JOIN products")
	assert.NotContains(t, count, "LIMIT")
}

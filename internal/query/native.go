package query

// Placeholders are written as '?' and rebound by the store for the driver.
const (
	orderSummaryJoins = `
		FROM orders o
		INNER JOIN customers c ON o.customer_id = c.customer_id
		INNER JOIN products p ON o.product_id = p.product_id
		WHERE o.order_status = ?
		AND o.order_date >= ?`

	// order_id breaks ties between equal order dates so pages are reproducible.
	orderSummarySQL = `
		SELECT
			o.order_id,
			c.name AS customer_name,
			p.product_name,
			o.quantity,
			o.total_amount,
			o.order_status,
			o.order_date` + orderSummaryJoins + `
		ORDER BY o.order_date DESC, o.order_id ASC
		LIMIT ? OFFSET ?`

	orderSummaryCountSQL = `
		SELECT COUNT(*)` + orderSummaryJoins
)

// Statement is a rendered SQL string with its positional arguments
type Statement struct {
	SQL  string
	Args []any
}

// NativeStatements is the native-dialect rendering of a query
type NativeStatements struct {
	Content Statement
	Count   Statement
}

// Native renders the query as plain SQL with explicit LIMIT/OFFSET
func (q OrderSummaryQuery) Native() NativeStatements {
	return NativeStatements{
		Content: Statement{
			SQL:  orderSummarySQL,
			Args: []any{q.Status, q.Since, q.Size, q.Offset()},
		},
		Count: Statement{
			SQL:  orderSummaryCountSQL,
			Args: []any{q.Status, q.Since},
		},
	}
}

package store

import (
	"context"
	"errors"
	"iter"

	"order-bench/internal/models"
	"order-bench/internal/query"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

var errStopped = errors.New("row consumer stopped")

// NativeRepository runs the native SQL rendering through sqlx
type NativeRepository struct {
	db *sqlx.DB
}

// FindOrderSummaries runs the content query and returns the whole page
func (r *NativeRepository) FindOrderSummaries(ctx context.Context, q query.OrderSummaryQuery) ([]models.OrderSummary, error) {
	stmt := q.Native().Content

	var rows []models.OrderSummary
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(stmt.SQL), stmt.Args...); err != nil {
		return nil, Classify(ctx, "NativeRepository.FindOrderSummaries", err)
	}
	return rows, nil
}

// CountOrderSummaries counts every row matching the filter
func (r *NativeRepository) CountOrderSummaries(ctx context.Context, q query.OrderSummaryQuery) (int64, error) {
	stmt := q.Native().Count

	var total int64
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(stmt.SQL), stmt.Args...); err != nil {
		return 0, Classify(ctx, "NativeRepository.CountOrderSummaries", err)
	}
	return total, nil
}

// PublishOrderSummaries streams the content rows over a channel. The producer
// closes rows when done and sends at most one error on the returned error
// channel before closing it.
func (r *NativeRepository) PublishOrderSummaries(ctx context.Context, q query.OrderSummaryQuery) (<-chan models.OrderSummary, <-chan error) {
	out := make(chan models.OrderSummary)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(out)

		err := r.scanRows(ctx, q, func(row models.OrderSummary) bool {
			select {
			case out <- row:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if errors.Is(err, errStopped) {
			err = Classify(ctx, "NativeRepository.PublishOrderSummaries", ctx.Err())
		}
		if err != nil {
			errc <- err
		}
	}()

	return out, errc
}

// OrderSummaries returns the content rows as a pull sequence. The connection
// is held only while the sequence is being ranged over.
func (r *NativeRepository) OrderSummaries(ctx context.Context, q query.OrderSummaryQuery) iter.Seq2[models.OrderSummary, error] {
	return func(yield func(models.OrderSummary, error) bool) {
		err := r.scanRows(ctx, q, func(row models.OrderSummary) bool {
			return yield(row, nil)
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(models.OrderSummary{}, err)
		}
	}
}

// scanRows checks out one connection for the content query and hands each
// row to emit. The connection goes back to the pool on every exit path.
func (r *NativeRepository) scanRows(ctx context.Context, q query.OrderSummaryQuery, emit func(models.OrderSummary) bool) error {
	const op = "NativeRepository.scanRows"

	conn, err := r.db.Connx(ctx)
	if err != nil {
		return Classify(ctx, op, err)
	}
	defer conn.Close()

	stmt := q.Native().Content
	rows, err := conn.QueryxContext(ctx, conn.Rebind(stmt.SQL), stmt.Args...)
	if err != nil {
		return Classify(ctx, op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var row models.OrderSummary
		if err := rows.StructScan(&row); err != nil {
			return models.NewQueryError(models.KindSerialization, op, err)
		}
		if !emit(row) {
			return errStopped
		}
	}
	if err := rows.Err(); err != nil {
		return Classify(ctx, op, err)
	}
	return nil
}

// EntityRepository runs the mapped-entity rendering through GORM
type EntityRepository struct {
	orm *gorm.DB
}

// FindOrderSummaries runs the content query and returns the whole page
func (r *EntityRepository) FindOrderSummaries(ctx context.Context, q query.OrderSummaryQuery) ([]models.OrderSummary, error) {
	var rows []models.OrderSummary
	if err := q.Entity(r.orm.WithContext(ctx)).Content.Scan(&rows).Error; err != nil {
		return nil, Classify(ctx, "EntityRepository.FindOrderSummaries", err)
	}
	return rows, nil
}

// CountOrderSummaries counts every row matching the filter
func (r *EntityRepository) CountOrderSummaries(ctx context.Context, q query.OrderSummaryQuery) (int64, error) {
	var total int64
	if err := q.Entity(r.orm.WithContext(ctx)).Count.Count(&total).Error; err != nil {
		return 0, Classify(ctx, "EntityRepository.CountOrderSummaries", err)
	}
	return total, nil
}

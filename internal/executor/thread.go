package executor

import (
	"context"
	"runtime"

	"order-bench/internal/async"
	"order-bench/internal/models"
	"order-bench/internal/paging"
	"order-bench/internal/query"
)

// threadExecutor gives every request its own OS thread and runs the two
// sub-queries one after the other on it.
type threadExecutor struct {
	base
	src ListSource
}

func (e *threadExecutor) Execute(ctx context.Context, q query.OrderSummaryQuery) *async.Future[*models.PagedResult] {
	f, resolve := async.NewPromise[*models.PagedResult]()
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer async.Recover(resolve)

		resolve(runSequential(ctx, e.base, e.src, q))
	}()
	return f
}

func (e *threadExecutor) Submit(ctx context.Context, task Task) *async.Future[struct{}] {
	f, resolve := async.NewPromise[struct{}]()
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer async.Recover(resolve)

		resolve(struct{}{}, task(ctx))
	}()
	return f
}

func (e *threadExecutor) Close() error {
	return nil
}

// runSequential is the blocking request flow: content, then count, then the
// page. A content failure means the count never runs.
func runSequential(ctx context.Context, b base, src ListSource, q query.OrderSummaryQuery) (*models.PagedResult, error) {
	ctx, cancel := b.requestContext(ctx)
	defer cancel()

	rows, err := runPart(ctx, b, partContent, func(ctx context.Context) ([]models.OrderSummary, error) {
		rows, err := src.FindOrderSummaries(ctx, q)
		if err != nil {
			return nil, err
		}
		return paging.FromList(rows)
	})
	if err != nil {
		return nil, err
	}

	total, err := runPart(ctx, b, partCount, func(ctx context.Context) (int64, error) {
		return src.CountOrderSummaries(ctx, q)
	})
	if err != nil {
		return nil, err
	}

	return paging.NewPage(rows, total, q.Page, q.Size)
}

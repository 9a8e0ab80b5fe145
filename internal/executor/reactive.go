package executor

import (
	"context"

	"order-bench/internal/async"
	"order-bench/internal/models"
	"order-bench/internal/paging"
	"order-bench/internal/query"
)

// reactiveExecutor composes the request from two independent futures: the
// drained row stream and the count. Nothing blocks the caller; the page is
// assembled in the completion callback of the joined future.
type reactiveExecutor struct {
	base
	src StreamSource
}

func (e *reactiveExecutor) Execute(ctx context.Context, q query.OrderSummaryQuery) *async.Future[*models.PagedResult] {
	ctx, cancel := e.requestContext(ctx)
	contentCtx, cancelContent := context.WithCancel(ctx)
	countCtx, cancelCount := context.WithCancel(ctx)

	content := async.Go(contentCtx, func(ctx context.Context) ([]models.OrderSummary, error) {
		return runPart(ctx, e.base, partContent, func(ctx context.Context) ([]models.OrderSummary, error) {
			rows, errc := e.src.PublishOrderSummaries(ctx, q)
			out, err := paging.Drain(ctx, rows, errc)
			if err != nil {
				discard(rows, errc)
			}
			return out, err
		})
	})
	count := async.Go(countCtx, func(ctx context.Context) (int64, error) {
		return runPart(ctx, e.base, partCount, func(ctx context.Context) (int64, error) {
			return e.src.CountOrderSummaries(ctx, q)
		})
	})

	joined := async.Zip(content, count, func() {
		cancelContent()
		cancelCount()
	})

	f, resolve := async.NewPromise[*models.PagedResult]()
	joined.Then(func(p async.Pair[[]models.OrderSummary, int64], err error) {
		defer cancel()
		defer cancelCount()
		defer cancelContent()
		if err != nil {
			resolve(nil, err)
			return
		}
		resolve(paging.NewPage(p.First, p.Second, q.Page, q.Size))
	})
	return f
}

func (e *reactiveExecutor) Submit(ctx context.Context, task Task) *async.Future[struct{}] {
	return async.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, task(ctx)
	})
}

func (e *reactiveExecutor) Close() error {
	return nil
}

// discard waits for an abandoned producer to finish so its connection is
// back in the pool before the request completes.
func discard(rows <-chan models.OrderSummary, errc <-chan error) {
	for range rows {
	}
	for range errc {
	}
}

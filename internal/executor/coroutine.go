package executor

import (
	"context"

	"order-bench/internal/async"
	"order-bench/internal/models"
	"order-bench/internal/paging"
	"order-bench/internal/query"
	"order-bench/internal/store"
)

// coroutineExecutor starts both sub-queries and then reads as one sequential
// flow that suspends twice: once for the content, once for the count.
type coroutineExecutor struct {
	base
	src SequenceSource
}

func (e *coroutineExecutor) Execute(ctx context.Context, q query.OrderSummaryQuery) *async.Future[*models.PagedResult] {
	return async.Go(ctx, func(ctx context.Context) (*models.PagedResult, error) {
		return e.run(ctx, q)
	})
}

func (e *coroutineExecutor) run(ctx context.Context, q query.OrderSummaryQuery) (*models.PagedResult, error) {
	ctx, cancel := e.requestContext(ctx)
	defer cancel()
	contentCtx, cancelContent := context.WithCancel(ctx)
	defer cancelContent()
	countCtx, cancelCount := context.WithCancel(ctx)
	defer cancelCount()

	content := async.Go(contentCtx, func(ctx context.Context) ([]models.OrderSummary, error) {
		return runPart(ctx, e.base, partContent, func(ctx context.Context) ([]models.OrderSummary, error) {
			return paging.Collect(e.src.OrderSummaries(ctx, q))
		})
	})
	count := async.Go(countCtx, func(ctx context.Context) (int64, error) {
		return runPart(ctx, e.base, partCount, func(ctx context.Context) (int64, error) {
			return e.src.CountOrderSummaries(ctx, q)
		})
	})

	// A failure on either side cancels the other; settled resolves with the
	// failure that happened first once both sides have returned.
	settled := async.Zip(content, count, func() {
		cancelContent()
		cancelCount()
	})
	abort := func(err error) (*models.PagedResult, error) {
		if _, first := settled.Wait(); first != nil {
			err = first
		}
		return nil, store.Classify(ctx, "Executor.Execute", err)
	}

	rows, err := content.Await(ctx)
	if err != nil {
		return abort(err)
	}
	total, err := count.Await(ctx)
	if err != nil {
		return abort(err)
	}

	return paging.NewPage(rows, total, q.Page, q.Size)
}

func (e *coroutineExecutor) Submit(ctx context.Context, task Task) *async.Future[struct{}] {
	return async.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, task(ctx)
	})
}

func (e *coroutineExecutor) Close() error {
	return nil
}

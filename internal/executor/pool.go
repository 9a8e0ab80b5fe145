package executor

import (
	"context"
	"fmt"
	"time"

	"order-bench/internal/async"
	"order-bench/internal/models"
	"order-bench/internal/query"
	"order-bench/internal/store"
	"order-bench/internal/util"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const poolReleaseTimeout = 10 * time.Second

// poolExecutor runs the blocking request flow on a bounded worker pool.
// Requests are admitted through a semaphore sized like the pool, so a queued
// request waits without holding a worker and gives up at its deadline.
type poolExecutor struct {
	base
	src   ListSource
	pool  *ants.Pool
	slots *semaphore.Weighted
}

func newPoolExecutor(b base, src ListSource, size int) (*poolExecutor, error) {
	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(p interface{}) {
		b.logger.Error("Pool worker panicked", zap.Any("panic", p))
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	b.logger.Info("Worker pool started", zap.Int("size", size))
	return &poolExecutor{
		base:  b,
		src:   src,
		pool:  pool,
		slots: semaphore.NewWeighted(int64(size)),
	}, nil
}

func (e *poolExecutor) Execute(ctx context.Context, q query.OrderSummaryQuery) *async.Future[*models.PagedResult] {
	ctx, cancel := e.requestContext(ctx)

	f, resolve := async.NewPromise[*models.PagedResult]()
	err := e.run(ctx, func() {
		defer cancel()
		defer async.Recover(resolve)
		resolve(runSequential(ctx, e.base, e.src, q))
	})
	if err != nil {
		resolve(nil, store.Classify(ctx, "Executor.Execute", err))
		cancel()
	}
	return f
}

func (e *poolExecutor) Submit(ctx context.Context, task Task) *async.Future[struct{}] {
	f, resolve := async.NewPromise[struct{}]()
	err := e.run(ctx, func() {
		defer async.Recover(resolve)
		resolve(struct{}{}, task(ctx))
	})
	if err != nil {
		resolve(struct{}{}, store.Classify(ctx, "Executor.Submit", err))
	}
	return f
}

// run waits for a free slot and hands fn to a worker. The slot is released
// when fn returns or when the hand-off fails.
func (e *poolExecutor) run(ctx context.Context, fn func()) error {
	util.PoolWaitingRequests.Inc()
	err := e.slots.Acquire(ctx, 1)
	util.PoolWaitingRequests.Dec()
	if err != nil {
		return err
	}

	err = e.pool.Submit(func() {
		util.PoolRunningWorkers.Inc()
		defer func() {
			util.PoolRunningWorkers.Dec()
			e.slots.Release(1)
		}()
		fn()
	})
	if err != nil {
		e.slots.Release(1)
		return fmt.Errorf("failed to submit to worker pool: %w", err)
	}
	return nil
}

func (e *poolExecutor) Close() error {
	return e.pool.ReleaseTimeout(poolReleaseTimeout)
}

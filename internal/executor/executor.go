// Package executor runs the content and count sub-queries of an order summary
// request under one of four concurrency models and assembles the page.
package executor

import (
	"context"
	"fmt"
	"iter"
	"time"

	"order-bench/internal/async"
	"order-bench/internal/models"
	"order-bench/internal/query"

	"go.uber.org/zap"
)

// Strategy names a concurrency model
type Strategy string

const (
	StrategyThread    Strategy = "thread"
	StrategyPool      Strategy = "pool"
	StrategyReactive  Strategy = "reactive"
	StrategyCoroutine Strategy = "coroutine"
)

// Strategies lists every supported model
var Strategies = []Strategy{StrategyThread, StrategyPool, StrategyReactive, StrategyCoroutine}

// ParseStrategy validates a configured strategy name
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown execution strategy %q", s)
}

// Counter runs the count sub-query
type Counter interface {
	CountOrderSummaries(ctx context.Context, q query.OrderSummaryQuery) (int64, error)
}

// ListSource produces the content eagerly
type ListSource interface {
	Counter
	FindOrderSummaries(ctx context.Context, q query.OrderSummaryQuery) ([]models.OrderSummary, error)
}

// StreamSource produces the content as an asynchronous row stream
type StreamSource interface {
	Counter
	PublishOrderSummaries(ctx context.Context, q query.OrderSummaryQuery) (<-chan models.OrderSummary, <-chan error)
}

// SequenceSource produces the content as a cooperative pull sequence
type SequenceSource interface {
	Counter
	OrderSummaries(ctx context.Context, q query.OrderSummaryQuery) iter.Seq2[models.OrderSummary, error]
}

// Sources are the row sources the strategies draw from. Only the one the
// selected strategy needs has to be set.
type Sources struct {
	List     ListSource
	Stream   StreamSource
	Sequence SequenceSource
}

// Options tunes an executor
type Options struct {
	// Timeout bounds a whole request; zero disables the deadline
	Timeout time.Duration
	// PoolSize is the number of blocking-pool workers
	PoolSize int
	Logger   *zap.Logger
}

const defaultPoolSize = 50

// Task is a unit of work scheduled with Submit
type Task func(ctx context.Context) error

// Executor runs order summary requests. Execute does not wait for the
// sub-queries (the pool strategy may wait for admission); the returned future
// resolves with either a full page or exactly one classified error.
type Executor interface {
	Strategy() Strategy
	Execute(ctx context.Context, q query.OrderSummaryQuery) *async.Future[*models.PagedResult]
	Submit(ctx context.Context, task Task) *async.Future[struct{}]
	Close() error
}

// New builds the executor for strategy
func New(strategy Strategy, src Sources, opts Options) (Executor, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	b := base{strategy: strategy, timeout: opts.Timeout, logger: opts.Logger.With(zap.String("strategy", string(strategy)))}

	switch strategy {
	case StrategyThread:
		if src.List == nil {
			return nil, fmt.Errorf("%s strategy needs a list source", strategy)
		}
		return &threadExecutor{base: b, src: src.List}, nil
	case StrategyPool:
		if src.List == nil {
			return nil, fmt.Errorf("%s strategy needs a list source", strategy)
		}
		size := opts.PoolSize
		if size <= 0 {
			size = defaultPoolSize
		}
		pool, err := newPoolExecutor(b, src.List, size)
		if err != nil {
			return nil, err
		}
		return pool, nil
	case StrategyReactive:
		if src.Stream == nil {
			return nil, fmt.Errorf("%s strategy needs a stream source", strategy)
		}
		return &reactiveExecutor{base: b, src: src.Stream}, nil
	case StrategyCoroutine:
		if src.Sequence == nil {
			return nil, fmt.Errorf("%s strategy needs a sequence source", strategy)
		}
		return &coroutineExecutor{base: b, src: src.Sequence}, nil
	default:
		return nil, fmt.Errorf("unknown execution strategy %q", strategy)
	}
}

type base struct {
	strategy Strategy
	timeout  time.Duration
	logger   *zap.Logger
}

func (b base) Strategy() Strategy {
	return b.strategy
}

// requestContext applies the per-request deadline
func (b base) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout > 0 {
		return context.WithTimeout(ctx, b.timeout)
	}
	return context.WithCancel(ctx)
}

package service

import (
	"context"
	"sync/atomic"
	"time"

	"order-bench/internal/async"
	"order-bench/internal/models"
	"order-bench/internal/store"
	"order-bench/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkloadRequest represents the query parameters of a CPU workload run
type WorkloadRequest struct {
	Tasks  int `form:"tasks,default=10" binding:"min=1,max=1000"`
	WorkMs int `form:"workMs,default=10" binding:"min=1,max=10000"`
}

// RunWorkload fans out CPU-bound tasks through the active strategy's
// scheduler and waits for all of them.
func (s *OrderQueryService) RunWorkload(ctx context.Context, req WorkloadRequest) (*models.WorkloadReport, error) {
	ctx, span := util.StartSpan(ctx, "OrderQueryService.RunWorkload")
	defer span.End()

	if req.Tasks < 1 || req.WorkMs < 1 {
		return nil, models.InvalidArgument("OrderQueryService.RunWorkload",
			"tasks and workMs must be positive: %d, %d", req.Tasks, req.WorkMs)
	}

	strategy := string(s.executor.Strategy())
	work := time.Duration(req.WorkMs) * time.Millisecond
	start := time.Now()

	var checksum atomic.Uint64
	futures := make([]*async.Future[struct{}], 0, req.Tasks)
	for i := 0; i < req.Tasks; i++ {
		seed := uint64(i + 1)
		futures = append(futures, s.executor.Submit(ctx, func(ctx context.Context) error {
			v, err := burn(ctx, seed, work)
			checksum.Add(v)
			return err
		}))
	}

	var firstErr error
	for _, f := range futures {
		if _, err := f.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	elapsed := time.Since(start)
	util.WorkloadDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())

	if firstErr != nil {
		err := store.Classify(ctx, "OrderQueryService.RunWorkload", firstErr)
		util.SpanError(span, err)
		s.logger.Error("Workload failed", zap.String("strategy", strategy), zap.Error(err))
		return nil, err
	}

	event := &models.WorkloadCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeWorkloadCompleted,
			Timestamp: time.Now(),
		},
		Strategy:   strategy,
		Tasks:      req.Tasks,
		WorkMs:     req.WorkMs,
		DurationMs: elapsed.Milliseconds(),
	}
	if err := s.publisher.PublishWorkloadCompleted(context.WithoutCancel(ctx), event); err != nil {
		util.TelemetryFailuresTotal.WithLabelValues("publish").Inc()
		s.logger.Warn("Failed to publish WorkloadCompleted event", zap.Error(err))
	}

	return &models.WorkloadReport{
		Strategy:  strategy,
		Tasks:     req.Tasks,
		WorkMs:    req.WorkMs,
		ElapsedMs: elapsed.Milliseconds(),
		Checksum:  checksum.Load(),
	}, nil
}

// burn keeps one core busy for about d, mixing seed so the work cannot be
// optimized away. The clock and ctx are checked every 4096 rounds.
func burn(ctx context.Context, seed uint64, d time.Duration) (uint64, error) {
	deadline := time.Now().Add(d)
	x := seed
	for {
		for i := 0; i < 4096; i++ {
			// splitmix64
			x += 0x9e3779b97f4a7c15
			z := x
			z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
			z = (z ^ (z >> 27)) * 0x94d049bb133111eb
			x ^= z ^ (z >> 31)
		}
		if err := ctx.Err(); err != nil {
			return x, err
		}
		if !time.Now().Before(deadline) {
			return x, nil
		}
	}
}

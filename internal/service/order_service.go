package service

import (
	"context"
	"time"

	"order-bench/internal/executor"
	"order-bench/internal/models"
	"order-bench/internal/query"
	"order-bench/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher receives the telemetry of every request
type EventPublisher interface {
	PublishQueryExecuted(ctx context.Context, event *models.QueryExecutedEvent) error
	PublishWorkloadCompleted(ctx context.Context, event *models.WorkloadCompletedEvent) error
}

// NopPublisher drops every event; used when telemetry is disabled
type NopPublisher struct{}

func (NopPublisher) PublishQueryExecuted(context.Context, *models.QueryExecutedEvent) error {
	return nil
}

func (NopPublisher) PublishWorkloadCompleted(context.Context, *models.WorkloadCompletedEvent) error {
	return nil
}

// OrderQueryService answers order summary requests with the configured
// execution strategy
type OrderQueryService struct {
	executor  executor.Executor
	publisher EventPublisher
	now       func() time.Time
	logger    *zap.Logger
}

// NewOrderQueryService creates a new order query service
func NewOrderQueryService(exec executor.Executor, publisher EventPublisher) *OrderQueryService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &OrderQueryService{
		executor:  exec,
		publisher: publisher,
		now:       time.Now,
		logger:    util.GetLogger(),
	}
}

// WithClock replaces the clock used to compute the date filter
func (s *OrderQueryService) WithClock(now func() time.Time) *OrderQueryService {
	s.now = now
	return s
}

// Strategy returns the active execution strategy
func (s *OrderQueryService) Strategy() executor.Strategy {
	return s.executor.Strategy()
}

// MaxDaysAgo keeps the date filter inside the range the store can represent
const MaxDaysAgo = 36500

// OrderSummaryRequest represents the query parameters of an order summary request
type OrderSummaryRequest struct {
	Status  string `form:"status,default=DELIVERED" binding:"required"`
	DaysAgo int    `form:"daysAgo,default=30" binding:"min=0,max=36500"`
	Page    int    `form:"page,default=0" binding:"min=0"`
	Size    int    `form:"size,default=100" binding:"min=1"`
}

// GetOrderSummaries returns one page of order summaries. The date filter is
// computed from the clock when the request is received.
func (s *OrderQueryService) GetOrderSummaries(ctx context.Context, req OrderSummaryRequest) (*models.PagedResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderQueryService.GetOrderSummaries")
	defer span.End()

	strategy := string(s.executor.Strategy())
	start := time.Now()

	page, err := s.execute(ctx, req)
	elapsed := time.Since(start)

	util.QueryDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	event := &models.QueryExecutedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeQueryExecuted,
			Timestamp: time.Now(),
		},
		Strategy:   strategy,
		Status:     req.Status,
		Page:       req.Page,
		Size:       req.Size,
		DurationMs: elapsed.Milliseconds(),
		Outcome:    models.OutcomeOK,
	}

	if err != nil {
		kind := models.KindOf(err)
		util.SpanError(span, err)
		util.QueryRequestsTotal.WithLabelValues(strategy, models.OutcomeError).Inc()
		util.QueryErrorsTotal.WithLabelValues(strategy, string(kind)).Inc()

		fields := []zap.Field{
			zap.String("strategy", strategy),
			zap.String("kind", string(kind)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		}
		if kind.ClientError() {
			s.logger.Warn("Rejected order summary request", fields...)
		} else {
			s.logger.Error("Order summary request failed", fields...)
		}

		event.Outcome = models.OutcomeError
		event.ErrorKind = string(kind)
		s.publish(ctx, event)
		return nil, err
	}

	util.QueryRequestsTotal.WithLabelValues(strategy, models.OutcomeOK).Inc()
	util.PageRows.WithLabelValues(strategy).Observe(float64(len(page.Content)))

	event.Rows = len(page.Content)
	event.TotalElements = page.TotalElements
	s.publish(ctx, event)
	return page, nil
}

func (s *OrderQueryService) execute(ctx context.Context, req OrderSummaryRequest) (*models.PagedResult, error) {
	if req.DaysAgo < 0 || req.DaysAgo > MaxDaysAgo {
		return nil, models.InvalidArgument("OrderQueryService", "daysAgo must be between 0 and %d: %d", MaxDaysAgo, req.DaysAgo)
	}
	since := s.now().UTC().AddDate(0, 0, -req.DaysAgo)

	q, err := query.New(req.Status, since, req.Page, req.Size)
	if err != nil {
		return nil, err
	}

	// The executor resolves only after both sub-queries have let go of
	// their connections, so waiting here never leaks one past the request.
	return s.executor.Execute(ctx, q).Wait()
}

// publish never fails the request; the event outlives the request context
func (s *OrderQueryService) publish(ctx context.Context, event *models.QueryExecutedEvent) {
	if err := s.publisher.PublishQueryExecuted(context.WithoutCancel(ctx), event); err != nil {
		util.TelemetryFailuresTotal.WithLabelValues("publish").Inc()
		s.logger.Warn("Failed to publish QueryExecuted event", zap.Error(err))
	}
}

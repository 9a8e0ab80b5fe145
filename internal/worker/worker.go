package worker

import (
	"context"
	"fmt"
	"time"

	"order-bench/internal/broker"
	"order-bench/internal/models"
	"order-bench/internal/util"

	"go.uber.org/zap"
)

const eventDedupTTL = 24 * time.Hour

// StatsStore is where the aggregates live
type StatsStore interface {
	MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	ReleaseEvent(ctx context.Context, eventID string) error
	RecordQuery(ctx context.Context, strategy string, rows int, latencyMs int64, failed bool) (int64, error)
	RecordWorkload(ctx context.Context, strategy string, durationMs int64) error
}

// StatsWorker folds telemetry events into per-strategy aggregates. Kafka
// delivers at least once, so every event is deduplicated by id first; the id
// is released again when recording fails so a redelivery is not skipped.
type StatsWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	stats        StatsStore
	logger       *zap.Logger
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(consumer *broker.Consumer, stats StatsStore) *StatsWorker {
	w := &StatsWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		stats:        stats,
		logger:       util.GetLogger().Named("stats-worker"),
	}

	w.eventHandler.OnQueryExecuted(w.HandleQueryExecuted)
	w.eventHandler.OnWorkloadCompleted(w.HandleWorkloadCompleted)
	return w
}

// Start starts the worker
func (w *StatsWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stats worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StatsWorker) Stop() error {
	w.logger.Info("Stopping stats worker")
	return w.consumer.Close()
}

// HandleQueryExecuted records one request outcome
func (w *StatsWorker) HandleQueryExecuted(ctx context.Context, event *models.QueryExecutedEvent) error {
	fresh, err := w.stats.MarkEventProcessed(ctx, event.EventID, eventDedupTTL)
	if err != nil {
		return err
	}
	if !fresh {
		w.logger.Debug("Skipping duplicate event", zap.String("event_id", event.EventID))
		return nil
	}

	requests, err := w.stats.RecordQuery(ctx, event.Strategy, event.Rows, event.DurationMs, event.Outcome != models.OutcomeOK)
	if err != nil {
		return w.recordFailed(ctx, event.EventID, err)
	}

	w.logger.Debug("Recorded query",
		zap.String("strategy", event.Strategy),
		zap.String("outcome", event.Outcome),
		zap.Int64("requests", requests))
	return nil
}

// HandleWorkloadCompleted records one workload run
func (w *StatsWorker) HandleWorkloadCompleted(ctx context.Context, event *models.WorkloadCompletedEvent) error {
	fresh, err := w.stats.MarkEventProcessed(ctx, event.EventID, eventDedupTTL)
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	if err := w.stats.RecordWorkload(ctx, event.Strategy, event.DurationMs); err != nil {
		return w.recordFailed(ctx, event.EventID, err)
	}
	return nil
}

func (w *StatsWorker) recordFailed(ctx context.Context, eventID string, err error) error {
	util.TelemetryFailuresTotal.WithLabelValues("record").Inc()
	if relErr := w.stats.ReleaseEvent(context.WithoutCancel(ctx), eventID); relErr != nil {
		w.logger.Error("Failed to release event id",
			zap.String("event_id", eventID),
			zap.Error(relErr))
	}
	return fmt.Errorf("failed to record event %s: %w", eventID, err)
}

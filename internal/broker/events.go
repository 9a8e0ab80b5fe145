package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"order-bench/internal/models"
	"order-bench/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes benchmark telemetry events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// Events of one strategy share a key so they stay ordered per partition.
func strategyKey(strategy string) string {
	return fmt.Sprintf("strategy-%s", strategy)
}

// PublishQueryExecuted publishes QueryExecuted event
func (ep *EventPublisher) PublishQueryExecuted(ctx context.Context, event *models.QueryExecutedEvent) error {
	return ep.producer.PublishEvent(ctx, strategyKey(event.Strategy), event)
}

// PublishWorkloadCompleted publishes WorkloadCompleted event
func (ep *EventPublisher) PublishWorkloadCompleted(ctx context.Context, event *models.WorkloadCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, strategyKey(event.Strategy), event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onQueryExecuted     func(context.Context, *models.QueryExecutedEvent) error
	onWorkloadCompleted func(context.Context, *models.WorkloadCompletedEvent) error
	logger              *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger().Named("events")}
}

// OnQueryExecuted registers a handler for QueryExecuted events
func (eh *EventHandler) OnQueryExecuted(handler func(context.Context, *models.QueryExecutedEvent) error) {
	eh.onQueryExecuted = handler
}

// OnWorkloadCompleted registers a handler for WorkloadCompleted events
func (eh *EventHandler) OnWorkloadCompleted(handler func(context.Context, *models.WorkloadCompletedEvent) error) {
	eh.onWorkloadCompleted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeQueryExecuted:
		if eh.onQueryExecuted != nil {
			var event models.QueryExecutedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal QueryExecuted event: %w", err)
			}
			return eh.onQueryExecuted(ctx, &event)
		}

	case models.EventTypeWorkloadCompleted:
		if eh.onWorkloadCompleted != nil {
			var event models.WorkloadCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal WorkloadCompleted event: %w", err)
			}
			return eh.onWorkloadCompleted(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}

package executor

import (
	"context"
	"time"

	"order-bench/internal/store"
	"order-bench/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	partContent = "content"
	partCount   = "count"
)

// runPart runs one sub-query inside its own span and classifies its failure
// against the sub-query's context.
func runPart[T any](ctx context.Context, b base, part string, fn func(context.Context) (T, error)) (T, error) {
	op := "Executor." + part
	ctx, span := util.StartSpan(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("strategy", string(b.strategy)))

	start := time.Now()
	v, err := fn(ctx)
	util.SubqueryDuration.WithLabelValues(string(b.strategy), part).Observe(time.Since(start).Seconds())

	if err != nil {
		err = store.Classify(ctx, op, err)
		util.SpanError(span, err)
		b.logger.Debug("Sub-query failed", zap.String("part", part), zap.Error(err))
		var zero T
		return zero, err
	}
	return v, nil
}

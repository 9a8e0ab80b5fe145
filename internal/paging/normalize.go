package paging

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"order-bench/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	rowValidator *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		rowValidator = validator.New()
	})
	return rowValidator
}

// normalizeRow puts a scanned row into canonical form and checks its shape
func normalizeRow(index int, row models.OrderSummary) (models.OrderSummary, error) {
	if err := getValidator().Struct(row); err != nil {
		return row, models.NewQueryError(models.KindSerialization, "paging.normalize",
			fmt.Errorf("row %d (order %d): %w", index, row.OrderID, err))
	}
	row.OrderDate = row.OrderDate.UTC()
	row.TotalAmount = row.TotalAmount.Normalized()
	return row, nil
}

// FromList normalizes an eagerly materialized list in place order
func FromList(rows []models.OrderSummary) ([]models.OrderSummary, error) {
	out := make([]models.OrderSummary, 0, len(rows))
	for i, row := range rows {
		r, err := normalizeRow(i, row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Drain consumes an asynchronous row stream until the producer closes it.
// The producer sends at most one error on errc and closes both channels.
// A bad row does not stop the draining so the producer can release its
// connection; the first error is reported once the stream ends.
func Drain(ctx context.Context, rows <-chan models.OrderSummary, errc <-chan error) ([]models.OrderSummary, error) {
	out := make([]models.OrderSummary, 0)
	var firstErr error

	for rows != nil {
		select {
		case row, ok := <-rows:
			if !ok {
				rows = nil
				continue
			}
			if firstErr != nil {
				continue
			}
			r, err := normalizeRow(len(out), row)
			if err != nil {
				firstErr = err
				continue
			}
			out = append(out, r)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if errc != nil {
		select {
		case err := <-errc:
			if err != nil && firstErr == nil {
				firstErr = err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Collect pulls a cooperative sequence to the end
func Collect(seq iter.Seq2[models.OrderSummary, error]) ([]models.OrderSummary, error) {
	out := make([]models.OrderSummary, 0)
	for row, err := range seq {
		if err != nil {
			return nil, err
		}
		r, err := normalizeRow(len(out), row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Package paging assembles page envelopes and normalizes the row sources of
// the different execution strategies into one ordered slice.
package paging

import (
	"fmt"

	"order-bench/internal/models"
)

// TotalPages is ceil(total/size), or 0 when there is nothing to page over
func TotalPages(totalElements int64, size int) int {
	if totalElements <= 0 || size <= 0 {
		return 0
	}
	s := int64(size)
	pages := totalElements / s
	if totalElements%s != 0 {
		pages++
	}
	return int(pages)
}

// NewPage builds the paged envelope. A page index past the last page is not
// an error: the content is simply empty while the totals stay correct.
func NewPage(content []models.OrderSummary, totalElements int64, page, size int) (*models.PagedResult, error) {
	if size <= 0 {
		return nil, models.NewQueryError(models.KindInternal, "paging.NewPage",
			fmt.Errorf("page size must be validated before paging: %d", size))
	}
	if totalElements < 0 {
		return nil, models.NewQueryError(models.KindInternal, "paging.NewPage",
			fmt.Errorf("negative total count: %d", totalElements))
	}
	if content == nil {
		content = []models.OrderSummary{}
	}

	return &models.PagedResult{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: totalElements,
		TotalPages:    TotalPages(totalElements, size),
	}, nil
}

package ops

import (
	"context"

	"github.com/nas/track-learning/internal/item"
	"github.com/nas/track-learning/internal/store"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	IncludeArchived bool
	Limit           int // 0 = everything, max: 500
	Offset          int // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []item.Item `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

// List returns items in insertion order, hiding archived ones unless asked.
func List(ctx context.Context, st store.Store, input ListInput) (*ListOutput, error) {
	all, err := st.List(ctx)
	if err != nil {
		return nil, err
	}

	visible := all
	if !input.IncludeArchived {
		visible = make([]item.Item, 0, len(all))
		for _, it := range all {
			if !it.IsArchived() {
				visible = append(visible, it)
			}
		}
	}

	total := len(visible)
	offset := min(max(input.Offset, 0), total)

	limit := input.Limit
	if limit <= 0 {
		limit = total - offset
	}
	limit = min(limit, MaxListLimit)

	end := min(offset+limit, total)
	page := make([]item.Item, end-offset)
	copy(page, visible[offset:end])

	return &ListOutput{
		Items: page,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: end < total,
			Total:   total,
		},
	}, nil
}

// FilterOutput contains the result of the Filter operation.
type FilterOutput struct {
	Criteria item.Criteria `json:"criteria"`
	Items    []item.Item   `json:"items"`
	Count    int           `json:"count"`
}

// Filter applies criteria to the stored collection, preserving order.
func Filter(ctx context.Context, st store.Store, criteria item.Criteria) (*FilterOutput, error) {
	all, err := st.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := item.Apply(all, criteria)
	return &FilterOutput{
		Criteria: criteria,
		Items:    matched,
		Count:    len(matched),
	}, nil
}

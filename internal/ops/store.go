package ops

import (
	"context"

	"github.com/nas/track-learning/internal/errors"
	"github.com/nas/track-learning/internal/item"
	"github.com/nas/track-learning/internal/store"
)

// Add persists a complete item-creation record under a fresh ULID.
func Add(ctx context.Context, st store.Store, input item.AddInput) (*item.Item, error) {
	if err := item.ValidateAddInput(input); err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	it := item.NewItem(id, input, clock())
	if err := st.Insert(ctx, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// Create applies defaults to a partially specified item and persists it.
func Create(ctx context.Context, st store.Store, draft item.Draft) (*item.Item, error) {
	input, err := draft.Normalize(clock())
	if err != nil {
		return nil, err
	}
	return Add(ctx, st, input)
}

// Get retrieves one item by id.
func Get(ctx context.Context, st store.Store, id string) (*item.Item, error) {
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}
	return st.Get(ctx, id)
}

package ops

import (
	"context"
	"strings"

	"github.com/nas/track-learning/internal/errors"
	"github.com/nas/track-learning/internal/item"
	"github.com/nas/track-learning/internal/store"
)

// UpdateInput contains parameters for the Update operation.
type UpdateInput struct {
	ID string

	// Editable fields (nil = don't change)
	Title    *string
	Author   *string
	Type     *item.Type
	Status   *item.Status
	Progress *string
	URL      *string

	// ClearURL removes the link; it wins over URL.
	ClearURL bool
}

func (in UpdateInput) empty() bool {
	return in.Title == nil && in.Author == nil && in.Type == nil && in.Status == nil &&
		in.Progress == nil && in.URL == nil && !in.ClearURL
}

// Update merges the provided fields into an existing item and stamps lastUpdated.
// The id and start date never change.
func Update(ctx context.Context, st store.Store, input UpdateInput) (*item.Item, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}
	if input.empty() {
		return nil, errors.NewNoUpdates()
	}

	it, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		it.Title = strings.TrimSpace(*input.Title)
	}
	if input.Author != nil {
		it.Author = strings.TrimSpace(*input.Author)
	}
	if input.Type != nil {
		it.Type = *input.Type
	}
	if input.Status != nil {
		it.Status = *input.Status
	}
	if input.Progress != nil {
		it.Progress = strings.TrimSpace(*input.Progress)
	}
	if input.ClearURL {
		it.URL = nil
	} else if input.URL != nil {
		it.URL = item.CleanURL(input.URL)
	}
	it.LastUpdated = item.FormatTime(clock())

	return save(ctx, st, it)
}

// EditInput applies a parsed partial update to an item.
type EditInput struct {
	ID     string
	Update item.EditUpdate
}

// Edit applies an EditUpdate by id.
func Edit(ctx context.Context, st store.Store, input EditInput) (*item.Item, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}
	if err := input.Update.Validate(); err != nil {
		return nil, err
	}

	it, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	input.Update.ApplyTo(it, clock())

	return save(ctx, st, it)
}

// Archive retires an item by setting its status to Archived. Items are never deleted.
func Archive(ctx context.Context, st store.Store, id string) (*item.Item, error) {
	archived := item.StatusArchived
	return Edit(ctx, st, EditInput{ID: id, Update: item.EditUpdate{Status: &archived}})
}

// save validates the merged item and writes it back.
func save(ctx context.Context, st store.Store, it *item.Item) (*item.Item, error) {
	if err := item.Validate(*it); err != nil {
		return nil, err
	}
	if err := st.Update(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

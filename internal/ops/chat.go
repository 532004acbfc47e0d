package ops

import (
	"context"

	"github.com/nas/track-learning/internal/item"
	"github.com/nas/track-learning/internal/store"
)

// ChatAdd parses a free-text message into an item and persists it.
func ChatAdd(ctx context.Context, st store.Store, p Parser, message string) (*item.Item, error) {
	message, err := requireText(message, "Message is required")
	if err != nil {
		return nil, err
	}

	input, err := p.ParseAdd(ctx, message)
	if err != nil {
		return nil, err
	}
	return Add(ctx, st, input)
}

// ChatEditInput contains parameters for the ChatEdit operation.
type ChatEditInput struct {
	ID      string
	Message string
}

// ChatEditOutput contains the parsed update and the saved item.
type ChatEditOutput struct {
	Updates item.EditUpdate `json:"updates"`
	Item    *item.Item      `json:"item"`
}

// ChatEdit loads an item, asks the parser what the message changes and applies it.
func ChatEdit(ctx context.Context, st store.Store, p Parser, input ChatEditInput) (*ChatEditOutput, error) {
	message, err := requireText(input.Message, "Message is required")
	if err != nil {
		return nil, err
	}
	current, err := Get(ctx, st, input.ID)
	if err != nil {
		return nil, err
	}

	updates, err := p.ParseEdit(ctx, message, current.Context())
	if err != nil {
		return nil, err
	}

	saved, err := Edit(ctx, st, EditInput{ID: current.ID, Update: updates})
	if err != nil {
		return nil, err
	}
	return &ChatEditOutput{Updates: updates, Item: saved}, nil
}

// ChatSearch turns a query into criteria and filters the collection with them.
func ChatSearch(ctx context.Context, st store.Store, p Parser, query string) (*FilterOutput, error) {
	query, err := requireText(query, "Query is required")
	if err != nil {
		return nil, err
	}

	criteria, err := p.ParseSearch(ctx, query)
	if err != nil {
		return nil, err
	}
	return Filter(ctx, st, criteria)
}

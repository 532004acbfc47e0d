package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nas/track-learning/internal/errors"
	"github.com/nas/track-learning/internal/item"
)

// Blob is a single document location. Read returns nil data when the
// document does not exist yet.
type Blob interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// Document stores the collection as one JSON array in a Blob.
type Document struct {
	blob Blob
	mu   sync.Mutex
}

// NewDocument creates a document store over blob.
func NewDocument(blob Blob) *Document {
	return &Document{blob: blob}
}

func (d *Document) List(ctx context.Context) ([]item.Item, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load(ctx)
}

func (d *Document) Get(ctx context.Context, id string) (*item.Item, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	items, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(items, id); i >= 0 {
		found := items[i]
		return &found, nil
	}
	return nil, errors.NewNotFound(id)
}

func (d *Document) Insert(ctx context.Context, it *item.Item) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	items, err := d.load(ctx)
	if err != nil {
		return err
	}
	if indexOf(items, it.ID) >= 0 {
		return errors.NewConflict(fmt.Sprintf("Item with id %s already exists", it.ID))
	}
	return d.save(ctx, append(items, *it))
}

// Update replaces the stored item with the same id. The start date is kept.
func (d *Document) Update(ctx context.Context, it *item.Item) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	items, err := d.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(items, it.ID)
	if i < 0 {
		return errors.NewNotFound(it.ID)
	}
	updated := *it
	updated.StartDate = items[i].StartDate
	items[i] = updated
	return d.save(ctx, items)
}

func (d *Document) Close() error {
	return nil
}

func (d *Document) load(ctx context.Context) ([]item.Item, error) {
	data, err := d.blob.Read(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]item.Item, 0)
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("corrupt item document: %w", err))
	}
	return items, nil
}

func (d *Document) save(ctx context.Context, items []item.Item) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}
	return d.blob.Write(ctx, append(data, '\n'))
}

func indexOf(items []item.Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

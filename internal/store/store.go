// Package store persists learning items behind a single interface.
//
// The SQLite backend keeps one row per item. The file and S3 backends keep
// the whole collection as one JSON array document and serialize every
// read-modify-write with a mutex.
package store

import (
	"context"
	"path/filepath"

	"github.com/nas/track-learning/internal/config"
	"github.com/nas/track-learning/internal/db"
	"github.com/nas/track-learning/internal/item"
)

// DefaultDataFile is the document name used by the file backend.
const DefaultDataFile = "learning-items.json"

// Store is the persistence contract for learning items.
// List returns items in insertion order.
type Store interface {
	List(ctx context.Context) ([]item.Item, error)
	Get(ctx context.Context, id string) (*item.Item, error)
	Insert(ctx context.Context, it *item.Item) error
	Update(ctx context.Context, it *item.Item) error
	Close() error
}

// Open returns the backend selected by cfg.Storage.
func Open(ctx context.Context, cfg *config.Config, baseDir string) (Store, error) {
	switch cfg.Storage {
	case config.StorageFile:
		path := cfg.DataFile
		if path == "" {
			if err := db.EnsureDirs(baseDir); err != nil {
				return nil, err
			}
			path = filepath.Join(baseDir, DefaultDataFile)
		}
		return NewDocument(NewFileBlob(path)), nil

	case config.StorageS3:
		client, err := NewS3Client(ctx)
		if err != nil {
			return nil, err
		}
		return NewDocument(NewS3Blob(client, cfg.S3Bucket, cfg.S3Key)), nil

	default:
		database, err := db.Init(baseDir)
		if err != nil {
			return nil, err
		}
		db.ConfigurePool(database, cfg)
		return NewSQLite(database), nil
	}
}

package store

import (
	"context"
	"database/sql"

	"github.com/nas/track-learning/internal/db"
	"github.com/nas/track-learning/internal/item"
)

// SQLite stores items as rows in the tracker database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an initialized database.
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{db: database}
}

func (s *SQLite) List(ctx context.Context) ([]item.Item, error) {
	return db.List(ctx, s.db)
}

func (s *SQLite) Get(ctx context.Context, id string) (*item.Item, error) {
	return db.GetByID(ctx, s.db, id)
}

func (s *SQLite) Insert(ctx context.Context, it *item.Item) error {
	return db.Insert(ctx, s.db, it)
}

func (s *SQLite) Update(ctx context.Context, it *item.Item) error {
	return db.UpdateByID(ctx, s.db, it)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

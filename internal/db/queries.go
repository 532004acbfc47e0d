package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nas/track-learning/internal/errors"
	"github.com/nas/track-learning/internal/item"
)

const itemColumns = `id, title, author, type, status, progress, url, start_date, last_updated`

// Insert stores a new item. A duplicate id is a CONFLICT.
func Insert(ctx context.Context, db *sql.DB, it *item.Item) error {
	query := `
		INSERT INTO learning_items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		it.ID, it.Title, it.Author, string(it.Type), string(it.Status),
		it.Progress, toNullString(it.URL), it.StartDate, it.LastUpdated,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict(fmt.Sprintf("Item with id %s already exists", it.ID))
		}
		return errors.NewInternal(err)
	}

	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE or PRIMARY KEY violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetByID retrieves an item by id.
func GetByID(ctx context.Context, db *sql.DB, id string) (*item.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM learning_items WHERE id = ?`

	it, err := scanItem(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return it, nil
}

// List returns every item in insertion order.
func List(ctx context.Context, db *sql.DB) ([]item.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM learning_items ORDER BY rowid`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	items := make([]item.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return items, nil
}

// UpdateByID rewrites every mutable column of an existing item.
// The id and start date never change.
func UpdateByID(ctx context.Context, db *sql.DB, it *item.Item) error {
	query := `
		UPDATE learning_items
		SET title = ?, author = ?, type = ?, status = ?, progress = ?,
			url = ?, last_updated = ?
		WHERE id = ?
	`

	result, err := db.ExecContext(ctx, query,
		it.Title, it.Author, string(it.Type), string(it.Status), it.Progress,
		toNullString(it.URL), it.LastUpdated,
		it.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(it.ID)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanItem scans a single row into an Item.
func scanItem(row scanner) (*item.Item, error) {
	var (
		it     item.Item
		typ    string
		status string
		url    sql.NullString
	)

	err := row.Scan(
		&it.ID, &it.Title, &it.Author, &typ, &status,
		&it.Progress, &url, &it.StartDate, &it.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	it.Type = item.Type(typ)
	it.Status = item.Status(status)
	it.URL = fromNullString(url)

	return &it, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

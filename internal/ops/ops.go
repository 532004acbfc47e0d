// Package ops implements the tracker's operations over a store.Store.
// CLI, MCP and HTTP surfaces all call through here.
package ops

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/nas/track-learning/internal/errors"
	"github.com/nas/track-learning/internal/item"
)

// Pagination limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Parser turns free text into structured records. *parse.Parser implements it.
type Parser interface {
	ParseAdd(ctx context.Context, message string) (item.AddInput, error)
	ParseEdit(ctx context.Context, message string, current item.Context) (item.EditUpdate, error)
	ParseSearch(ctx context.Context, query string) (item.Criteria, error)
}

// clock is the time source for lastUpdated stamps.
var clock = time.Now

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(clock()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// requireID trims id and rejects blanks.
func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest("id is required")
	}
	return id, nil
}

// requireText trims s and rejects blanks with msg.
func requireText(s, msg string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.NewInvalidRequest(msg)
	}
	return s, nil
}

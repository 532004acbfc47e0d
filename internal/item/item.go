package item

import "time"

// Type is the kind of learning material.
type Type string

const (
	TypeBook    Type = "Book"
	TypeCourse  Type = "Course"
	TypeArticle Type = "Article"
)

// Status is where the learner is with an item.
type Status string

const (
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusOnHold     Status = "On Hold"
	StatusArchived   Status = "Archived"
)

// Types returns the type universe in canonical order.
func Types() []Type {
	return []Type{TypeBook, TypeCourse, TypeArticle}
}

// Statuses returns the status universe in canonical order.
func Statuses() []Status {
	return []Status{StatusInProgress, StatusCompleted, StatusOnHold, StatusArchived}
}

// Valid reports whether t is a member of the type universe.
func (t Type) Valid() bool {
	for _, v := range Types() {
		if v == t {
			return true
		}
	}
	return false
}

// Valid reports whether s is a member of the status universe.
func (s Status) Valid() bool {
	for _, v := range Statuses() {
		if v == s {
			return true
		}
	}
	return false
}

// TypeNames returns the type universe as plain strings.
func TypeNames() []string {
	return names(Types())
}

// StatusNames returns the status universe as plain strings.
func StatusNames() []string {
	return names(Statuses())
}

func names[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// Item is a persisted learning record.
type Item struct {
	// ID is assigned at creation and never changes
	ID string `json:"id" yaml:"id"`

	Title  string `json:"title" yaml:"title"`
	Author string `json:"author" yaml:"author"`
	Type   Type   `json:"type" yaml:"type"`
	Status Status `json:"status" yaml:"status"`

	// Progress is free text, conventionally "NN%"; only its leading integer is compared
	Progress string `json:"progress" yaml:"progress"`

	// URL is nil when absent, never empty
	URL *string `json:"url,omitempty" yaml:"url,omitempty"`

	// StartDate is set once at creation (RFC 3339)
	StartDate string `json:"startDate" yaml:"startDate"`

	// LastUpdated is rewritten on every mutation (RFC 3339)
	LastUpdated string `json:"lastUpdated" yaml:"lastUpdated"`
}

// AddInput is an item-creation record: everything but ID and LastUpdated.
type AddInput struct {
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	Type      Type    `json:"type"`
	Status    Status  `json:"status"`
	Progress  string  `json:"progress"`
	URL       *string `json:"url,omitempty"`
	StartDate string  `json:"startDate"`
}

// NewItem builds an Item from a validated AddInput.
func NewItem(id string, in AddInput, now time.Time) Item {
	return Item{
		ID:          id,
		Title:       in.Title,
		Author:      in.Author,
		Type:        in.Type,
		Status:      in.Status,
		Progress:    in.Progress,
		URL:         in.URL,
		StartDate:   in.StartDate,
		LastUpdated: FormatTime(now),
	}
}

// Context is the subset of an item the edit parser shows to the model.
type Context struct {
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Type     Type    `json:"type"`
	Status   Status  `json:"status"`
	Progress string  `json:"progress"`
	URL      *string `json:"url,omitempty"`
}

// Context returns the edit context for the item.
func (it Item) Context() Context {
	return Context{
		Title:    it.Title,
		Author:   it.Author,
		Type:     it.Type,
		Status:   it.Status,
		Progress: it.Progress,
		URL:      it.URL,
	}
}

// IsArchived reports whether the item has been retired.
func (it Item) IsArchived() bool {
	return it.Status == StatusArchived
}

// FormatTime renders t as UTC RFC 3339 with millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

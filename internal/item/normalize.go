package item

import (
	"strings"
	"time"

	"github.com/nas/track-learning/internal/errors"
)

// Default values applied when a field is missing.
const (
	DefaultAuthor   = "Unknown"
	DefaultType     = TypeBook
	DefaultStatus   = StatusInProgress
	DefaultProgress = "0%"
)

// Draft is a partially specified item, as a parser or client supplies it.
// Nil means the field was not provided.
type Draft struct {
	Title     *string
	Author    *string
	Website   *string
	Type      *Type
	Status    *Status
	Progress  *string
	URL       *string
	StartDate *string
}

// Normalize applies defaults to d and validates the result.
// now is the call-time timestamp used when StartDate is missing.
func (d Draft) Normalize(now time.Time) (AddInput, error) {
	in := AddInput{
		Title:     trimmed(d.Title),
		Author:    trimmed(d.Author),
		Type:      DefaultType,
		Status:    DefaultStatus,
		Progress:  trimmed(d.Progress),
		URL:       CleanURL(d.URL),
		StartDate: FormatTime(now),
	}

	if in.Title == "" {
		return AddInput{}, errors.NewValidation("title", "Missing title")
	}
	if in.Author == "" {
		in.Author = trimmed(d.Website)
	}
	if in.Author == "" {
		in.Author = DefaultAuthor
	}
	if d.Type != nil {
		in.Type = *d.Type
	}
	if d.Status != nil {
		in.Status = *d.Status
	}
	if in.Progress == "" {
		in.Progress = DefaultProgress
	}
	if d.StartDate != nil && strings.TrimSpace(*d.StartDate) != "" {
		in.StartDate = NormalizeDate(*d.StartDate)
	}

	if err := ValidateAddInput(in); err != nil {
		return AddInput{}, err
	}
	return in, nil
}

// ValidateAddInput checks the item-creation schema.
func ValidateAddInput(in AddInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return errors.NewValidation("title", "Title is required")
	}
	if strings.TrimSpace(in.Author) == "" {
		return errors.NewValidation("author", "Author is required")
	}
	if !in.Type.Valid() {
		return errors.NewValidation("type", "Invalid type: "+string(in.Type))
	}
	if !in.Status.Valid() {
		return errors.NewValidation("status", "Invalid status: "+string(in.Status))
	}
	if strings.TrimSpace(in.Progress) == "" {
		return errors.NewValidation("progress", "Progress is required")
	}
	if in.URL != nil && strings.TrimSpace(*in.URL) == "" {
		return errors.NewValidation("url", "URL must not be empty")
	}
	if !IsTimestamp(in.StartDate) {
		return errors.NewValidation("startDate", "startDate must be an ISO 8601 datetime")
	}
	return nil
}

// Validate checks a full persisted item.
func Validate(it Item) error {
	if strings.TrimSpace(it.ID) == "" {
		return errors.NewValidation("id", "ID is required")
	}
	if err := ValidateAddInput(AddInput{
		Title:     it.Title,
		Author:    it.Author,
		Type:      it.Type,
		Status:    it.Status,
		Progress:  it.Progress,
		URL:       it.URL,
		StartDate: it.StartDate,
	}); err != nil {
		return err
	}
	if !IsTimestamp(it.LastUpdated) {
		return errors.NewValidation("lastUpdated", "lastUpdated must be an ISO 8601 datetime")
	}
	return nil
}

// CleanURL trims u and turns blank into absent.
func CleanURL(u *string) *string {
	if u == nil {
		return nil
	}
	s := strings.TrimSpace(*u)
	if s == "" {
		return nil
	}
	return &s
}

// IsTimestamp reports whether s parses as RFC 3339.
func IsTimestamp(s string) bool {
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}

// NormalizeDate trims s and widens a bare calendar date to midnight UTC.
// Anything else is returned trimmed and left for validation.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return FormatTime(t)
	}
	return s
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

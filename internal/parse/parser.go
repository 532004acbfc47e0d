// Package parse turns free-text user messages into structured records with a
// language model: new items, partial edits and search criteria.
package parse

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nas/track-learning/internal/errors"
	"github.com/nas/track-learning/internal/item"
	"github.com/nas/track-learning/internal/llm"
)

// Intent names used in logs and metrics.
const (
	IntentAdd    = "add"
	IntentEdit   = "edit"
	IntentSearch = "search"
)

// Completer sends one system+user exchange and returns the assistant text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Observer is notified of every parse outcome.
type Observer interface {
	ObserveParse(intent string, err error)
}

// Parser runs the three intent parsers over a shared Completer.
// Each call is one model round trip; a failure returns no partial result.
type Parser struct {
	llm      Completer
	now      func() time.Time
	logger   *slog.Logger
	observer Observer
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock overrides the time source used for default timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// WithObserver registers an outcome observer.
func WithObserver(o Observer) Option {
	return func(p *Parser) { p.observer = o }
}

// New creates a Parser.
func New(c Completer, opts ...Option) *Parser {
	p := &Parser{
		llm:    c,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseAdd turns a message into a validated item-creation record.
func (p *Parser) ParseAdd(ctx context.Context, message string) (in item.AddInput, err error) {
	defer p.finish(IntentAdd, &err)

	now := p.now()
	raw, err := p.exchange(ctx, addPrompt(item.FormatTime(now)), message)
	if err != nil {
		return item.AddInput{}, err
	}

	draft, err := draftFromRaw(raw)
	if err != nil {
		return item.AddInput{}, err
	}
	return draft.Normalize(now)
}

// ParseEdit turns a message about current into a partial update.
// An update with no fields fails with NO_UPDATES.
func (p *Parser) ParseEdit(ctx context.Context, message string, current item.Context) (u item.EditUpdate, err error) {
	defer p.finish(IntentEdit, &err)

	raw, err := p.exchange(ctx, editPrompt(current), message)
	if err != nil {
		return item.EditUpdate{}, err
	}

	u, err = updateFromRaw(raw)
	if err != nil {
		return item.EditUpdate{}, err
	}
	if err := u.Validate(); err != nil {
		return item.EditUpdate{}, err
	}
	return u, nil
}

// ParseSearch turns a query into cleaned search criteria.
func (p *Parser) ParseSearch(ctx context.Context, query string) (c item.Criteria, err error) {
	defer p.finish(IntentSearch, &err)

	raw, err := p.exchange(ctx, searchPrompt(), query)
	if err != nil {
		return item.Criteria{}, err
	}
	return item.ParseCriteria(raw)
}

func (p *Parser) exchange(ctx context.Context, system, user string) (map[string]any, error) {
	content, err := p.llm.Complete(ctx, system, user)
	if err != nil {
		return nil, err
	}
	return llm.ExtractJSON(content)
}

func (p *Parser) finish(intent string, errp *error) {
	if p.observer != nil {
		p.observer.ObserveParse(intent, *errp)
	}
	if *errp != nil {
		p.logger.Warn("parse failed",
			slog.String("intent", intent),
			slog.String("error", (*errp).Error()),
		)
	}
}

// draftFromRaw maps the model's object onto a Draft. Unknown keys are ignored
// and null counts as absent.
func draftFromRaw(raw map[string]any) (item.Draft, error) {
	var d item.Draft
	var err error

	if d.Title, err = optString(raw, "title"); err != nil {
		return d, err
	}
	if d.Author, err = optString(raw, "author"); err != nil {
		return d, err
	}
	if d.Website, err = optString(raw, "website"); err != nil {
		return d, err
	}
	if d.Progress, err = optString(raw, "progress"); err != nil {
		return d, err
	}
	if d.URL, err = optString(raw, "url"); err != nil {
		return d, err
	}
	if d.StartDate, err = optString(raw, "startDate"); err != nil {
		return d, err
	}

	typ, err := optString(raw, "type")
	if err != nil {
		return d, err
	}
	if typ != nil {
		t := item.Type(*typ)
		if !t.Valid() {
			return d, errors.NewValidation("type", "Invalid type: "+*typ)
		}
		d.Type = &t
	}

	status, err := optString(raw, "status")
	if err != nil {
		return d, err
	}
	if status != nil {
		s := item.Status(*status)
		if !s.Valid() {
			return d, errors.NewValidation("status", "Invalid status: "+*status)
		}
		d.Status = &s
	}

	return d, nil
}

// updateFromRaw copies only the editable keys present in raw.
// A blank or null url clears the link; a blank progress is ignored.
func updateFromRaw(raw map[string]any) (item.EditUpdate, error) {
	var u item.EditUpdate

	status, err := optString(raw, "status")
	if err != nil {
		return u, err
	}
	if status != nil {
		s := item.Status(*status)
		u.Status = &s
	}

	progress, err := optString(raw, "progress")
	if err != nil {
		return u, err
	}
	if progress != nil {
		if p := strings.TrimSpace(*progress); p != "" {
			u.Progress = &p
		}
	}

	if v, ok := raw["url"]; ok {
		if v == nil {
			u.ClearURL = true
		} else {
			s, ok := v.(string)
			if !ok {
				return u, errors.NewValidation("url", "url must be a string")
			}
			if cleaned := item.CleanURL(&s); cleaned != nil {
				u.URL = cleaned
			} else {
				u.ClearURL = true
			}
		}
	}

	return u, nil
}

// optString reads an optional string key. Numbers are accepted and rendered
// as text since models often emit progress as a bare number.
func optString(raw map[string]any, key string) (*string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		return &val, nil
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		return &s, nil
	default:
		return nil, errors.NewValidation(key, fmt.Sprintf("%s must be a string", key))
	}
}

package parse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nas/track-learning/internal/errors"
	"github.com/nas/track-learning/internal/item"
)

type fakeCompleter struct {
	reply  string
	err    error
	system string
	user   string
	calls  int
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.system = system
	f.user = user
	return f.reply, f.err
}

type outcome struct {
	intent string
	failed bool
}

type recordingObserver struct {
	seen []outcome
}

func (o *recordingObserver) ObserveParse(intent string, err error) {
	o.seen = append(o.seen, outcome{intent: intent, failed: err != nil})
}

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestParser(reply string) (*Parser, *fakeCompleter, *recordingObserver) {
	fc := &fakeCompleter{reply: reply}
	obs := &recordingObserver{}
	p := New(fc,
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithObserver(obs),
	)
	return p, fc, obs
}

func TestParseAdd_Defaults(t *testing.T) {
	p, fc, obs := newTestParser("```json\n{\"title\":\"  Dune  \"}\n```")

	in, err := p.ParseAdd(context.Background(), "add Dune")
	require.NoError(t, err)

	assert.Equal(t, "Dune", in.Title)
	assert.Equal(t, item.DefaultAuthor, in.Author)
	assert.Equal(t, item.TypeBook, in.Type)
	assert.Equal(t, item.StatusInProgress, in.Status)
	assert.Equal(t, "0%", in.Progress)
	assert.Nil(t, in.URL)
	assert.Equal(t, "2025-03-04T05:06:07.000Z", in.StartDate)

	assert.Equal(t, "add Dune", fc.user)
	assert.Contains(t, fc.system, "2025-03-04T05:06:07.000Z")
	assert.Equal(t, []outcome{{IntentAdd, false}}, obs.seen)
}

func TestParseAdd_FullRecord(t *testing.T) {
	reply := `Sure! {"title":"Go Concurrency","website":"YouTube","type":"Course","status":"On Hold",` +
		`"progress":"30%","url":" https://example.com/go ","startDate":"2024-06-01"}`
	p, _, _ := newTestParser(reply)

	in, err := p.ParseAdd(context.Background(), "started the go course on youtube")
	require.NoError(t, err)

	assert.Equal(t, "YouTube", in.Author)
	assert.Equal(t, item.TypeCourse, in.Type)
	assert.Equal(t, item.StatusOnHold, in.Status)
	assert.Equal(t, "30%", in.Progress)
	require.NotNil(t, in.URL)
	assert.Equal(t, "https://example.com/go", *in.URL)
	assert.Equal(t, "2024-06-01T00:00:00.000Z", in.StartDate)
}

func TestParseAdd_NumericProgress(t *testing.T) {
	p, _, _ := newTestParser(`{"title":"SICP","progress":45}`)

	in, err := p.ParseAdd(context.Background(), "sicp 45")
	require.NoError(t, err)
	assert.Equal(t, "45", in.Progress)
}

func TestParseAdd_LargeNumericProgress(t *testing.T) {
	p, _, _ := newTestParser(`{"title":"SICP","progress":1500000}`)

	in, err := p.ParseAdd(context.Background(), "sicp")
	require.NoError(t, err)
	assert.Equal(t, "1500000", in.Progress)
	assert.Equal(t, 1500000, item.ProgressValue(in.Progress))

	criteria, err := item.ParseCriteria(map[string]any{"progressMin": float64(1500000)})
	require.NoError(t, err)
	assert.Equal(t, in.Progress, criteria.ProgressMin)
}

func TestParseAdd_Errors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		code  errors.ErrorCode
		msg   string
	}{
		{
			name:  "missing title",
			reply: `{"author":"Someone"}`,
			code:  errors.ErrValidation,
			msg:   "Missing title",
		},
		{
			name:  "blank title",
			reply: `{"title":"   "}`,
			code:  errors.ErrValidation,
			msg:   "Missing title",
		},
		{
			name:  "invalid type",
			reply: `{"title":"X","type":"Podcast"}`,
			code:  errors.ErrValidation,
		},
		{
			name:  "invalid status",
			reply: `{"title":"X","status":"Done"}`,
			code:  errors.ErrValidation,
		},
		{
			name:  "wrong json type",
			reply: `{"title":["a","b"]}`,
			code:  errors.ErrValidation,
		},
		{
			name:  "bad start date",
			reply: `{"title":"X","startDate":"next tuesday"}`,
			code:  errors.ErrValidation,
		},
		{
			name:  "no json",
			reply: "I am not sure what you mean.",
			code:  errors.ErrExtraction,
		},
		{
			name: "transport failure",
			err:  errors.NewTransport(500, nil),
			code: errors.ErrTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, fc, obs := newTestParser(tt.reply)
			fc.err = tt.err

			_, err := p.ParseAdd(context.Background(), "msg")
			tErr := errors.As(err)
			require.NotNil(t, tErr, "error = %v", err)
			assert.Equal(t, tt.code, tErr.Code)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, tErr.Message)
			}
			assert.Equal(t, []outcome{{IntentAdd, true}}, obs.seen)
		})
	}
}

func TestParseEdit(t *testing.T) {
	current := item.Item{
		Title:    "Dune",
		Author:   "Frank Herbert",
		Type:     item.TypeBook,
		Status:   item.StatusInProgress,
		Progress: "10%",
	}.Context()

	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{
			name:  "archive with progress keeps both",
			reply: `{"status":"Archived","progress":"100%"}`,
			want:  `{"progress":"100%","status":"Archived"}`,
		},
		{
			name:  "progress only",
			reply: `{"progress":" 45% "}`,
			want:  `{"progress":"45%"}`,
		},
		{
			name:  "extra keys dropped",
			reply: `{"title":"Renamed","status":"Completed"}`,
			want:  `{"status":"Completed"}`,
		},
		{
			name:  "blank url clears",
			reply: `{"url":""}`,
			want:  `{"url":null}`,
		},
		{
			name:  "null url clears",
			reply: `{"url":null}`,
			want:  `{"url":null}`,
		},
		{
			name:  "url trimmed",
			reply: `{"url":" https://dune.example "}`,
			want:  `{"url":"https://dune.example"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, fc, _ := newTestParser(tt.reply)

			u, err := p.ParseEdit(context.Background(), "update it", current)
			require.NoError(t, err)

			data, err := u.MarshalJSON()
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
			assert.Contains(t, fc.system, `"title":"Dune"`)
		})
	}
}

func TestParseEdit_Errors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		code  errors.ErrorCode
	}{
		{"empty object", `{}`, errors.ErrNoUpdates},
		{"only unknown keys", `{"title":"x"}`, errors.ErrNoUpdates},
		{"blank progress only", `{"progress":"  "}`, errors.ErrNoUpdates},
		{"invalid status", `{"status":"Finished"}`, errors.ErrValidation},
		{"non-string url", `{"url":42.5,"status":"Completed"}`, errors.ErrValidation},
		{"no json", `nothing to change`, errors.ErrExtraction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, obs := newTestParser(tt.reply)

			_, err := p.ParseEdit(context.Background(), "msg", item.Context{Title: "X"})
			assert.True(t, errors.Is(err, tt.code), "error = %v, want %s", err, tt.code)
			assert.Equal(t, []outcome{{IntentEdit, true}}, obs.seen)
		})
	}
}

func TestParseEdit_NoUpdatesMessage(t *testing.T) {
	p, _, _ := newTestParser(`{}`)

	_, err := p.ParseEdit(context.Background(), "hmm", item.Context{})
	tErr := errors.As(err)
	require.NotNil(t, tErr)
	assert.Equal(t, "No fields to update", tErr.Message)
}

func TestParseSearch(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		check func(t *testing.T, c item.Criteria)
	}{
		{
			name:  "single type and status",
			reply: `{"type":"Book","status":"Completed"}`,
			check: func(t *testing.T, c item.Criteria) {
				assert.Equal(t, item.One(item.TypeBook), c.Type)
				assert.Equal(t, item.One(item.StatusCompleted), c.Status)
			},
		},
		{
			name:  "full status universe collapses",
			reply: `{"status":["In Progress","Completed","On Hold","Archived"],"searchText":"go"}`,
			check: func(t *testing.T, c item.Criteria) {
				assert.Equal(t, item.KindNone, c.Status.Kind())
				assert.Equal(t, "go", c.SearchText)
			},
		},
		{
			name:  "invalid members dropped",
			reply: `{"type":["Book","Podcast"]}`,
			check: func(t *testing.T, c item.Criteria) {
				assert.Equal(t, []item.Type{item.TypeBook}, c.Type.Values())
			},
		},
		{
			name:  "exclusions and progress",
			reply: "```json\n{\"excludeStatus\":\"Archived\",\"progressMin\":\"50%\"}\n```",
			check: func(t *testing.T, c item.Criteria) {
				assert.True(t, c.ExcludeStatus.Contains(item.StatusArchived))
				assert.Equal(t, "50%", c.ProgressMin)
				assert.Empty(t, c.ProgressMax)
			},
		},
		{
			name:  "empty object",
			reply: `{}`,
			check: func(t *testing.T, c item.Criteria) {
				assert.True(t, c.IsEmpty())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, obs := newTestParser(tt.reply)

			c, err := p.ParseSearch(context.Background(), "query")
			require.NoError(t, err)
			tt.check(t, c)
			assert.Equal(t, []outcome{{IntentSearch, false}}, obs.seen)
		})
	}
}

func TestParseSearch_TransportError(t *testing.T) {
	p, fc, _ := newTestParser("")
	fc.err = errors.NewTransport(0, fmt.Errorf("connection refused"))

	_, err := p.ParseSearch(context.Background(), "books")
	assert.True(t, errors.Is(err, errors.ErrTransport), "error = %v", err)
	assert.Equal(t, 1, fc.calls)
}

func TestPrompts(t *testing.T) {
	add := addPrompt("2025-01-01T00:00:00.000Z")
	for _, want := range []string{`"Book","Course","Article"`, `"In Progress","Completed","On Hold","Archived"`, "2025-01-01T00:00:00.000Z", "website"} {
		if !strings.Contains(add, want) {
			t.Errorf("addPrompt missing %q", want)
		}
	}

	edit := editPrompt(item.Context{Title: "Dune", Progress: "5%"})
	for _, phrase := range archivePhrases {
		if !strings.Contains(edit, `"`+phrase+`"`) {
			t.Errorf("editPrompt missing archive phrase %q", phrase)
		}
	}
	if !strings.Contains(edit, `"progress":"5%"`) {
		t.Error("editPrompt must embed the current item")
	}

	search := searchPrompt()
	for _, want := range []string{"excludeType", "excludeStatus", "progressMin", "progressMax", "searchText", "Examples:"} {
		if !strings.Contains(search, want) {
			t.Errorf("searchPrompt missing %q", want)
		}
	}
}
